package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/AO-5002/piecewall/internal/db"
	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/grid"
	"github.com/AO-5002/piecewall/internal/ops"
	"github.com/AO-5002/piecewall/internal/piece"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "rooms", "wall"
}

// RoomsPageData is the template data for the room index.
type RoomsPageData struct {
	PageData
	Rooms []db.RoomSummary
}

// WallPageData is the template data for a single wall.
type WallPageData struct {
	PageData
	Room    string
	Version int64
	Wall    grid.Wall
	Status  ops.Status
	Tiles   []Tile
	ViewBox string
}

// Tile is one placed piece ready for the template.
type Tile struct {
	grid.Placement
	Consolidated bool
	Body         template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *slog.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *slog.Logger) *Renderer {
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"formatTime": formatTime,
		"plural":     plural,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"rooms": "rooms.html",
		"wall":  "wall.html",
		"error": "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logger,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.Error("template execution error", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
// Internal messages are replaced so causes like SQL errors never reach clients.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	wallErr := errors.As(err)
	status := wallErr.Status
	message := wallErr.Message
	if wallErr.Code == errors.ErrInternal {
		r.logger.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		message = "an internal error occurred"
	}

	if wantsJSON(req) {
		payload := map[string]any{
			"code":    string(wallErr.Code),
			"message": message,
			"status":  status,
		}
		if wallErr.Code != errors.ErrInternal && wallErr.Details != nil {
			payload["details"] = wallErr.Details
		}
		renderJSON(w, status, map[string]any{"error": payload})
		return
	}

	// Full error page
	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// wantsJSON reports whether the client asked for JSON. API routes always do.
func wantsJSON(req *http.Request) bool {
	return strings.HasPrefix(req.URL.Path, "/api/") ||
		strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// goldmark drops raw HTML by default, so summaries cannot inject markup.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// tiles prepares placements for the wall template. Consolidated summaries
// are markdown; regular piece text is shown verbatim.
func tiles(wall grid.Wall) []Tile {
	out := make([]Tile, 0, len(wall.Pieces))
	for _, pl := range wall.Pieces {
		t := Tile{Placement: pl, Consolidated: pl.Kind == piece.KindConsolidated}
		if t.Consolidated {
			t.Body = renderMarkdown(pl.Text)
		} else {
			t.Body = template.HTML(template.HTMLEscapeString(pl.Text))
		}
		out = append(out, t)
	}
	return out
}

// viewBox frames the whole grid with one gap of margin.
func viewBox(size int) string {
	origin := grid.CellToPixel(0, 0, size)
	extent := grid.Extent(size) + 2*grid.Gap
	return fmt.Sprintf("%d %d %d %d", origin.X-grid.Gap, origin.Y-grid.Gap, extent, extent)
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// plural returns singular when n == 1 and singular+"s" otherwise.
func plural(n int, singular string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %ss", n, singular)
}
