package web

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/AO-5002/piecewall/internal/hub"
	"github.com/AO-5002/piecewall/internal/ops"
	"github.com/AO-5002/piecewall/internal/piece"
)

// Handlers contains HTTP route handlers for the web UI, the JSON API and the
// live feed.
type Handlers struct {
	svc      *ops.Service
	hub      *hub.Hub
	renderer *Renderer
	validate *validator.Validate
	logger   *slog.Logger
}

// HandleRooms handles GET /rooms and lists every wall. ?room=name opens that wall.
func (h *Handlers) HandleRooms(w http.ResponseWriter, r *http.Request) {
	if name := piece.NormalizeRoom(r.URL.Query().Get("room")); name != "" {
		http.Redirect(w, r, "/rooms/"+url.PathEscape(name), http.StatusFound)
		return
	}

	result, err := h.svc.ListRooms(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "rooms", RoomsPageData{
		PageData: PageData{
			Title:   "Walls",
			Version: h.renderer.version,
			Nav:     "rooms",
		},
		Rooms: result.Rooms,
	})
}

// HandleWall handles GET /rooms/{room} and renders one wall.
func (h *Handlers) HandleWall(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Get(r.Context(), ops.GetInput{Room: r.PathValue("room")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "wall", WallPageData{
		PageData: PageData{
			Title:   result.Room,
			Version: h.renderer.version,
			Nav:     "wall",
		},
		Room:    result.Room,
		Version: result.Version,
		Wall:    result.Layout,
		Status:  result.Status,
		Tiles:   tiles(result.Layout),
		ViewBox: viewBox(result.Layout.GridSize),
	})
}
