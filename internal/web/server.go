// Package web serves the wall over HTTP: an HTML view, a JSON API, a
// websocket feed of live changes, and the metrics endpoint.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AO-5002/piecewall/internal/hub"
	"github.com/AO-5002/piecewall/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Options configures NewServer.
type Options struct {
	Version string
	Bind    string
	Port    int
	Logger  *slog.Logger
}

// NewHandlers wires the handlers shared by the HTML, JSON and websocket routes.
func NewHandlers(svc *ops.Service, h *hub.Hub, version string, logger *slog.Logger) (*Handlers, error) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create template sub-FS: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Handlers{
		svc:      svc,
		hub:      h,
		renderer: NewRenderer(templateSub, version, logger),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}, nil
}

// Routes returns the full route table wrapped with security headers.
func (h *Handlers) Routes() (http.Handler, error) {
	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-FS: %w", err)
	}

	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/rooms", http.StatusFound)
	})
	mux.HandleFunc("GET /rooms", h.HandleRooms)
	mux.HandleFunc("GET /rooms/{room}", h.HandleWall)
	mux.HandleFunc("GET /rooms/{room}/ws", h.HandleWS)

	// JSON API
	mux.HandleFunc("GET /api/rooms", h.APIListRooms)
	mux.HandleFunc("GET /api/rooms/{room}", h.APIGetWall)
	mux.HandleFunc("GET /api/rooms/{room}/status", h.APIStatus)
	mux.HandleFunc("POST /api/rooms/{room}/pieces", h.APIAddPiece)
	mux.HandleFunc("DELETE /api/rooms/{room}/pieces", h.APIClear)
	mux.HandleFunc("PATCH /api/rooms/{room}/pieces/{id}", h.APIUpdatePiece)
	mux.HandleFunc("DELETE /api/rooms/{room}/pieces/{id}", h.APIDeletePiece)
	mux.HandleFunc("POST /api/rooms/{room}/pieces/{id}/duplicate", h.APIDuplicatePiece)
	mux.HandleFunc("POST /api/rooms/{room}/consolidate", h.APIConsolidate)
	mux.HandleFunc("POST /api/rooms/{room}/seed", h.APISeed)

	// Operations
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return securityHeaders(mux), nil
}

// NewServer creates and configures the HTTP server for the wall UI.
func NewServer(svc *ops.Service, h *hub.Hub, opts Options) (*http.Server, error) {
	handlers, err := NewHandlers(svc, h, opts.Version, opts.Logger)
	if err != nil {
		return nil, err
	}
	routes, err := handlers.Routes()
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("piecewall UI running", "url", "http://"+srv.Addr)
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
