package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AO-5002/piecewall/internal/config"
	"github.com/AO-5002/piecewall/internal/db"
	"github.com/AO-5002/piecewall/internal/hub"
	"github.com/AO-5002/piecewall/internal/ops"
	"github.com/AO-5002/piecewall/internal/summarize"
)

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return setupTestWithStorage(t, db.NewRooms(database))
}

func setupTestWithStorage(t *testing.T, storage ops.Storage) *Handlers {
	t.Helper()
	events := hub.New()
	t.Cleanup(events.Close)

	svc := ops.New(storage, config.DefaultConfig(),
		ops.WithNotifier(events),
		ops.WithSummarizer(summarize.Echo{}),
	)

	h, err := NewHandlers(svc, events, "test", nil)
	if err != nil {
		t.Fatalf("NewHandlers: %v", err)
	}
	return h
}

// seedPiece adds a piece and returns its ID.
func seedPiece(t *testing.T, h *Handlers, room, text string) string {
	t.Helper()
	out, err := h.svc.Add(context.Background(), ops.AddInput{Room: room, Text: text})
	if err != nil {
		t.Fatalf("seed piece %q: %v", text, err)
	}
	return out.Piece.ID
}

func serve(t *testing.T, h *Handlers, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	routes, err := h.Routes()
	if err != nil {
		t.Fatalf("Routes: %v", err)
	}
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	return rec
}

// --- HandleRooms ---

func TestHandleRooms_HTML(t *testing.T) {
	h := setupTest(t)
	seedPiece(t, h, "alpha", "a")
	seedPiece(t, h, "alpha", "b")

	rec := serve(t, h, httptest.NewRequest("GET", "/rooms", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `href="/rooms/alpha"`) {
		t.Error("expected a link to wall 'alpha'")
	}
	if !strings.Contains(body, "2 pieces") {
		t.Error("expected piece count in response")
	}
}

func TestHandleRooms_Empty(t *testing.T) {
	h := setupTest(t)

	rec := serve(t, h, httptest.NewRequest("GET", "/rooms", nil))
	if !strings.Contains(rec.Body.String(), "No walls yet") {
		t.Error("expected empty state message")
	}
}

func TestHandleRooms_OpenByName(t *testing.T) {
	h := setupTest(t)

	rec := serve(t, h, httptest.NewRequest("GET", "/rooms?room=+Team+Board+", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/rooms/team%20board" {
		t.Errorf("Location = %q, want /rooms/team%%20board", loc)
	}
}

func TestHandleRooms_JSON(t *testing.T) {
	h := setupTest(t)
	seedPiece(t, h, "alpha", "a")

	req := httptest.NewRequest("GET", "/rooms", nil)
	req.Header.Set("Accept", "application/json")
	rec := serve(t, h, req)

	var out ops.ListRoomsOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Rooms) != 1 || out.Rooms[0].Room != "alpha" {
		t.Errorf("rooms = %+v, want [alpha]", out.Rooms)
	}
}

// --- HandleWall ---

func TestHandleWall_RendersPieces(t *testing.T) {
	h := setupTest(t)
	seedPiece(t, h, "team", "Ship <b>fast</b>")

	rec := serve(t, h, httptest.NewRequest("GET", "/rooms/team", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Ship &lt;b&gt;fast&lt;/b&gt;") {
		t.Error("expected escaped piece text")
	}
	if !strings.Contains(body, `viewBox="280 180 440 440"`) {
		t.Error("expected a 3x3 viewBox")
	}
	if !strings.Contains(body, `x="300" y="200" width="120" height="120"`) {
		t.Error("expected the first piece in the top-left cell")
	}
}

func TestHandleWall_RendersConsolidatedMarkdown(t *testing.T) {
	h := setupTest(t)
	seedPiece(t, h, "team", "first")
	seedPiece(t, h, "team", "second")
	if _, err := h.svc.Consolidate(context.Background(), ops.ConsolidateInput{Room: "team"}); err != nil {
		t.Fatalf("Consolidate: %v", err)
	}

	rec := serve(t, h, httptest.NewRequest("GET", "/rooms/team", nil))
	body := rec.Body.String()

	if !strings.Contains(body, "<h2>Consolidated ideas (2)</h2>") {
		t.Error("expected markdown heading rendered as HTML")
	}
	if !strings.Contains(body, "<li>second</li>") {
		t.Error("expected markdown list rendered as HTML")
	}
	if !strings.Contains(body, "2 ideas") {
		t.Error("expected source count badge")
	}
}

func TestHandleWall_SecurityHeaders(t *testing.T) {
	h := setupTest(t)

	rec := serve(t, h, httptest.NewRequest("GET", "/rooms/team", nil))
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); !strings.Contains(got, "default-src 'self'") {
		t.Errorf("Content-Security-Policy = %q", got)
	}
}

func TestRootRedirects(t *testing.T) {
	h := setupTest(t)

	rec := serve(t, h, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/rooms" {
		t.Errorf("got %d %q, want 302 /rooms", rec.Code, rec.Header().Get("Location"))
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	h := setupTest(t)
	seedPiece(t, h, "team", "a")

	rec := serve(t, h, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(t, h, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "piecewall_ops_mutations_total") {
		t.Error("expected piecewall metrics to be exported")
	}
}

func TestStaticAssets(t *testing.T) {
	h := setupTest(t)

	for _, path := range []string{"/static/style.css", "/static/wall.js"} {
		rec := serve(t, h, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestRenderError_HidesInternalMessage(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/api/rooms/x", nil)
	rec := httptest.NewRecorder()
	h.renderer.renderError(rec, req, context.DeadlineExceeded)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "deadline") {
		t.Error("internal cause leaked to client")
	}
}

func TestViewBox(t *testing.T) {
	tests := []struct {
		size int
		want string
	}{
		{3, "280 180 440 440"},
		{5, "140 40 720 720"},
	}
	for _, tt := range tests {
		if got := viewBox(tt.size); got != tt.want {
			t.Errorf("viewBox(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
