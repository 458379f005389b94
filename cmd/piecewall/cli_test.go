package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/AO-5002/piecewall/internal/config"
	"github.com/AO-5002/piecewall/internal/db"
	"github.com/AO-5002/piecewall/internal/ops"
)

// setupTestApp creates a CLI app over a temporary database.
func setupTestApp(t *testing.T) *cli.App {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return newCLIApp(database, testConfig())
}

// testConfig returns a default config with the offline summarizer.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Summarizer = config.SummarizerEcho
	cfg.AllowUnsafePaths = true
	return cfg
}

// runCLI runs args and returns what the command wrote to stdout.
func runCLI(t *testing.T, app *cli.App, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	out := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		out <- buf.String()
	}()

	runErr := app.Run(append([]string{"piecewall"}, args...))
	w.Close()
	os.Stdout = oldStdout
	return <-out, runErr
}

// runJSON runs args, fails the test on error and decodes stdout into T.
func runJSON[T any](t *testing.T, app *cli.App, args ...string) T {
	t.Helper()
	stdout, err := runCLI(t, app, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	var v T
	if err := json.Unmarshal([]byte(stdout), &v); err != nil {
		t.Fatalf("failed to parse output %q: %v", stdout, err)
	}
	return v
}

func TestCLIAddAndShow(t *testing.T) {
	app := setupTestApp(t)

	added := runJSON[ops.AddOutput](t, app, "add", "--room=Team", "--text=first idea", "--color=#ddedab")
	if added.Room != "team" {
		t.Errorf("room = %q, want team", added.Room)
	}
	if added.Piece.Text != "first idea" || added.Piece.Color != "#ddedab" {
		t.Errorf("piece = %+v", added.Piece)
	}

	shown := runJSON[ops.GetOutput](t, app, "show", "-r", "team")
	if shown.Version != 1 || len(shown.Pieces) != 1 {
		t.Fatalf("show = %+v", shown)
	}
	if shown.Layout.GridSize != 3 {
		t.Errorf("grid_size = %d, want 3", shown.Layout.GridSize)
	}
	if got := shown.Layout.Pieces[0].Rect; got.X != 300 || got.Y != 200 {
		t.Errorf("first rect = %+v, want (300,200)", got)
	}
}

func TestCLIPieceMutations(t *testing.T) {
	app := setupTestApp(t)
	id := runJSON[ops.AddOutput](t, app, "add", "--text=draft").Piece.ID

	updated := runJSON[ops.UpdateTextOutput](t, app, "update", "--text=final", id)
	if !updated.Updated || updated.Version != 2 {
		t.Errorf("update = %+v", updated)
	}

	recolored := runJSON[ops.RecolorOutput](t, app, "recolor", "--color=#f7bbdc", id)
	if !recolored.Recolored {
		t.Errorf("recolor = %+v", recolored)
	}

	dup := runJSON[ops.DuplicateOutput](t, app, "duplicate", id)
	if dup.Piece == nil || dup.Piece.Text != "final (Copy)" || dup.Piece.Color != "#f7bbdc" {
		t.Fatalf("duplicate = %+v", dup)
	}

	deleted := runJSON[ops.DeleteOutput](t, app, "delete", id)
	if !deleted.Deleted {
		t.Errorf("delete = %+v", deleted)
	}

	shown := runJSON[ops.GetOutput](t, app, "show")
	if len(shown.Pieces) != 1 || shown.Pieces[0].ID != dup.Piece.ID {
		t.Errorf("remaining = %+v, want only the copy", shown.Pieces)
	}
}

func TestCLIRoomsSeedClear(t *testing.T) {
	app := setupTestApp(t)

	seeded := runJSON[ops.SeedOutput](t, app, "seed", "--room=fresh")
	if seeded.Added != 5 {
		t.Errorf("added = %d, want 5", seeded.Added)
	}

	rooms := runJSON[ops.ListRoomsOutput](t, app, "rooms")
	if len(rooms.Rooms) != 1 || rooms.Rooms[0].Room != "fresh" {
		t.Errorf("rooms = %+v", rooms.Rooms)
	}

	cleared := runJSON[ops.ClearOutput](t, app, "clear", "--room=fresh")
	if cleared.Removed != 5 {
		t.Errorf("removed = %d, want 5", cleared.Removed)
	}
}

func TestCLIConsolidate(t *testing.T) {
	app := setupTestApp(t)

	_, err := runCLI(t, app, "consolidate")
	if err == nil || !strings.Contains(err.Error(), "[NOTHING_TO_CONSOLIDATE]") {
		t.Fatalf("err = %v, want NOTHING_TO_CONSOLIDATE", err)
	}

	runJSON[ops.AddOutput](t, app, "add", "--text=ship it")
	runJSON[ops.AddOutput](t, app, "add", "--text=test it")

	out := runJSON[ops.ConsolidateOutput](t, app, "consolidate")
	if out.OriginalPieceCount != 2 {
		t.Errorf("original_piece_count = %d, want 2", out.OriginalPieceCount)
	}
	if !strings.Contains(out.Piece.Text, "- ship it") {
		t.Errorf("summary = %q", out.Piece.Text)
	}
	if len(out.Piece.OccupiedCells) != 2 {
		t.Errorf("occupied cells = %v", out.Piece.OccupiedCells)
	}
}

func TestCLIExportImport(t *testing.T) {
	app := setupTestApp(t)
	runJSON[ops.AddOutput](t, app, "add", "--room=src", "--text=a")
	runJSON[ops.AddOutput](t, app, "add", "--room=src", "--text=b")

	exportPath := filepath.Join(t.TempDir(), "wall.yaml")
	exported := runJSON[ops.ExportOutput](t, app, "export", "--room=src", "--path="+exportPath)
	if exported.Path != exportPath {
		t.Errorf("path = %q, want %q", exported.Path, exportPath)
	}

	imported := runJSON[ops.ImportOutput](t, app, "import", "--path="+exportPath, "--room=dst")
	if imported.Room != "dst" || imported.Imported != 2 {
		t.Errorf("import = %+v", imported)
	}

	_, err := runCLI(t, app, "import", "--path="+exportPath, "--mode=merge")
	if err == nil || !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
		t.Errorf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestCLIErrors(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"blank room", []string{"show", "--room= "}, "[INVALID_REQUEST] room is required"},
		{"missing id", []string{"delete"}, "[INVALID_REQUEST]"},
		{"bad color", []string{"add", "--color=teal"}, "[INVALID_REQUEST]"},
		{"text too long", []string{"add", "--text=" + strings.Repeat("x", 501)}, "[TEXT_TOO_LONG]"},
		{"missing import path", []string{"import"}, "path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, app, tt.args...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestIsCLIMode(t *testing.T) {
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"piecewall"}, false},
		{[]string{"piecewall", "serve"}, true},
		{[]string{"piecewall", "mcp"}, true},
		{[]string{"piecewall", "--version"}, true},
		{[]string{"piecewall", "bogus"}, false},
	}

	for _, tt := range tests {
		os.Args = tt.args
		if got := isCLIMode(); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestOutputError(t *testing.T) {
	err := outputError(io.ErrUnexpectedEOF)
	if got := err.Error(); got != "[INTERNAL] unexpected EOF" {
		t.Errorf("err = %q", got)
	}
	if exit, ok := err.(cli.ExitCoder); !ok || exit.ExitCode() != 1 {
		t.Errorf("expected exit code 1, got %v", err)
	}
}
