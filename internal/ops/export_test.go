package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/piece"
)

// newExportService returns a service allowed to read and write under dir.
func newExportService(t *testing.T, dir string, opts ...Option) *Service {
	t.Helper()
	s := newTestService(t, opts...)
	s.cfg.AllowedPaths = []string{dir}
	return s
}

func seedWall(t *testing.T, s *Service, room string) []piece.Piece {
	t.Helper()
	ctx := context.Background()
	_, _ = s.Add(ctx, AddInput{Room: room, Text: "a"})
	_, _ = s.Add(ctx, AddInput{Room: room, Text: "b"})
	_, err := s.Consolidate(ctx, ConsolidateInput{Room: room})
	require.NoError(t, err)
	_, _ = s.Add(ctx, AddInput{Room: room, Text: "c"})
	return pieces(t, s, room)
}

func TestExport_JSON(t *testing.T) {
	dir := t.TempDir()
	s := newExportService(t, dir, WithSummarizer(staticSummary("summary")))
	want := seedWall(t, s, "team")

	path := filepath.Join(dir, "team.json")
	out, err := s.Export(context.Background(), ExportInput{Room: "team", Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, out.Path)
	assert.Equal(t, FormatJSON, out.Format)
	assert.Equal(t, 2, out.Count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc ExportFile
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.True(t, doc.PiecewallExport)
	assert.Equal(t, ExportSchemaVersion, doc.SchemaVersion)
	assert.Equal(t, "team", doc.Room)
	assert.Equal(t, want, doc.Pieces)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestExport_YAML(t *testing.T) {
	dir := t.TempDir()
	s := newExportService(t, dir, WithSummarizer(staticSummary("summary")))
	want := seedWall(t, s, "team")

	path := filepath.Join(dir, "team.yaml")
	out, err := s.Export(context.Background(), ExportInput{Room: "team", Path: path})
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, out.Format)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc ExportFile
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, want, doc.Pieces)
}

func TestExport_RejectsPathOutsideAllowedDirs(t *testing.T) {
	s := newExportService(t, t.TempDir())
	other := t.TempDir()

	_, err := s.Export(context.Background(), ExportInput{Room: "team", Path: filepath.Join(other, "x.json")})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestImport_ReplaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newExportService(t, dir, WithSummarizer(staticSummary("summary")))
	want := seedWall(t, s, "team")

	for _, name := range []string{"wall.json", "wall.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			_, err := s.Export(ctx, ExportInput{Room: "team", Path: path})
			require.NoError(t, err)

			out, err := s.Import(ctx, ImportInput{Path: path, Room: "copy-" + name})
			require.NoError(t, err)
			assert.Equal(t, 2, out.Imported)
			assert.Equal(t, 0, out.Skipped)
			assert.Equal(t, want, pieces(t, s, out.Room))
		})
	}
}

func TestImport_DefaultsToRecordedRoom(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newExportService(t, dir, WithSummarizer(staticSummary("summary")))
	want := seedWall(t, s, "team")

	path := filepath.Join(dir, "wall.json")
	_, err := s.Export(ctx, ExportInput{Room: "team", Path: path})
	require.NoError(t, err)
	_, err = s.Clear(ctx, ClearInput{Room: "team"})
	require.NoError(t, err)

	out, err := s.Import(ctx, ImportInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "team", out.Room)
	assert.Equal(t, want, pieces(t, s, "team"))
}

func TestImport_AppendRekeysAndSkipsClaimedCells(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newExportService(t, dir, WithSummarizer(staticSummary("summary")))
	seedWall(t, s, "team")

	path := filepath.Join(dir, "wall.json")
	_, err := s.Export(ctx, ExportInput{Room: "team", Path: path})
	require.NoError(t, err)

	// Appending onto itself: the consolidated piece's cells are taken
	out, err := s.Import(ctx, ImportInput{Path: path, Room: "team", Mode: ImportModeAppend})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Imported)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 0, out.Errors[0].Index)

	got := pieces(t, s, "team")
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[2].Text)
	assert.NotEqual(t, got[1].ID, got[2].ID)
	assert.Empty(t, piece.ValidateList(got))
}

func TestImport_SkipsInvalidPieces(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newExportService(t, dir)

	doc := ExportFile{
		PiecewallExport: true,
		SchemaVersion:   ExportSchemaVersion,
		Room:            "team",
		Pieces: []piece.Piece{
			{ID: "a", Kind: piece.KindRegular, Text: "ok"},
			{ID: "a", Kind: piece.KindRegular, Text: "dup"},
			{ID: "b", Kind: "sticky"},
			{ID: "c", Kind: piece.KindConsolidated, Text: "no cells"},
			{ID: "d", Kind: piece.KindConsolidated, Text: "far", OccupiedCells: []piece.Cell{{Row: 5000000000, Col: 0}}},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	out, err := s.Import(ctx, ImportInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Imported)
	assert.Equal(t, 4, out.Skipped)
	assert.Equal(t, []string{"a"}, ids(pieces(t, s, "team")))

	got, err := s.Get(ctx, GetInput{Room: "team"})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Layout.GridSize)
}

func TestImport_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newExportService(t, dir)

	notExport := filepath.Join(dir, "plain.json")
	require.NoError(t, os.WriteFile(notExport, []byte(`{"pieces":[]}`), 0600))
	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("pieces: [unclosed"), 0600))

	tests := []struct {
		name  string
		input ImportInput
		code  errors.ErrorCode
	}{
		{"missing path", ImportInput{}, errors.ErrInvalidRequest},
		{"bad mode", ImportInput{Path: notExport, Mode: "merge"}, errors.ErrInvalidRequest},
		{"missing file", ImportInput{Path: filepath.Join(dir, "nope.json")}, errors.ErrNotFound},
		{"not an export", ImportInput{Path: notExport}, errors.ErrInvalidRequest},
		{"malformed yaml", ImportInput{Path: garbage}, errors.ErrInvalidRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Import(ctx, tc.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.code), "got %v", err)
		})
	}
}
