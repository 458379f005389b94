package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AO-5002/piecewall/internal/grid"
	"github.com/AO-5002/piecewall/internal/piece"
)

func TestGet(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, WithSummarizer(staticSummary("summary")))

	_, _ = s.Add(ctx, AddInput{Room: "team", Text: "a"})
	_, _ = s.Add(ctx, AddInput{Room: "team", Text: "b"})
	_, err := s.Consolidate(ctx, ConsolidateInput{Room: "team"})
	require.NoError(t, err)
	_, _ = s.Add(ctx, AddInput{Room: "team", Text: "c"})

	out, err := s.Get(ctx, GetInput{Room: "TEAM"})
	require.NoError(t, err)

	assert.Equal(t, "team", out.Room)
	assert.Equal(t, int64(4), out.Version)
	require.Len(t, out.Pieces, 2)
	assert.Equal(t, grid.Layout(out.Pieces), out.Layout)
	assert.Equal(t, 3, out.Layout.GridSize)
	assert.False(t, out.Status.Consolidating)
}

func TestGet_EmptyRoom(t *testing.T) {
	s := newTestService(t)

	out, err := s.Get(context.Background(), GetInput{Room: "fresh"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Version)
	assert.Empty(t, out.Pieces)
	assert.Equal(t, grid.MinSize, out.Layout.GridSize)
}

func TestGet_SeedsNewRooms(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	s.cfg.SeedNewRooms = true

	out, err := s.Get(ctx, GetInput{Room: "fresh"})
	require.NoError(t, err)
	require.Len(t, out.Pieces, len(piece.StarterPieces))
	assert.Equal(t, "Team Goals", out.Pieces[0].Text)
	assert.Equal(t, int64(1), out.Version)

	// A room emptied on purpose stays empty
	_, err = s.Clear(ctx, ClearInput{Room: "fresh"})
	require.NoError(t, err)
	out, err = s.Get(ctx, GetInput{Room: "fresh"})
	require.NoError(t, err)
	assert.Empty(t, out.Pieces)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	out, err := s.Seed(ctx, SeedInput{Room: "team"})
	require.NoError(t, err)
	assert.Equal(t, 5, out.Added)

	got := pieces(t, s, "team")
	require.Len(t, got, 5)
	for i, p := range got {
		assert.Equal(t, piece.StarterPieces[i].Text, p.Text)
		assert.Equal(t, piece.StarterPieces[i].Color, p.Color)
		assert.NotEmpty(t, p.ID)
	}
	assert.Empty(t, piece.StarterPieces[0].ID, "starter template is not mutated")

	again, err := s.Seed(ctx, SeedInput{Room: "team"})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Added)
	assert.Len(t, pieces(t, s, "team"), 5)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	_, _ = s.Add(ctx, AddInput{Room: "team"})
	_, _ = s.Add(ctx, AddInput{Room: "team"})

	out, err := s.Clear(ctx, ClearInput{Room: "team"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Removed)
	assert.Equal(t, int64(3), out.Version)
	assert.Empty(t, pieces(t, s, "team"))

	out, err = s.Clear(ctx, ClearInput{Room: "team"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Removed)
	assert.Equal(t, int64(3), out.Version)
}

func TestListRooms(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	_, _ = s.Add(ctx, AddInput{Room: "alpha"})
	_, _ = s.Add(ctx, AddInput{Room: "beta"})
	_, _ = s.Add(ctx, AddInput{Room: "beta"})

	out, err := s.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, out.Rooms, 2)

	counts := map[string]int{}
	for _, r := range out.Rooms {
		counts[r.Room] = r.PieceCount
	}
	assert.Equal(t, map[string]int{"alpha": 1, "beta": 2}, counts)
}
