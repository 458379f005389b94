package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AO-5002/piecewall/internal/piece"
)

func TestSize(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{0, 3},
		{1, 3},
		{9, 3},
		{10, 5},
		{25, 5},
		{26, 7},
		{49, 7},
		{50, 9},
	}

	for _, tt := range tests {
		if got := Size(tt.count); got != tt.want {
			t.Errorf("Size(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

func TestSize_SmallestOddSquareCover(t *testing.T) {
	for count := 0; count <= 200; count++ {
		got := Size(count)
		if got%2 != 1 || got < MinSize {
			t.Fatalf("Size(%d) = %d, want odd >= %d", count, got, MinSize)
		}
		if got*got < count {
			t.Fatalf("Size(%d) = %d does not cover the count", count, got)
		}
		if prev := got - 2; prev >= MinSize && prev*prev >= count {
			t.Fatalf("Size(%d) = %d, but %d already covers it", count, got, prev)
		}
	}
}

func TestCellToPixel(t *testing.T) {
	// 3x3: total = 3*120 + 2*20 = 400, origin = (500-200, 400-200)
	assert.Equal(t, Point{X: 300, Y: 200}, CellToPixel(0, 0, 3))
	assert.Equal(t, Point{X: 440, Y: 200}, CellToPixel(0, 1, 3))
	assert.Equal(t, Point{X: 300, Y: 340}, CellToPixel(1, 0, 3))
	assert.Equal(t, Point{X: 580, Y: 480}, CellToPixel(2, 2, 3))

	// 5x5: total = 5*120 + 4*20 = 680, origin = (160, 60)
	assert.Equal(t, Point{X: 160, Y: 60}, CellToPixel(0, 0, 5))
}

func TestCellToPixel_CenterCellIsCentered(t *testing.T) {
	for _, size := range []int{3, 5, 7, 9} {
		mid := size / 2
		p := CellToPixel(mid, mid, size)
		assert.Equal(t, AnchorX, p.X+CellSize/2, "size %d", size)
		assert.Equal(t, AnchorY, p.Y+CellSize/2, "size %d", size)
	}
}

func TestNthFreeCell_NoOccupancy(t *testing.T) {
	c, ok := NthFreeCell(0, nil, 3)
	require.True(t, ok)
	assert.Equal(t, piece.Cell{Row: 0, Col: 0}, c)

	c, ok = NthFreeCell(4, nil, 3)
	require.True(t, ok)
	assert.Equal(t, piece.Cell{Row: 1, Col: 1}, c)

	c, ok = NthFreeCell(8, nil, 3)
	require.True(t, ok)
	assert.Equal(t, piece.Cell{Row: 2, Col: 2}, c)
}

func TestNthFreeCell_SkipsOccupied(t *testing.T) {
	occ := Occupancy{{Row: 0, Col: 0}: "c", {Row: 0, Col: 1}: "c"}

	c, ok := NthFreeCell(0, occ.Has, 3)
	require.True(t, ok)
	assert.Equal(t, piece.Cell{Row: 0, Col: 2}, c)

	c, ok = NthFreeCell(1, occ.Has, 3)
	require.True(t, ok)
	assert.Equal(t, piece.Cell{Row: 1, Col: 0}, c)
}

func TestNthFreeCell_Exhausted(t *testing.T) {
	occ := Occupancy{{Row: 1, Col: 1}: "c"}

	// 9 cells, 1 reserved: indexes 0..7 exist, 8 does not
	_, ok := NthFreeCell(7, occ.Has, 3)
	require.True(t, ok)

	c, ok := NthFreeCell(8, occ.Has, 3)
	assert.False(t, ok)
	assert.Equal(t, piece.Cell{}, c, "exhausted search returns the (0,0) sentinel")

	_, ok = NthFreeCell(-1, occ.Has, 3)
	assert.False(t, ok)
	_, ok = NthFreeCell(0, occ.Has, 0)
	assert.False(t, ok)
}

func TestNthFreeCell_Property(t *testing.T) {
	sets := []Occupancy{
		{},
		{{Row: 0, Col: 0}: "a"},
		{{Row: 1, Col: 1}: "a", {Row: 1, Col: 2}: "a", {Row: 2, Col: 1}: "b"},
		{{Row: 4, Col: 4}: "a", {Row: 0, Col: 4}: "b", {Row: 2, Col: 2}: "b"},
	}

	for _, g := range []int{3, 5} {
		for _, occ := range sets {
			inside := 0
			for c := range occ {
				if c.Row < g && c.Col < g {
					inside++
				}
			}
			free := g*g - inside

			seen := make(map[piece.Cell]bool)
			prev := -1
			for n := 0; n < free; n++ {
				c, ok := NthFreeCell(n, occ.Has, g)
				require.True(t, ok, "g=%d n=%d", g, n)
				assert.False(t, occ.Has(c.Row, c.Col), "cell %v is reserved", c)
				assert.False(t, seen[c], "cell %v returned twice", c)
				seen[c] = true

				idx := c.Row*g + c.Col
				assert.Greater(t, idx, prev, "cells must be in strictly increasing row-major order")
				prev = idx
			}
			assert.Len(t, seen, free)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	b, ok := BoundingBox([]piece.Cell{{Row: 1, Col: 1}, {Row: 1, Col: 2}, {Row: 2, Col: 1}})
	require.True(t, ok)
	assert.Equal(t, Bounds{MinRow: 1, MaxRow: 2, MinCol: 1, MaxCol: 2}, b)
	assert.Equal(t, 2*CellSize+Gap, b.Width())
	assert.Equal(t, 2*CellSize+Gap, b.Height())

	_, ok = BoundingBox(nil)
	assert.False(t, ok)
}

func TestBoundingBox_SingleCell(t *testing.T) {
	b, ok := BoundingBox([]piece.Cell{{Row: 2, Col: 0}})
	require.True(t, ok)
	assert.Equal(t, CellSize, b.Width())
	assert.Equal(t, CellSize, b.Height())
	assert.Equal(t, Rect{X: 300, Y: 480, W: 120, H: 120}, b.Rect(3))
}

func TestExtent(t *testing.T) {
	assert.Equal(t, 0, Extent(0))
	assert.Equal(t, 120, Extent(1))
	assert.Equal(t, 400, Extent(3))
}

func TestTabsAt(t *testing.T) {
	assert.Equal(t, Tabs{Top: true, Left: true}, TabsAt(0, 0))
	assert.Equal(t, Tabs{Top: true, Right: true}, TabsAt(0, 1))
	assert.Equal(t, Tabs{Bottom: true, Left: true}, TabsAt(1, 0))
	assert.Equal(t, Tabs{Bottom: true, Right: true}, TabsAt(1, 1))
}
