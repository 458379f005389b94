// Package grid lays pieces out on the wall's square grid.
//
// Everything here is a pure function of its inputs. Regular pieces are
// assigned cells in row-major order, skipping cells reserved by consolidated
// pieces; consolidated pieces render as the bounding box of their cells.
package grid

import "github.com/AO-5002/piecewall/internal/piece"

// Layout constants, in canvas pixels.
const (
	CellSize = 120
	Gap      = 20

	// AnchorX/AnchorY is the canvas point the grid is centered on.
	AnchorX = 500
	AnchorY = 400

	// MinSize is the smallest grid edge. Sizes are always odd so the grid has a center cell.
	MinSize = 3
)

// Point is a pixel position on the canvas.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is a pixel rectangle; X/Y is the top-left corner.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Size returns the smallest odd n >= MinSize with n*n >= occupiedCount.
func Size(occupiedCount int) int {
	size := MinSize
	for size*size < occupiedCount {
		size += 2
	}
	return size
}

// Extent is the pixel length of span consecutive cells including the gaps between them.
func Extent(span int) int {
	if span <= 0 {
		return 0
	}
	return span*CellSize + (span-1)*Gap
}

// CellToPixel returns the top-left pixel of cell (row, col) in a grid of the
// given size centered on the anchor.
func CellToPixel(row, col, size int) Point {
	total := Extent(size)
	return Point{
		X: AnchorX - total/2 + col*(CellSize+Gap),
		Y: AnchorY - total/2 + row*(CellSize+Gap),
	}
}

// NthFreeCell walks the size*size window in row-major order, skipping cells
// for which isOccupied is true, and returns the n-th (0-based) free cell.
// When the window holds fewer than n+1 free cells it returns (0,0) and false.
func NthFreeCell(n int, isOccupied func(row, col int) bool, size int) (piece.Cell, bool) {
	if n < 0 || size <= 0 {
		return piece.Cell{}, false
	}
	free := 0
	for idx := 0; idx < size*size; idx++ {
		row, col := idx/size, idx%size
		if isOccupied != nil && isOccupied(row, col) {
			continue
		}
		if free == n {
			return piece.Cell{Row: row, Col: col}, true
		}
		free++
	}
	return piece.Cell{}, false
}

// Bounds is the inclusive row/column range covered by a set of cells.
type Bounds struct {
	MinRow int `json:"min_row"`
	MaxRow int `json:"max_row"`
	MinCol int `json:"min_col"`
	MaxCol int `json:"max_col"`
}

// BoundingBox returns the bounds of cells. ok is false for an empty sequence.
func BoundingBox(cells []piece.Cell) (b Bounds, ok bool) {
	if len(cells) == 0 {
		return Bounds{}, false
	}
	b = Bounds{
		MinRow: cells[0].Row, MaxRow: cells[0].Row,
		MinCol: cells[0].Col, MaxCol: cells[0].Col,
	}
	for _, c := range cells[1:] {
		b.MinRow = min(b.MinRow, c.Row)
		b.MaxRow = max(b.MaxRow, c.Row)
		b.MinCol = min(b.MinCol, c.Col)
		b.MaxCol = max(b.MaxCol, c.Col)
	}
	return b, true
}

// Width is the pixel width of the box.
func (b Bounds) Width() int {
	return Extent(b.MaxCol - b.MinCol + 1)
}

// Height is the pixel height of the box.
func (b Bounds) Height() int {
	return Extent(b.MaxRow - b.MinRow + 1)
}

// Rect positions the box on a grid of the given size.
func (b Bounds) Rect(size int) Rect {
	origin := CellToPixel(b.MinRow, b.MinCol, size)
	return Rect{X: origin.X, Y: origin.Y, W: b.Width(), H: b.Height()}
}

// Tabs says which edges of a piece carry an outward tab. Neighbours on a
// checkerboard get complementary edges so the puzzle shapes interlock.
type Tabs struct {
	Top    bool `json:"top"`
	Right  bool `json:"right"`
	Bottom bool `json:"bottom"`
	Left   bool `json:"left"`
}

// TabsAt returns the tab configuration for a piece sitting in cell (row, col).
func TabsAt(row, col int) Tabs {
	evenRow := row%2 == 0
	evenCol := col%2 == 0
	return Tabs{
		Top:    evenRow,
		Right:  !evenCol,
		Bottom: !evenRow,
		Left:   evenCol,
	}
}
