package grid

import "github.com/AO-5002/piecewall/internal/piece"

// maxGrowth bounds how many times placement grows the grid before giving up.
const maxGrowth = 8

// Placement is a piece resolved for rendering.
type Placement struct {
	ID          string       `json:"id"`
	Kind        piece.Kind   `json:"kind"`
	Color       string       `json:"color"`
	Text        string       `json:"text"`
	Cells       []piece.Cell `json:"cells"`
	Rect        Rect         `json:"rect"`
	SourceCount int          `json:"source_count"`
	Tabs        *Tabs        `json:"tabs,omitempty"`
}

// Wall is the full presentation of a piece list.
type Wall struct {
	GridSize int         `json:"grid_size"`
	Pieces   []Placement `json:"pieces"`
}

// Assignment is the result of placing the regular pieces of a list.
type Assignment struct {
	Size      int
	Occupancy Occupancy
	Cells     map[string]piece.Cell
}

// Assign places every regular piece of pieces on the grid.
//
// The grid edge is Size(regular + reserved cells), widened to the smallest
// odd edge covering every reserved cell up to piece.MaxCellIndex. The i-th regular piece in list order gets
// NthFreeCell(i). If a piece cannot be placed the grid grows by one ring and
// placement restarts; after maxGrowth attempts the remaining pieces keep the
// (0,0) sentinel.
func Assign(pieces []piece.Piece) Assignment {
	occ := Occupied(pieces)
	regular := piece.Regular(pieces)

	size := max(Size(len(regular)+len(occ)), oddEdge(occ.span()))

	var cells map[string]piece.Cell
	for attempt := 0; attempt < maxGrowth; attempt++ {
		var ok bool
		cells, ok = assignAt(regular, occ, size)
		if ok {
			break
		}
		if attempt < maxGrowth-1 {
			size += 2
		}
	}

	return Assignment{Size: size, Occupancy: occ, Cells: cells}
}

// oddEdge rounds span up to an odd grid edge, capped at piece.MaxCellIndex+1.
func oddEdge(span int) int {
	span = min(span, piece.MaxCellIndex+1)
	if span%2 == 0 {
		span++
	}
	return span
}

// assignAt places regular pieces in a grid of fixed size.
func assignAt(regular []piece.Piece, occ Occupancy, size int) (map[string]piece.Cell, bool) {
	cells := make(map[string]piece.Cell, len(regular))
	ok := true
	for i, p := range regular {
		c, found := NthFreeCell(i, occ.Has, size)
		if !found {
			ok = false
		}
		cells[p.ID] = c
	}
	return cells, ok
}

// CellsFor returns the cell each regular piece currently occupies.
func CellsFor(pieces []piece.Piece) map[string]piece.Cell {
	return Assign(pieces).Cells
}

// Layout resolves every piece to its on-canvas rectangle.
func Layout(pieces []piece.Piece) Wall {
	a := Assign(pieces)
	wall := Wall{
		GridSize: a.Size,
		Pieces:   make([]Placement, 0, len(pieces)),
	}

	for _, p := range pieces {
		pl := Placement{
			ID:    p.ID,
			Kind:  p.Kind,
			Color: p.Color,
			Text:  p.Text,
		}

		switch p.Kind {
		case piece.KindConsolidated:
			pl.Cells = append([]piece.Cell(nil), p.OccupiedCells...)
			pl.SourceCount = len(p.SourceIDs)
			if b, ok := BoundingBox(p.OccupiedCells); ok {
				pl.Rect = b.Rect(a.Size)
			}
		default:
			c := a.Cells[p.ID]
			origin := CellToPixel(c.Row, c.Col, a.Size)
			tabs := TabsAt(c.Row, c.Col)
			pl.Cells = []piece.Cell{c}
			pl.Rect = Rect{X: origin.X, Y: origin.Y, W: CellSize, H: CellSize}
			pl.Tabs = &tabs
		}

		wall.Pieces = append(wall.Pieces, pl)
	}

	return wall
}
