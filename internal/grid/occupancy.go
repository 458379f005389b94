package grid

import "github.com/AO-5002/piecewall/internal/piece"

// Occupancy is the set of cells reserved by consolidated pieces, mapped to the
// id of the piece holding each one.
type Occupancy map[piece.Cell]string

// Occupied derives the reserved-cell set from the current piece list.
// It is rebuilt from scratch on every call; callers never cache it.
func Occupied(pieces []piece.Piece) Occupancy {
	occ := make(Occupancy)
	for _, p := range pieces {
		if p.Kind != piece.KindConsolidated {
			continue
		}
		for _, c := range p.OccupiedCells {
			occ[c] = p.ID
		}
	}
	return occ
}

// IsOccupied is a one-shot membership test against Occupied(pieces).
func IsOccupied(row, col int, pieces []piece.Piece) bool {
	return Occupied(pieces).Has(row, col)
}

// Has reports whether (row, col) is reserved.
func (o Occupancy) Has(row, col int) bool {
	_, ok := o[piece.Cell{Row: row, Col: col}]
	return ok
}

// Owner returns the id of the consolidated piece holding (row, col).
func (o Occupancy) Owner(row, col int) (string, bool) {
	id, ok := o[piece.Cell{Row: row, Col: col}]
	return id, ok
}

// Overlaps returns the cells from cells that are already reserved.
func (o Occupancy) Overlaps(cells []piece.Cell) []piece.Cell {
	var hit []piece.Cell
	for _, c := range cells {
		if _, ok := o[c]; ok {
			hit = append(hit, c)
		}
	}
	return hit
}

// span is the smallest grid edge that contains every reserved cell.
func (o Occupancy) span() int {
	n := 0
	for c := range o {
		n = max(n, c.Row+1, c.Col+1)
	}
	return n
}
