// Package piece defines the cards that live on a wall.
package piece

import (
	"fmt"
	"slices"
)

// Kind distinguishes user-authored pieces from AI-merged ones.
type Kind string

const (
	KindRegular      Kind = "regular"
	KindConsolidated Kind = "consolidated"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindRegular || k == KindConsolidated
}

// MaxCellIndex is the largest row or column a stored cell may use.
const MaxCellIndex = 1023

// Cell is a logical grid slot.
type Cell struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// Piece is a single card on a wall.
type Piece struct {
	// ID is a ULID, immutable after creation.
	ID string `json:"id" yaml:"id"`

	Kind  Kind   `json:"kind" yaml:"kind"`
	Color string `json:"color" yaml:"color"`
	Text  string `json:"text" yaml:"text"`

	// OccupiedCells is set only on consolidated pieces and is never empty there.
	OccupiedCells []Cell `json:"occupied_cells,omitempty" yaml:"occupied_cells,omitempty"`

	// SourceIDs lists the regular pieces merged into a consolidated piece.
	// Provenance only: the sources are gone once merged.
	SourceIDs []string `json:"source_ids,omitempty" yaml:"source_ids,omitempty"`
}

// IsConsolidated reports whether p is an AI-merged block.
func (p Piece) IsConsolidated() bool {
	return p.Kind == KindConsolidated
}

// Clone returns a deep copy of p.
func (p Piece) Clone() Piece {
	p.OccupiedCells = slices.Clone(p.OccupiedCells)
	p.SourceIDs = slices.Clone(p.SourceIDs)
	return p
}

// CloneList returns a deep copy of a piece list. The result is never nil.
func CloneList(pieces []Piece) []Piece {
	out := make([]Piece, len(pieces))
	for i, p := range pieces {
		out[i] = p.Clone()
	}
	return out
}

// Regular returns the regular pieces of a list in list order.
func Regular(pieces []Piece) []Piece {
	out := make([]Piece, 0, len(pieces))
	for _, p := range pieces {
		if p.Kind == KindRegular {
			out = append(out, p)
		}
	}
	return out
}

// IndexOf returns the position of the piece with the given id, or -1.
func IndexOf(pieces []Piece, id string) int {
	return slices.IndexFunc(pieces, func(p Piece) bool { return p.ID == id })
}

// Validate checks the structural invariants of a single piece: a known kind,
// consolidated pieces covering at least one cell within [0, MaxCellIndex], and regular
// pieces carrying no consolidation data.
func Validate(p Piece) []string {
	var problems []string
	if p.ID == "" {
		problems = append(problems, "id is empty")
	}
	if !p.Kind.Valid() {
		problems = append(problems, "unknown kind "+string(p.Kind))
	}
	switch p.Kind {
	case KindConsolidated:
		if len(p.OccupiedCells) == 0 {
			problems = append(problems, "consolidated piece covers no cells")
		}
		for _, c := range p.OccupiedCells {
			if c.Row < 0 || c.Col < 0 {
				problems = append(problems, "negative cell coordinate")
				break
			}
			if c.Row > MaxCellIndex || c.Col > MaxCellIndex {
				problems = append(problems, fmt.Sprintf("cell (%d,%d) beyond %d", c.Row, c.Col, MaxCellIndex))
				break
			}
		}
	case KindRegular:
		if len(p.OccupiedCells) > 0 || len(p.SourceIDs) > 0 {
			problems = append(problems, "regular piece carries consolidation data")
		}
	}
	return problems
}

// ValidateList checks list-wide invariants: unique ids and pairwise disjoint
// consolidated cells, on top of every per-piece check.
func ValidateList(pieces []Piece) []string {
	var problems []string
	ids := make(map[string]bool, len(pieces))
	claimed := make(map[Cell]string)
	for _, p := range pieces {
		problems = append(problems, Validate(p)...)
		if ids[p.ID] {
			problems = append(problems, "duplicate id "+p.ID)
		}
		ids[p.ID] = true
		if p.Kind != KindConsolidated {
			continue
		}
		for _, c := range p.OccupiedCells {
			if owner, ok := claimed[c]; ok && owner != p.ID {
				problems = append(problems, "cell claimed twice by "+owner+" and "+p.ID)
			}
			claimed[c] = p.ID
		}
	}
	return problems
}
