package ops

import (
	"context"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/piece"
)

// DuplicateInput contains parameters for the Duplicate operation.
type DuplicateInput struct {
	Room string // required
	ID   string // required
}

// DuplicateOutput contains the result of the Duplicate operation.
// Piece is nil when the source no longer exists.
type DuplicateOutput struct {
	Room    string       `json:"room"`
	Piece   *piece.Piece `json:"piece"`
	Version int64        `json:"version"`
}

// Duplicate appends a regular copy of a piece with " (Copy)" appended to its
// text. A consolidated source yields a regular copy of its summary; its cells
// and sources are not copied. An unknown id is a no-op.
func (s *Service) Duplicate(ctx context.Context, input DuplicateInput) (*DuplicateOutput, error) {
	room, err := roomName(input.Room)
	if err != nil {
		return nil, err
	}
	if err := requireID(input.ID); err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var created *piece.Piece
	res, err := s.mutate(ctx, "duplicate", room, func(current []piece.Piece) ([]piece.Piece, bool, error) {
		created = nil
		i := piece.IndexOf(current, input.ID)
		if i < 0 {
			return nil, false, nil
		}
		src := current[i]
		q := piece.Piece{
			ID:    id,
			Kind:  piece.KindRegular,
			Color: src.Color,
			Text:  piece.CopyText(src.Text),
		}
		created = &q
		return append(current, q), true, nil
	})
	if err != nil {
		return nil, err
	}

	return &DuplicateOutput{Room: room, Piece: created, Version: res.Version}, nil
}
