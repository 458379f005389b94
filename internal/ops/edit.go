package ops

import (
	"context"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/piece"
)

// EditInput contains parameters for the Edit operation. Nil fields are left as they are.
type EditInput struct {
	Room  string  // required
	ID    string  // required
	Text  *string // at least one of Text and Color
	Color *string
}

// EditOutput contains the result of the Edit operation.
type EditOutput struct {
	Room      string `json:"room"`
	ID        string `json:"id"`
	Updated   bool   `json:"updated"`
	Recolored bool   `json:"recolored"`
	Version   int64  `json:"version"`
}

// Edit changes a piece's text and color in a single write. An unknown id is a no-op.
func (s *Service) Edit(ctx context.Context, input EditInput) (*EditOutput, error) {
	room, err := roomName(input.Room)
	if err != nil {
		return nil, err
	}
	if err := requireID(input.ID); err != nil {
		return nil, err
	}
	if input.Text == nil && input.Color == nil {
		return nil, errors.NewInvalidRequest("text or color is required")
	}
	if input.Text != nil {
		if err := s.checkText(*input.Text); err != nil {
			return nil, err
		}
	}
	if input.Color != nil && !piece.ValidColor(*input.Color) {
		return nil, errors.NewInvalidRequest("color must be a hex color like #bacded")
	}

	out := &EditOutput{Room: room, ID: input.ID}
	res, err := s.mutate(ctx, "edit", room, func(current []piece.Piece) ([]piece.Piece, bool, error) {
		out.Updated, out.Recolored = false, false
		i := piece.IndexOf(current, input.ID)
		if i < 0 {
			return nil, false, nil
		}
		if input.Text != nil && current[i].Text != *input.Text {
			current[i].Text = *input.Text
			out.Updated = true
		}
		if input.Color != nil && current[i].Color != *input.Color {
			current[i].Color = *input.Color
			out.Recolored = true
		}
		return current, out.Updated || out.Recolored, nil
	})
	if err != nil {
		return nil, err
	}

	out.Version = res.Version
	return out, nil
}
