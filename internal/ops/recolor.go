package ops

import (
	"context"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/piece"
)

// RecolorInput contains parameters for the Recolor operation.
type RecolorInput struct {
	Room  string // required
	ID    string // required
	Color string // required, hex
}

// RecolorOutput contains the result of the Recolor operation.
type RecolorOutput struct {
	Room      string `json:"room"`
	ID        string `json:"id"`
	Recolored bool   `json:"recolored"`
	Version   int64  `json:"version"`
}

// Recolor changes a piece's color. An unknown id is a no-op.
func (s *Service) Recolor(ctx context.Context, input RecolorInput) (*RecolorOutput, error) {
	room, err := roomName(input.Room)
	if err != nil {
		return nil, err
	}
	if err := requireID(input.ID); err != nil {
		return nil, err
	}
	if !piece.ValidColor(input.Color) {
		return nil, errors.NewInvalidRequest("color must be a hex color like #bacded")
	}

	res, err := s.mutate(ctx, "recolor", room, func(current []piece.Piece) ([]piece.Piece, bool, error) {
		i := piece.IndexOf(current, input.ID)
		if i < 0 || current[i].Color == input.Color {
			return nil, false, nil
		}
		current[i].Color = input.Color
		return current, true, nil
	})
	if err != nil {
		return nil, err
	}

	return &RecolorOutput{Room: room, ID: input.ID, Recolored: res.Changed, Version: res.Version}, nil
}
