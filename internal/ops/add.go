package ops

import (
	"context"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/piece"
)

// AddInput contains parameters for the Add operation.
type AddInput struct {
	Room  string // required
	Text  string // optional, default empty
	Color string // optional, default: random palette color
}

// AddOutput contains the result of the Add operation.
type AddOutput struct {
	Room    string      `json:"room"`
	Piece   piece.Piece `json:"piece"`
	Version int64       `json:"version"`
}

// Add appends a new regular piece.
func (s *Service) Add(ctx context.Context, input AddInput) (*AddOutput, error) {
	room, err := roomName(input.Room)
	if err != nil {
		return nil, err
	}
	if err := s.checkText(input.Text); err != nil {
		return nil, err
	}
	color := input.Color
	if color == "" {
		color = piece.PickColor(s.pick)
	} else if !piece.ValidColor(color) {
		return nil, errors.NewInvalidRequest("color must be a hex color like #bacded")
	}

	id, err := s.newID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	p := piece.Piece{ID: id, Kind: piece.KindRegular, Color: color, Text: input.Text}

	res, err := s.mutate(ctx, "add", room, func(current []piece.Piece) ([]piece.Piece, bool, error) {
		return append(current, p), true, nil
	})
	if err != nil {
		return nil, err
	}

	return &AddOutput{Room: room, Piece: p, Version: res.Version}, nil
}
