package ops

import (
	"context"

	"github.com/AO-5002/piecewall/internal/piece"
)

// ClearInput contains parameters for the Clear operation.
type ClearInput struct {
	Room string // required
}

// ClearOutput contains the result of the Clear operation.
type ClearOutput struct {
	Room    string `json:"room"`
	Removed int    `json:"removed"`
	Version int64  `json:"version"`
}

// Clear removes every piece from a room. The room itself and its version
// history stay, so stale writers still lose their race.
func (s *Service) Clear(ctx context.Context, input ClearInput) (*ClearOutput, error) {
	room, err := roomName(input.Room)
	if err != nil {
		return nil, err
	}

	removed := 0
	res, err := s.mutate(ctx, "clear", room, func(current []piece.Piece) ([]piece.Piece, bool, error) {
		removed = len(current)
		if removed == 0 {
			return nil, false, nil
		}
		return []piece.Piece{}, true, nil
	})
	if err != nil {
		return nil, err
	}

	return &ClearOutput{Room: room, Removed: removed, Version: res.Version}, nil
}
