package ops

import (
	"context"
	"slices"

	"github.com/AO-5002/piecewall/internal/piece"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	Room string // required
	ID   string // required
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Room    string `json:"room"`
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Version int64  `json:"version"`
}

// Delete removes a piece. An unknown id is a no-op. Deleting a consolidated
// piece frees its cells; its sources stay gone.
func (s *Service) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	room, err := roomName(input.Room)
	if err != nil {
		return nil, err
	}
	if err := requireID(input.ID); err != nil {
		return nil, err
	}

	res, err := s.mutate(ctx, "delete", room, func(current []piece.Piece) ([]piece.Piece, bool, error) {
		i := piece.IndexOf(current, input.ID)
		if i < 0 {
			return nil, false, nil
		}
		return slices.Delete(current, i, i+1), true, nil
	})
	if err != nil {
		return nil, err
	}

	return &DeleteOutput{Room: room, ID: input.ID, Deleted: res.Changed, Version: res.Version}, nil
}
