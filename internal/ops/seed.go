package ops

import (
	"context"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/piece"
)

// SeedInput contains parameters for the Seed operation.
type SeedInput struct {
	Room string // required
}

// SeedOutput contains the result of the Seed operation.
type SeedOutput struct {
	Room    string `json:"room"`
	Added   int    `json:"added"`
	Version int64  `json:"version"`
}

// Seed fills an empty room with the starter pieces. A room that already holds
// pieces is left alone.
func (s *Service) Seed(ctx context.Context, input SeedInput) (*SeedOutput, error) {
	room, err := roomName(input.Room)
	if err != nil {
		return nil, err
	}

	starters := piece.CloneList(piece.StarterPieces)
	for i := range starters {
		id, err := s.newID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		starters[i].ID = id
	}

	res, err := s.mutate(ctx, "seed", room, func(current []piece.Piece) ([]piece.Piece, bool, error) {
		if len(current) > 0 {
			return nil, false, nil
		}
		return starters, true, nil
	})
	if err != nil {
		return nil, err
	}

	added := 0
	if res.Changed {
		added = len(starters)
	}
	return &SeedOutput{Room: room, Added: added, Version: res.Version}, nil
}
