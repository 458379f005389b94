package ops

import (
	"context"

	"github.com/AO-5002/piecewall/internal/grid"
	"github.com/AO-5002/piecewall/internal/piece"
)

// GetInput contains parameters for the Get operation.
type GetInput struct {
	Room string // required
}

// GetOutput is a room as the presentation layer sees it.
type GetOutput struct {
	Room    string        `json:"room"`
	Version int64         `json:"version"`
	Pieces  []piece.Piece `json:"pieces"`
	Layout  grid.Wall     `json:"layout"`
	Status  Status        `json:"status"`
}

// Get returns a room's pieces, their layout and the consolidation status.
// With seed_new_rooms enabled a room that was never written is seeded first.
func (s *Service) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	room, err := roomName(input.Room)
	if err != nil {
		return nil, err
	}

	snap, err := s.storage.Load(ctx, room)
	if err != nil {
		return nil, err
	}

	if s.cfg.SeedNewRooms && snap.Version == 0 {
		seeded, err := s.Seed(ctx, SeedInput{Room: room})
		if err != nil {
			return nil, err
		}
		if seeded.Added > 0 {
			snap, err = s.storage.Load(ctx, room)
			if err != nil {
				return nil, err
			}
		}
	}

	return &GetOutput{
		Room:    room,
		Version: snap.Version,
		Pieces:  snap.Pieces,
		Layout:  grid.Layout(snap.Pieces),
		Status:  s.Status(room),
	}, nil
}
