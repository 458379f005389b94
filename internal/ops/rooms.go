package ops

import (
	"context"

	"github.com/AO-5002/piecewall/internal/db"
)

// ListRoomsOutput contains the result of the ListRooms operation.
type ListRoomsOutput struct {
	Rooms []db.RoomSummary `json:"rooms"`
}

// ListRooms returns every stored room, most recently updated first.
func (s *Service) ListRooms(ctx context.Context) (*ListRoomsOutput, error) {
	rooms, err := s.storage.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return &ListRoomsOutput{Rooms: rooms}, nil
}
