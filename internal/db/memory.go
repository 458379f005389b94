package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/piece"
)

// Memory is an in-process room store with the same versioning rules as Rooms.
// It backs `serve --ephemeral` and tests that do not need a file.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]*memRoom
	now   func() time.Time
}

type memRoom struct {
	pieces    []piece.Piece
	version   int64
	createdAt int64
	updatedAt int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]*memRoom), now: time.Now}
}

// Load returns a deep copy of the room's pieces.
func (m *Memory) Load(ctx context.Context, room string) (Snapshot, error) {
	if ctx.Err() != nil {
		return Snapshot{}, errors.NewCancelled("load")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[room]
	if !ok {
		return Snapshot{Pieces: []piece.Piece{}}, nil
	}
	return Snapshot{Pieces: piece.CloneList(r.pieces), Version: r.version}, nil
}

// CompareAndSwap stores a deep copy of pieces if the version still matches.
func (m *Memory) CompareAndSwap(ctx context.Context, room string, expected int64, pieces []piece.Piece) (int64, error) {
	if ctx.Err() != nil {
		return 0, errors.NewCancelled("write")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().Unix()
	r, ok := m.rooms[room]
	switch {
	case !ok && expected == 0:
		r = &memRoom{createdAt: now}
		m.rooms[room] = r
	case !ok || r.version != expected:
		return 0, ErrVersionMismatch
	}

	r.pieces = piece.CloneList(pieces)
	r.version++
	r.updatedAt = now
	return r.version, nil
}

// ListRooms mirrors Rooms.ListRooms ordering.
func (m *Memory) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("list rooms")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RoomSummary, 0, len(m.rooms))
	for name, r := range m.rooms {
		out = append(out, RoomSummary{
			Room:       name,
			PieceCount: len(r.pieces),
			Version:    r.version,
			CreatedAt:  r.createdAt,
			UpdatedAt:  r.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].Room < out[j].Room
	})
	return out, nil
}
