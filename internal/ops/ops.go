// Package ops implements every operation on a wall: the piece mutations, the
// consolidation workflow and the import/export of a room.
//
// Each mutation is a pure transformation of the room's piece list. It is
// applied copy-on-write: load the list, compute a new one, compare-and-swap it
// back. A lost race re-applies the transformation to the fresh list.
package ops

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/AO-5002/piecewall/internal/config"
	"github.com/AO-5002/piecewall/internal/db"
	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/piece"
	"github.com/AO-5002/piecewall/internal/summarize"
)

// maxWriteAttempts bounds compare-and-swap retries for one mutation.
const maxWriteAttempts = 5

// Storage is the substrate rooms live in. Both db.Rooms and db.Memory satisfy it.
type Storage interface {
	Load(ctx context.Context, room string) (db.Snapshot, error)
	CompareAndSwap(ctx context.Context, room string, expected int64, pieces []piece.Piece) (int64, error)
	ListRooms(ctx context.Context) ([]db.RoomSummary, error)
}

// Notifier is told about every committed write.
type Notifier interface {
	Notify(room string, version int64, pieces []piece.Piece)
}

// StatusNotifier is optionally implemented by a Notifier that also wants
// consolidation state changes.
type StatusNotifier interface {
	NotifyStatus(room string, consolidating bool, lastError string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(room string, version int64, pieces []piece.Piece)

// Notify calls f.
func (f NotifierFunc) Notify(room string, version int64, pieces []piece.Piece) {
	f(room, version, pieces)
}

// Service runs operations against a Storage.
type Service struct {
	storage    Storage
	cfg        *config.Config
	summarizer summarize.Summarizer
	notifier   Notifier
	pick       piece.Picker
	newID      func() (string, error)
	logger     *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*roomLock

	statusMu sync.Mutex
	status   map[string]*Status
}

// Option customizes a Service.
type Option func(*Service)

// WithSummarizer sets the consolidation backend.
func WithSummarizer(s summarize.Summarizer) Option {
	return func(svc *Service) { svc.summarizer = s }
}

// WithNotifier sets the write hook.
func WithNotifier(n Notifier) Option {
	return func(svc *Service) { svc.notifier = n }
}

// WithColorPicker replaces the random palette choice.
func WithColorPicker(p piece.Picker) Option {
	return func(svc *Service) {
		if p != nil {
			svc.pick = p
		}
	}
}

// WithIDGenerator replaces ULID generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(svc *Service) {
		if gen != nil {
			svc.newID = gen
		}
	}
}

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// New creates a Service. A nil cfg uses config.DefaultConfig.
func New(storage Storage, cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	svc := &Service{
		storage: storage,
		cfg:     cfg,
		pick:    piece.RandomPicker,
		newID:   generateULID,
		logger:  slog.Default(),
		locks:   make(map[string]*roomLock),
		status:  make(map[string]*Status),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// transform computes the next list from a private copy of the current one.
// changed=false means no write.
type transform func(current []piece.Piece) (next []piece.Piece, changed bool, err error)

// change is the outcome of mutate.
type change struct {
	Pieces  []piece.Piece
	Version int64
	Changed bool
}

// mutate applies fn to room as one atomic transition.
func (s *Service) mutate(ctx context.Context, op, room string, fn transform) (*change, error) {
	unlock := s.lockRoom(room)
	defer unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled(op)
		}

		snap, err := s.storage.Load(ctx, room)
		if err != nil {
			mutationsTotal.WithLabelValues(op, "error").Inc()
			return nil, err
		}

		next, changed, err := fn(piece.CloneList(snap.Pieces))
		if err != nil {
			mutationsTotal.WithLabelValues(op, "rejected").Inc()
			return nil, err
		}
		if !changed {
			mutationsTotal.WithLabelValues(op, "noop").Inc()
			return &change{Pieces: snap.Pieces, Version: snap.Version}, nil
		}

		version, err := s.storage.CompareAndSwap(ctx, room, snap.Version, next)
		if err == db.ErrVersionMismatch {
			writeRetriesTotal.WithLabelValues(op).Inc()
			s.logger.Debug("write lost race, retrying", "op", op, "room", room, "attempt", attempt+1)
			continue
		}
		if err != nil {
			mutationsTotal.WithLabelValues(op, "error").Inc()
			return nil, err
		}

		mutationsTotal.WithLabelValues(op, "ok").Inc()
		if s.notifier != nil {
			s.notifier.Notify(room, version, piece.CloneList(next))
		}
		return &change{Pieces: next, Version: version, Changed: true}, nil
	}

	mutationsTotal.WithLabelValues(op, "conflict").Inc()
	return nil, errors.NewConflict(fmt.Sprintf("room %q kept changing during %s; gave up after %d attempts", room, op, maxWriteAttempts))
}

// roomLock is a per-room writer mutex, dropped from the map once no writer holds or waits on it.
type roomLock struct {
	mu   sync.Mutex
	refs int
}

// lockRoom serializes writers to one room within this process.
func (s *Service) lockRoom(room string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[room]
	if !ok {
		l = &roomLock{}
		s.locks[room] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		defer s.locksMu.Unlock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, room)
		}
	}
}

// roomName normalizes and validates a room name.
func roomName(raw string) (string, error) {
	room := piece.NormalizeRoom(raw)
	if room == "" {
		return "", errors.NewInvalidRequest("room is required")
	}
	return room, nil
}

// checkText enforces the configured text limit.
func (s *Service) checkText(text string) error {
	if piece.TextTooLong(text, s.cfg.PieceMaxChars) {
		return errors.NewTextTooLong(s.cfg.PieceMaxChars, piece.CountChars(text))
	}
	return nil
}

// requireID rejects an empty piece id. An unknown id is not an error.
func requireID(id string) error {
	if id == "" {
		return errors.NewInvalidRequest("id is required")
	}
	return nil
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
