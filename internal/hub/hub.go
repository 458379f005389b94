// Package hub fans room changes and presence out to live subscribers.
package hub

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AO-5002/piecewall/internal/grid"
	"github.com/AO-5002/piecewall/internal/piece"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// EventType names what changed.
type EventType string

const (
	EventWall     EventType = "wall"
	EventPresence EventType = "presence"
	EventStatus   EventType = "status"
)

// Event is delivered to every subscriber of a room.
type Event struct {
	Type     EventType     `json:"type"`
	Room     string        `json:"room"`
	Version  int64         `json:"version,omitempty"`
	Pieces   []piece.Piece `json:"pieces,omitempty"`
	Presence []Presence    `json:"presence,omitempty"`
	Status   *RoomStatus   `json:"status,omitempty"`
}

// RoomStatus is a room's consolidation state.
type RoomStatus struct {
	Consolidating bool   `json:"consolidating"`
	LastError     string `json:"last_error,omitempty"`
}

// Presence is what a connected participant shares with the room.
type Presence struct {
	ClientID       string      `json:"client_id"`
	Cursor         *grid.Point `json:"cursor"`
	EditingPieceID string      `json:"editing_piece_id,omitempty"`
}

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "piecewall",
		Subsystem: "hub",
		Name:      "events_published_total",
		Help:      "Events published to room subscribers",
	}, []string{"type"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "piecewall",
		Subsystem: "hub",
		Name:      "events_dropped_total",
		Help:      "Events dropped because a subscriber queue was full",
	})

	subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "piecewall",
		Subsystem: "hub",
		Name:      "subscribers",
		Help:      "Currently connected subscribers",
	})
)

// Hub is safe for concurrent use. Publishing never blocks: a subscriber whose
// queue is full misses the event and catches up on the next one.
type Hub struct {
	buffer int
	logger *slog.Logger

	mu     sync.RWMutex
	rooms  map[string]*room
	closed bool
}

type room struct {
	subs     map[*Subscription]struct{}
	presence map[string]Presence
}

// Option customizes hub construction.
type Option func(*Hub)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates an empty hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		buffer: DefaultBuffer,
		logger: slog.Default(),
		rooms:  make(map[string]*room),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Subscription is one listener on a room.
type Subscription struct {
	hub    *Hub
	room   string
	events chan Event
	once   sync.Once
}

// Events returns the receive side of the subscription. It is closed when the
// subscription or the hub is closed.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Room returns the room this subscription listens on.
func (s *Subscription) Room() string {
	return s.room
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s)
}

// Subscribe registers a listener on roomName. On a closed hub the returned
// subscription's channel is already closed.
func (h *Hub) Subscribe(roomName string) *Subscription {
	s := &Subscription{hub: h, room: roomName, events: make(chan Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(s.events) })
		return s
	}
	h.roomLocked(roomName).subs[s] = struct{}{}
	subscribers.Inc()
	return s
}

// Publish delivers ev to every subscriber of ev.Room without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	eventsPublished.WithLabelValues(string(ev.Type)).Inc()
	r, ok := h.rooms[ev.Room]
	if !ok {
		return
	}
	for s := range r.subs {
		select {
		case s.events <- ev:
		default:
			eventsDropped.Inc()
			h.logger.Debug("dropped event for slow subscriber", "room", ev.Room, "type", ev.Type)
		}
	}
}

// Notify publishes a wall change. It satisfies the store's notifier hook.
func (h *Hub) Notify(roomName string, version int64, pieces []piece.Piece) {
	h.Publish(Event{
		Type:    EventWall,
		Room:    roomName,
		Version: version,
		Pieces:  piece.CloneList(pieces),
	})
}

// NotifyStatus publishes a consolidation state change.
func (h *Hub) NotifyStatus(roomName string, consolidating bool, lastError string) {
	h.Publish(Event{
		Type:   EventStatus,
		Room:   roomName,
		Status: &RoomStatus{Consolidating: consolidating, LastError: lastError},
	})
}

// UpdatePresence records p for its client (joining the room if needed) and
// broadcasts the room's presence list.
func (h *Hub) UpdatePresence(roomName string, p Presence) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.roomLocked(roomName).presence[p.ClientID] = p
	h.mu.Unlock()

	h.broadcastPresence(roomName)
}

// Leave removes a client's presence and broadcasts the change.
func (h *Hub) Leave(roomName, clientID string) {
	h.mu.Lock()
	r, ok := h.rooms[roomName]
	if ok {
		delete(r.presence, clientID)
		h.pruneLocked(roomName, r)
	}
	h.mu.Unlock()

	if ok {
		h.broadcastPresence(roomName)
	}
}

// Presence lists the participants of a room ordered by client id.
func (h *Hub) Presence(roomName string) []Presence {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.presenceLocked(roomName)
}

// Run blocks until ctx is done, then closes every subscription.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()
	h.Close()
	return nil
}

// Close closes every subscription. Later subscriptions are closed on arrival.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, r := range h.rooms {
		for s := range r.subs {
			h.removeLocked(s)
		}
	}
	h.rooms = make(map[string]*room)
}

func (h *Hub) broadcastPresence(roomName string) {
	h.Publish(Event{
		Type:     EventPresence,
		Room:     roomName,
		Presence: h.Presence(roomName),
	})
}

func (h *Hub) presenceLocked(roomName string) []Presence {
	out := []Presence{}
	r, ok := h.rooms[roomName]
	if !ok {
		return out
	}
	for _, p := range r.presence {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}

func (h *Hub) roomLocked(roomName string) *room {
	r, ok := h.rooms[roomName]
	if !ok {
		r = &room{
			subs:     make(map[*Subscription]struct{}),
			presence: make(map[string]Presence),
		}
		h.rooms[roomName] = r
	}
	return r
}

func (h *Hub) removeLocked(s *Subscription) {
	s.once.Do(func() {
		if r, ok := h.rooms[s.room]; ok {
			delete(r.subs, s)
			h.pruneLocked(s.room, r)
		}
		subscribers.Dec()
		close(s.events)
	})
}

func (h *Hub) pruneLocked(roomName string, r *room) {
	if len(r.subs) == 0 && len(r.presence) == 0 {
		delete(h.rooms, roomName)
	}
}
