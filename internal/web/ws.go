package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AO-5002/piecewall/internal/grid"
	"github.com/AO-5002/piecewall/internal/hub"
	"github.com/AO-5002/piecewall/internal/ops"
	"github.com/AO-5002/piecewall/internal/piece"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageBytes = 4 << 10
)

// MessageHello is the first message on every connection.
const MessageHello = "hello"

// upgrader keeps gorilla's default same-origin check.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// ClientMessage is what a browser sends: its cursor and the piece it edits.
type ClientMessage struct {
	Type           string      `json:"type"`
	Cursor         *grid.Point `json:"cursor"`
	EditingPieceID string      `json:"editing_piece_id"`
}

// ServerMessage is pushed to browsers. Wall messages carry the laid-out wall
// so clients never run the grid algorithm themselves.
type ServerMessage struct {
	Type     string        `json:"type"`
	Room     string        `json:"room"`
	ClientID string        `json:"client_id,omitempty"`
	Version  int64         `json:"version,omitempty"`
	Pieces   []piece.Piece `json:"pieces,omitempty"`
	Layout   *grid.Wall    `json:"layout,omitempty"`

	// Summaries holds the rendered HTML of consolidated pieces by id.
	Summaries map[string]string `json:"summaries,omitempty"`

	Status   *ops.Status    `json:"status,omitempty"`
	Presence []hub.Presence `json:"presence,omitempty"`
}

// HandleWS handles GET /rooms/{room}/ws, the live feed of one wall.
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	room := piece.NormalizeRoom(r.PathValue("room"))

	// Subscribe before loading so a write committed in between is queued
	sub := h.hub.Subscribe(room)
	defer sub.Close()

	current, err := h.svc.Get(r.Context(), ops.GetInput{Room: room})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Warn("websocket upgrade failed", "room", room, "error", err)
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	logger := h.logger.With("room", room, "client_id", clientID)
	logger.Info("websocket client connected")

	defer h.hub.Leave(room, clientID)

	hello := h.wallMessage(room, current.Version, current.Pieces)
	hello.Type = MessageHello
	hello.ClientID = clientID
	hello.Presence = h.hub.Presence(room)
	if err := writeMessage(conn, hello); err != nil {
		logger.Debug("failed to send hello", "error", err)
		return
	}
	h.hub.UpdatePresence(room, hub.Presence{ClientID: clientID})

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readPresence(conn, room, clientID)
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	sent := current.Version

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if ev.Type == hub.EventWall {
				if ev.Version <= sent {
					continue
				}
				sent = ev.Version
			}
			if err := writeMessage(conn, h.eventMessage(ev)); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			logger.Info("websocket client disconnected")
			return
		}
	}
}

// readPresence consumes client messages until the connection fails.
func (h *Handlers) readPresence(conn *websocket.Conn, room, clientID string) {
	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "room", room, "client_id", clientID, "error", err)
			}
			return
		}
		if msg.Type != string(hub.EventPresence) {
			continue
		}
		h.hub.UpdatePresence(room, hub.Presence{
			ClientID:       clientID,
			Cursor:         msg.Cursor,
			EditingPieceID: msg.EditingPieceID,
		})
	}
}

// eventMessage converts a hub event into the wire message.
func (h *Handlers) eventMessage(ev hub.Event) ServerMessage {
	if ev.Type == hub.EventWall {
		return h.wallMessage(ev.Room, ev.Version, ev.Pieces)
	}
	msg := ServerMessage{
		Type:     string(ev.Type),
		Room:     ev.Room,
		Presence: ev.Presence,
	}
	if ev.Status != nil {
		msg.Status = &ops.Status{Consolidating: ev.Status.Consolidating, LastError: ev.Status.LastError}
	}
	return msg
}

func (h *Handlers) wallMessage(room string, version int64, pieces []piece.Piece) ServerMessage {
	layout := grid.Layout(pieces)
	status := h.svc.Status(room)
	summaries := make(map[string]string)
	for _, p := range pieces {
		if p.IsConsolidated() {
			summaries[p.ID] = string(renderMarkdown(p.Text))
		}
	}
	return ServerMessage{
		Type:      string(hub.EventWall),
		Room:      room,
		Version:   version,
		Pieces:    pieces,
		Layout:    &layout,
		Summaries: summaries,
		Status:    &status,
	}
}

func writeMessage(conn *websocket.Conn, msg ServerMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
