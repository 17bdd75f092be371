package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Retcom59/heritage-app/pkg/explore"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	// Slow consumers are dropped rather than backpressuring the session
	clientBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The UI is served from the same process
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsHandler streams session state-change events over WebSocket.
type EventsHandler struct {
	session *explore.Session
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan explore.Event
}

func NewEventsHandler(s *explore.Session) *EventsHandler {
	h := &EventsHandler{
		session: s,
		logger:  slog.With("component", "events"),
		clients: make(map[*client]struct{}),
	}
	s.Subscribe(h.broadcast)
	return h
}

// broadcast fans an event out to all connected clients. A client whose
// buffer is full is disconnected.
func (h *EventsHandler) broadcast(ev explore.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.logger.Warn("Dropping slow event client")
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// HandleEvents upgrades the connection and streams events. The first
// message is always a full state snapshot.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan explore.Event, clientBuffer)}

	// Full snapshot first, so the client never renders from a gap.
	// Enqueued before registration: broadcast must not see (and
	// possibly close) the channel until the snapshot is in.
	c.send <- explore.Event{Type: "state", Payload: h.session.State()}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("Event client connected", "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)
}

func (h *EventsHandler) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				h.logger.Debug("Event write failed", "error", err)
				h.remove(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump discards inbound frames; it exists to notice disconnects
// and answer protocol pings.
func (h *EventsHandler) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventsHandler) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}
