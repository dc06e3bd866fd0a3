package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/fitpoint/fitpoint/server/internal/api"
	"github.com/fitpoint/fitpoint/server/internal/session"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// Event names sent to clients.
const (
	EventAnalysis = "analysis"
	EventClosed   = "closed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	// Allow all origins; callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string                `json:"event"`
	Data  *api.AnalysisResponse `json:"data,omitempty"`
}

// Hub manages WebSocket clients, each subscribed to one session.
type Hub struct {
	store    *session.Store
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}

	// OnCount, when set, receives the client count after every change.
	OnCount func(n int)

	// upgraded runs between the upgrade and registration; tests only.
	upgraded func(id string)
}

// client represents one connected WebSocket client.
type client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
}

// New creates a Hub that reads analyses from st and refreshes every interval.
func New(st *session.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run starts the refresh ticker loop. Run blocks until ctx is cancelled, then
// closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	if h.interval <= 0 {
		<-ctx.Done()
		h.closeAll()
		return
	}
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			for _, id := range h.subscribedSessions() {
				h.broadcast(id)
			}
		}
	}
}

// Observe is a session.Listener: edits push a fresh analysis to subscribers
// and removal closes their connections.
func (h *Hub) Observe(ev session.Event) {
	switch ev.Kind {
	case session.EventUpdated:
		h.broadcast(ev.ID)
	case session.EventDeleted, session.EventEvicted:
		h.closeSession(ev.ID)
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// Unknown sessions get a 404 before the upgrade. The first analysis is built
// after the client is registered, so an edit that lands during the upgrade is
// either in that message or broadcast to the client. Blocks until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		id = r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	}
	if _, err := h.store.Get(id); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, session.ErrNotFound) {
			code = http.StatusNotFound
		}
		http.Error(w, err.Error(), code)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}
	h.mu.RLock()
	hook := h.upgraded
	h.mu.RUnlock()
	if hook != nil {
		hook(id)
	}

	c := &client{
		sessionID: id,
		conn:      conn,
		send:      make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	first, err := h.buildMessage(id)
	if err != nil {
		// Removed while connecting.
		slog.Debug("ws: session gone during connect", "session", id, "err", err)
		closed, _ := json.Marshal(Message{Event: EventClosed})
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = conn.WriteMessage(websocket.TextMessage, closed)
		conn.Close()
		return
	}
	h.trySend(c, first)

	slog.Debug("ws: client connected", "session", id, "remote", r.RemoteAddr)
	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.reportCount(n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.reportCount(n)
	}
}

func (h *Hub) reportCount(n int) {
	if h.OnCount != nil {
		h.OnCount(n)
	}
}

func (h *Hub) targets(sessionID string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0)
	for c := range h.clients {
		if c.sessionID == sessionID {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) subscribedSessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for c := range h.clients {
		if _, ok := seen[c.sessionID]; !ok {
			seen[c.sessionID] = struct{}{}
			out = append(out, c.sessionID)
		}
	}
	return out
}

func (h *Hub) broadcast(sessionID string) {
	targets := h.targets(sessionID)
	if len(targets) == 0 {
		return
	}
	data, err := h.buildMessage(sessionID)
	if err != nil {
		return
	}
	for _, c := range targets {
		h.trySend(c, data)
	}
}

// trySend queues data for c, dropping the client if its buffer is full.
// Holding the read lock keeps unregister from closing c.send mid-send.
func (h *Hub) trySend(c *client, data []byte) {
	h.mu.RLock()
	_, live := h.clients[c]
	full := false
	if live {
		select {
		case c.send <- data:
		default:
			full = true
		}
	}
	h.mu.RUnlock()
	if full {
		slog.Debug("ws: client too slow, disconnecting", "session", c.sessionID)
		h.unregister(c)
	}
}

func (h *Hub) closeSession(sessionID string) {
	data, _ := json.Marshal(Message{Event: EventClosed})
	for _, c := range h.targets(sessionID) {
		h.trySend(c, data)
		h.unregister(c)
	}
}

func (h *Hub) buildMessage(sessionID string) ([]byte, error) {
	resp, err := api.BuildAnalysis(h.store, sessionID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: EventAnalysis, Data: &resp})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	h.reportCount(0)
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
