// Package devtools serves live diagnostics for a running Reconciler:
// a websocket feed of reconciliation passes and HTTP endpoints for
// context inspection and metrics.
package devtools

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weft-dev/weft"
)

// Event is one message on the inspector feed.
type Event struct {
	Type     string            `json:"type"` // "hello" or "pass"
	ClientID string            `json:"client_id,omitempty"`
	Pass     *weft.PassSummary `json:"pass,omitempty"`
}

// Hub broadcasts reconciliation summaries to connected inspector
// clients. It implements weft.Observer; wire it with
// weft.WithObserver(hub).
type Hub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]string
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub creates an inspector hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]string),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local diagnostics tooling; any origin may attach.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// HandleWebSocket upgrades the request and holds the connection until
// the client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	id := uuid.NewString()

	h.mu.Lock()
	h.clients[conn] = id
	h.mu.Unlock()
	h.log.Info("inspector attached", "client", id)

	hello, _ := json.Marshal(Event{Type: "hello", ClientID: id})
	if err := conn.WriteMessage(websocket.TextMessage, hello); err == nil {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
	h.log.Info("inspector detached", "client", id)
}

// ReconcilePass implements weft.Observer by broadcasting the summary.
func (h *Hub) ReconcilePass(s weft.PassSummary) {
	h.broadcast(Event{Type: "pass", Pass: &s})
}

func (h *Hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.mu.Lock()
			id := h.clients[conn]
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
			h.log.Warn("dropping dead inspector client", "client", id)
		}
	}
}

// ClientCount returns the number of attached inspector clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
