package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/colloquyhq/colloquy/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is the wire form shared by the NDJSON streams and the
// WebSocket feed: the event's type tag plus its full payload.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub fans run events out to every connected WebSocket client.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan Envelope
	logger    logging.Logger
	mu        sync.RWMutex
}

func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Envelope, 256),
		logger:    logging.OrDefault(logger),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case envelope := <-h.broadcast:
			data, err := json.Marshal(envelope)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Broadcast(envelope Envelope) {
	select {
	case h.broadcast <- envelope:
	default:
		h.logger.Warn("server.ws_broadcast_dropped")
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("server.ws_upgrade_failed", "error", err.Error())
		return
	}

	s.hub.Register(conn)
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	// Keep the connection alive; clients only receive.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
