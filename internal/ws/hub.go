package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/micro-nova/amplipi-hub/internal/players"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second

	// sendBuffer bounds the per-client queue; a client that cannot keep up
	// with state broadcasts gets dropped rather than stalling everyone.
	sendBuffer = 16
)

// StateMessage is the broadcast payload after every poll pass.
type StateMessage struct {
	Type    string                `json:"type"`
	Players []players.PlayerState `json:"players"`
}

// Hub fans player-state broadcasts out to connected clients. New clients
// immediately receive the last published snapshot.
type Hub struct {
	logger *log.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		logger:  logger,
		clients: map[*client]struct{}{},
	}
}

// Publish broadcasts the player states to every connected client.
// Implements poller.Publisher.
func (h *Hub) Publish(states []players.PlayerState) {
	payload, err := json.Marshal(StateMessage{Type: "state", Players: states})
	if err != nil {
		h.logger.Printf("marshal state broadcast: %v", err)
		return
	}

	h.mu.Lock()
	h.last = payload
	stale := []*client{}
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			stale = append(stale, c)
		}
	}
	for _, c := range stale {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	for _, c := range stale {
		h.logger.Printf("dropping slow state-stream client %s", c.conn.RemoteAddr())
		c.conn.Close()
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
	h.mu.Unlock()
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// register adds a connection and starts its pump goroutines.
func (h *Hub) register(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// writePump drains the client's send queue and keeps the connection alive
// with pings.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// readPump discards inbound messages; the stream is one-way. Reading is
// still required to process control frames and notice disconnects.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.unregister(c)
			return
		}
	}
}
