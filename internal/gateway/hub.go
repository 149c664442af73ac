// Package gateway fans out live trading signals to WebSocket clients.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"stockbotv1/internal/metrics"
	"stockbotv1/internal/model"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Hub manages WebSocket clients and broadcasts signals to them.
type Hub struct {
	prom *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64
}

// NewHub creates a Hub. prom may be nil.
func NewHub(prom *metrics.Metrics) *Hub {
	return &Hub{
		prom:    prom,
		clients: make(map[*Client]bool),
	}
}

// Run consumes signals from in and broadcasts each to connected clients.
// Blocks until ctx is cancelled or in is closed.
func (h *Hub) Run(ctx context.Context, in <-chan model.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-in:
			if !ok {
				return
			}
			h.Broadcast(sig)
		}
	}
}

// Broadcast wraps the signal in an envelope and sends it to every client.
// Slow clients are skipped rather than blocking the fan-out.
func (h *Hub) Broadcast(sig model.Signal) {
	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	envelope, err := json.Marshal(map[string]interface{}{
		"type":   "signal",
		"signal": sig,
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		"seq":    seq,
	})
	if err != nil {
		log.Printf("[gateway] marshal envelope: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
		}
	}
	if h.prom != nil {
		h.prom.SignalsBroadcasted.Inc()
	}
}

// HandleWS upgrades an HTTP connection and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}
	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.prom != nil {
		h.prom.GatewayClients.Set(float64(count))
	}
	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.writePump()
	go client.readPump()
}

// removeClient unregisters a client and closes its send channel.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)

	if h.prom != nil {
		h.prom.GatewayClients.Set(float64(count))
	}
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
