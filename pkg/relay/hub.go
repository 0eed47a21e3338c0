package relay

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/paddockhq/paddock/pkg/log"
	"github.com/paddockhq/paddock/pkg/metrics"
)

// wsConn is the slice of *websocket.Conn the hub needs. Tests swap in
// a fake.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected listener.
type Client struct {
	conn wsConn
	user string

	// done ends the client's heartbeat goroutine; closed exactly once
	// when the read loop exits.
	done chan struct{}

	// Guards writes; websocket connections allow one writer at a time.
	mu sync.Mutex
}

func newClient(conn wsConn, user string) *Client {
	return &Client{
		conn: conn,
		user: user,
		done: make(chan struct{}),
	}
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks connected clients and fans messages out to all of them.
// A client whose write fails is dropped on the spot; the rest of the
// broadcast continues.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	logger  zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		logger:  log.WithComponent("relay"),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.RelayClients.Set(float64(total))
	h.logger.Info().Str("user", client.user).Int("total_connections", total).Msg("Client connected")
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if !h.clients[client] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	total := len(h.clients)
	h.mu.Unlock()

	_ = client.conn.Close()
	metrics.RelayClients.Set(float64(total))
	h.logger.Info().Str("user", client.user).Int("total_connections", total).Msg("Client disconnected")
}

// Broadcast sends one payload to every client. Failed clients are
// removed without disturbing the others or the caller.
func (h *Hub) Broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode broadcast")
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	var failed []*Client
	for _, client := range clients {
		if err := client.write(data); err != nil {
			h.logger.Warn().Err(err).Str("user", client.user).Msg("Dropping client after failed write")
			failed = append(failed, client)
			continue
		}
		metrics.RelayMessagesTotal.WithLabelValues("out").Inc()
	}

	for _, client := range failed {
		h.Unregister(client)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
