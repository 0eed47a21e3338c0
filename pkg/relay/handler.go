package relay

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/paddockhq/paddock/pkg/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The relay itself is unauthenticated; origin policy belongs to
	// whatever fronts it.
	CheckOrigin: func(*http.Request) bool { return true },
}

// inbound is what clients may send.
type inbound struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels,omitempty"`
	Resource string   `json:"resource,omitempty"`
}

// control is the relay's reply shape for protocol messages.
type control struct {
	Type     string   `json:"type"`
	Message  string   `json:"message,omitempty"`
	User     string   `json:"user,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// lockEcho is the payload broadcast when a client announces a lock
// change over the socket.
type lockEcho struct {
	Action   string `json:"action"`
	Resource string `json:"resource,omitempty"`
	User     string `json:"user"`
}

// Handler upgrades requests on the websocket endpoint and serves the
// client until it disconnects. The user is taken from the query string
// and defaults to anonymous.
func (r *Relay) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Websocket upgrade failed")
			return
		}

		user := req.URL.Query().Get("user")
		if user == "" {
			user = "anonymous"
		}

		client := newClient(conn, user)
		r.hub.Register(client)

		r.send(client, control{
			Type:    "connected",
			Message: "WebSocket connection established",
			User:    user,
		})

		go r.heartbeatLoop(client, conn)
		r.readLoop(client, conn)
	}
}

// readLoop consumes client messages until the connection dies, then
// tears the client down.
func (r *Relay) readLoop(client *Client, conn *websocket.Conn) {
	defer func() {
		close(client.done)
		r.hub.Unregister(client)
	}()

	deadline := 2 * r.heartbeat
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.logger.Debug().Err(err).Str("user", client.user).Msg("Read loop ended")
			return
		}
		r.handleInbound(client, data)
	}
}

// heartbeatLoop pings the client on the configured interval; a client
// that stops answering trips the read deadline and gets dropped.
func (r *Relay) heartbeatLoop(client *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-ticker.C:
			client.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			client.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (r *Relay) handleInbound(client *Client, data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Debug().Err(err).Str("user", client.user).Msg("Ignoring undecodable client message")
		return
	}

	switch msg.Type {
	case "ping":
		r.send(client, control{Type: "pong"})

	case "subscribe":
		// Acknowledged for protocol compatibility; every client
		// receives all channels.
		r.send(client, control{Type: "subscribed", Channels: msg.Channels})

	case "lock_acquired":
		r.hub.Broadcast(outbound{
			Channel: notify.ChannelLocks,
			Data:    lockEcho{Action: "acquired", Resource: msg.Resource, User: client.user},
		})

	case "lock_released":
		r.hub.Broadcast(outbound{
			Channel: notify.ChannelLocks,
			Data:    lockEcho{Action: "released", Resource: msg.Resource, User: client.user},
		})

	default:
		r.logger.Debug().Str("type", msg.Type).Str("user", client.user).Msg("Ignoring unknown message type")
	}
}

func (r *Relay) send(client *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode reply")
		return
	}
	if err := client.write(data); err != nil {
		r.logger.Debug().Err(err).Str("user", client.user).Msg("Reply write failed")
	}
}
