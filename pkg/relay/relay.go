package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/paddockhq/paddock/pkg/log"
	"github.com/paddockhq/paddock/pkg/metrics"
	"github.com/paddockhq/paddock/pkg/notify"
)

const (
	// reconnectMin and reconnectMax bound the backoff between
	// subscribe attempts.
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second

	// DefaultHeartbeat is the websocket ping interval when the config
	// does not set one.
	DefaultHeartbeat = 30 * time.Second
)

// outbound is the wire shape pushed to websocket clients: the channel
// a change arrived on plus the event itself.
type outbound struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// Relay bridges the notifier to websocket clients. One subscription
// feeds every connected client; when the subscription's transport
// fails the relay logs, backs off and resubscribes, for the life of
// the process.
type Relay struct {
	hub       *Hub
	notifier  notify.Notifier
	heartbeat time.Duration
	logger    zerolog.Logger
}

func New(notifier notify.Notifier, heartbeat time.Duration) *Relay {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &Relay{
		hub:       NewHub(),
		notifier:  notifier,
		heartbeat: heartbeat,
		logger:    log.WithComponent("relay"),
	}
}

// Hub exposes the client set, mainly for tests and counts.
func (r *Relay) Hub() *Hub {
	return r.hub
}

// Run subscribes to every channel and pumps events to clients until
// ctx ends. Subscription failures never terminate it.
func (r *Relay) Run(ctx context.Context) {
	backoff := reconnectMin

	for {
		sub, err := r.notifier.Subscribe(ctx, notify.AllChannels()...)
		if err != nil {
			r.logger.Error().Err(err).Dur("retry_in", backoff).Msg("Subscribe failed")

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, reconnectMax)
			continue
		}

		r.logger.Info().Msg("Relay subscribed")
		backoff = reconnectMin

		if done := r.pump(ctx, sub); done {
			return
		}
		r.logger.Warn().Msg("Subscription lost, resubscribing")
	}
}

// pump forwards messages until the subscription closes. True means ctx
// ended and the relay should stop.
func (r *Relay) pump(ctx context.Context, sub notify.Subscription) bool {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return true
		case msg, ok := <-sub.Messages():
			if !ok {
				return false
			}
			metrics.RelayMessagesTotal.WithLabelValues("in").Inc()
			r.hub.Broadcast(outbound{Channel: msg.Channel, Data: msg.Event})
		}
	}
}
