package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/paddockhq/paddock/pkg/log"
	"github.com/paddockhq/paddock/pkg/metrics"
)

// subjectPrefix namespaces paddock events on a shared NATS deployment.
const subjectPrefix = "paddock.events."

// NATSNotifier publishes events on core NATS subjects, one subject per
// channel. At-most-once delivery matches the fire-and-forget contract.
type NATSNotifier struct {
	nc     *nats.Conn
	logger zerolog.Logger
}

// NewNATSNotifier wraps an already connected conn. The caller owns the
// connection lifecycle.
func NewNATSNotifier(nc *nats.Conn) *NATSNotifier {
	return &NATSNotifier{
		nc:     nc,
		logger: log.WithComponent("notify"),
	}
}

func (n *NATSNotifier) Publish(_ context.Context, channel string, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.EventPublishFailures.WithLabelValues(channel).Inc()
		n.logger.Error().Err(err).Str("channel", channel).Msg("Failed to encode event")
		return
	}

	if err := n.nc.Publish(subjectPrefix+channel, payload); err != nil {
		metrics.EventPublishFailures.WithLabelValues(channel).Inc()
		n.logger.Error().Err(err).Str("channel", channel).Msg("Failed to publish event")
		return
	}

	metrics.EventsPublishedTotal.WithLabelValues(channel).Inc()
}

func (n *NATSNotifier) Subscribe(_ context.Context, channels ...string) (Subscription, error) {
	if len(channels) == 0 {
		channels = AllChannels()
	}

	sub := &natsSub{
		out:    make(chan Message, 50),
		logger: n.logger,
	}

	for _, channel := range channels {
		channel := channel
		s, err := n.nc.Subscribe(subjectPrefix+channel, func(msg *nats.Msg) {
			sub.deliver(channel, msg.Data)
		})
		if err != nil {
			_ = sub.Close()
			return nil, err
		}
		sub.subs = append(sub.subs, s)
	}
	return sub, nil
}

func (n *NATSNotifier) Close() error {
	return nil
}

type natsSub struct {
	subs   []*nats.Subscription
	out    chan Message
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func (s *natsSub) Messages() <-chan Message {
	return s.out
}

func (s *natsSub) Close() error {
	var firstErr error
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	return firstErr
}

// deliver runs on the connection's callback goroutine; it must never
// block and must not send after Close.
func (s *natsSub) deliver(channel string, data []byte) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Str("channel", channel).Msg("Dropping undecodable event")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- Message{Channel: channel, Event: event}:
	default:
	}
}
