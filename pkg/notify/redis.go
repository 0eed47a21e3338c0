package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/paddockhq/paddock/pkg/log"
	"github.com/paddockhq/paddock/pkg/metrics"
)

// RedisNotifier publishes events over Redis pub/sub so that every
// paddock process sharing the Redis instance sees them.
type RedisNotifier struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewRedisNotifier wraps an already connected client. The caller owns
// the client lifecycle.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{
		rdb:    rdb,
		logger: log.WithComponent("notify"),
	}
}

func (n *RedisNotifier) Publish(ctx context.Context, channel string, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.EventPublishFailures.WithLabelValues(channel).Inc()
		n.logger.Error().Err(err).Str("channel", channel).Msg("Failed to encode event")
		return
	}

	if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		metrics.EventPublishFailures.WithLabelValues(channel).Inc()
		n.logger.Error().Err(err).Str("channel", channel).Msg("Failed to publish event")
		return
	}

	metrics.EventsPublishedTotal.WithLabelValues(channel).Inc()
}

func (n *RedisNotifier) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	if len(channels) == 0 {
		channels = AllChannels()
	}

	pubsub := n.rdb.Subscribe(ctx, channels...)

	// Receive forces the SUBSCRIBE round trip so a bad connection
	// fails here instead of on first read.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &redisSub{
		pubsub: pubsub,
		out:    make(chan Message, 50),
		logger: n.logger,
	}
	go sub.pump()
	return sub, nil
}

func (n *RedisNotifier) Close() error {
	return nil
}

type redisSub struct {
	pubsub *redis.PubSub
	out    chan Message
	logger zerolog.Logger
}

func (s *redisSub) Messages() <-chan Message {
	return s.out
}

func (s *redisSub) Close() error {
	// Closing the PubSub ends the pump, which closes out.
	return s.pubsub.Close()
}

func (s *redisSub) pump() {
	defer close(s.out)

	for msg := range s.pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			s.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping undecodable event")
			continue
		}
		s.out <- Message{Channel: msg.Channel, Event: event}
	}
}
