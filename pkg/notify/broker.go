package notify

import (
	"context"
	"sync"
	"time"

	"github.com/paddockhq/paddock/pkg/metrics"
)

type brokerSub struct {
	broker   *Broker
	channels map[string]bool // empty means all channels
	ch       chan Message

	closeOnce sync.Once
}

func (s *brokerSub) Messages() <-chan Message {
	return s.ch
}

func (s *brokerSub) Close() error {
	s.broker.unsubscribe(s)
	return nil
}

func (s *brokerSub) wants(channel string) bool {
	return len(s.channels) == 0 || s.channels[channel]
}

// Broker is the in-process Notifier for single-node deployments.
// Events flow through a buffered channel into a distribution loop that
// fans them out to subscribers; a subscriber whose buffer is full
// misses the event rather than stalling the loop.
type Broker struct {
	subscribers map[*brokerSub]bool
	mu          sync.RWMutex
	eventCh     chan Message
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a broker. Call Start before publishing.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[*brokerSub]bool),
		eventCh:     make(chan Message, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop halts distribution. Pending events are dropped.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
}

// Close implements Notifier.
func (b *Broker) Close() error {
	b.Stop()
	return nil
}

// Publish implements Publisher. The timestamp is stamped here when the
// caller left it zero.
func (b *Broker) Publish(_ context.Context, channel string, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	metrics.EventsPublishedTotal.WithLabelValues(channel).Inc()

	select {
	case b.eventCh <- Message{Channel: channel, Event: event}:
	case <-b.stopCh:
	}
}

// Subscribe implements Notifier. No channels means all channels.
func (b *Broker) Subscribe(_ context.Context, channels ...string) (Subscription, error) {
	sub := &brokerSub{
		broker:   b,
		channels: make(map[string]bool, len(channels)),
		ch:       make(chan Message, 50), // Buffer per subscriber
	}
	for _, ch := range channels {
		sub.channels[ch] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[sub] = true
	return sub, nil
}

func (b *Broker) unsubscribe(sub *brokerSub) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		sub.closeOnce.Do(func() {
			close(sub.ch)
		})
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broker) run() {
	for {
		select {
		case msg := <-b.eventCh:
			b.broadcast(msg)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		if !sub.wants(msg.Channel) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			// Subscriber buffer full, skip
		}
	}
}
