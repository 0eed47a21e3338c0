package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	b := NewBroker()
	b.Start()
	t.Cleanup(b.Stop)
	return b
}

func receive(t *testing.T, sub Subscription) Message {
	t.Helper()
	select {
	case msg := <-sub.Messages():
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Message{}
	}
}

func TestBrokerPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	b := newTestBroker(t)

	sub, err := b.Subscribe(ctx, ChannelAssignments)
	require.NoError(t, err)
	defer sub.Close()

	b.Publish(ctx, ChannelAssignments, Event{
		Action:   ActionAssigned,
		DomainID: "d1",
		ServerID: "s1",
		User:     "alice",
	})

	msg := receive(t, sub)
	assert.Equal(t, ChannelAssignments, msg.Channel)
	assert.Equal(t, ActionAssigned, msg.Event.Action)
	assert.Equal(t, "d1", msg.Event.DomainID)
	assert.Equal(t, "alice", msg.Event.User)
	assert.False(t, msg.Event.Timestamp.IsZero(), "publish must stamp the timestamp")
}

func TestBrokerChannelFilter(t *testing.T) {
	ctx := context.Background()
	b := newTestBroker(t)

	servers, err := b.Subscribe(ctx, ChannelServers)
	require.NoError(t, err)
	defer servers.Close()

	b.Publish(ctx, ChannelDomains, Event{Action: ActionCreated, DomainID: "d1"})
	b.Publish(ctx, ChannelServers, Event{Action: ActionCreated, ServerID: "s1"})

	msg := receive(t, servers)
	assert.Equal(t, ChannelServers, msg.Channel)
	assert.Equal(t, "s1", msg.Event.ServerID)

	select {
	case extra := <-servers.Messages():
		t.Fatalf("unexpected event on filtered subscription: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerSubscribeAll(t *testing.T) {
	ctx := context.Background()
	b := newTestBroker(t)

	all, err := b.Subscribe(ctx)
	require.NoError(t, err)
	defer all.Close()

	b.Publish(ctx, ChannelLocks, Event{Action: ActionLocked, ServerID: "s1", User: "bob"})
	b.Publish(ctx, ChannelGroups, Event{Action: ActionDeleted, GroupID: "g1"})

	first := receive(t, all)
	second := receive(t, all)
	channels := []string{first.Channel, second.Channel}
	assert.Contains(t, channels, ChannelLocks)
	assert.Contains(t, channels, ChannelGroups)
}

func TestBrokerSlowSubscriberDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	b := newTestBroker(t)

	// Never drained, so its buffer fills and later events are dropped
	slow, err := b.Subscribe(ctx, ChannelDomains)
	require.NoError(t, err)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			b.Publish(ctx, ChannelDomains, Event{Action: ActionCreated})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

func TestBrokerClose(t *testing.T) {
	ctx := context.Background()
	b := newTestBroker(t)

	sub, err := b.Subscribe(ctx, ChannelServers)
	require.NoError(t, err)
	require.Equal(t, 1, b.SubscriberCount())

	require.NoError(t, sub.Close())
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub.Messages()
	assert.False(t, open, "closing the subscription must close its channel")

	// Closing twice is safe
	require.NoError(t, sub.Close())
}
