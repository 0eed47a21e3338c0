package notify

import (
	"context"
	"time"
)

// Channels events are published on, one per resource family
const (
	ChannelServers     = "servers"
	ChannelDomains     = "domains"
	ChannelAssignments = "assignments"
	ChannelGroups      = "server_groups"
	ChannelLocks       = "locks"
)

// AllChannels lists every channel events are published on.
func AllChannels() []string {
	return []string{
		ChannelServers,
		ChannelDomains,
		ChannelAssignments,
		ChannelGroups,
		ChannelLocks,
	}
}

// Actions carried in events
const (
	ActionCreated    = "created"
	ActionUpdated    = "updated"
	ActionDeleted    = "deleted"
	ActionAssigned   = "assigned"
	ActionUnassigned = "unassigned"
	ActionLocked     = "locked"
	ActionUnlocked   = "unlocked"
)

// Event describes one change to a resource. Only the fields naming the
// resources the change touched are set; the rest stay empty and are
// omitted on the wire.
type Event struct {
	Action       string    `json:"action"`
	ServerID     string    `json:"server_id,omitempty"`
	ServerName   string    `json:"server_name,omitempty"`
	DomainID     string    `json:"domain_id,omitempty"`
	DomainName   string    `json:"domain_name,omitempty"`
	GroupID      string    `json:"group_id,omitempty"`
	GroupName    string    `json:"group_name,omitempty"`
	AssignmentID string    `json:"assignment_id,omitempty"`
	User         string    `json:"user,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Message is one delivered event together with the channel it arrived
// on.
type Message struct {
	Channel string
	Event   Event
}

// Publisher is the write side of the notifier. Publish is fire and
// forget: delivery failures are logged and counted, never returned, so
// record writes cannot fail on notification problems.
type Publisher interface {
	Publish(ctx context.Context, channel string, event Event)
}

// Subscription is one active subscriber feed.
type Subscription interface {
	// Messages delivers events for the subscribed channels. The
	// channel is closed by Close.
	Messages() <-chan Message

	Close() error
}

// Notifier is the full pub/sub surface. Subscribing with no channels
// means all channels.
type Notifier interface {
	Publisher

	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
	Close() error
}
