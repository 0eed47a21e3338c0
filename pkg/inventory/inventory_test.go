package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddockhq/paddock/pkg/lock"
	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, event notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, notify.Message{Channel: channel, Event: event})
}

func (p *recordingPublisher) last(t *testing.T) notify.Message {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.messages)
	return p.messages[len(p.messages)-1]
}

func newTestInventory(t *testing.T) (*Inventory, storage.Store, *recordingPublisher) {
	t.Helper()

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pub := &recordingPublisher{}
	return New(store, lock.NewMemoryLocker(), pub), store, pub
}

func serverParams(name string) ServerParams {
	return ServerParams{
		Name:         name,
		IP:           "10.0.0.1",
		CapacityMode: types.CapacityMode1x5,
	}
}

func TestCreateServer(t *testing.T) {
	ctx := context.Background()
	inv, _, pub := newTestInventory(t)

	server, err := inv.CreateServer(ctx, serverParams("web-01"), "alice")
	require.NoError(t, err)

	assert.NotEmpty(t, server.ID)
	assert.Equal(t, "web-01", server.Name)
	assert.Equal(t, types.ServerStatusFree, server.Status)
	assert.Equal(t, 5, server.MaxDomains)
	assert.Equal(t, 0, server.CurrentDomains)
	assert.Equal(t, "alice", server.CreatedBy)

	msg := pub.last(t)
	assert.Equal(t, notify.ChannelServers, msg.Channel)
	assert.Equal(t, notify.ActionCreated, msg.Event.Action)
	assert.Equal(t, "web-01", msg.Event.ServerName)
}

func TestCreateServerNameTaken(t *testing.T) {
	ctx := context.Background()
	inv, _, _ := newTestInventory(t)

	_, err := inv.CreateServer(ctx, serverParams("web-01"), "alice")
	require.NoError(t, err)

	_, err = inv.CreateServer(ctx, serverParams("web-01"), "bob")
	require.ErrorIs(t, err, ErrNameTaken)
}

func TestCreateServerBadMode(t *testing.T) {
	ctx := context.Background()
	inv, _, _ := newTestInventory(t)

	params := serverParams("web-01")
	params.CapacityMode = "1:99"

	_, err := inv.CreateServer(ctx, params, "alice")
	require.Error(t, err)
}

func TestCreateServerUnknownGroup(t *testing.T) {
	ctx := context.Background()
	inv, _, _ := newTestInventory(t)

	params := serverParams("web-01")
	params.GroupID = "missing"

	_, err := inv.CreateServer(ctx, params, "alice")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateServer(t *testing.T) {
	ctx := context.Background()
	inv, _, _ := newTestInventory(t)

	server, err := inv.CreateServer(ctx, serverParams("web-01"), "alice")
	require.NoError(t, err)

	params := serverParams("web-01-renamed")
	params.CapacityMode = types.CapacityMode1x10
	params.Description = "upgraded"

	updated, err := inv.UpdateServer(ctx, server.ID, params, "alice")
	require.NoError(t, err)
	assert.Equal(t, "web-01-renamed", updated.Name)
	assert.Equal(t, 10, updated.MaxDomains)
	assert.Equal(t, "upgraded", updated.Description)
}

func TestUpdateServerModeShrinkBlocked(t *testing.T) {
	ctx := context.Background()
	inv, store, _ := newTestInventory(t)

	server, err := inv.CreateServer(ctx, serverParams("web-01"), "alice")
	require.NoError(t, err)

	// Six assigned domains fit 1:7 or 1:10, not 1:5
	server.CurrentDomains = 6
	server.Status = types.StatusFor(6)
	require.NoError(t, store.UpdateServer(server))

	params := serverParams("web-01")
	params.CapacityMode = types.CapacityMode1x5

	_, err = inv.UpdateServer(ctx, server.ID, params, "alice")
	require.ErrorIs(t, err, ErrServerInUse)
}

func TestDeleteServer(t *testing.T) {
	ctx := context.Background()
	inv, store, pub := newTestInventory(t)

	server, err := inv.CreateServer(ctx, serverParams("web-01"), "alice")
	require.NoError(t, err)

	require.NoError(t, inv.DeleteServer(ctx, server.ID, "alice"))

	_, err = store.GetServer(server.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	msg := pub.last(t)
	assert.Equal(t, notify.ActionDeleted, msg.Event.Action)
}

func TestDeleteServerInUse(t *testing.T) {
	ctx := context.Background()
	inv, store, _ := newTestInventory(t)

	server, err := inv.CreateServer(ctx, serverParams("web-01"), "alice")
	require.NoError(t, err)

	server.CurrentDomains = 1
	server.Status = types.StatusFor(1)
	require.NoError(t, store.UpdateServer(server))

	err = inv.DeleteServer(ctx, server.ID, "alice")
	require.ErrorIs(t, err, ErrServerInUse)

	_, err = store.GetServer(server.ID)
	require.NoError(t, err, "guarded delete must leave the server in place")
}

func TestCreateDomain(t *testing.T) {
	ctx := context.Background()
	inv, _, pub := newTestInventory(t)

	domain, err := inv.CreateDomain(ctx, DomainParams{
		Name: "example.com",
		Tags: []string{"prod", "eu"},
	}, "alice")
	require.NoError(t, err)

	assert.Equal(t, types.DomainStatusFree, domain.Status)
	assert.Equal(t, []string{"prod", "eu"}, domain.Tags)

	msg := pub.last(t)
	assert.Equal(t, notify.ChannelDomains, msg.Channel)
	assert.Equal(t, "example.com", msg.Event.DomainName)
}

func TestCreateDomainsSkipsExisting(t *testing.T) {
	ctx := context.Background()
	inv, _, _ := newTestInventory(t)

	_, err := inv.CreateDomain(ctx, DomainParams{Name: "b.example.com"}, "alice")
	require.NoError(t, err)

	created, skipped, err := inv.CreateDomains(ctx,
		[]string{"a.example.com", "b.example.com", "c.example.com"}, nil, "alice")
	require.NoError(t, err)

	require.Len(t, created, 2)
	assert.Equal(t, "a.example.com", created[0].Name)
	assert.Equal(t, "c.example.com", created[1].Name)
	assert.Equal(t, []string{"b.example.com"}, skipped)
}

func TestDeleteDomainAssignedBlocked(t *testing.T) {
	ctx := context.Background()
	inv, store, _ := newTestInventory(t)

	domain, err := inv.CreateDomain(ctx, DomainParams{Name: "example.com"}, "alice")
	require.NoError(t, err)

	domain.Status = types.DomainStatusAssigned
	require.NoError(t, store.UpdateDomain(domain))

	err = inv.DeleteDomain(ctx, domain.ID, "alice")
	require.ErrorIs(t, err, ErrDomainAssigned)
}

func TestFreeDomains(t *testing.T) {
	ctx := context.Background()
	inv, store, _ := newTestInventory(t)

	free, err := inv.CreateDomain(ctx, DomainParams{Name: "free.example.com"}, "alice")
	require.NoError(t, err)

	taken, err := inv.CreateDomain(ctx, DomainParams{Name: "taken.example.com"}, "alice")
	require.NoError(t, err)
	taken.Status = types.DomainStatusAssigned
	require.NoError(t, store.UpdateDomain(taken))

	domains, err := inv.FreeDomains()
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, free.ID, domains[0].ID)
}
