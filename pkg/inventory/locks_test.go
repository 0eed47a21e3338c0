package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/storage"
)

func TestLockServer(t *testing.T) {
	ctx := context.Background()
	inv, store, pub := newTestInventory(t)

	server, err := inv.CreateServer(ctx, serverParams("web-01"), "alice")
	require.NoError(t, err)

	ok, err := inv.LockServer(ctx, server.ID, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	// Stamps mirror the lock
	locked, err := store.GetServer(server.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", locked.LockedBy)
	assert.False(t, locked.LockedAt.IsZero())

	msg := pub.last(t)
	assert.Equal(t, notify.ChannelLocks, msg.Channel)
	assert.Equal(t, notify.ActionLocked, msg.Event.Action)
	assert.Equal(t, "alice", msg.Event.User)

	// Held, so bob is refused and the stamps stay alice's
	ok, err = inv.LockServer(ctx, server.ID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	locked, err = store.GetServer(server.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", locked.LockedBy)
}

func TestUnlockServer(t *testing.T) {
	ctx := context.Background()
	inv, store, pub := newTestInventory(t)

	server, err := inv.CreateServer(ctx, serverParams("web-01"), "alice")
	require.NoError(t, err)

	ok, err := inv.LockServer(ctx, server.ID, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	// Not the owner
	ok, err = inv.UnlockServer(ctx, server.ID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = inv.UnlockServer(ctx, server.ID, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	unlocked, err := store.GetServer(server.ID)
	require.NoError(t, err)
	assert.Empty(t, unlocked.LockedBy)
	assert.True(t, unlocked.LockedAt.IsZero())

	msg := pub.last(t)
	assert.Equal(t, notify.ActionUnlocked, msg.Event.Action)

	// Free again for the next claimant
	ok, err = inv.LockServer(ctx, server.ID, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockUnknownServer(t *testing.T) {
	ctx := context.Background()
	inv, _, _ := newTestInventory(t)

	_, err := inv.LockServer(ctx, "missing", "alice")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLockDomain(t *testing.T) {
	ctx := context.Background()
	inv, store, _ := newTestInventory(t)

	domain, err := inv.CreateDomain(ctx, DomainParams{Name: "example.com"}, "alice")
	require.NoError(t, err)

	ok, err := inv.LockDomain(ctx, domain.ID, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	locked, err := store.GetDomain(domain.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", locked.LockedBy)

	ok, err = inv.UnlockDomain(ctx, domain.ID, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	unlocked, err := store.GetDomain(domain.ID)
	require.NoError(t, err)
	assert.Empty(t, unlocked.LockedBy)
}

func TestServerAndDomainLocksIndependent(t *testing.T) {
	ctx := context.Background()
	inv, _, _ := newTestInventory(t)

	server, err := inv.CreateServer(ctx, serverParams("web-01"), "alice")
	require.NoError(t, err)
	domain, err := inv.CreateDomain(ctx, DomainParams{Name: "example.com"}, "alice")
	require.NoError(t, err)

	ok, err := inv.LockServer(ctx, server.ID, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	// Different key space, bob gets the domain lock
	ok, err = inv.LockDomain(ctx, domain.ID, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
}
