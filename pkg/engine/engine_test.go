package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddockhq/paddock/pkg/ledger"
	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, notify.Event) {}

func newTestEngine(t *testing.T) (*Engine, storage.Store) {
	t.Helper()

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return New(store, ledger.New(store, nopPublisher{})), store
}

func addServer(t *testing.T, store storage.Store, id, name string, mode types.CapacityMode, current int) {
	t.Helper()
	require.NoError(t, store.CreateServer(&types.Server{
		ID:             id,
		Name:           name,
		Status:         types.StatusFor(current),
		CapacityMode:   mode,
		MaxDomains:     mode.MaxDomains(),
		CurrentDomains: current,
	}))
}

func addDomain(t *testing.T, store storage.Store, id, name string) {
	t.Helper()
	require.NoError(t, store.CreateDomain(&types.Domain{
		ID:     id,
		Name:   name,
		Status: types.DomainStatusFree,
	}))
}

func serverLoad(t *testing.T, store storage.Store, id string) int {
	t.Helper()
	server, err := store.GetServer(id)
	require.NoError(t, err)
	return server.CurrentDomains
}

func TestCreateAssignment(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t)

	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 0)
	addDomain(t, store, "d1", "example.com")

	assignment, err := eng.CreateAssignment(ctx, "d1", "s1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "s1", assignment.ServerID)

	_, err = eng.CreateAssignment(ctx, "d1", "s1", "alice")
	require.ErrorIs(t, err, ledger.ErrDomainAssigned)
}

func TestBulkAssignShortCircuitsWhenFull(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t)

	// Capacity 5 with 3 already used leaves room for two
	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 3)
	for _, id := range []string{"d1", "d2", "d3", "d4"} {
		addDomain(t, store, id, id+".example.com")
	}

	result, err := eng.BulkAssign(ctx, []string{"d1", "d2", "d3", "d4"}, "s1", "alice")
	require.NoError(t, err)

	assert.Len(t, result.Assigned, 2)
	assert.Equal(t, []string{"d3", "d4"}, result.FailedIDs, "domains after the fill-up fail in order, unattempted")
	assert.Equal(t, 1, result.ServersUsed)
	assert.Equal(t, 5, serverLoad(t, store, "s1"))
}

func TestBulkAssignSkipsBadDomainAndContinues(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t)

	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 0)
	addDomain(t, store, "d1", "one.example.com")
	addDomain(t, store, "d3", "three.example.com")

	// d2 does not exist; d1 and d3 must still land
	result, err := eng.BulkAssign(ctx, []string{"d1", "d2", "d3"}, "s1", "alice")
	require.NoError(t, err)

	assert.Len(t, result.Assigned, 2)
	assert.Equal(t, []string{"d2"}, result.FailedIDs)
	assert.Equal(t, 2, serverLoad(t, store, "s1"))
}

func TestAutoAssignSpreadsEvenly(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t)

	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 0)
	addServer(t, store, "s2", "web-02", types.CapacityMode1x5, 0)
	addServer(t, store, "s3", "web-03", types.CapacityMode1x5, 0)

	domainIDs := make([]string, 0, 6)
	for _, id := range []string{"d1", "d2", "d3", "d4", "d5", "d6"} {
		addDomain(t, store, id, id+".example.com")
		domainIDs = append(domainIDs, id)
	}

	result, err := eng.AutoAssign(ctx, domainIDs, "alice", DefaultAutoOptions())
	require.NoError(t, err)

	assert.Len(t, result.Assigned, 6)
	assert.Empty(t, result.FailedIDs)
	assert.Equal(t, 3, result.ServersUsed)

	// Round-robin puts two on each server
	assert.Equal(t, 2, serverLoad(t, store, "s1"))
	assert.Equal(t, 2, serverLoad(t, store, "s2"))
	assert.Equal(t, 2, serverLoad(t, store, "s3"))
}

func TestAutoAssignFallsBackWhenServersFill(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t)

	// Uneven room: s1 can take one more, s2 has plenty
	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 4)
	addServer(t, store, "s2", "web-02", types.CapacityMode1x5, 0)

	domainIDs := make([]string, 0, 4)
	for _, id := range []string{"d1", "d2", "d3", "d4"} {
		addDomain(t, store, id, id+".example.com")
		domainIDs = append(domainIDs, id)
	}

	result, err := eng.AutoAssign(ctx, domainIDs, "alice", DefaultAutoOptions())
	require.NoError(t, err)

	assert.Len(t, result.Assigned, 4)
	assert.Empty(t, result.FailedIDs)
	assert.Equal(t, 5, serverLoad(t, store, "s1"))
	assert.Equal(t, 3, serverLoad(t, store, "s2"))
}

func TestAutoAssignPacksWhenNotDistributing(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t)

	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 0)
	addServer(t, store, "s2", "web-02", types.CapacityMode1x5, 0)

	domainIDs := make([]string, 0, 7)
	for _, id := range []string{"d1", "d2", "d3", "d4", "d5", "d6", "d7"} {
		addDomain(t, store, id, id+".example.com")
		domainIDs = append(domainIDs, id)
	}

	result, err := eng.AutoAssign(ctx, domainIDs, "alice", AutoOptions{DistributeEvenly: false})
	require.NoError(t, err)

	assert.Len(t, result.Assigned, 7)
	// First server fills completely before the second is touched
	assert.Equal(t, 5, serverLoad(t, store, "s1"))
	assert.Equal(t, 2, serverLoad(t, store, "s2"))
}

func TestAutoAssignNoCapacity(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t)

	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 5)
	addDomain(t, store, "d1", "one.example.com")
	addDomain(t, store, "d2", "two.example.com")

	result, err := eng.AutoAssign(ctx, []string{"d1", "d2"}, "alice", DefaultAutoOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Assigned)
	assert.Equal(t, []string{"d1", "d2"}, result.FailedIDs)
	assert.Equal(t, 0, result.ServersUsed)
}

func TestAutoAssignModeFilter(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t)

	addServer(t, store, "s1", "small-01", types.CapacityMode1x5, 0)
	addServer(t, store, "s2", "large-01", types.CapacityMode1x10, 0)
	addDomain(t, store, "d1", "example.com")

	opts := DefaultAutoOptions()
	opts.CapacityMode = types.CapacityMode1x10

	result, err := eng.AutoAssign(ctx, []string{"d1"}, "alice", opts)
	require.NoError(t, err)

	require.Len(t, result.Assigned, 1)
	assert.Equal(t, "s2", result.Assigned[0].ServerID)
	assert.Equal(t, 0, serverLoad(t, store, "s1"))
}

func TestAutoAssignPrefersLeastLoaded(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t)

	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 3)
	addServer(t, store, "s2", "web-02", types.CapacityMode1x5, 1)
	addDomain(t, store, "d1", "example.com")

	result, err := eng.AutoAssign(ctx, []string{"d1"}, "alice", DefaultAutoOptions())
	require.NoError(t, err)

	require.Len(t, result.Assigned, 1)
	assert.Equal(t, "s2", result.Assigned[0].ServerID)
}

func TestDeleteAssignment(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t)

	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 0)
	addDomain(t, store, "d1", "example.com")

	assignment, err := eng.CreateAssignment(ctx, "d1", "s1", "alice")
	require.NoError(t, err)

	ok, err := eng.DeleteAssignment(ctx, assignment.ID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = eng.DeleteAssignment(ctx, assignment.ID, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "second delete finds nothing")
}

func TestDeleteAssignmentsByServer(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t)

	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 0)
	for _, id := range []string{"d1", "d2"} {
		addDomain(t, store, id, id+".example.com")
	}

	_, err := eng.BulkAssign(ctx, []string{"d1", "d2"}, "s1", "alice")
	require.NoError(t, err)

	count, err := eng.DeleteAssignmentsByServer(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 0, serverLoad(t, store, "s1"))
}

func TestAvailableServers(t *testing.T) {
	eng, store := newTestEngine(t)

	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 5)
	addServer(t, store, "s2", "web-02", types.CapacityMode1x5, 3)
	addServer(t, store, "s3", "web-03", types.CapacityMode1x5, 1)

	servers, err := eng.AvailableServers("")
	require.NoError(t, err)

	require.Len(t, servers, 2, "full servers are excluded")
	assert.Equal(t, "s3", servers[0].ID, "least loaded first")
	assert.Equal(t, "s2", servers[1].ID)
}

func TestStatistics(t *testing.T) {
	eng, store := newTestEngine(t)

	addServer(t, store, "s1", "web-01", types.CapacityMode1x5, 2)
	addServer(t, store, "s2", "web-02", types.CapacityMode1x10, 5)

	addDomain(t, store, "d1", "one.example.com")
	addDomain(t, store, "d2", "two.example.com")
	require.NoError(t, store.CreateDomain(&types.Domain{
		ID:     "d3",
		Name:   "three.example.com",
		Status: types.DomainStatusAssigned,
	}))

	stats, err := eng.Statistics()
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalServers)
	assert.Equal(t, 3, stats.TotalDomains)
	assert.Equal(t, 1, stats.AssignedDomains)
	assert.Equal(t, 2, stats.FreeDomains)
	assert.Equal(t, 2, stats.ServersInUse)
	assert.Equal(t, 0, stats.ServersFree)

	// (2/5 + 5/10) / 2 servers = 45%
	assert.InDelta(t, 45.0, stats.AverageLoad, 0.001)

	small := stats.UtilizationByMode[types.CapacityMode1x5]
	assert.Equal(t, ModeUtilization{Servers: 1, Used: 2, Capacity: 5}, small)

	large := stats.UtilizationByMode[types.CapacityMode1x10]
	assert.Equal(t, ModeUtilization{Servers: 1, Used: 5, Capacity: 10}, large)
}
