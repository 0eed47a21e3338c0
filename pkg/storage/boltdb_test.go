package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddockhq/paddock/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestServerCRUD(t *testing.T) {
	store := newTestStore(t)

	server := &types.Server{
		ID:           "srv-1",
		Name:         "web-01",
		IP:           "10.0.0.1",
		Status:       types.ServerStatusFree,
		CapacityMode: types.CapacityMode1x5,
		MaxDomains:   5,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.CreateServer(server))

	got, err := store.GetServer("srv-1")
	require.NoError(t, err)
	assert.Equal(t, "web-01", got.Name)
	assert.Equal(t, 5, got.MaxDomains)

	byName, err := store.GetServerByName("web-01")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", byName.ID)

	server.CurrentDomains = 2
	server.Status = types.ServerStatusInUse
	require.NoError(t, store.UpdateServer(server))

	got, err = store.GetServer("srv-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentDomains)
	assert.Equal(t, types.ServerStatusInUse, got.Status)

	servers, err := store.ListServers()
	require.NoError(t, err)
	assert.Len(t, servers, 1)

	require.NoError(t, store.DeleteServer("srv-1"))
	_, err = store.GetServer("srv-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetServer("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.GetDomainByName("missing.example.org")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.GetAssignmentByDomain("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.GetGroupByName("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDomainTagsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	domain := &types.Domain{
		ID:     "dom-1",
		Name:   "example.org",
		Status: types.DomainStatusFree,
		Tags:   []string{"customer-a", "production", "eu"},
	}
	require.NoError(t, store.CreateDomain(domain))

	got, err := store.GetDomain("dom-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"customer-a", "production", "eu"}, got.Tags)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	store := newTestStore(t)

	boom := errors.New("boom")
	err := store.Update(func(tx Tx) error {
		if err := tx.PutServer(&types.Server{ID: "srv-1", Name: "web-01"}); err != nil {
			return err
		}
		if err := tx.PutDomain(&types.Domain{ID: "dom-1", Name: "example.org"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetServer("srv-1")
	assert.True(t, errors.Is(err, ErrNotFound), "server write should have rolled back")
	_, err = store.GetDomain("dom-1")
	assert.True(t, errors.Is(err, ErrNotFound), "domain write should have rolled back")
}

func TestUpdateCommitsAllWrites(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(func(tx Tx) error {
		if err := tx.PutServer(&types.Server{ID: "srv-1", Name: "web-01", CurrentDomains: 1}); err != nil {
			return err
		}
		if err := tx.PutDomain(&types.Domain{ID: "dom-1", Name: "example.org", Status: types.DomainStatusAssigned}); err != nil {
			return err
		}
		return tx.PutAssignment(&types.Assignment{ID: "asg-1", DomainID: "dom-1", ServerID: "srv-1"})
	})
	require.NoError(t, err)

	server, err := store.GetServer("srv-1")
	require.NoError(t, err)
	assert.Equal(t, 1, server.CurrentDomains)

	assignment, err := store.GetAssignmentByDomain("dom-1")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", assignment.ServerID)
}

func TestListAssignmentsByServer(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(func(tx Tx) error {
		for _, a := range []*types.Assignment{
			{ID: "asg-1", DomainID: "dom-1", ServerID: "srv-1"},
			{ID: "asg-2", DomainID: "dom-2", ServerID: "srv-2"},
			{ID: "asg-3", DomainID: "dom-3", ServerID: "srv-1"},
		} {
			if err := tx.PutAssignment(a); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	assignments, err := store.ListAssignmentsByServer("srv-1")
	require.NoError(t, err)
	assert.Len(t, assignments, 2)

	all, err := store.ListAssignments()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGroupCRUD(t *testing.T) {
	store := newTestStore(t)

	group := &types.ServerGroup{ID: "grp-1", Name: "eu-west", Color: "#3fb950"}
	require.NoError(t, store.CreateGroup(group))

	got, err := store.GetGroupByName("eu-west")
	require.NoError(t, err)
	assert.Equal(t, "grp-1", got.ID)

	groups, err := store.ListGroups()
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	require.NoError(t, store.DeleteGroup("grp-1"))
	_, err = store.GetGroup("grp-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}
