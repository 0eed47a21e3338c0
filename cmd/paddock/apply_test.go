package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddockhq/paddock/pkg/engine"
	"github.com/paddockhq/paddock/pkg/inventory"
	"github.com/paddockhq/paddock/pkg/ledger"
	"github.com/paddockhq/paddock/pkg/lock"
	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/registry"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

func newTestApplier(t *testing.T) (*applier, storage.Store) {
	t.Helper()

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	notifier := notify.NewBroker()
	notifier.Start()
	t.Cleanup(notifier.Stop)

	led := ledger.New(store, notifier)
	a := &applier{
		inventory: inventory.New(store, lock.NewMemoryLocker(), notifier),
		registry:  registry.New(store, notifier),
		engine:    engine.New(store, led),
		actor:     "tester",
	}
	return a, store
}

func applyYAML(t *testing.T, a *applier, manifest string) error {
	t.Helper()
	return a.applyAll(context.Background(), strings.NewReader(manifest))
}

func TestApplyServerUpsert(t *testing.T) {
	a, _ := newTestApplier(t)

	err := applyYAML(t, a, `
apiVersion: paddock/v1
kind: Server
metadata:
  name: web-01
spec:
  ip: 10.0.0.1
  capacityMode: "1:5"
`)
	require.NoError(t, err)

	server, err := a.inventory.GetServerByName("web-01")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", server.IP)
	assert.Equal(t, 5, server.MaxDomains)

	// Re-applying with a bigger mode updates in place
	err = applyYAML(t, a, `
apiVersion: paddock/v1
kind: Server
metadata:
  name: web-01
spec:
  ip: 10.0.0.2
  capacityMode: "1:7"
`)
	require.NoError(t, err)

	updated, err := a.inventory.GetServerByName("web-01")
	require.NoError(t, err)
	assert.Equal(t, server.ID, updated.ID)
	assert.Equal(t, "10.0.0.2", updated.IP)
	assert.Equal(t, 7, updated.MaxDomains)
}

func TestApplyServerIntoGroup(t *testing.T) {
	a, _ := newTestApplier(t)

	err := applyYAML(t, a, `
apiVersion: paddock/v1
kind: ServerGroup
metadata:
  name: edge
spec:
  color: "#ff8800"
---
apiVersion: paddock/v1
kind: Server
metadata:
  name: web-01
spec:
  ip: 10.0.0.1
  capacityMode: "1:5"
  group: edge
`)
	require.NoError(t, err)

	group, err := a.registry.GetGroupByName("edge")
	require.NoError(t, err)
	server, err := a.inventory.GetServerByName("web-01")
	require.NoError(t, err)
	assert.Equal(t, group.ID, server.GroupID)
}

func TestApplyServerUnknownGroupFails(t *testing.T) {
	a, _ := newTestApplier(t)

	err := applyYAML(t, a, `
apiVersion: paddock/v1
kind: Server
metadata:
  name: web-01
spec:
  ip: 10.0.0.1
  capacityMode: "1:5"
  group: nope
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	_, err = a.inventory.GetServerByName("web-01")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestApplyDomainBulk(t *testing.T) {
	a, _ := newTestApplier(t)

	manifest := `
apiVersion: paddock/v1
kind: Domain
metadata:
  name: batch
spec:
  names:
    - a.example.com
    - b.example.com
  tags:
    - retail
`
	require.NoError(t, applyYAML(t, a, manifest))

	domains, err := a.inventory.ListDomains()
	require.NoError(t, err)
	require.Len(t, domains, 2)
	assert.Equal(t, []string{"retail"}, domains[0].Tags)

	// Second run skips both without error
	require.NoError(t, applyYAML(t, a, manifest))
	domains, err = a.inventory.ListDomains()
	require.NoError(t, err)
	assert.Len(t, domains, 2)
}

func TestApplyAssignment(t *testing.T) {
	a, _ := newTestApplier(t)

	manifest := `
apiVersion: paddock/v1
kind: Server
metadata:
  name: web-01
spec:
  ip: 10.0.0.1
  capacityMode: "1:5"
---
apiVersion: paddock/v1
kind: Domain
metadata:
  name: a.example.com
spec: {}
---
apiVersion: paddock/v1
kind: Assignment
metadata:
  name: a-on-web01
spec:
  domain: a.example.com
  server: web-01
`
	require.NoError(t, applyYAML(t, a, manifest))

	domain, err := a.inventory.GetDomainByName("a.example.com")
	require.NoError(t, err)
	assert.Equal(t, types.DomainStatusAssigned, domain.Status)

	// Idempotent re-apply: same placement is a no-op
	require.NoError(t, applyYAML(t, a, manifest))

	// Moving the domain is refused
	err = applyYAML(t, a, `
apiVersion: paddock/v1
kind: Server
metadata:
  name: web-02
spec:
  ip: 10.0.0.2
  capacityMode: "1:5"
---
apiVersion: paddock/v1
kind: Assignment
metadata:
  name: a-on-web02
spec:
  domain: a.example.com
  server: web-02
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already assigned")
}

func TestApplyAutoAssignAllFreeDomains(t *testing.T) {
	a, _ := newTestApplier(t)

	err := applyYAML(t, a, `
apiVersion: paddock/v1
kind: Server
metadata:
  name: web-01
spec:
  ip: 10.0.0.1
  capacityMode: "1:5"
---
apiVersion: paddock/v1
kind: Server
metadata:
  name: web-02
spec:
  ip: 10.0.0.2
  capacityMode: "1:5"
---
apiVersion: paddock/v1
kind: Domain
metadata:
  name: batch
spec:
  names: [a.example.com, b.example.com, c.example.com, d.example.com]
---
apiVersion: paddock/v1
kind: AutoAssign
metadata:
  name: spread
spec: {}
`)
	require.NoError(t, err)

	free, err := a.inventory.FreeDomains()
	require.NoError(t, err)
	assert.Empty(t, free)

	// Even spread: two domains per server
	s1, err := a.inventory.GetServerByName("web-01")
	require.NoError(t, err)
	s2, err := a.inventory.GetServerByName("web-02")
	require.NoError(t, err)
	assert.Equal(t, 2, s1.CurrentDomains)
	assert.Equal(t, 2, s2.CurrentDomains)
}

func TestApplyUnknownKind(t *testing.T) {
	a, _ := newTestApplier(t)

	err := applyYAML(t, a, `
apiVersion: paddock/v1
kind: Widget
metadata:
  name: x
spec: {}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported resource kind")
}

func TestApplyMalformedYAML(t *testing.T) {
	a, _ := newTestApplier(t)

	err := applyYAML(t, a, "kind: [unbalanced")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}
