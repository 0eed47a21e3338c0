package inventory

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/paddockhq/paddock/pkg/ledger"
	"github.com/paddockhq/paddock/pkg/lock"
	"github.com/paddockhq/paddock/pkg/log"
	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

// Sentinels shared with the storage and ledger layers, re-exported so
// callers can match without importing those packages.
var (
	ErrNotFound       = storage.ErrNotFound
	ErrDomainAssigned = ledger.ErrDomainAssigned
)

var (
	// ErrNameTaken reports a create or rename colliding with an
	// existing server or domain name.
	ErrNameTaken = errors.New("name already in use")

	// ErrServerInUse reports an operation that needs an empty server,
	// deletion or a capacity shrink, attempted while domains are
	// still assigned.
	ErrServerInUse = errors.New("server still has domains assigned")
)

// Inventory manages the server and domain records themselves: their
// lifecycle, their metadata and their advisory lock stamps. Assignment
// state on those records belongs to the ledger and is never written
// here.
type Inventory struct {
	store    storage.Store
	locker   lock.Locker
	notifier notify.Publisher
	logger   zerolog.Logger
}

func New(store storage.Store, locker lock.Locker, notifier notify.Publisher) *Inventory {
	return &Inventory{
		store:    store,
		locker:   locker,
		notifier: notifier,
		logger:   log.WithComponent("inventory"),
	}
}

// GetServer returns one server by ID.
func (inv *Inventory) GetServer(id string) (*types.Server, error) {
	return inv.store.GetServer(id)
}

// GetServerByName returns one server by its unique name.
func (inv *Inventory) GetServerByName(name string) (*types.Server, error) {
	return inv.store.GetServerByName(name)
}

// ListServers returns all servers.
func (inv *Inventory) ListServers() ([]*types.Server, error) {
	return inv.store.ListServers()
}

// GetDomain returns one domain by ID.
func (inv *Inventory) GetDomain(id string) (*types.Domain, error) {
	return inv.store.GetDomain(id)
}

// GetDomainByName returns one domain by its unique name.
func (inv *Inventory) GetDomainByName(name string) (*types.Domain, error) {
	return inv.store.GetDomainByName(name)
}

// ListDomains returns all domains.
func (inv *Inventory) ListDomains() ([]*types.Domain, error) {
	return inv.store.ListDomains()
}
