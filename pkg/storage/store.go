package storage

import (
	"errors"

	"github.com/paddockhq/paddock/pkg/types"
)

// ErrNotFound reports a lookup for an entity that does not exist.
// Wrapped errors carry the entity kind and id; match with errors.Is.
var ErrNotFound = errors.New("not found")

// Store defines the interface for record storage.
// This is implemented by BoltDB-backed storage.
type Store interface {
	// Servers
	CreateServer(server *types.Server) error
	GetServer(id string) (*types.Server, error)
	GetServerByName(name string) (*types.Server, error)
	ListServers() ([]*types.Server, error)
	UpdateServer(server *types.Server) error
	DeleteServer(id string) error

	// Domains
	CreateDomain(domain *types.Domain) error
	GetDomain(id string) (*types.Domain, error)
	GetDomainByName(name string) (*types.Domain, error)
	ListDomains() ([]*types.Domain, error)
	UpdateDomain(domain *types.Domain) error
	DeleteDomain(id string) error

	// Assignments (read-only outside a transaction; created and
	// destroyed only through Update by the capacity ledger)
	GetAssignment(id string) (*types.Assignment, error)
	GetAssignmentByDomain(domainID string) (*types.Assignment, error)
	ListAssignments() ([]*types.Assignment, error)
	ListAssignmentsByServer(serverID string) ([]*types.Assignment, error)

	// Server groups
	CreateGroup(group *types.ServerGroup) error
	GetGroup(id string) (*types.ServerGroup, error)
	GetGroupByName(name string) (*types.ServerGroup, error)
	ListGroups() ([]*types.ServerGroup, error)
	UpdateGroup(group *types.ServerGroup) error
	DeleteGroup(id string) error

	// Update runs fn inside a single read-write transaction. Every
	// write made through the Tx commits together or not at all; fn
	// returning an error rolls the whole transaction back.
	Update(fn func(tx Tx) error) error

	// View runs fn inside a read-only transaction, giving fn a
	// consistent snapshot across entities.
	View(fn func(tx Tx) error) error

	// Utility
	Close() error
}

// Tx exposes entity operations scoped to one storage transaction.
// Handed to callbacks by Store.Update and Store.View; never retained
// past the callback.
type Tx interface {
	GetServer(id string) (*types.Server, error)
	GetServerByName(name string) (*types.Server, error)
	PutServer(server *types.Server) error
	DeleteServer(id string) error
	ListServers() ([]*types.Server, error)

	GetDomain(id string) (*types.Domain, error)
	GetDomainByName(name string) (*types.Domain, error)
	PutDomain(domain *types.Domain) error
	DeleteDomain(id string) error
	ListDomains() ([]*types.Domain, error)

	GetAssignment(id string) (*types.Assignment, error)
	GetAssignmentByDomain(domainID string) (*types.Assignment, error)
	ListAssignments() ([]*types.Assignment, error)
	ListAssignmentsByServer(serverID string) ([]*types.Assignment, error)
	PutAssignment(assignment *types.Assignment) error
	DeleteAssignment(id string) error

	GetGroup(id string) (*types.ServerGroup, error)
	GetGroupByName(name string) (*types.ServerGroup, error)
	PutGroup(group *types.ServerGroup) error
	DeleteGroup(id string) error
	ListGroups() ([]*types.ServerGroup, error)
}
