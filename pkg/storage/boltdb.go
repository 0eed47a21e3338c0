package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/paddockhq/paddock/pkg/types"
)

var (
	// Bucket names
	bucketServers     = []byte("servers")
	bucketDomains     = []byte("domains")
	bucketAssignments = []byte("assignments")
	bucketGroups      = []byte("server_groups")
)

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "paddock.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketServers,
			bucketDomains,
			bucketAssignments,
			bucketGroups,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Update runs fn inside one read-write bolt transaction. bbolt allows a
// single writer at a time, which serializes concurrent ledger mutations.
func (s *BoltStore) Update(fn func(tx Tx) error) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

// View runs fn inside one read-only bolt transaction
func (s *BoltStore) View(fn func(tx Tx) error) error {
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

// Server operations

func (s *BoltStore) CreateServer(server *types.Server) error {
	return s.Update(func(tx Tx) error {
		return tx.PutServer(server)
	})
}

func (s *BoltStore) GetServer(id string) (*types.Server, error) {
	var server *types.Server
	err := s.View(func(tx Tx) error {
		var err error
		server, err = tx.GetServer(id)
		return err
	})
	return server, err
}

func (s *BoltStore) GetServerByName(name string) (*types.Server, error) {
	var server *types.Server
	err := s.View(func(tx Tx) error {
		var err error
		server, err = tx.GetServerByName(name)
		return err
	})
	return server, err
}

func (s *BoltStore) ListServers() ([]*types.Server, error) {
	var servers []*types.Server
	err := s.View(func(tx Tx) error {
		var err error
		servers, err = tx.ListServers()
		return err
	})
	return servers, err
}

func (s *BoltStore) UpdateServer(server *types.Server) error {
	return s.CreateServer(server) // Same as create (upsert)
}

func (s *BoltStore) DeleteServer(id string) error {
	return s.Update(func(tx Tx) error {
		return tx.DeleteServer(id)
	})
}

// Domain operations

func (s *BoltStore) CreateDomain(domain *types.Domain) error {
	return s.Update(func(tx Tx) error {
		return tx.PutDomain(domain)
	})
}

func (s *BoltStore) GetDomain(id string) (*types.Domain, error) {
	var domain *types.Domain
	err := s.View(func(tx Tx) error {
		var err error
		domain, err = tx.GetDomain(id)
		return err
	})
	return domain, err
}

func (s *BoltStore) GetDomainByName(name string) (*types.Domain, error) {
	var domain *types.Domain
	err := s.View(func(tx Tx) error {
		var err error
		domain, err = tx.GetDomainByName(name)
		return err
	})
	return domain, err
}

func (s *BoltStore) ListDomains() ([]*types.Domain, error) {
	var domains []*types.Domain
	err := s.View(func(tx Tx) error {
		var err error
		domains, err = tx.ListDomains()
		return err
	})
	return domains, err
}

func (s *BoltStore) UpdateDomain(domain *types.Domain) error {
	return s.CreateDomain(domain)
}

func (s *BoltStore) DeleteDomain(id string) error {
	return s.Update(func(tx Tx) error {
		return tx.DeleteDomain(id)
	})
}

// Assignment operations

func (s *BoltStore) GetAssignment(id string) (*types.Assignment, error) {
	var assignment *types.Assignment
	err := s.View(func(tx Tx) error {
		var err error
		assignment, err = tx.GetAssignment(id)
		return err
	})
	return assignment, err
}

func (s *BoltStore) GetAssignmentByDomain(domainID string) (*types.Assignment, error) {
	var assignment *types.Assignment
	err := s.View(func(tx Tx) error {
		var err error
		assignment, err = tx.GetAssignmentByDomain(domainID)
		return err
	})
	return assignment, err
}

func (s *BoltStore) ListAssignments() ([]*types.Assignment, error) {
	var assignments []*types.Assignment
	err := s.View(func(tx Tx) error {
		var err error
		assignments, err = tx.ListAssignments()
		return err
	})
	return assignments, err
}

func (s *BoltStore) ListAssignmentsByServer(serverID string) ([]*types.Assignment, error) {
	var assignments []*types.Assignment
	err := s.View(func(tx Tx) error {
		var err error
		assignments, err = tx.ListAssignmentsByServer(serverID)
		return err
	})
	return assignments, err
}

// Group operations

func (s *BoltStore) CreateGroup(group *types.ServerGroup) error {
	return s.Update(func(tx Tx) error {
		return tx.PutGroup(group)
	})
}

func (s *BoltStore) GetGroup(id string) (*types.ServerGroup, error) {
	var group *types.ServerGroup
	err := s.View(func(tx Tx) error {
		var err error
		group, err = tx.GetGroup(id)
		return err
	})
	return group, err
}

func (s *BoltStore) GetGroupByName(name string) (*types.ServerGroup, error) {
	var group *types.ServerGroup
	err := s.View(func(tx Tx) error {
		var err error
		group, err = tx.GetGroupByName(name)
		return err
	})
	return group, err
}

func (s *BoltStore) ListGroups() ([]*types.ServerGroup, error) {
	var groups []*types.ServerGroup
	err := s.View(func(tx Tx) error {
		var err error
		groups, err = tx.ListGroups()
		return err
	})
	return groups, err
}

func (s *BoltStore) UpdateGroup(group *types.ServerGroup) error {
	return s.CreateGroup(group)
}

func (s *BoltStore) DeleteGroup(id string) error {
	return s.Update(func(tx Tx) error {
		return tx.DeleteGroup(id)
	})
}

// boltTx implements Tx over a live bolt transaction
type boltTx struct {
	tx *bolt.Tx
}

// Server operations

func (t *boltTx) GetServer(id string) (*types.Server, error) {
	var server types.Server
	data := t.tx.Bucket(bucketServers).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("server %s: %w", id, ErrNotFound)
	}
	if err := json.Unmarshal(data, &server); err != nil {
		return nil, err
	}
	return &server, nil
}

func (t *boltTx) GetServerByName(name string) (*types.Server, error) {
	var found *types.Server
	err := t.tx.Bucket(bucketServers).ForEach(func(k, v []byte) error {
		var server types.Server
		if err := json.Unmarshal(v, &server); err != nil {
			return err
		}
		if server.Name == name {
			found = &server
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("server %s: %w", name, ErrNotFound)
	}
	return found, nil
}

func (t *boltTx) PutServer(server *types.Server) error {
	data, err := json.Marshal(server)
	if err != nil {
		return err
	}
	return t.tx.Bucket(bucketServers).Put([]byte(server.ID), data)
}

func (t *boltTx) DeleteServer(id string) error {
	return t.tx.Bucket(bucketServers).Delete([]byte(id))
}

func (t *boltTx) ListServers() ([]*types.Server, error) {
	var servers []*types.Server
	err := t.tx.Bucket(bucketServers).ForEach(func(k, v []byte) error {
		var server types.Server
		if err := json.Unmarshal(v, &server); err != nil {
			return err
		}
		servers = append(servers, &server)
		return nil
	})
	return servers, err
}

// Domain operations

func (t *boltTx) GetDomain(id string) (*types.Domain, error) {
	var domain types.Domain
	data := t.tx.Bucket(bucketDomains).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("domain %s: %w", id, ErrNotFound)
	}
	if err := json.Unmarshal(data, &domain); err != nil {
		return nil, err
	}
	return &domain, nil
}

func (t *boltTx) GetDomainByName(name string) (*types.Domain, error) {
	var found *types.Domain
	err := t.tx.Bucket(bucketDomains).ForEach(func(k, v []byte) error {
		var domain types.Domain
		if err := json.Unmarshal(v, &domain); err != nil {
			return err
		}
		if domain.Name == name {
			found = &domain
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("domain %s: %w", name, ErrNotFound)
	}
	return found, nil
}

func (t *boltTx) PutDomain(domain *types.Domain) error {
	data, err := json.Marshal(domain)
	if err != nil {
		return err
	}
	return t.tx.Bucket(bucketDomains).Put([]byte(domain.ID), data)
}

func (t *boltTx) DeleteDomain(id string) error {
	return t.tx.Bucket(bucketDomains).Delete([]byte(id))
}

func (t *boltTx) ListDomains() ([]*types.Domain, error) {
	var domains []*types.Domain
	err := t.tx.Bucket(bucketDomains).ForEach(func(k, v []byte) error {
		var domain types.Domain
		if err := json.Unmarshal(v, &domain); err != nil {
			return err
		}
		domains = append(domains, &domain)
		return nil
	})
	return domains, err
}

// Assignment operations

func (t *boltTx) GetAssignment(id string) (*types.Assignment, error) {
	var assignment types.Assignment
	data := t.tx.Bucket(bucketAssignments).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	if err := json.Unmarshal(data, &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (t *boltTx) GetAssignmentByDomain(domainID string) (*types.Assignment, error) {
	var found *types.Assignment
	err := t.tx.Bucket(bucketAssignments).ForEach(func(k, v []byte) error {
		var assignment types.Assignment
		if err := json.Unmarshal(v, &assignment); err != nil {
			return err
		}
		if assignment.DomainID == domainID {
			found = &assignment
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("assignment for domain %s: %w", domainID, ErrNotFound)
	}
	return found, nil
}

func (t *boltTx) ListAssignments() ([]*types.Assignment, error) {
	var assignments []*types.Assignment
	err := t.tx.Bucket(bucketAssignments).ForEach(func(k, v []byte) error {
		var assignment types.Assignment
		if err := json.Unmarshal(v, &assignment); err != nil {
			return err
		}
		assignments = append(assignments, &assignment)
		return nil
	})
	return assignments, err
}

func (t *boltTx) ListAssignmentsByServer(serverID string) ([]*types.Assignment, error) {
	assignments, err := t.ListAssignments()
	if err != nil {
		return nil, err
	}

	var filtered []*types.Assignment
	for _, assignment := range assignments {
		if assignment.ServerID == serverID {
			filtered = append(filtered, assignment)
		}
	}
	return filtered, nil
}

func (t *boltTx) PutAssignment(assignment *types.Assignment) error {
	data, err := json.Marshal(assignment)
	if err != nil {
		return err
	}
	return t.tx.Bucket(bucketAssignments).Put([]byte(assignment.ID), data)
}

func (t *boltTx) DeleteAssignment(id string) error {
	return t.tx.Bucket(bucketAssignments).Delete([]byte(id))
}

// Group operations

func (t *boltTx) GetGroup(id string) (*types.ServerGroup, error) {
	var group types.ServerGroup
	data := t.tx.Bucket(bucketGroups).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("server group %s: %w", id, ErrNotFound)
	}
	if err := json.Unmarshal(data, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (t *boltTx) GetGroupByName(name string) (*types.ServerGroup, error) {
	var found *types.ServerGroup
	err := t.tx.Bucket(bucketGroups).ForEach(func(k, v []byte) error {
		var group types.ServerGroup
		if err := json.Unmarshal(v, &group); err != nil {
			return err
		}
		if group.Name == name {
			found = &group
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("server group %s: %w", name, ErrNotFound)
	}
	return found, nil
}

func (t *boltTx) PutGroup(group *types.ServerGroup) error {
	data, err := json.Marshal(group)
	if err != nil {
		return err
	}
	return t.tx.Bucket(bucketGroups).Put([]byte(group.ID), data)
}

func (t *boltTx) DeleteGroup(id string) error {
	return t.tx.Bucket(bucketGroups).Delete([]byte(id))
}

func (t *boltTx) ListGroups() ([]*types.ServerGroup, error) {
	var groups []*types.ServerGroup
	err := t.tx.Bucket(bucketGroups).ForEach(func(k, v []byte) error {
		var group types.ServerGroup
		if err := json.Unmarshal(v, &group); err != nil {
			return err
		}
		groups = append(groups, &group)
		return nil
	})
	return groups, err
}
