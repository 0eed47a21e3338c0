/*
Package storage provides BoltDB-backed state persistence for Paddock's records.

The storage package implements the Store interface using BoltDB as the
underlying database, holding servers, domains, assignments, and server
groups. All data is serialized as JSON and stored in separate buckets.
It offers two levels of access: per-entity CRUD convenience methods, and
transaction-scoped access (Update/View) for multi-entity atomic writes.

# Architecture

	┌──────────────────── BOLTDB STORAGE ───────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐            │
	│  │            BoltStore                        │            │
	│  │  - File: <dataDir>/paddock.db               │            │
	│  │  - Transactions: ACID with fsync            │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │              Bucket Structure               │            │
	│  │  ┌────────────────────────────┐             │            │
	│  │  │ servers        (Server ID) │             │            │
	│  │  │ domains        (Domain ID) │             │            │
	│  │  │ assignments    (Assign ID) │             │            │
	│  │  │ server_groups  (Group ID)  │             │            │
	│  │  └────────────────────────────┘             │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │        Transaction Management               │            │
	│  │  - Read: View() - concurrent readers        │            │
	│  │  - Write: Update() - single writer          │            │
	│  │  - Rollback: automatic on error             │            │
	│  │  - Commit: automatic on success + fsync     │            │
	│  └────────────────────────────────────────────┘            │
	└────────────────────────────────────────────────────────────┘

# Transactions

The capacity ledger must write an assignment row, a domain status, a
server counter, and a server status as one atomic unit. Store.Update
hands the callback a Tx scoped to a single bolt read-write transaction:

	err := store.Update(func(tx storage.Tx) error {
		domain, err := tx.GetDomain(domainID)
		if err != nil {
			return err
		}
		domain.Status = types.DomainStatusAssigned
		return tx.PutDomain(domain)
	})

Returning an error from the callback rolls back every write made through
the Tx. bbolt permits one writer at a time, so concurrent Update calls
serialize; that single-writer guarantee is what keeps two simultaneous
assigns from overshooting a server's capacity.

Store.View is the read-only counterpart, used where a consistent
snapshot across buckets matters (statistics, export projections).

# Lookups

Lookups by ID are direct bucket gets. Lookups by name scan the bucket;
entity counts are admin-scale (hundreds, not millions), so scans keep
the schema to one bucket per entity. Missing entities return errors
wrapping ErrNotFound:

	server, err := store.GetServerByName("web-03")
	if errors.Is(err, storage.ErrNotFound) {
		// unknown server
	}

# Integration Points

  - pkg/ledger: assign/unassign four-way writes inside Update
  - pkg/inventory, pkg/registry: lifecycle writes with uniqueness checks
  - pkg/engine, pkg/export: snapshot reads via View
  - pkg/reconciler: counter drift repair inside Update
*/
package storage
