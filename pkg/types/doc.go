/*
Package types defines the core data structures used throughout Paddock.

This package contains the fundamental types that represent Paddock's
domain model: servers, domains, assignments, and server groups. These
types are used by all other packages for state management, capacity
accounting, and change notification.

# Architecture

The types package is the foundation of Paddock's data model. It defines:

  - Server: a capacity-bounded host with a fixed number of domain slots
  - Domain: an assignable unit with free/assigned lifecycle
  - Assignment: the join entity binding one domain to one server
  - ServerGroup: organizational grouping with derived rollups
  - Capacity modes and the status vocabulary for servers and domains

All types are designed to be:
  - Serializable (stored as JSON in the record store)
  - Mutated only through the owning component (pkg/ledger for counters
    and statuses, pkg/inventory for lifecycle, pkg/registry for groups)
  - Validated (typed string enums, ParseCapacityMode)

# Capacity Model

Every server carries a capacity mode naming its tier:

	1:5  → MaxDomains = 5
	1:7  → MaxDomains = 7
	1:10 → MaxDomains = 10

MaxDomains is fixed when the server is created (or its mode is changed)
and CurrentDomains tracks the live assignment count. The central
invariants, enforced by pkg/ledger:

  - CurrentDomains == count(assignments referencing the server)
  - CurrentDomains <= MaxDomains at all times
  - domain.Status == assigned ⇔ exactly one live assignment for it

# State Machines

Servers:

	free --first assignment--> in_use --last unassignment--> free

A server is in_use as soon as it holds one domain; StatusFor encodes the
rule so assign and unassign paths cannot drift apart.

Domains:

	free --assign--> assigned --unassign--> free

Domain deletion is only legal in the free state; server deletion is only
legal at CurrentDomains == 0.

# Usage

Creating a server:

	mode, err := types.ParseCapacityMode("1:7")
	if err != nil {
		return err
	}
	server := &types.Server{
		ID:           uuid.New().String(),
		Name:         "web-03",
		IP:           "10.0.4.13",
		Status:       types.ServerStatusFree,
		CapacityMode: mode,
		MaxDomains:   mode.MaxDomains(),
		CreatedAt:    time.Now().UTC(),
	}

Creating a domain:

	domain := &types.Domain{
		ID:        uuid.New().String(),
		Name:      "example.org",
		Status:    types.DomainStatusFree,
		Tags:      []string{"customer-a", "production"},
		CreatedAt: time.Now().UTC(),
	}

Assignments are never built by hand; they are created and destroyed
exclusively by pkg/ledger so the four-way write (assignment row, domain
status, server counter, server status) stays atomic.

# Integration Points

This package integrates with:

  - pkg/storage: persists all types as JSON in bbolt buckets
  - pkg/ledger: owns Server counter/status and Domain status mutation
  - pkg/engine: distribution algorithms and statistics over these types
  - pkg/inventory: admin lifecycle and lock stamping
  - pkg/registry: group membership and derived aggregates
  - pkg/notify: entity identifiers carried in change events
*/
package types
