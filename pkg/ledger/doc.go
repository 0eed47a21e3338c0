// Package ledger is the single mutation path for assignment state.
//
// Three fields in the data model are derived from assignments and must
// never drift from them: Domain.Status, Server.CurrentDomains and
// Server.Status. The ledger owns all three. Every other component
// treats them as read-only and routes changes through Assign and the
// Unassign variants.
//
// # The four-way write
//
// One assign touches four records in one store transaction:
//
//	assignments  +row {id, domain_id, server_id, assigned_at, assigned_by}
//	domain       status: free -> assigned
//	server       current_domains: n -> n+1
//	server       status: recomputed (in_use when count >= 1)
//
// The transaction commits all four or none, so no reader ever sees an
// assignment row next to stale counters. Concurrent assigns against
// the same server serialize on the store's write transaction, which is
// what keeps two racing calls from pushing a server past capacity; the
// ledger takes no locks of its own.
//
// Validation order: missing domain, assigned domain, missing server,
// full server. The first failure aborts before any write.
//
// # Unassign
//
// Unassign, UnassignDomain and UnassignServer reverse the write for
// one assignment, a domain's assignment, or everything on a server.
// Each returns the number of assignments destroyed; targeting
// something without an assignment yields 0 and no error, so unassign
// is idempotent. The counter decrement clamps at zero and the domain
// or server row being gone is tolerated, which lets the ledger unwind
// cleanly even when earlier drift or deletions left partial state.
//
// One event is published per destroyed assignment, never one per call,
// so listeners tracking load see every change.
package ledger
