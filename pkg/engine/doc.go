// Package engine turns placement requests into ledger assignments.
//
// The ledger decides whether one domain fits one server; the engine
// decides which server to try. It offers three entry points:
//
//	CreateAssignment  caller names the server
//	BulkAssign        many domains, one server, input order
//	AutoAssign        many domains, engine picks the servers
//
// # Bulk placement
//
// BulkAssign walks the domain list in order. The first ServerFull
// short-circuits: every remaining domain is reported failed without an
// attempt, since the same server cannot fit them either. A domain
// rejected for its own reasons (already assigned, unknown) fails alone
// and the walk continues.
//
// # Auto placement
//
// AutoAssign builds a candidate list of servers with spare capacity,
// optionally restricted to one capacity mode and ordered by current
// load when spreading evenly. A rotating cursor walks the list:
//
//	for each domain:
//	    scan from the cursor, wrapping, for a server with room
//	    place the domain there; advance the cursor when spreading
//	    no room anywhere -> the domain is failed
//
// Even spread gives each server one domain per revolution while
// capacity allows; once some servers fill, the scan skips over them
// and the rest absorb the remainder. With DistributeEvenly false the
// cursor stays put, packing each server full before moving on.
//
// Placements are individual ledger transactions. A batch is not
// atomic: callers get back exactly which domains landed (Assigned) and
// which did not (FailedIDs), plus how many distinct servers were used.
//
// # Statistics
//
// Statistics aggregates fleet load in one read snapshot: totals by
// status, mean percentage load, and per-mode slot utilization. It is
// the data source for the stats command and the capacity report.
package engine
