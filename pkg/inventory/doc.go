// Package inventory manages server and domain records: creation,
// metadata updates, deletion and advisory lock stamps.
//
// Names are unique per resource kind and capacity modes fix a server's
// maximum domain count at creation. Deletion is guarded: a server must
// be drained of assignments and a domain unassigned before either can
// be removed, which keeps assignment rows from ever pointing at
// missing records.
//
// The assignment-derived fields on these records (Domain.Status,
// Server.CurrentDomains, Server.Status) are owned by the ledger.
// Inventory reads them for guards and reporting but never writes them,
// with one deliberate exception: shrinking a server's capacity mode is
// refused whenever the new maximum falls below the current count.
//
// Lock operations pair the lock coordinator with the record store: the
// key store decides who holds the lock, then the record's locked_by
// and locked_at stamps are rewritten to match. The stamps are a
// display mirror, not the source of truth, and go stale when a TTL
// expires silently.
package inventory
