// Package registry manages server groups.
//
// Groups are labels for organizing a fleet; nothing in placement or
// locking consults them. Membership lives on the server record as a
// single group reference, so a server belongs to at most one group and
// assigning it to another moves it silently.
//
// Aggregates (server count, domains in use, total capacity) are summed
// from the live member servers inside one read snapshot on every call.
// They are never stored, so they cannot drift from ledger state.
//
// Deleting a group detaches its members: the servers stay, their group
// reference clears, in the same transaction that removes the group.
package registry
