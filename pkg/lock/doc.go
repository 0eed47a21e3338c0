// Package lock provides short-lived advisory locks on servers and
// domains so that concurrent operators do not edit the same resource
// at once.
//
// # Model
//
// A lock is one key with an owner and a TTL:
//
//	lock:{kind}:{id}  ->  owner
//
// Acquire creates the key only when absent (set-if-absent), so exactly
// one claimant wins. Release and Extend first read the owner and act
// only on a match; a mismatch returns false with no side effect.
// Acquire is not re-entrant: the current owner's second acquire fails
// like any other conflict, so callers must release before re-locking.
//
// Expiry is silent. When a TTL lapses the key vanishes without any
// notification, and resource records that carry locked_by/locked_at
// stamps keep them until the next lock or unlock call rewrites them.
// Locks gate nothing by themselves; assignment writes stay correct
// under concurrency through store transactions alone.
//
// # Backends
//
//	MemoryLocker  process-local map, for single-node runs and tests
//	RedisLocker   SET NX EX on a shared Redis, for multi-process runs
//	NATSLocker    JetStream KV bucket with bucket-level TTL
//
// All three implement Locker. The Redis backend honors the per-call
// TTL; the NATS backend applies the TTL per bucket at creation and
// renews by rewriting the entry.
//
// # Usage
//
//	locker := lock.NewMemoryLocker()
//	ok, err := locker.Acquire(ctx, lock.Key(lock.KindServer, srv.ID), "alice", lock.DefaultTTL)
//	if err != nil {
//		return err
//	}
//	if !ok {
//		holder, _ := locker.Check(ctx, lock.Key(lock.KindServer, srv.ID))
//		return fmt.Errorf("server locked by %s", holder)
//	}
//	defer locker.Release(ctx, lock.Key(lock.KindServer, srv.ID), "alice")
package lock
