package lock

import (
	"context"
	"fmt"
	"time"
)

// DefaultTTL is the lock lifetime applied when callers pass no explicit TTL
const DefaultTTL = 300 * time.Second

// Resource kinds locks are taken on
const (
	KindServer = "server"
	KindDomain = "domain"
)

// Key builds the store key for a lock on one resource: lock:{kind}:{id}
func Key(kind, id string) string {
	return fmt.Sprintf("lock:%s:%s", kind, id)
}

// Locker grants short-lived, owner-checked advisory locks on named
// resources. Locks expire on their own when the TTL elapses; expiry is
// silent, so callers must tolerate stale lock-state reads until the
// next lock or unlock call reconciles the record store.
//
// Acquire is not re-entrant: a second acquire by the current owner
// fails like any other conflict.
type Locker interface {
	// Acquire returns true iff the key was created (it did not already
	// exist). False means the lock is held, by anyone.
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Release deletes the key only when the current holder equals
	// owner. Returns false, without side effect, otherwise.
	Release(ctx context.Context, key, owner string) (bool, error)

	// Extend resets the TTL only when the current holder equals owner.
	Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Check returns the current owner, or "" when the lock is free.
	Check(ctx context.Context, key string) (string, error)
}
