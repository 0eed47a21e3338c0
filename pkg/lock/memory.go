package lock

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	owner     string
	expiresAt time.Time
}

// MemoryLocker is a process-local Locker for single-node deployments
// and tests. Expired entries are evicted lazily on the next touch of
// their key; no background sweeper runs.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryEntry
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]memoryEntry),
	}
}

// live returns the entry for key if present and unexpired, evicting it
// otherwise. Callers must hold mu.
func (l *MemoryLocker) live(key string) (memoryEntry, bool) {
	entry, ok := l.locks[key]
	if !ok {
		return memoryEntry{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(l.locks, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (l *MemoryLocker) Acquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.live(key); held {
		return false, nil
	}
	l.locks[key] = memoryEntry{
		owner:     owner,
		expiresAt: time.Now().Add(ttl),
	}
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.live(key)
	if !held || entry.owner != owner {
		return false, nil
	}
	delete(l.locks, key)
	return true, nil
}

func (l *MemoryLocker) Extend(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.live(key)
	if !held || entry.owner != owner {
		return false, nil
	}
	entry.expiresAt = time.Now().Add(ttl)
	l.locks[key] = entry
	return true, nil
}

func (l *MemoryLocker) Check(_ context.Context, key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.live(key)
	if !held {
		return "", nil
	}
	return entry.owner, nil
}
