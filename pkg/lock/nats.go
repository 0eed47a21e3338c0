package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// natsBucket is the KV bucket holding lock entries.
const natsBucket = "paddock_locks"

// NATSLocker implements Locker on a JetStream key-value bucket with a
// bucket-level TTL. The ttl argument on Acquire and Extend is ignored;
// JetStream applies the TTL per bucket, set once at creation. Extend
// renews by rewriting the entry, which resets its age.
type NATSLocker struct {
	kv jetstream.KeyValue
}

// NewNATSBucket creates or looks up the lock bucket with the given TTL
// and returns its handle.
func NewNATSBucket(ctx context.Context, js jetstream.JetStream, ttl time.Duration) (jetstream.KeyValue, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: natsBucket,
		TTL:    ttl,
	})
}

func NewNATSLocker(kv jetstream.KeyValue) *NATSLocker {
	return &NATSLocker{kv: kv}
}

// kvKey maps a lock key onto the KV key charset, which excludes ':'.
func kvKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}

func (l *NATSLocker) Acquire(ctx context.Context, key, owner string, _ time.Duration) (bool, error) {
	_, err := l.kv.Create(ctx, kvKey(key), []byte(owner))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *NATSLocker) Release(ctx context.Context, key, owner string) (bool, error) {
	entry, err := l.kv.Get(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if string(entry.Value()) != owner {
		return false, nil
	}

	if err := l.kv.Delete(ctx, kvKey(key), jetstream.LastRevision(entry.Revision())); err != nil {
		return false, err
	}
	return true, nil
}

func (l *NATSLocker) Extend(ctx context.Context, key, owner string, _ time.Duration) (bool, error) {
	entry, err := l.kv.Get(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if string(entry.Value()) != owner {
		return false, nil
	}

	if _, err := l.kv.Update(ctx, kvKey(key), []byte(owner), entry.Revision()); err != nil {
		return false, err
	}
	return true, nil
}

func (l *NATSLocker) Check(ctx context.Context, key string) (string, error) {
	entry, err := l.kv.Get(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(entry.Value()), nil
}
