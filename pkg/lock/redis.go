package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/paddockhq/paddock/pkg/log"
)

// RedisLocker implements Locker on a shared Redis instance, the backend
// to use when more than one paddock process coordinates on the same
// data. Acquisition is a single SET NX EX; release and extend read the
// owner first and act only on a match.
type RedisLocker struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewRedisLocker wraps an already connected client. The caller owns the
// client lifecycle.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{
		rdb:    rdb,
		logger: log.WithComponent("lock"),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	ok, err := l.rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		holder, herr := l.Check(ctx, key)
		if herr == nil && holder != "" {
			l.logger.Debug().
				Str("key", key).
				Str("owner", owner).
				Str("held_by", holder).
				Msg("Lock acquisition denied")
		}
	}
	return ok, nil
}

// Release is check-then-delete in two round trips; the window between
// them is accepted for advisory locks.
func (l *RedisLocker) Release(ctx context.Context, key, owner string) (bool, error) {
	holder, err := l.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if holder != owner {
		l.logger.Debug().
			Str("key", key).
			Str("owner", owner).
			Str("held_by", holder).
			Msg("Lock release denied")
		return false, nil
	}

	if err := l.rdb.Del(ctx, key).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (l *RedisLocker) Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	holder, err := l.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if holder != owner {
		return false, nil
	}

	if err := l.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (l *RedisLocker) Check(ctx context.Context, key string) (string, error) {
	holder, err := l.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return holder, nil
}
