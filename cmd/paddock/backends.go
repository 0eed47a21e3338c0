package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/paddockhq/paddock/pkg/config"
	"github.com/paddockhq/paddock/pkg/lock"
	"github.com/paddockhq/paddock/pkg/notify"
)

func redisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// buildLocker constructs the lock backend the config names. The
// returned cleanup closes whatever connection the backend opened.
func buildLocker(ctx context.Context, cfg config.Config) (lock.Locker, func(), error) {
	switch cfg.Lock.Backend {
	case config.BackendRedis:
		rdb := redisClient(cfg)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		return lock.NewRedisLocker(rdb), func() { _ = rdb.Close() }, nil

	case config.BackendNATS:
		nc, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("failed to open JetStream: %w", err)
		}
		kv, err := lock.NewNATSBucket(ctx, js, cfg.Lock.TTL)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return lock.NewNATSLocker(kv), func() { nc.Close() }, nil

	default:
		return lock.NewMemoryLocker(), func() {}, nil
	}
}

// buildNotifier constructs the event backend the config names. With the
// memory backend events stay inside this process; redis and nats carry
// them to every process sharing the store.
func buildNotifier(ctx context.Context, cfg config.Config) (notify.Notifier, func(), error) {
	switch cfg.Notify.Backend {
	case config.BackendRedis:
		rdb := redisClient(cfg)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		return notify.NewRedisNotifier(rdb), func() { _ = rdb.Close() }, nil

	case config.BackendNATS:
		nc, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		return notify.NewNATSNotifier(nc), func() { nc.Close() }, nil

	default:
		broker := notify.NewBroker()
		broker.Start()
		return broker, broker.Stop, nil
	}
}
