package inventory

import (
	"context"
	"time"

	"github.com/paddockhq/paddock/pkg/lock"
	"github.com/paddockhq/paddock/pkg/metrics"
	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

// Lock operations talk to the key store first and stamp the record
// after, as two separate steps. The key store is authoritative; the
// locked_by/locked_at stamps are a convenience mirror that can lag
// after a TTL expiry until the next lock or unlock rewrites them.

// LockServer takes the advisory lock on a server for owner. False
// means someone holds it already.
func (inv *Inventory) LockServer(ctx context.Context, id, owner string) (bool, error) {
	server, err := inv.store.GetServer(id)
	if err != nil {
		return false, err
	}

	ok, err := inv.locker.Acquire(ctx, lock.Key(lock.KindServer, id), owner, lock.DefaultTTL)
	if err != nil {
		metrics.LockRequestsTotal.WithLabelValues("acquire", "error").Inc()
		return false, err
	}
	if !ok {
		metrics.LockRequestsTotal.WithLabelValues("acquire", "conflict").Inc()
		return false, nil
	}
	metrics.LockRequestsTotal.WithLabelValues("acquire", "success").Inc()

	now := time.Now().UTC()
	err = inv.store.Update(func(tx storage.Tx) error {
		server, err = tx.GetServer(id)
		if err != nil {
			return err
		}
		server.LockedBy = owner
		server.LockedAt = now
		return tx.PutServer(server)
	})
	if err != nil {
		// Leave no orphan lock behind the failed stamp
		_, _ = inv.locker.Release(ctx, lock.Key(lock.KindServer, id), owner)
		return false, err
	}

	inv.logger.Info().Str("server", server.Name).Str("owner", owner).Msg("Server locked")

	inv.notifier.Publish(ctx, notify.ChannelLocks, notify.Event{
		Action:     notify.ActionLocked,
		ServerID:   server.ID,
		ServerName: server.Name,
		User:       owner,
	})
	return true, nil
}

// UnlockServer releases the advisory lock if owner holds it.
func (inv *Inventory) UnlockServer(ctx context.Context, id, owner string) (bool, error) {
	ok, err := inv.locker.Release(ctx, lock.Key(lock.KindServer, id), owner)
	if err != nil {
		metrics.LockRequestsTotal.WithLabelValues("release", "error").Inc()
		return false, err
	}
	if !ok {
		metrics.LockRequestsTotal.WithLabelValues("release", "conflict").Inc()
		return false, nil
	}
	metrics.LockRequestsTotal.WithLabelValues("release", "success").Inc()

	var server *types.Server
	err = inv.store.Update(func(tx storage.Tx) error {
		var err error
		server, err = tx.GetServer(id)
		if err != nil {
			return err
		}
		server.LockedBy = ""
		server.LockedAt = time.Time{}
		return tx.PutServer(server)
	})
	if err != nil {
		return false, err
	}

	inv.logger.Info().Str("server", server.Name).Str("owner", owner).Msg("Server unlocked")

	inv.notifier.Publish(ctx, notify.ChannelLocks, notify.Event{
		Action:     notify.ActionUnlocked,
		ServerID:   server.ID,
		ServerName: server.Name,
		User:       owner,
	})
	return true, nil
}

// LockDomain takes the advisory lock on a domain for owner.
func (inv *Inventory) LockDomain(ctx context.Context, id, owner string) (bool, error) {
	domain, err := inv.store.GetDomain(id)
	if err != nil {
		return false, err
	}

	ok, err := inv.locker.Acquire(ctx, lock.Key(lock.KindDomain, id), owner, lock.DefaultTTL)
	if err != nil {
		metrics.LockRequestsTotal.WithLabelValues("acquire", "error").Inc()
		return false, err
	}
	if !ok {
		metrics.LockRequestsTotal.WithLabelValues("acquire", "conflict").Inc()
		return false, nil
	}
	metrics.LockRequestsTotal.WithLabelValues("acquire", "success").Inc()

	now := time.Now().UTC()
	err = inv.store.Update(func(tx storage.Tx) error {
		domain, err = tx.GetDomain(id)
		if err != nil {
			return err
		}
		domain.LockedBy = owner
		domain.LockedAt = now
		return tx.PutDomain(domain)
	})
	if err != nil {
		_, _ = inv.locker.Release(ctx, lock.Key(lock.KindDomain, id), owner)
		return false, err
	}

	inv.logger.Info().Str("domain", domain.Name).Str("owner", owner).Msg("Domain locked")

	inv.notifier.Publish(ctx, notify.ChannelLocks, notify.Event{
		Action:     notify.ActionLocked,
		DomainID:   domain.ID,
		DomainName: domain.Name,
		User:       owner,
	})
	return true, nil
}

// UnlockDomain releases the advisory lock if owner holds it.
func (inv *Inventory) UnlockDomain(ctx context.Context, id, owner string) (bool, error) {
	ok, err := inv.locker.Release(ctx, lock.Key(lock.KindDomain, id), owner)
	if err != nil {
		metrics.LockRequestsTotal.WithLabelValues("release", "error").Inc()
		return false, err
	}
	if !ok {
		metrics.LockRequestsTotal.WithLabelValues("release", "conflict").Inc()
		return false, nil
	}
	metrics.LockRequestsTotal.WithLabelValues("release", "success").Inc()

	var domain *types.Domain
	err = inv.store.Update(func(tx storage.Tx) error {
		var err error
		domain, err = tx.GetDomain(id)
		if err != nil {
			return err
		}
		domain.LockedBy = ""
		domain.LockedAt = time.Time{}
		return tx.PutDomain(domain)
	})
	if err != nil {
		return false, err
	}

	inv.logger.Info().Str("domain", domain.Name).Str("owner", owner).Msg("Domain unlocked")

	inv.notifier.Publish(ctx, notify.ChannelLocks, notify.Event{
		Action:     notify.ActionUnlocked,
		DomainID:   domain.ID,
		DomainName: domain.Name,
		User:       owner,
	})
	return true, nil
}
