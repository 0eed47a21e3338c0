package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paddockhq/paddock/pkg/log"
	"github.com/paddockhq/paddock/pkg/metrics"
	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

// ErrNotFound reports a missing domain or server. It is the storage
// sentinel, so errors.Is matches across both packages.
var ErrNotFound = storage.ErrNotFound

var (
	// ErrDomainAssigned reports an assign attempt on a domain that
	// already has an assignment.
	ErrDomainAssigned = errors.New("domain already assigned")

	// ErrServerFull reports an assign attempt on a server whose
	// domain count has reached its capacity mode's maximum.
	ErrServerFull = errors.New("server at capacity")
)

// Ledger owns every mutation of assignment state: assignment rows,
// Domain.Status, Server.CurrentDomains and Server.Status. All other
// components read those fields but change them only through here.
//
// Each call runs its writes in one store transaction, so concurrent
// assigns against the same server serialize on the store and can never
// push CurrentDomains past MaxDomains.
type Ledger struct {
	store    storage.Store
	notifier notify.Publisher
	logger   zerolog.Logger
}

func New(store storage.Store, notifier notify.Publisher) *Ledger {
	return &Ledger{
		store:    store,
		notifier: notifier,
		logger:   log.WithComponent("ledger"),
	}
}

// Assign binds a free domain to a server with spare capacity. The
// assignment row, the domain status flip, the counter increment and
// the server status recompute commit together or not at all.
func (l *Ledger) Assign(ctx context.Context, domainID, serverID, actor string) (*types.Assignment, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.AssignLatency)

	var (
		assignment types.Assignment
		domain     *types.Domain
		server     *types.Server
	)

	err := l.store.Update(func(tx storage.Tx) error {
		var err error

		domain, err = tx.GetDomain(domainID)
		if err != nil {
			return err
		}
		if domain.Status == types.DomainStatusAssigned {
			return fmt.Errorf("domain %s: %w", domain.Name, ErrDomainAssigned)
		}

		server, err = tx.GetServer(serverID)
		if err != nil {
			return err
		}
		if server.CurrentDomains >= server.MaxDomains {
			return fmt.Errorf("server %s (%d/%d): %w", server.Name, server.CurrentDomains, server.MaxDomains, ErrServerFull)
		}

		now := time.Now().UTC()
		assignment = types.Assignment{
			ID:         uuid.New().String(),
			DomainID:   domain.ID,
			ServerID:   server.ID,
			AssignedAt: now,
			AssignedBy: actor,
		}
		if err := tx.PutAssignment(&assignment); err != nil {
			return err
		}

		domain.Status = types.DomainStatusAssigned
		domain.UpdatedAt = now
		if err := tx.PutDomain(domain); err != nil {
			return err
		}

		server.CurrentDomains++
		server.Status = types.StatusFor(server.CurrentDomains)
		server.UpdatedAt = now
		return tx.PutServer(server)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("domain", domain.Name).
		Str("server", server.Name).
		Int("load", server.CurrentDomains).
		Str("user", actor).
		Msg("Domain assigned")

	l.notifier.Publish(ctx, notify.ChannelAssignments, notify.Event{
		Action:       notify.ActionAssigned,
		ServerID:     server.ID,
		ServerName:   server.Name,
		DomainID:     domain.ID,
		DomainName:   domain.Name,
		AssignmentID: assignment.ID,
		User:         actor,
	})

	return &assignment, nil
}

// Unassign destroys one assignment by its ID. The count is 0 when no
// such assignment exists, without error.
func (l *Ledger) Unassign(ctx context.Context, assignmentID, actor string) (int, error) {
	return l.unassign(ctx, actor, func(tx storage.Tx) ([]*types.Assignment, error) {
		assignment, err := tx.GetAssignment(assignmentID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*types.Assignment{assignment}, nil
	})
}

// UnassignDomain destroys the domain's assignment, if it has one.
func (l *Ledger) UnassignDomain(ctx context.Context, domainID, actor string) (int, error) {
	return l.unassign(ctx, actor, func(tx storage.Tx) ([]*types.Assignment, error) {
		assignment, err := tx.GetAssignmentByDomain(domainID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*types.Assignment{assignment}, nil
	})
}

// UnassignServer destroys every assignment on the server, freeing all
// of its domains in one transaction.
func (l *Ledger) UnassignServer(ctx context.Context, serverID, actor string) (int, error) {
	return l.unassign(ctx, actor, func(tx storage.Tx) ([]*types.Assignment, error) {
		return tx.ListAssignmentsByServer(serverID)
	})
}

// unassign destroys the assignments selected by pick inside one
// transaction, then publishes one event per destroyed assignment.
func (l *Ledger) unassign(ctx context.Context, actor string, pick func(tx storage.Tx) ([]*types.Assignment, error)) (int, error) {
	var events []notify.Event

	err := l.store.Update(func(tx storage.Tx) error {
		events = events[:0]

		assignments, err := pick(tx)
		if err != nil {
			return err
		}

		for _, assignment := range assignments {
			event, err := l.destroy(tx, assignment, actor)
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, event := range events {
		l.notifier.Publish(ctx, notify.ChannelAssignments, event)
	}
	if len(events) > 0 {
		metrics.UnassignmentsTotal.Add(float64(len(events)))
	}
	return len(events), nil
}

// destroy removes one assignment row and reverses its effects on the
// domain and server. Rows already gone are tolerated: the counter
// clamps at zero so drift never underflows it.
func (l *Ledger) destroy(tx storage.Tx, assignment *types.Assignment, actor string) (notify.Event, error) {
	now := time.Now().UTC()

	if err := tx.DeleteAssignment(assignment.ID); err != nil {
		return notify.Event{}, err
	}

	event := notify.Event{
		Action:       notify.ActionUnassigned,
		ServerID:     assignment.ServerID,
		DomainID:     assignment.DomainID,
		AssignmentID: assignment.ID,
		User:         actor,
	}

	domain, err := tx.GetDomain(assignment.DomainID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return notify.Event{}, err
	default:
		domain.Status = types.DomainStatusFree
		domain.UpdatedAt = now
		if err := tx.PutDomain(domain); err != nil {
			return notify.Event{}, err
		}
		event.DomainName = domain.Name
	}

	server, err := tx.GetServer(assignment.ServerID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return notify.Event{}, err
	default:
		if server.CurrentDomains > 0 {
			server.CurrentDomains--
		}
		server.Status = types.StatusFor(server.CurrentDomains)
		server.UpdatedAt = now
		if err := tx.PutServer(server); err != nil {
			return notify.Event{}, err
		}
		event.ServerName = server.Name

		l.logger.Info().
			Str("domain", event.DomainName).
			Str("server", server.Name).
			Int("load", server.CurrentDomains).
			Str("user", actor).
			Msg("Domain unassigned")
	}

	return event, nil
}
