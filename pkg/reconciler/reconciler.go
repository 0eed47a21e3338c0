package reconciler

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/paddockhq/paddock/pkg/log"
	"github.com/paddockhq/paddock/pkg/metrics"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

// DefaultInterval is how often a sweep runs when the config does not
// set one.
const DefaultInterval = 5 * time.Minute

// Reconciler ensures stored counters match actual assignment state
type Reconciler struct {
	store    storage.Store
	interval time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
}

// New creates a new reconciler sweeping at the given interval
func New(store storage.Store, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{
		store:    store,
		interval: interval,
		logger:   log.WithComponent("reconciler"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

// run is the main reconciliation loop
func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Reconcile(); err != nil {
				r.logger.Error().Err(err).Msg("Reconcile cycle failed")
			}
		case <-r.stopCh:
			return
		}
	}
}

// Reconcile performs one sweep: recount live assignments per server and
// per domain, then repair any record whose stored counter or status
// disagrees. Assignments themselves are never created or destroyed here.
func (r *Reconciler) Reconcile() error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconcileDuration)
		metrics.ReconcileCyclesTotal.Inc()
	}()

	serverIDs, domainIDs, err := r.findDrift()
	if err != nil {
		return err
	}

	for _, id := range serverIDs {
		if err := r.repairServer(id); err != nil {
			r.logger.Error().Err(err).Str("server_id", id).Msg("Failed to repair server")
		}
	}
	for _, id := range domainIDs {
		if err := r.repairDomain(id); err != nil {
			r.logger.Error().Err(err).Str("domain_id", id).Msg("Failed to repair domain")
		}
	}

	return nil
}

// findDrift snapshots the store and returns the servers and domains
// whose stored state disagrees with the live assignment set.
func (r *Reconciler) findDrift() ([]string, []string, error) {
	var serverIDs, domainIDs []string

	err := r.store.View(func(tx storage.Tx) error {
		assignments, err := tx.ListAssignments()
		if err != nil {
			return err
		}

		perServer := make(map[string]int)
		assigned := make(map[string]bool)
		for _, a := range assignments {
			perServer[a.ServerID]++
			assigned[a.DomainID] = true
		}

		servers, err := tx.ListServers()
		if err != nil {
			return err
		}
		for _, server := range servers {
			count := perServer[server.ID]
			if server.CurrentDomains != count || server.Status != types.StatusFor(count) {
				serverIDs = append(serverIDs, server.ID)
			}
		}

		domains, err := tx.ListDomains()
		if err != nil {
			return err
		}
		for _, domain := range domains {
			want := types.DomainStatusFree
			if assigned[domain.ID] {
				want = types.DomainStatusAssigned
			}
			if domain.Status != want {
				domainIDs = append(domainIDs, domain.ID)
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return serverIDs, domainIDs, nil
}

// repairServer recounts one server inside a write transaction and fixes
// its counter and status. The recount happens inside the transaction so
// a repair decided on a stale snapshot cannot clobber a newer write.
func (r *Reconciler) repairServer(id string) error {
	return r.store.Update(func(tx storage.Tx) error {
		server, err := tx.GetServer(id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		assignments, err := tx.ListAssignmentsByServer(id)
		if err != nil {
			return err
		}
		count := len(assignments)
		status := types.StatusFor(count)
		if server.CurrentDomains == count && server.Status == status {
			return nil
		}

		r.logger.Warn().
			Str("server_id", server.ID).
			Str("server", server.Name).
			Int("stored", server.CurrentDomains).
			Int("actual", count).
			Msg("Repairing server counter drift")

		server.CurrentDomains = count
		server.Status = status
		server.UpdatedAt = time.Now().UTC()
		if err := tx.PutServer(server); err != nil {
			return err
		}
		metrics.ReconcilerRepairsTotal.Inc()
		return nil
	})
}

// repairDomain re-derives one domain's status from the presence of a
// live assignment and fixes it if it disagrees.
func (r *Reconciler) repairDomain(id string) error {
	return r.store.Update(func(tx storage.Tx) error {
		domain, err := tx.GetDomain(id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		status := types.DomainStatusAssigned
		if _, err := tx.GetAssignmentByDomain(id); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			status = types.DomainStatusFree
		}
		if domain.Status == status {
			return nil
		}

		r.logger.Warn().
			Str("domain_id", domain.ID).
			Str("domain", domain.Name).
			Str("stored", string(domain.Status)).
			Str("actual", string(status)).
			Msg("Repairing domain status drift")

		domain.Status = status
		domain.UpdatedAt = time.Now().UTC()
		if err := tx.PutDomain(domain); err != nil {
			return err
		}
		metrics.ReconcilerRepairsTotal.Inc()
		return nil
	})
}
