package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/paddockhq/paddock/pkg/ledger"
	"github.com/paddockhq/paddock/pkg/log"
	"github.com/paddockhq/paddock/pkg/metrics"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

// Engine places domains onto servers. Single, bulk and automatic
// placement all create assignments one at a time through the ledger;
// there is no batch transaction, so a bulk call can land its first N
// domains and fail the rest. Callers treat results as best-effort.
type Engine struct {
	store  storage.Store
	ledger *ledger.Ledger
	logger zerolog.Logger
}

func New(store storage.Store, led *ledger.Ledger) *Engine {
	return &Engine{
		store:  store,
		ledger: led,
		logger: log.WithComponent("engine"),
	}
}

// Result reports the outcome of a bulk or auto placement.
type Result struct {
	Assigned    []*types.Assignment
	FailedIDs   []string
	ServersUsed int
}

// AutoOptions tunes automatic placement.
type AutoOptions struct {
	// CapacityMode restricts candidates to one mode when set.
	CapacityMode types.CapacityMode

	// DistributeEvenly orders candidates by load and rotates between
	// them. When false, placement packs the first candidate until it
	// fills.
	DistributeEvenly bool
}

func DefaultAutoOptions() AutoOptions {
	return AutoOptions{DistributeEvenly: true}
}

// CreateAssignment places one domain on one chosen server.
func (e *Engine) CreateAssignment(ctx context.Context, domainID, serverID, actor string) (*types.Assignment, error) {
	assignment, err := e.ledger.Assign(ctx, domainID, serverID, actor)
	if err != nil {
		metrics.AssignAttemptsTotal.WithLabelValues("single", "failure").Inc()
		return nil, err
	}
	metrics.AssignAttemptsTotal.WithLabelValues("single", "success").Inc()
	return assignment, nil
}

// BulkAssign places the domains on one server in input order. Once the
// server fills, the remaining domains go straight to FailedIDs without
// being attempted. A domain that fails for its own reasons is recorded
// and the loop moves on.
func (e *Engine) BulkAssign(ctx context.Context, domainIDs []string, serverID, actor string) (*Result, error) {
	result := &Result{}

	for i, domainID := range domainIDs {
		assignment, err := e.ledger.Assign(ctx, domainID, serverID, actor)
		if err != nil {
			metrics.AssignAttemptsTotal.WithLabelValues("bulk", "failure").Inc()

			if errors.Is(err, ledger.ErrServerFull) {
				// Short-circuit: the rest cannot fit either
				result.FailedIDs = append(result.FailedIDs, domainIDs[i:]...)
				break
			}

			e.logger.Warn().Err(err).Str("domain", domainID).Msg("Bulk assignment skipped domain")
			result.FailedIDs = append(result.FailedIDs, domainID)
			continue
		}

		metrics.AssignAttemptsTotal.WithLabelValues("bulk", "success").Inc()
		result.Assigned = append(result.Assigned, assignment)
	}

	result.ServersUsed = distinctServers(result.Assigned)

	e.logger.Info().
		Str("server", serverID).
		Int("assigned", len(result.Assigned)).
		Int("failed", len(result.FailedIDs)).
		Str("user", actor).
		Msg("Bulk assignment finished")

	return result, nil
}

// AutoAssign spreads the domains over whatever capacity exists. It is
// round-robin with a liveness fallback: a rotating cursor picks the
// next server, and when that server is full the scan walks the rest of
// the candidate list before giving up on the domain. With even
// distribution the cursor advances one position per placed domain; in
// packing mode it stays put until the current server fills.
func (e *Engine) AutoAssign(ctx context.Context, domainIDs []string, actor string, opts AutoOptions) (*Result, error) {
	result := &Result{}

	candidates, err := e.candidates(opts)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		result.FailedIDs = append(result.FailedIDs, domainIDs...)
		metrics.AssignAttemptsTotal.WithLabelValues("auto", "failure").Add(float64(len(domainIDs)))
		e.logger.Warn().Int("domains", len(domainIDs)).Msg("Auto assignment found no server with free capacity")
		return result, nil
	}

	cursor := 0
	for _, domainID := range domainIDs {
		placed := false

		for i := 0; i < len(candidates); i++ {
			candidate := candidates[(cursor+i)%len(candidates)]
			if candidate.CurrentDomains >= candidate.MaxDomains {
				continue
			}

			assignment, err := e.ledger.Assign(ctx, domainID, candidate.ID, actor)
			if errors.Is(err, ledger.ErrServerFull) {
				// Raced with another writer; the snapshot lied
				candidate.CurrentDomains = candidate.MaxDomains
				continue
			}
			if err != nil {
				// The domain itself cannot be placed anywhere
				e.logger.Warn().Err(err).Str("domain", domainID).Msg("Auto assignment skipped domain")
				break
			}

			result.Assigned = append(result.Assigned, assignment)
			candidate.CurrentDomains++
			if opts.DistributeEvenly {
				cursor = (cursor + 1) % len(candidates)
			}
			placed = true
			break
		}

		if placed {
			metrics.AssignAttemptsTotal.WithLabelValues("auto", "success").Inc()
		} else {
			metrics.AssignAttemptsTotal.WithLabelValues("auto", "failure").Inc()
			result.FailedIDs = append(result.FailedIDs, domainID)
		}
	}

	result.ServersUsed = distinctServers(result.Assigned)

	e.logger.Info().
		Int("assigned", len(result.Assigned)).
		Int("failed", len(result.FailedIDs)).
		Int("servers_used", result.ServersUsed).
		Str("user", actor).
		Msg("Auto assignment finished")

	return result, nil
}

// DeleteAssignment destroys one assignment. False means it did not
// exist.
func (e *Engine) DeleteAssignment(ctx context.Context, assignmentID, actor string) (bool, error) {
	count, err := e.ledger.Unassign(ctx, assignmentID, actor)
	return count > 0, err
}

// DeleteAssignmentsByDomain frees the domain. The count is 0 or 1.
func (e *Engine) DeleteAssignmentsByDomain(ctx context.Context, domainID, actor string) (int, error) {
	return e.ledger.UnassignDomain(ctx, domainID, actor)
}

// DeleteAssignmentsByServer frees every domain on the server.
func (e *Engine) DeleteAssignmentsByServer(ctx context.Context, serverID, actor string) (int, error) {
	return e.ledger.UnassignServer(ctx, serverID, actor)
}

// AssignmentForDomain looks up the live assignment holding the domain.
func (e *Engine) AssignmentForDomain(domainID string) (*types.Assignment, error) {
	return e.store.GetAssignmentByDomain(domainID)
}

// AvailableServers lists servers with spare capacity, least loaded
// first. A zero mode means all modes.
func (e *Engine) AvailableServers(mode types.CapacityMode) ([]*types.Server, error) {
	return e.candidates(AutoOptions{CapacityMode: mode, DistributeEvenly: true})
}

// candidates snapshots the servers auto placement may use. The
// snapshot guides the scan; the ledger re-checks capacity inside its
// transaction, so a stale snapshot costs a retry, not an overshoot.
func (e *Engine) candidates(opts AutoOptions) ([]*types.Server, error) {
	servers, err := e.store.ListServers()
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	candidates := lo.Filter(servers, func(server *types.Server, _ int) bool {
		if server.CurrentDomains >= server.MaxDomains {
			return false
		}
		if opts.CapacityMode != "" && server.CapacityMode != opts.CapacityMode {
			return false
		}
		return true
	})

	if opts.DistributeEvenly {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].CurrentDomains < candidates[j].CurrentDomains
		})
	}
	return candidates, nil
}

// distinctServers counts how many different servers the assignments
// landed on.
func distinctServers(assignments []*types.Assignment) int {
	ids := lo.Map(assignments, func(a *types.Assignment, _ int) string {
		return a.ServerID
	})
	return len(lo.Uniq(ids))
}
