/*
Package reconciler provides drift detection and repair for stored counters.

Every assignment is written through a single transaction that also bumps
the owning server's counter and the domain's status, so under normal
operation nothing here ever fires. The reconciler exists for the other
cases: a crash between process restarts, a record edited by hand, or a
bug elsewhere. It re-derives what the counters should say from the
assignment set itself and repairs any record that disagrees.

# Reconciliation Loop

The sweep runs on a fixed interval (default 5 minutes):

	┌─────────────────────────────────────────────┐
	│              Reconcile cycle                │
	└──────────────────┬──────────────────────────┘
	                   │  read-only snapshot
	                   ▼
	     count assignments per server,
	     note which domains are assigned
	                   │
	        ┌──────────┴──────────┐
	        ▼                     ▼
	  servers whose          domains whose
	  CurrentDomains or      Status disagrees
	  Status disagree        with the live set
	        │                     │
	        ▼                     ▼
	  one write tx per      one write tx per
	  server: recount       domain: recheck
	  and repair            and repair

Drift candidates are found on a read-only snapshot, but every repair
re-derives the truth inside its own write transaction before touching
the record. A repair decided on a stale snapshot therefore cannot
clobber a write that landed in between; it simply becomes a no-op.

The reconciler never creates or destroys assignments. It only corrects
the derived fields (server.CurrentDomains, server.Status, domain.Status)
to match the assignment set.

# Usage

	rec := reconciler.New(store, 5*time.Minute)
	rec.Start()
	defer rec.Stop()

Reconcile can also be called directly for a one-shot sweep, which is
how the tests drive it.

Repairs are logged at warn level with the stored and actual values and
counted in paddock_reconciler_repairs_total.
*/
package reconciler
