/*
Package metrics provides Prometheus instrumentation for Paddock.

All collectors are package-level, named with the paddock_ prefix, and
registered in init(). Handler() exposes the standard promhttp endpoint,
mounted at /metrics by the serve command.

# Metric Groups

Inventory gauges (sampled by Collector every 15s from the store):

	paddock_servers_total{status}        servers by free/in_use
	paddock_domains_total{status}        domains by free/assigned
	paddock_assignments_total            live assignments
	paddock_server_groups_total          server groups
	paddock_capacity_slots{mode}         total slots per capacity mode
	paddock_capacity_used{mode}          occupied slots per capacity mode

Operation counters (incremented at call sites):

	paddock_assign_attempts_total{op,result}   single/bulk/auto outcomes
	paddock_unassignments_total                assignments destroyed
	paddock_lock_requests_total{op,result}     acquire/release outcomes
	paddock_events_published_total{channel}    notifier publishes
	paddock_event_publish_failures_total{channel}
	paddock_relay_messages_total{direction}    relay in/out traffic
	paddock_reconciler_repairs_total           counter drift repairs
	paddock_reconcile_cycles_total             reconcile cycles completed

Latency:

	paddock_assign_latency_seconds       one assign transaction
	paddock_reconcile_duration_seconds   one reconcile cycle

# Health Endpoints

The package also carries the component health registry backing
/healthz, /readyz, and /livez. Long-lived components register
themselves and update their state as it changes:

	metrics.RegisterComponent("store", true, "")
	metrics.UpdateComponent("notifier", false, "connection lost")

Readiness requires the critical components (store, notifier) to be
registered and healthy; liveness only proves the process is running.

# Usage

	timer := metrics.NewTimer()
	// ... do the work ...
	timer.ObserveDuration(metrics.AssignLatency)

	collector := metrics.NewCollector(store)
	collector.Start()
	defer collector.Stop()
*/
package metrics
