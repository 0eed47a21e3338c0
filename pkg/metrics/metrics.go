package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Inventory metrics
	ServersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paddock_servers_total",
			Help: "Total number of servers by status",
		},
		[]string{"status"},
	)

	DomainsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paddock_domains_total",
			Help: "Total number of domains by status",
		},
		[]string{"status"},
	)

	AssignmentsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "paddock_assignments_total",
			Help: "Total number of live domain assignments",
		},
	)

	GroupsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "paddock_server_groups_total",
			Help: "Total number of server groups",
		},
	)

	// Capacity metrics
	CapacitySlots = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paddock_capacity_slots",
			Help: "Total domain slots by capacity mode",
		},
		[]string{"mode"},
	)

	CapacityUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paddock_capacity_used",
			Help: "Occupied domain slots by capacity mode",
		},
		[]string{"mode"},
	)

	// Assignment engine metrics
	AssignAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paddock_assign_attempts_total",
			Help: "Total assignment attempts by operation and result",
		},
		[]string{"op", "result"},
	)

	UnassignmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paddock_unassignments_total",
			Help: "Total assignments destroyed",
		},
	)

	AssignLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paddock_assign_latency_seconds",
			Help:    "Time taken by a single assign transaction in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Lock coordinator metrics
	LockRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paddock_lock_requests_total",
			Help: "Total lock operations by op and result",
		},
		[]string{"op", "result"},
	)

	// Notifier metrics
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paddock_events_published_total",
			Help: "Total change events published by channel",
		},
		[]string{"channel"},
	)

	EventPublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paddock_event_publish_failures_total",
			Help: "Total change event publish failures by channel",
		},
		[]string{"channel"},
	)

	// Relay metrics
	RelayClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "paddock_relay_clients",
			Help: "Currently connected relay clients",
		},
	)

	RelayMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paddock_relay_messages_total",
			Help: "Relay messages by direction (inbound, outbound)",
		},
		[]string{"direction"},
	)

	// Reconciler metrics
	ReconcilerRepairsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paddock_reconciler_repairs_total",
			Help: "Server counter/status repairs applied by the reconciler",
		},
	)

	ReconcileCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paddock_reconcile_cycles_total",
			Help: "Total reconciliation cycles completed",
		},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paddock_reconcile_duration_seconds",
			Help:    "Time taken by a reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ServersTotal)
	prometheus.MustRegister(DomainsTotal)
	prometheus.MustRegister(AssignmentsTotal)
	prometheus.MustRegister(GroupsTotal)
	prometheus.MustRegister(CapacitySlots)
	prometheus.MustRegister(CapacityUsed)
	prometheus.MustRegister(AssignAttemptsTotal)
	prometheus.MustRegister(UnassignmentsTotal)
	prometheus.MustRegister(AssignLatency)
	prometheus.MustRegister(LockRequestsTotal)
	prometheus.MustRegister(EventsPublishedTotal)
	prometheus.MustRegister(EventPublishFailures)
	prometheus.MustRegister(RelayClients)
	prometheus.MustRegister(RelayMessagesTotal)
	prometheus.MustRegister(ReconcilerRepairsTotal)
	prometheus.MustRegister(ReconcileCyclesTotal)
	prometheus.MustRegister(ReconcileDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for histogram observations
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in the given histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time in the given histogram vec
func (t *Timer) ObserveDurationVec(vec *prometheus.HistogramVec, labels ...string) {
	vec.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
