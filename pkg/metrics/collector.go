package metrics

import (
	"time"

	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

// Collector periodically samples entity and capacity gauges from the store
type Collector struct {
	store    storage.Store
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store) *Collector {
	return &Collector{
		store:    store,
		interval: 15 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectServerMetrics()
	c.collectDomainMetrics()
	c.collectAssignmentMetrics()
	c.collectGroupMetrics()
}

func (c *Collector) collectServerMetrics() {
	servers, err := c.store.ListServers()
	if err != nil {
		return
	}

	statusCounts := make(map[types.ServerStatus]int)
	slots := make(map[types.CapacityMode]int)
	used := make(map[types.CapacityMode]int)

	for _, server := range servers {
		statusCounts[server.Status]++
		slots[server.CapacityMode] += server.MaxDomains
		used[server.CapacityMode] += server.CurrentDomains
	}

	for _, status := range []types.ServerStatus{types.ServerStatusFree, types.ServerStatusInUse} {
		ServersTotal.WithLabelValues(string(status)).Set(float64(statusCounts[status]))
	}
	for _, mode := range []types.CapacityMode{types.CapacityMode1x5, types.CapacityMode1x7, types.CapacityMode1x10} {
		CapacitySlots.WithLabelValues(string(mode)).Set(float64(slots[mode]))
		CapacityUsed.WithLabelValues(string(mode)).Set(float64(used[mode]))
	}
}

func (c *Collector) collectDomainMetrics() {
	domains, err := c.store.ListDomains()
	if err != nil {
		return
	}

	statusCounts := make(map[types.DomainStatus]int)
	for _, domain := range domains {
		statusCounts[domain.Status]++
	}

	for _, status := range []types.DomainStatus{types.DomainStatusFree, types.DomainStatusAssigned} {
		DomainsTotal.WithLabelValues(string(status)).Set(float64(statusCounts[status]))
	}
}

func (c *Collector) collectAssignmentMetrics() {
	assignments, err := c.store.ListAssignments()
	if err != nil {
		return
	}

	AssignmentsTotal.Set(float64(len(assignments)))
}

func (c *Collector) collectGroupMetrics() {
	groups, err := c.store.ListGroups()
	if err != nil {
		return
	}

	GroupsTotal.Set(float64(len(groups)))
}
