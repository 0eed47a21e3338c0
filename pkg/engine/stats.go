package engine

import (
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

// ModeUtilization sums capacity for the servers of one mode.
type ModeUtilization struct {
	Servers  int `json:"servers"`
	Used     int `json:"used"`
	Capacity int `json:"capacity"`
}

// Stats is a point-in-time picture of fleet capacity.
type Stats struct {
	TotalServers      int                                    `json:"total_servers"`
	TotalDomains      int                                    `json:"total_domains"`
	AssignedDomains   int                                    `json:"assigned_domains"`
	FreeDomains       int                                    `json:"free_domains"`
	ServersInUse      int                                    `json:"servers_in_use"`
	ServersFree       int                                    `json:"servers_free"`
	AverageLoad       float64                                `json:"average_load"`
	UtilizationByMode map[types.CapacityMode]ModeUtilization `json:"capacity_utilization_by_mode"`
}

// Statistics reads servers and domains in one snapshot and aggregates
// them. AverageLoad is the mean percentage load over servers with a
// nonzero maximum.
func (e *Engine) Statistics() (*Stats, error) {
	stats := &Stats{
		UtilizationByMode: make(map[types.CapacityMode]ModeUtilization),
	}

	err := e.store.View(func(tx storage.Tx) error {
		servers, err := tx.ListServers()
		if err != nil {
			return err
		}
		domains, err := tx.ListDomains()
		if err != nil {
			return err
		}

		stats.TotalServers = len(servers)
		stats.TotalDomains = len(domains)

		for _, domain := range domains {
			if domain.Status == types.DomainStatusAssigned {
				stats.AssignedDomains++
			} else {
				stats.FreeDomains++
			}
		}

		var loadSum float64
		var loadSamples int
		for _, server := range servers {
			if server.Status == types.ServerStatusInUse {
				stats.ServersInUse++
			} else {
				stats.ServersFree++
			}

			if server.MaxDomains > 0 {
				loadSum += float64(server.CurrentDomains) / float64(server.MaxDomains) * 100
				loadSamples++
			}

			util := stats.UtilizationByMode[server.CapacityMode]
			util.Servers++
			util.Used += server.CurrentDomains
			util.Capacity += server.MaxDomains
			stats.UtilizationByMode[server.CapacityMode] = util
		}
		if loadSamples > 0 {
			stats.AverageLoad = loadSum / float64(loadSamples)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
