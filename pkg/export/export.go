package export

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

// Exporter builds read-only projections of assignment state for
// reporting. Each projection reads everything it needs inside one
// snapshot, so a concurrent assign can never produce a report that
// contradicts itself.
type Exporter struct {
	store storage.Store
}

func New(store storage.Store) *Exporter {
	return &Exporter{store: store}
}

// ServerBlock groups one server's assigned domains.
type ServerBlock struct {
	ServerName string   `json:"server_name"`
	ServerIP   string   `json:"server_ip"`
	Domains    []string `json:"domains"`
}

// Row is one assignment flattened for tabular output.
type Row struct {
	Domain     string    `json:"domain"`
	Server     string    `json:"server"`
	IP         string    `json:"ip"`
	AssignedAt time.Time `json:"assigned_at"`
	AssignedBy string    `json:"assigned_by"`
}

// ModeReport sums capacity for the servers of one mode.
type ModeReport struct {
	Mode     types.CapacityMode `json:"mode"`
	Servers  int                `json:"servers"`
	Used     int                `json:"used"`
	Capacity int                `json:"capacity"`
}

// ServerConfig carries one server's config text.
type ServerConfig struct {
	ServerName string `json:"server_name"`
	IP         string `json:"ip"`
	Config     string `json:"config,omitempty"`
}

// ByServer groups assignments under their servers. Servers without any
// assignment are omitted; servers sort by name and so do the domains
// within each.
func (e *Exporter) ByServer() ([]*ServerBlock, error) {
	var blocks []*ServerBlock

	err := e.store.View(func(tx storage.Tx) error {
		assignments, err := tx.ListAssignments()
		if err != nil {
			return err
		}
		servers, err := tx.ListServers()
		if err != nil {
			return err
		}
		domains, err := tx.ListDomains()
		if err != nil {
			return err
		}

		domainName := lo.Associate(domains, func(d *types.Domain) (string, string) { return d.ID, d.Name })
		byServer := lo.GroupBy(assignments, func(a *types.Assignment) string { return a.ServerID })

		blocks = blocks[:0]
		for _, server := range servers {
			rows := byServer[server.ID]
			if len(rows) == 0 {
				continue
			}

			block := &ServerBlock{
				ServerName: server.Name,
				ServerIP:   server.IP,
				Domains:    make([]string, 0, len(rows)),
			}
			for _, assignment := range rows {
				block.Domains = append(block.Domains, domainName[assignment.DomainID])
			}
			sort.Strings(block.Domains)
			blocks = append(blocks, block)
		}

		sort.Slice(blocks, func(i, j int) bool {
			return blocks[i].ServerName < blocks[j].ServerName
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// Rows flattens every assignment, newest first.
func (e *Exporter) Rows() ([]Row, error) {
	var rows []Row

	err := e.store.View(func(tx storage.Tx) error {
		assignments, err := tx.ListAssignments()
		if err != nil {
			return err
		}
		servers, err := tx.ListServers()
		if err != nil {
			return err
		}
		domains, err := tx.ListDomains()
		if err != nil {
			return err
		}

		domainName := lo.Associate(domains, func(d *types.Domain) (string, string) { return d.ID, d.Name })
		serverByID := lo.KeyBy(servers, func(s *types.Server) string { return s.ID })

		rows = make([]Row, 0, len(assignments))
		for _, assignment := range assignments {
			row := Row{
				Domain:     domainName[assignment.DomainID],
				AssignedAt: assignment.AssignedAt,
				AssignedBy: assignment.AssignedBy,
			}
			if server, ok := serverByID[assignment.ServerID]; ok {
				row.Server = server.Name
				row.IP = server.IP
			}
			rows = append(rows, row)
		}

		sort.Slice(rows, func(i, j int) bool {
			return rows[i].AssignedAt.After(rows[j].AssignedAt)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CapacityReport aggregates servers by capacity mode, sorted by mode
// name.
func (e *Exporter) CapacityReport() ([]ModeReport, error) {
	var reports []ModeReport

	err := e.store.View(func(tx storage.Tx) error {
		servers, err := tx.ListServers()
		if err != nil {
			return err
		}

		byMode := make(map[types.CapacityMode]ModeReport)
		for _, server := range servers {
			report := byMode[server.CapacityMode]
			report.Mode = server.CapacityMode
			report.Servers++
			report.Used += server.CurrentDomains
			report.Capacity += server.MaxDomains
			byMode[server.CapacityMode] = report
		}

		reports = lo.Values(byMode)
		sort.Slice(reports, func(i, j int) bool {
			return reports[i].Mode < reports[j].Mode
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Config returns one server's config text.
func (e *Exporter) Config(serverID string) (*ServerConfig, error) {
	var cfg *ServerConfig

	err := e.store.View(func(tx storage.Tx) error {
		server, err := tx.GetServer(serverID)
		if err != nil {
			return err
		}
		cfg = &ServerConfig{
			ServerName: server.Name,
			IP:         server.IP,
			Config:     server.Config,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Configs lists every server's config text, sorted by server name.
func (e *Exporter) Configs() ([]ServerConfig, error) {
	var configs []ServerConfig

	err := e.store.View(func(tx storage.Tx) error {
		servers, err := tx.ListServers()
		if err != nil {
			return err
		}

		configs = make([]ServerConfig, 0, len(servers))
		for _, server := range servers {
			configs = append(configs, ServerConfig{
				ServerName: server.Name,
				IP:         server.IP,
				Config:     server.Config,
			})
		}
		sort.Slice(configs, func(i, j int) bool {
			return configs[i].ServerName < configs[j].ServerName
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return configs, nil
}
