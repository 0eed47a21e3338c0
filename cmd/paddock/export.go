package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paddockhq/paddock/pkg/engine"
	"github.com/paddockhq/paddock/pkg/export"
	"github.com/paddockhq/paddock/pkg/ledger"
	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Emit assignment and capacity views",
	Long: `Export read-only views of the current state as JSON.

Examples:
  # Assignments grouped by server
  paddock export by-server

  # Flat assignment rows, newest first
  paddock export rows

  # Capacity totals per mode
  paddock export capacity

  # Servers that can still take domains
  paddock export available --mode 1:10

  # One server's config text
  paddock export config web-01 > web-01.conf`,
}

var exportByServerCmd = &cobra.Command{
	Use:   "by-server",
	Short: "Assignments grouped by server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExporter(cmd, func(exp *export.Exporter, _ storage.Store) error {
			blocks, err := exp.ByServer()
			if err != nil {
				return err
			}
			return writeJSON(blocks)
		})
	},
}

var exportRowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Flat assignment rows, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExporter(cmd, func(exp *export.Exporter, _ storage.Store) error {
			rows, err := exp.Rows()
			if err != nil {
				return err
			}
			return writeJSON(rows)
		})
	},
}

var exportCapacityCmd = &cobra.Command{
	Use:   "capacity",
	Short: "Capacity totals per mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExporter(cmd, func(exp *export.Exporter, _ storage.Store) error {
			report, err := exp.CapacityReport()
			if err != nil {
				return err
			}
			return writeJSON(report)
		})
	},
}

// availableRow is the trimmed view of a server with spare capacity.
type availableRow struct {
	Name     string             `json:"name"`
	IP       string             `json:"ip"`
	Mode     types.CapacityMode `json:"mode"`
	Used     int                `json:"used"`
	Capacity int                `json:"capacity"`
	Free     int                `json:"free"`
}

var exportAvailableCmd = &cobra.Command{
	Use:   "available",
	Short: "Servers with spare capacity, least loaded first",
	RunE: func(cmd *cobra.Command, args []string) error {
		modeFlag, _ := cmd.Flags().GetString("mode")
		var mode types.CapacityMode
		if modeFlag != "" {
			var err error
			mode, err = types.ParseCapacityMode(modeFlag)
			if err != nil {
				return err
			}
		}

		return withExporter(cmd, func(_ *export.Exporter, store storage.Store) error {
			// Read-only query, so the notifier wired here is inert.
			eng := engine.New(store, ledger.New(store, notify.NewBroker()))
			servers, err := eng.AvailableServers(mode)
			if err != nil {
				return err
			}

			rows := make([]availableRow, 0, len(servers))
			for _, server := range servers {
				rows = append(rows, availableRow{
					Name:     server.Name,
					IP:       server.IP,
					Mode:     server.CapacityMode,
					Used:     server.CurrentDomains,
					Capacity: server.MaxDomains,
					Free:     server.MaxDomains - server.CurrentDomains,
				})
			}
			return writeJSON(rows)
		})
	},
}

var exportConfigCmd = &cobra.Command{
	Use:   "config SERVER",
	Short: "Print one server's config text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExporter(cmd, func(exp *export.Exporter, store storage.Store) error {
			server, err := resolveServer(store, args[0])
			if err != nil {
				return err
			}
			cfg, err := exp.Config(server.ID)
			if err != nil {
				return err
			}
			if cfg.Config == "" {
				fmt.Fprintf(os.Stderr, "Server %s has no config\n", cfg.ServerName)
				return nil
			}
			fmt.Print(cfg.Config)
			return nil
		})
	},
}

func init() {
	exportAvailableCmd.Flags().String("mode", "", "Limit to one capacity mode")

	exportCmd.AddCommand(exportByServerCmd)
	exportCmd.AddCommand(exportRowsCmd)
	exportCmd.AddCommand(exportCapacityCmd)
	exportCmd.AddCommand(exportAvailableCmd)
	exportCmd.AddCommand(exportConfigCmd)

	rootCmd.AddCommand(exportCmd)
}

// withExporter opens the store for one export run and closes it after.
func withExporter(cmd *cobra.Command, fn func(*export.Exporter, storage.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	return fn(export.New(store), store)
}

// resolveServer accepts a server name or ID.
func resolveServer(store storage.Store, ref string) (*types.Server, error) {
	server, err := store.GetServerByName(ref)
	if err == nil {
		return server, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	server, err = store.GetServer(ref)
	if err != nil {
		return nil, fmt.Errorf("server %q not found", ref)
	}
	return server, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
