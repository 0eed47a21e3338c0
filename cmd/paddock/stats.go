package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/paddockhq/paddock/pkg/engine"
	"github.com/paddockhq/paddock/pkg/ledger"
	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show fleet capacity statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "Print statistics as JSON")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	// Statistics never mutate, so the notifier wired here is inert.
	eng := engine.New(store, ledger.New(store, notify.NewBroker()))
	stats, err := eng.Statistics()
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}

	if asJSON {
		return writeJSON(stats)
	}

	fmt.Printf("Servers: %d total (%d in use, %d free)\n",
		stats.TotalServers, stats.ServersInUse, stats.ServersFree)
	fmt.Printf("Domains: %d total (%d assigned, %d free)\n",
		stats.TotalDomains, stats.AssignedDomains, stats.FreeDomains)
	fmt.Printf("Average load: %.1f%%\n", stats.AverageLoad)

	if len(stats.UtilizationByMode) == 0 {
		return nil
	}

	modes := make([]string, 0, len(stats.UtilizationByMode))
	for mode := range stats.UtilizationByMode {
		modes = append(modes, string(mode))
	}
	sort.Strings(modes)

	fmt.Println()
	fmt.Println("Capacity by mode:")
	for _, mode := range modes {
		util := stats.UtilizationByMode[types.CapacityMode(mode)]
		fmt.Printf("  %-5s %d servers, %d/%d slots used\n",
			mode, util.Servers, util.Used, util.Capacity)
	}
	return nil
}
