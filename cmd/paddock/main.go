package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paddockhq/paddock/pkg/config"
	"github.com/paddockhq/paddock/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "paddock",
	Short: "Paddock - capacity-bounded domain assignment",
	Long: `Paddock tracks a pool of capacity-bounded servers and assigns domains
into their free slots, with automatic distribution, server groups,
soft editing locks, and real-time change notification over WebSocket.

Mutations flow through declarative manifests (paddock apply); the
daemon (paddock serve) hosts the event relay, health and metrics
endpoints, and the background counter reconciler.`,
	Version: Version,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Paddock version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ./paddock.yaml, /etc/paddock/paddock.yaml)")
}

// loadConfig resolves the configured file and initializes logging from
// it. Every subcommand calls this first.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	return cfg, nil
}

// actorFlag resolves who mutations are recorded against: the --actor
// flag when given, the invoking user otherwise.
func actorFlag(cmd *cobra.Command) string {
	actor, _ := cmd.Flags().GetString("actor")
	if actor != "" {
		return actor
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "admin"
}
