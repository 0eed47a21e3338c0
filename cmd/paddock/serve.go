package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/paddockhq/paddock/pkg/log"
	"github.com/paddockhq/paddock/pkg/metrics"
	"github.com/paddockhq/paddock/pkg/reconciler"
	"github.com/paddockhq/paddock/pkg/relay"
	"github.com/paddockhq/paddock/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the paddock daemon",
	Long: `Run the long-lived daemon: the WebSocket event relay at /ws, health
and Prometheus endpoints, the metrics collector, and the background
counter reconciler.

The daemon serves no CRUD API. Mutations go through paddock apply
against the shared store; their change events reach connected relay
clients through the configured notify backend.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.WithComponent("serve")
	metrics.SetVersion(Version)

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	metrics.RegisterComponent("store", true, "")

	notifier, closeNotifier, err := buildNotifier(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()
	defer notifier.Close()
	metrics.RegisterComponent("notifier", true, "")

	collector := metrics.NewCollector(store)
	collector.Start()
	defer collector.Stop()

	rec := reconciler.New(store, cfg.Reconcile.Interval)
	rec.Start()
	defer rec.Stop()

	rel := relay.New(notifier, cfg.Relay.Heartbeat)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", rel.Handler())
	r.Get("/healthz", metrics.HealthHandler())
	r.Get("/readyz", metrics.ReadyHandler())
	r.Get("/livez", metrics.LivenessHandler())
	r.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: r,
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		rel.Run(ctx)
		return nil
	})

	eg.Go(func() error {
		logger.Info().
			Str("addr", cfg.Listen).
			Str("notify_backend", cfg.Notify.Backend).
			Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("Shutdown complete")
	return nil
}
