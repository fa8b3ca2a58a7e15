package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pocketforge/comet/pkg/cache"
	"pocketforge/comet/pkg/cache/lifecycle"
	"pocketforge/comet/pkg/cache/lifecycle/statestore"
	"pocketforge/comet/pkg/config"
	"pocketforge/comet/pkg/costs"
	"pocketforge/comet/pkg/session"
	"pocketforge/comet/pkg/session/history"
	"pocketforge/comet/pkg/telemetry/logging"
	"pocketforge/comet/pkg/telemetry/metrics"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Comet daemon",
	Long: `Start the Comet daemon with the specified configuration.

The daemon restores the persisted cache lifecycle state, starts the
session sweep and the pricing watcher, and serves until interrupted.

Examples:
  # Start with default config
  comet run

  # Start with custom config
  comet run --config /etc/comet/config.yaml

  # Validate config without starting
  comet run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if runFlags.dryRun {
		fmt.Println("configuration OK")
		return nil
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Durable state backend.
	var backend statestore.Backend
	switch cfg.Cache.StateBackend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Cache.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		backend, err = statestore.NewSQLiteBackend(cfg.Cache.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open state store: %w", err)
		}
	default:
		backend = statestore.NewMemoryBackend()
	}
	defer backend.Close()

	// Metrics registry and collectors.
	registry := prometheus.NewRegistry()
	var cacheMetrics *metrics.CacheMetrics
	var costMetrics *metrics.CostMetrics
	if cfg.Telemetry.Metrics.Enabled {
		cacheMetrics = metrics.NewCacheMetrics(&cfg.Telemetry.Metrics, registry)
		costMetrics = metrics.NewCostMetrics(&cfg.Telemetry.Metrics, registry)
	}

	// Cache store and lifecycle coordinator.
	store := cache.NewStore(cfg.Cache.MaxFiles, logger)
	if cacheMetrics != nil {
		store.SetEvictionObserver(func(string) { cacheMetrics.RecordEviction() })
	}

	var notifier lifecycle.NotificationSink = lifecycle.NewLogNotifier(logger)
	if cacheMetrics != nil {
		notifier = &meteredNotifier{NotificationSink: notifier, cache: cacheMetrics}
	}
	sched := lifecycle.NewTimerScheduler(nil)
	coordinator := lifecycle.NewCoordinator(cfg.Cache, store, backend, sched, notifier, nil, logger)
	sched.SetHandler(coordinator.HandleScheduledTask)
	defer coordinator.Close()

	if cacheMetrics != nil {
		unsubscribe := coordinator.OnTick(func(remaining time.Duration) {
			cacheMetrics.SetRemaining(remaining)
			cacheMetrics.SetFiles(store.Len())
		})
		defer unsubscribe()
	}

	coordinator.Restore(ctx)

	// Cost calculator, optionally fed from a watched pricing file.
	calculator := costs.NewCalculator(&cfg.Costs)
	if cfg.Costs.PricingFile != "" {
		pricing, err := config.LoadPricing(cfg.Costs.PricingFile)
		if err != nil {
			return fmt.Errorf("failed to load pricing file: %w", err)
		}
		calculator.UpdatePricing(pricing, cfg.Costs.DisplayCurrencyRate)

		watcher, err := config.NewPricingWatcher(cfg.Costs.PricingFile, logger)
		if err != nil {
			return fmt.Errorf("failed to create pricing watcher: %w", err)
		}
		go func() {
			if err := watcher.Watch(ctx, func(p map[string]config.ModelPricingConfig) {
				calculator.UpdatePricing(p, cfg.Costs.DisplayCurrencyRate)
			}); err != nil && ctx.Err() == nil {
				logger.Warn("pricing watcher exited", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	// Usage ledger and session manager.
	var ledger *history.Store
	if cfg.Sessions.HistoryPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Sessions.HistoryPath), 0o755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
		ledger, err = history.Open(cfg.Sessions.HistoryPath)
		if err != nil {
			return fmt.Errorf("failed to open usage ledger: %w", err)
		}
		defer ledger.Close()
	}

	manager := session.NewManager(cfg.Sessions, calculator, ledger, logger)
	if costMetrics != nil {
		manager.SetCostRecorder(costMetrics)
	}
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session sweep: %w", err)
	}
	defer manager.Stop()

	logger.Info("comet started",
		"cache_timeout", cfg.Cache.Timeout,
		"state_backend", cfg.Cache.StateBackend,
		"cache_state", coordinator.State().String(),
	)

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// meteredNotifier counts expiry transitions before passing the
// notification through.
type meteredNotifier struct {
	lifecycle.NotificationSink
	cache *metrics.CacheMetrics
}

func (n *meteredNotifier) Expired() {
	n.cache.RecordExpiry()
	n.NotificationSink.Expired()
}
