package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tailor-hq/loom/pkg/cli"
	"tailor-hq/loom/pkg/config"
	"tailor-hq/loom/pkg/govern"
	"tailor-hq/loom/pkg/govern/snapshot"
	"tailor-hq/loom/pkg/server"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the governance daemon",
	Long: `Start the governance daemon with the specified configuration.

The daemon builds one limiter and breaker per configured dependency, tracks
spend against the shared budget ceiling, persists periodic state snapshots,
and serves the monitoring HTTP surface.

Examples:
  # Start with default config
  loom run

  # Start with custom config
  loom run --config /etc/loom/config.yaml

  # Override listen address
  loom run --listen 0.0.0.0:8090

  # Validate config without starting
  loom run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", true, "reload budget settings when the config file changes")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	setupLogging(cfg.Telemetry.Logging)

	if runFlags.dryRun {
		fmt.Println("Configuration valid")
		return nil
	}

	fmt.Printf("Loom v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Printf("Governing %d dependencies\n", len(cfg.Dependencies))

	ctx, stop := cli.SignalContext()
	defer stop()

	// Governor
	govCfg := cfg.GovernorConfig()
	if cfg.Telemetry.Metrics.Enabled {
		govCfg.Metrics = govern.NewMetrics()
	}
	governor, err := govern.New(govCfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// Snapshot persistence
	if cfg.Snapshot.Enabled {
		backend, err := newSnapshotBackend(cfg.Snapshot)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer backend.Close()

		scheduler := snapshot.NewScheduler(governor, backend, snapshot.SchedulerConfig{
			CollectSchedule: cfg.Snapshot.CollectSchedule,
			PruneSchedule:   cfg.Snapshot.PruneSchedule,
			Retention:       time.Duration(cfg.Snapshot.RetentionDays) * 24 * time.Hour,
		})
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer scheduler.Stop()
		fmt.Printf("Snapshots enabled (%s backend)\n", cfg.Snapshot.Backend)
	}

	// Config watcher: budget settings apply live, everything else
	// needs a restart.
	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile)
		if err != nil {
			slog.Warn("config watching disabled", "error", err)
		} else {
			go func() {
				err := watcher.Watch(ctx, func(updated *config.Config) {
					governor.Budget().UpdateCeiling(updated.Budget.Ceiling)
					slog.Info("applied updated budget ceiling", "ceiling", updated.Budget.Ceiling)
				})
				if err != nil {
					slog.Warn("config watcher stopped", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	if !cfg.Server.Enabled {
		slog.Info("monitoring server disabled, waiting for shutdown signal")
		<-ctx.Done()
		return nil
	}

	srv := server.NewServer(cfg.Server, cfg.Telemetry, governor)

	fmt.Printf("Monitoring server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("Stats endpoint: http://%s/api/v1/stats\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newSnapshotBackend(cfg config.SnapshotConfig) (snapshot.Backend, error) {
	switch cfg.Backend {
	case "sqlite":
		return snapshot.NewSQLiteBackend(cfg.SQLitePath)
	case "memory":
		return snapshot.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot backend: %s", cfg.Backend)
	}
}
