package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tailor-hq/loom/pkg/cli"
	"tailor-hq/loom/pkg/config"
	"tailor-hq/loom/pkg/govern/snapshot"
)

var statsFlags struct {
	format     string
	dependency string
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the latest persisted dependency snapshots",
	Long: `Read the snapshot database and print the most recent governance state
for each dependency: window and daily usage, breaker state, and spend.

This reads the persisted snapshots, so it works while the daemon is
stopped. For live counters query the running daemon's /api/v1/stats
endpoint instead.

Examples:
  # Show all dependencies
  loom stats

  # Show one dependency as JSON
  loom stats --dependency openai --format json`,
	RunE: showStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsFlags.format, "format", "text", "output format: text, json")
	statsCmd.Flags().StringVar(&statsFlags.dependency, "dependency", "", "show a single dependency")
}

func showStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Snapshot.Enabled || cfg.Snapshot.Backend != "sqlite" {
		return cli.NewCommandError("stats",
			fmt.Errorf("snapshots are not persisted to sqlite; enable snapshot.backend: sqlite"))
	}

	backend, err := snapshot.NewSQLiteBackend(cfg.Snapshot.SQLitePath)
	if err != nil {
		return cli.NewCommandError("stats", err)
	}
	defer backend.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var records []*snapshot.Record
	if statsFlags.dependency != "" {
		rec, err := backend.Latest(ctx, statsFlags.dependency)
		if err != nil {
			return cli.NewCommandError("stats", err)
		}
		if rec == nil {
			return fmt.Errorf("no snapshots for dependency %q", statsFlags.dependency)
		}
		records = []*snapshot.Record{rec}
	} else {
		records, err = backend.List(ctx)
		if err != nil {
			return cli.NewCommandError("stats", err)
		}
		if len(records) == 0 {
			fmt.Println("No snapshots recorded yet.")
			return nil
		}
	}

	formatter := cli.NewFormatter(cli.OutputFormat(statsFlags.format))
	return formatter.FormatTo(os.Stdout, records)
}
