package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Loom - external-call governance for the job application pipeline",
	Long: `Loom governs every call the job application pipeline makes to its
metered dependencies. It provides:

  - Per-dependency rate limiting (sliding minute window and UTC daily caps)
  - Circuit breaking around flaky dependencies
  - A shared spending ceiling with warn and hard-stop thresholds
  - Periodic state snapshots for the operator
  - A monitoring HTTP surface with stats, budget, and Prometheus metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
