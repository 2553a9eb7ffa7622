package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tailor-hq/loom/pkg/cli"
	"tailor-hq/loom/pkg/config"
)

var validateFlags struct {
	env bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check a configuration file for errors without starting the daemon.

Validation covers the YAML structure, limit literals, budget and breaker
settings, and (with --env) the environment variable overrides that would
apply at startup.

Examples:
  # Validate the default config file
  loom validate

  # Validate a specific file including env overrides
  loom validate --config /etc/loom/config.yaml --env`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.env, "env", false, "also apply environment variable overrides")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	load := config.LoadConfig
	if validateFlags.env {
		load = config.LoadConfigWithEnvOverrides
	}

	cfg, err := load(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("Configuration invalid (%d errors):\n", len(verr.Errors))
			for _, fieldErr := range verr.Errors {
				fmt.Printf("  - %s: %s\n", fieldErr.Field, fieldErr.Message)
			}
			return cli.NewCommandError("validate", fmt.Errorf("%d validation errors", len(verr.Errors)))
		}
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	fmt.Println("Configuration valid")
	fmt.Printf("  Dependencies: %d\n", len(cfg.Dependencies))
	if cfg.Budget.Ceiling > 0 {
		fmt.Printf("  Budget ceiling: $%.2f (hard stop: %t)\n", cfg.Budget.Ceiling, cfg.Budget.EnforceHardStop)
	} else {
		fmt.Println("  Budget: not enforced")
	}
	if cfg.Snapshot.Enabled {
		fmt.Printf("  Snapshots: %s backend, collect %q\n", cfg.Snapshot.Backend, cfg.Snapshot.CollectSchedule)
	}
	return nil
}
