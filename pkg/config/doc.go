// Package config provides configuration management for Loom.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// The override surface matches the knobs an operator tunes between runs:
//
//   - <DEP>_RATE_LIMIT_PER_MIN overrides dependencies.<dep>.rate_limit_per_min
//   - <DEP>_DAILY_LIMIT overrides dependencies.<dep>.daily_limit
//   - RATE_LIMIT_MAX_WAIT_SECONDS overrides governance.max_wait
//   - ENABLE_RATE_LIMITING overrides governance.enabled
//   - BUDGET_CEILING overrides budget.ceiling
//   - BUDGET_WARN_THRESHOLD overrides budget.warn_threshold
//   - BUDGET_ENFORCE_HARD_STOP overrides budget.enforce_hard_stop
//
// <DEP> is the dependency name uppercased with dashes mapped to
// underscores, so a dependency "web-crawler" reads WEB_CRAWLER_DAILY_LIMIT.
// Environment variables always take precedence over file-based
// configuration. An unparseable override is a startup-fatal error, never
// a silent fallback.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Limits
//
// Rate limit fields accept a non-negative integer or the literal
// "unlimited". Zero disables the dependency entirely; an omitted field
// means unlimited. Negative values are rejected at load time.
package config
