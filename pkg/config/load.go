package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides, which always take precedence
// over file values. An unparseable override is an error, not a silent
// fallback to the file value.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Parse failures are collected into a ValidationError.
func applyEnvOverrides(cfg *Config) error {
	var errs []FieldError

	if val := os.Getenv("ENABLE_RATE_LIMITING"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Governance.Enabled = &b
		} else {
			errs = append(errs, FieldError{
				Field:   "ENABLE_RATE_LIMITING",
				Message: fmt.Sprintf("invalid boolean %q", val),
			})
		}
	}
	if val := os.Getenv("RATE_LIMIT_MAX_WAIT_SECONDS"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil && secs >= 0 {
			cfg.Governance.MaxWait = time.Duration(secs) * time.Second
		} else {
			errs = append(errs, FieldError{
				Field:   "RATE_LIMIT_MAX_WAIT_SECONDS",
				Message: fmt.Sprintf("invalid non-negative integer %q", val),
			})
		}
	}

	if val := os.Getenv("BUDGET_CEILING"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.Ceiling = f
		} else {
			errs = append(errs, FieldError{
				Field:   "BUDGET_CEILING",
				Message: fmt.Sprintf("invalid amount %q", val),
			})
		}
	}
	if val := os.Getenv("BUDGET_WARN_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.WarnThreshold = &f
		} else {
			errs = append(errs, FieldError{
				Field:   "BUDGET_WARN_THRESHOLD",
				Message: fmt.Sprintf("invalid fraction %q", val),
			})
		}
	}
	if val := os.Getenv("BUDGET_ENFORCE_HARD_STOP"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Budget.EnforceHardStop = b
		} else {
			errs = append(errs, FieldError{
				Field:   "BUDGET_ENFORCE_HARD_STOP",
				Message: fmt.Sprintf("invalid boolean %q", val),
			})
		}
	}

	for name := range cfg.Dependencies {
		errs = append(errs, applyDependencyEnvOverrides(cfg, name)...)
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// applyDependencyEnvOverrides applies per-dependency overrides of the
// form <DEP>_RATE_LIMIT_PER_MIN and <DEP>_DAILY_LIMIT, where <DEP> is
// the dependency name uppercased with dashes mapped to underscores.
func applyDependencyEnvOverrides(cfg *Config, name string) []FieldError {
	var errs []FieldError

	dep := cfg.Dependencies[name]
	prefix := EnvName(name)
	modified := false

	if val := os.Getenv(prefix + "_RATE_LIMIT_PER_MIN"); val != "" {
		if l, err := ParseLimit(val); err == nil {
			dep.RateLimitPerMin = &l
			modified = true
		} else {
			errs = append(errs, FieldError{
				Field:   prefix + "_RATE_LIMIT_PER_MIN",
				Message: err.Error(),
			})
		}
	}
	if val := os.Getenv(prefix + "_DAILY_LIMIT"); val != "" {
		if l, err := ParseLimit(val); err == nil {
			dep.DailyLimit = &l
			modified = true
		} else {
			errs = append(errs, FieldError{
				Field:   prefix + "_DAILY_LIMIT",
				Message: err.Error(),
			})
		}
	}

	if modified {
		cfg.Dependencies[name] = dep
	}
	return errs
}

// EnvName maps a dependency name to its environment variable prefix.
func EnvName(dependency string) string {
	return strings.ToUpper(strings.ReplaceAll(dependency, "-", "_"))
}
