package config

import (
	"fmt"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g.,
	// "dependencies.openai.daily_limit") or the offending environment
	// variable name.
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a
// ValidationError if any rule fails. All errors are collected and
// returned together rather than failing on the first.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateGovernance(&cfg.Governance)...)
	errs = append(errs, validateBudget(&cfg.Budget)...)
	errs = append(errs, validateDependencies(cfg.Dependencies)...)
	errs = append(errs, validateSnapshot(&cfg.Snapshot)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateGovernance(cfg *GovernanceConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxWait < 0 {
		errs = append(errs, FieldError{
			Field:   "governance.max_wait",
			Message: "max wait must not be negative",
		})
	}

	return errs
}

func validateBudget(cfg *BudgetConfig) []FieldError {
	var errs []FieldError

	if cfg.WarnThreshold != nil {
		if *cfg.WarnThreshold <= 0 || *cfg.WarnThreshold > 1 {
			errs = append(errs, FieldError{
				Field:   "budget.warn_threshold",
				Message: "warn threshold must be a fraction in (0, 1]",
			})
		}
	}
	if cfg.EnforceHardStop && cfg.Ceiling <= 0 {
		errs = append(errs, FieldError{
			Field:   "budget.ceiling",
			Message: "hard stop enforcement requires a positive ceiling",
		})
	}

	return errs
}

func validateDependencies(deps map[string]DependencyConfig) []FieldError {
	var errs []FieldError

	if len(deps) == 0 {
		errs = append(errs, FieldError{
			Field:   "dependencies",
			Message: "at least one dependency must be configured",
		})
		return errs
	}

	for name, dep := range deps {
		field := func(sub string) string {
			return fmt.Sprintf("dependencies.%s.%s", name, sub)
		}

		if name == "" {
			errs = append(errs, FieldError{
				Field:   "dependencies",
				Message: "dependency name cannot be empty",
			})
			continue
		}
		if dep.RateLimitPerMin != nil && *dep.RateLimitPerMin < 0 {
			errs = append(errs, FieldError{
				Field:   field("rate_limit_per_min"),
				Message: "limit must not be negative",
			})
		}
		if dep.DailyLimit != nil && *dep.DailyLimit < 0 {
			errs = append(errs, FieldError{
				Field:   field("daily_limit"),
				Message: "limit must not be negative",
			})
		}
		if dep.EstimatedCostPerCall < 0 {
			errs = append(errs, FieldError{
				Field:   field("estimated_cost_per_call"),
				Message: "estimated cost must not be negative",
			})
		}
		if dep.Breaker.FailureThreshold < 0 {
			errs = append(errs, FieldError{
				Field:   field("breaker.failure_threshold"),
				Message: "failure threshold must not be negative",
			})
		}
		if dep.Breaker.SuccessThreshold < 0 {
			errs = append(errs, FieldError{
				Field:   field("breaker.success_threshold"),
				Message: "success threshold must not be negative",
			})
		}
		if dep.Breaker.OpenTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   field("breaker.open_timeout"),
				Message: "open timeout must not be negative",
			})
		}
	}

	return errs
}

func validateSnapshot(cfg *SnapshotConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, FieldError{
				Field:   "snapshot.sqlite_path",
				Message: "sqlite backend requires a database path",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "snapshot.backend",
			Message: fmt.Sprintf("unknown backend %q (want memory or sqlite)", cfg.Backend),
		})
	}

	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "snapshot.retention_days",
			Message: "retention days must not be negative",
		})
	}

	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must not be negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must not be negative",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q (want debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q (want json or text)", cfg.Logging.Format),
		})
	}

	return errs
}
