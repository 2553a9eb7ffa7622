package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tailor-hq/loom/pkg/govern"
	"tailor-hq/loom/pkg/govern/breaker"
	"tailor-hq/loom/pkg/govern/budget"
	"tailor-hq/loom/pkg/govern/quota"
)

// Limit is an admission limit: a non-negative integer, zero (dependency
// disabled), or Unlimited. In YAML it is written as an integer or the
// literal "unlimited".
type Limit int64

// Unlimited disables the check for a limit dimension.
const Unlimited Limit = math.MaxInt64

// UnmarshalYAML accepts an integer or the literal "unlimited".
func (l *Limit) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*l = Limit(n)
		return nil
	}

	var s string
	if err := value.Decode(&s); err == nil && strings.EqualFold(strings.TrimSpace(s), "unlimited") {
		*l = Unlimited
		return nil
	}

	return fmt.Errorf("invalid limit %q: want a non-negative integer or \"unlimited\"", value.Value)
}

// MarshalYAML renders Unlimited back as the literal.
func (l Limit) MarshalYAML() (interface{}, error) {
	if l == Unlimited {
		return "unlimited", nil
	}
	return int64(l), nil
}

// ParseLimit parses an environment variable value into a Limit.
func ParseLimit(s string) (Limit, error) {
	if strings.EqualFold(strings.TrimSpace(s), "unlimited") {
		return Unlimited, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid limit %q: want a non-negative integer or \"unlimited\"", s)
	}
	return Limit(n), nil
}

// String renders the limit for logs and error messages.
func (l Limit) String() string {
	if l == Unlimited {
		return "unlimited"
	}
	return strconv.FormatInt(int64(l), 10)
}

// Config is the root configuration for Loom.
type Config struct {
	// Governance holds the global admission settings.
	Governance GovernanceConfig `yaml:"governance"`

	// Budget holds the shared spending ceiling settings.
	Budget BudgetConfig `yaml:"budget"`

	// Dependencies maps dependency names to their per-dependency
	// settings. At least one dependency must be configured.
	Dependencies map[string]DependencyConfig `yaml:"dependencies"`

	// Snapshot configures periodic state persistence for dashboards.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Server configures the monitoring HTTP server.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// GovernanceConfig contains global admission settings.
type GovernanceConfig struct {
	// Enabled toggles rate limiting globally. When false every Acquire
	// admits immediately. Default true.
	Enabled *bool `yaml:"enabled"`

	// MaxWait is the per-call ceiling on how long an authorization
	// waits for a quota slot. Default 60s.
	MaxWait time.Duration `yaml:"max_wait"`
}

// RateLimitingEnabled reports the effective toggle value.
func (g GovernanceConfig) RateLimitingEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

// DependencyConfig contains per-dependency settings.
type DependencyConfig struct {
	// RateLimitPerMin caps admissions in any trailing 60-second
	// window. Omitted means unlimited; zero disables the dependency.
	RateLimitPerMin *Limit `yaml:"rate_limit_per_min"`

	// DailyLimit caps admissions per UTC calendar day. Omitted means
	// unlimited; zero disables the dependency.
	DailyLimit *Limit `yaml:"daily_limit"`

	// EstimatedCostPerCall is the cost in USD assumed by the budget
	// advisory check. Zero for free dependencies.
	EstimatedCostPerCall float64 `yaml:"estimated_cost_per_call"`

	// Breaker holds circuit breaker thresholds.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig contains circuit breaker thresholds.
type BreakerConfig struct {
	// FailureThreshold is the consecutive failures that open the
	// breaker. Default 5.
	FailureThreshold int `yaml:"failure_threshold"`

	// SuccessThreshold is the consecutive half-open successes that
	// close it. Default 1.
	SuccessThreshold int `yaml:"success_threshold"`

	// OpenTimeout is the cooldown before a trial call. Default 30s.
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// BudgetConfig contains the shared spending ceiling settings.
type BudgetConfig struct {
	// Ceiling is the total spend allowed across all dependencies, in
	// USD. Zero or negative disables budget enforcement.
	Ceiling float64 `yaml:"ceiling"`

	// WarnThreshold is the fraction of the ceiling spent at which
	// admissions start logging warnings. Default 0.8.
	WarnThreshold *float64 `yaml:"warn_threshold"`

	// EnforceHardStop refuses cost-bearing authorizations once the
	// ceiling is reached.
	EnforceHardStop bool `yaml:"enforce_hard_stop"`
}

// SnapshotConfig configures periodic state persistence.
type SnapshotConfig struct {
	// Enabled toggles snapshot collection.
	Enabled bool `yaml:"enabled"`

	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// CollectSchedule is the cron expression for collection.
	CollectSchedule string `yaml:"collect_schedule"`

	// PruneSchedule is the cron expression for history pruning.
	PruneSchedule string `yaml:"prune_schedule"`

	// RetentionDays is how many days of history to keep.
	RetentionDays int `yaml:"retention_days"`
}

// ServerConfig configures the monitoring HTTP server.
type ServerConfig struct {
	// Enabled toggles the server.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the host:port to bind.
	ListenAddress string `yaml:"listen_address"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// GovernorConfig translates the loaded configuration into the governor's
// wiring form. The config must have passed Validate.
func (c *Config) GovernorConfig() govern.Config {
	passthrough := !c.Governance.RateLimitingEnabled()

	deps := make(map[string]govern.DependencyConfig, len(c.Dependencies))
	for name, dep := range c.Dependencies {
		deps[name] = govern.DependencyConfig{
			Quota: quota.Config{
				PerMinute:   limitValue(dep.RateLimitPerMin),
				Daily:       limitValue(dep.DailyLimit),
				MaxWait:     c.Governance.MaxWait,
				Passthrough: passthrough,
			},
			Breaker: breaker.Config{
				FailureThreshold: dep.Breaker.FailureThreshold,
				SuccessThreshold: dep.Breaker.SuccessThreshold,
				OpenTimeout:      dep.Breaker.OpenTimeout,
			},
			EstimatedCostPerCall: dep.EstimatedCostPerCall,
		}
	}

	return govern.Config{
		Dependencies: deps,
		Budget: budget.Config{
			Ceiling:         c.Budget.Ceiling,
			WarnThreshold:   warnThreshold(c.Budget.WarnThreshold),
			EnforceHardStop: c.Budget.EnforceHardStop,
		},
	}
}

func limitValue(l *Limit) int64 {
	if l == nil {
		return quota.Unlimited
	}
	if *l == Unlimited {
		return quota.Unlimited
	}
	return int64(*l)
}

func warnThreshold(t *float64) float64 {
	if t == nil {
		return budget.DefaultWarnThreshold
	}
	return *t
}
