package config

import "time"

// Default values for configuration fields.
const (
	// Governance defaults
	DefaultMaxWait = 60 * time.Second

	// Budget defaults
	DefaultWarnThreshold = 0.8

	// Breaker defaults
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 1
	DefaultOpenTimeout      = 30 * time.Second

	// Snapshot defaults
	DefaultSnapshotBackend         = "memory"
	DefaultSnapshotSQLitePath      = "data/snapshots.db"
	DefaultSnapshotCollectSchedule = "@every 1m"
	DefaultSnapshotPruneSchedule   = "0 3 * * *"
	DefaultSnapshotRetentionDays   = 7

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
)

// ApplyDefaults fills unset fields with default values. Pointer fields
// stay nil when absent so that "unset" remains distinguishable from an
// explicit zero.
func ApplyDefaults(cfg *Config) {
	if cfg.Governance.MaxWait == 0 {
		cfg.Governance.MaxWait = DefaultMaxWait
	}

	for name, dep := range cfg.Dependencies {
		if dep.Breaker.FailureThreshold == 0 {
			dep.Breaker.FailureThreshold = DefaultFailureThreshold
		}
		if dep.Breaker.SuccessThreshold == 0 {
			dep.Breaker.SuccessThreshold = DefaultSuccessThreshold
		}
		if dep.Breaker.OpenTimeout == 0 {
			dep.Breaker.OpenTimeout = DefaultOpenTimeout
		}
		cfg.Dependencies[name] = dep
	}

	if cfg.Snapshot.Backend == "" {
		cfg.Snapshot.Backend = DefaultSnapshotBackend
	}
	if cfg.Snapshot.SQLitePath == "" {
		cfg.Snapshot.SQLitePath = DefaultSnapshotSQLitePath
	}
	if cfg.Snapshot.CollectSchedule == "" {
		cfg.Snapshot.CollectSchedule = DefaultSnapshotCollectSchedule
	}
	if cfg.Snapshot.PruneSchedule == "" {
		cfg.Snapshot.PruneSchedule = DefaultSnapshotPruneSchedule
	}
	if cfg.Snapshot.RetentionDays == 0 {
		cfg.Snapshot.RetentionDays = DefaultSnapshotRetentionDays
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
