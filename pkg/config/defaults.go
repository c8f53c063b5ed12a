package config

import "time"

// Default values for configuration fields.
const (
	// Retention defaults
	DefaultRetentionDays = 180
	DefaultDryRun        = false
	DefaultDeletePinned  = false
	DefaultDeleteReposts = true
	DefaultDeleteLikes   = true
	DefaultKeepFile      = "keep.txt"

	// Platform defaults
	DefaultPDSHost        = "https://bsky.social"
	DefaultThreadsBaseURL = "https://graph.threads.net/v1.0"
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultMaxRetries     = 3

	// Schedule defaults
	DefaultScheduleCron    = "0 3 * * *"
	DefaultWatchKeepFile   = true
	DefaultShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "text"
	DefaultLoggingRedact  = true
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
	DefaultNamespace      = "skyscraper"
)

// Default returns a configuration with every default applied, including the
// boolean defaults that a zero value cannot express. Files are decoded on
// top of it.
func Default() *Config {
	cfg := &Config{
		Retention: RetentionConfig{
			DryRun:        DefaultDryRun,
			DeletePinned:  DefaultDeletePinned,
			DeleteReposts: DefaultDeleteReposts,
			DeleteLikes:   DefaultDeleteLikes,
		},
		Schedule: ScheduleConfig{
			WatchKeepFile: DefaultWatchKeepFile,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{Redact: DefaultLoggingRedact},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = DefaultRetentionDays
	}
	if cfg.KeepFile == "" {
		cfg.KeepFile = DefaultKeepFile
	}

	if cfg.Bluesky.PDSHost == "" {
		cfg.Bluesky.PDSHost = DefaultPDSHost
	}
	if cfg.Threads.BaseURL == "" {
		cfg.Threads.BaseURL = DefaultThreadsBaseURL
	}
	applyHTTPDefaults(&cfg.Bluesky.HTTPConfig)
	applyHTTPDefaults(&cfg.Mastodon.HTTPConfig)
	applyHTTPDefaults(&cfg.Threads.HTTPConfig)

	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = DefaultScheduleCron
	}
	if cfg.Schedule.ShutdownTimeout == 0 {
		cfg.Schedule.ShutdownTimeout = DefaultShutdownTimeout
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
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultNamespace
	}
	if cfg.Telemetry.Metrics.PushJob == "" {
		cfg.Telemetry.Metrics.PushJob = DefaultNamespace
	}
}

// Pacing is left alone: zero means the platform client's own default.
func applyHTTPDefaults(h *HTTPConfig) {
	if h.Timeout == 0 {
		h.Timeout = DefaultHTTPTimeout
	}
	if h.MaxRetries == 0 {
		h.MaxRetries = DefaultMaxRetries
	}
}
