package config

import "time"

// Config is the root configuration structure for Skyscraper.
type Config struct {
	// Retention controls what a run deletes.
	Retention RetentionConfig `yaml:"retention"`

	// KeepFile is the path of the keep-list file.
	// Default: "keep.txt"
	KeepFile string `yaml:"keep_file"`

	// Bluesky contains AT Protocol credentials and HTTP settings.
	Bluesky BlueskyConfig `yaml:"bluesky"`

	// Mastodon contains Mastodon credentials and HTTP settings.
	Mastodon MastodonConfig `yaml:"mastodon"`

	// Threads contains Threads Graph API credentials and HTTP settings.
	Threads ThreadsConfig `yaml:"threads"`

	// Schedule controls daemon mode.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RetentionConfig is the file form of a retention policy.
type RetentionConfig struct {
	// Days is the retention window. Records created before now minus Days
	// are deleted.
	// Default: 180
	Days int `yaml:"days"`

	// DryRun logs what would be deleted without deleting anything.
	// Default: false
	DryRun bool `yaml:"dry_run"`

	// DeletePinned also deletes pinned posts.
	// Default: false
	DeletePinned bool `yaml:"delete_pinned"`

	// DeleteReposts deletes reposts/reblogs.
	// Default: true
	DeleteReposts bool `yaml:"delete_reposts"`

	// DeleteLikes removes likes/favourites.
	// Default: true
	DeleteLikes bool `yaml:"delete_likes"`
}

// HTTPConfig holds the per-platform transport settings.
type HTTPConfig struct {
	// Timeout bounds a single HTTP request.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries for 5xx and network errors.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// Pacing is the pause after each live deletion. Zero selects the
	// platform default.
	Pacing time.Duration `yaml:"pacing"`
}

// BlueskyConfig configures the Bluesky client.
type BlueskyConfig struct {
	Identifier  string `yaml:"identifier"`
	AppPassword string `yaml:"app_password"`

	// PDSHost is the personal data server base URL.
	// Default: "https://bsky.social"
	PDSHost string `yaml:"pds_host"`

	HTTPConfig `yaml:",inline"`
}

// Missing lists the environment variable names of absent credentials.
func (c BlueskyConfig) Missing() []string {
	var missing []string
	if c.Identifier == "" {
		missing = append(missing, EnvBlueskyIdentifier)
	}
	if c.AppPassword == "" {
		missing = append(missing, EnvBlueskyAppPassword)
	}
	return missing
}

// MastodonConfig configures the Mastodon client.
type MastodonConfig struct {
	InstanceURL string `yaml:"instance_url"`
	AccessToken string `yaml:"access_token"`

	HTTPConfig `yaml:",inline"`
}

// Missing lists the environment variable names of absent credentials.
func (c MastodonConfig) Missing() []string {
	var missing []string
	if c.InstanceURL == "" {
		missing = append(missing, EnvMastodonInstanceURL)
	}
	if c.AccessToken == "" {
		missing = append(missing, EnvMastodonAccessToken)
	}
	return missing
}

// ThreadsConfig configures the Threads client.
type ThreadsConfig struct {
	AccessToken string `yaml:"access_token"`

	// BaseURL overrides the Graph API endpoint.
	// Default: "https://graph.threads.net/v1.0"
	BaseURL string `yaml:"base_url"`

	HTTPConfig `yaml:",inline"`
}

// Missing lists the environment variable names of absent credentials.
func (c ThreadsConfig) Missing() []string {
	if c.AccessToken == "" {
		return []string{EnvThreadsAccessToken}
	}
	return nil
}

// ScheduleConfig controls the long-running scheduler.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression, or a descriptor such
	// as "@daily".
	// Default: "0 3 * * *"
	Cron string `yaml:"cron"`

	// RunOnStart triggers one run immediately when the daemon starts.
	// Default: false
	RunOnStart bool `yaml:"run_on_start"`

	// WatchKeepFile reloads the keep list when the file changes.
	// Default: true
	WatchKeepFile bool `yaml:"watch_keep_file"`

	// ShutdownTimeout bounds how long shutdown waits for an in-flight run.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Redact scrubs tokens and passwords from log output.
	// Default: true
	Redact bool `yaml:"redact"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is where the scheduler serves metrics. Empty disables
	// the endpoint.
	// Default: ""
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "skyscraper"
	Namespace string `yaml:"namespace"`

	// PushgatewayURL, if set, receives the registry after each one-shot run.
	PushgatewayURL string `yaml:"pushgateway_url"`

	// PushJob is the Pushgateway job name.
	// Default: "skyscraper"
	PushJob string `yaml:"push_job"`

	// RequestDurationBuckets defines histogram buckets for API round
	// trips (seconds).
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// PassDurationBuckets defines histogram buckets for collection passes
	// (seconds).
	PassDurationBuckets []float64 `yaml:"pass_duration_buckets"`
}
