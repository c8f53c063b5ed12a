package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfigWithEnvOverrides. The unprefixed
// names are the long-standing deployment interface; ambient settings use
// the SKYSCRAPER_ prefix.
const (
	EnvRetentionDays = "RETENTION_DAYS"
	EnvDryRun        = "DRY_RUN"
	EnvDeletePinned  = "DELETE_PINNED"
	EnvDeleteReposts = "DELETE_REPOSTS"
	EnvDeleteLikes   = "DELETE_LIKES"
	EnvKeepFile      = "KEEP_FILE"

	EnvBlueskyIdentifier   = "BLUESKY_IDENTIFIER"
	EnvBlueskyAppPassword  = "BLUESKY_APP_PASSWORD"
	EnvBlueskyPDSHost      = "BLUESKY_PDS_HOST"
	EnvMastodonInstanceURL = "MASTODON_INSTANCE_URL"
	EnvMastodonAccessToken = "MASTODON_ACCESS_TOKEN"
	EnvThreadsAccessToken  = "THREADS_ACCESS_TOKEN"

	EnvLogLevel              = "SKYSCRAPER_LOG_LEVEL"
	EnvLogFormat             = "SKYSCRAPER_LOG_FORMAT"
	EnvSchedule              = "SKYSCRAPER_SCHEDULE"
	EnvRunOnStart            = "SKYSCRAPER_RUN_ON_START"
	EnvMetricsEnabled        = "SKYSCRAPER_METRICS_ENABLED"
	EnvMetricsListenAddress  = "SKYSCRAPER_METRICS_LISTEN_ADDRESS"
	EnvMetricsPushgatewayURL = "SKYSCRAPER_PUSHGATEWAY_URL"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// Values absent from the file keep their defaults. Unknown keys are
// rejected. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration and applies environment
// variable overrides. An empty path skips the file entirely, so a
// deployment can be driven by environment variables alone.
//
// The loading sequence is:
// 1. Load YAML from file (if any) on top of the defaults
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = decodeFile(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func decodeFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Empty variables are treated as unset. Unparseable numbers
// are ignored and leave the file or default value in place. A zero
// RETENTION_DAYS is unset, as a zero retention.days in the file is.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(EnvRetentionDays); val != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && n != 0 {
			cfg.Retention.Days = n
		}
	}
	envFlag(EnvDryRun, &cfg.Retention.DryRun)
	envFlag(EnvDeletePinned, &cfg.Retention.DeletePinned)
	envFlag(EnvDeleteReposts, &cfg.Retention.DeleteReposts)
	envFlag(EnvDeleteLikes, &cfg.Retention.DeleteLikes)
	envString(EnvKeepFile, &cfg.KeepFile)

	envString(EnvBlueskyIdentifier, &cfg.Bluesky.Identifier)
	envString(EnvBlueskyAppPassword, &cfg.Bluesky.AppPassword)
	envString(EnvBlueskyPDSHost, &cfg.Bluesky.PDSHost)
	envString(EnvMastodonInstanceURL, &cfg.Mastodon.InstanceURL)
	envString(EnvMastodonAccessToken, &cfg.Mastodon.AccessToken)
	envString(EnvThreadsAccessToken, &cfg.Threads.AccessToken)

	envString(EnvLogLevel, &cfg.Telemetry.Logging.Level)
	envString(EnvLogFormat, &cfg.Telemetry.Logging.Format)
	envString(EnvSchedule, &cfg.Schedule.Cron)
	envFlag(EnvRunOnStart, &cfg.Schedule.RunOnStart)
	envFlag(EnvMetricsEnabled, &cfg.Telemetry.Metrics.Enabled)
	envString(EnvMetricsListenAddress, &cfg.Telemetry.Metrics.ListenAddress)
	envString(EnvMetricsPushgatewayURL, &cfg.Telemetry.Metrics.PushgatewayURL)
}

func envString(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

// envFlag sets dst when name is non-empty: "true" and "1" enable the flag,
// any other value disables it.
func envFlag(name string, dst *bool) {
	if val := os.Getenv(name); val != "" {
		*dst = ParseFlag(val)
	}
}

// ParseFlag reports whether val spells an enabled flag ("true" or "1",
// case-insensitive, surrounding space ignored).
func ParseFlag(val string) bool {
	val = strings.TrimSpace(val)
	return val == "1" || strings.EqualFold(val, "true")
}
