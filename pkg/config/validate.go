package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "retention.days").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
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

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. Missing platform credentials are not an
// error; the platform is skipped at run time.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateRetention(cfg)...)
	errs = append(errs, validatePlatforms(cfg)...)
	errs = append(errs, validateSchedule(&cfg.Schedule)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateRetention(cfg *Config) []FieldError {
	var errs []FieldError

	if cfg.Retention.Days <= 0 {
		errs = append(errs, FieldError{
			Field:   "retention.days",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Retention.Days),
		})
	}
	if strings.TrimSpace(cfg.KeepFile) == "" {
		errs = append(errs, FieldError{
			Field:   "keep_file",
			Message: "keep file path is required",
		})
	}
	return errs
}

func validatePlatforms(cfg *Config) []FieldError {
	var errs []FieldError

	if err := checkURL(cfg.Bluesky.PDSHost); err != "" {
		errs = append(errs, FieldError{Field: "bluesky.pds_host", Message: err})
	}
	if cfg.Mastodon.InstanceURL != "" {
		if err := checkURL(cfg.Mastodon.InstanceURL); err != "" {
			errs = append(errs, FieldError{Field: "mastodon.instance_url", Message: err})
		}
	}
	if err := checkURL(cfg.Threads.BaseURL); err != "" {
		errs = append(errs, FieldError{Field: "threads.base_url", Message: err})
	}

	errs = append(errs, validateHTTP("bluesky", &cfg.Bluesky.HTTPConfig)...)
	errs = append(errs, validateHTTP("mastodon", &cfg.Mastodon.HTTPConfig)...)
	errs = append(errs, validateHTTP("threads", &cfg.Threads.HTTPConfig)...)
	return errs
}

func validateHTTP(prefix string, h *HTTPConfig) []FieldError {
	var errs []FieldError
	if h.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".timeout",
			Message: "timeout must be positive",
		})
	}
	if h.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".max_retries",
			Message: "max retries cannot be negative",
		})
	}
	if h.Pacing < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".pacing",
			Message: "pacing cannot be negative",
		})
	}
	return errs
}

func validateSchedule(cfg *ScheduleConfig) []FieldError {
	var errs []FieldError

	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		errs = append(errs, FieldError{
			Field:   "schedule.cron",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Cron, err),
		})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "schedule.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}
	if cfg.Metrics.PushgatewayURL != "" {
		if err := checkURL(cfg.Metrics.PushgatewayURL); err != "" {
			errs = append(errs, FieldError{Field: "telemetry.metrics.pushgateway_url", Message: err})
		}
	}
	return errs
}

// checkURL returns a message describing why raw is not an absolute http(s)
// URL, or "" when it is.
func checkURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("URL %q has no host", raw)
	}
	return ""
}
