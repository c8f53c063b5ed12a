package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"skyscraper-hq/skyscraper/pkg/cli"
	"skyscraper-hq/skyscraper/pkg/config"
	"skyscraper-hq/skyscraper/pkg/orchestrator"
	"skyscraper-hq/skyscraper/pkg/platform"
	"skyscraper-hq/skyscraper/pkg/platform/bluesky"
	"skyscraper-hq/skyscraper/pkg/platform/mastodon"
	"skyscraper-hq/skyscraper/pkg/platform/threads"
	"skyscraper-hq/skyscraper/pkg/retention"
	"skyscraper-hq/skyscraper/pkg/telemetry/logging"
)

// loadConfig loads the config file (if any), the environment, and the
// global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}

	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Telemetry.Logging.Format = logFormat
	}
	return cfg, nil
}

// validateOverrides re-checks the configuration after command flags have
// been applied.
func validateOverrides(cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("flags", err.Error())
	}
	return nil
}

// setupLogger builds the process logger and installs it as the slog
// default.
func setupLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Redact:    cfg.Telemetry.Logging.Redact,
		Writer:    w,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}

// policyFrom builds the run's policy; the cutoff is fixed at now.
func policyFrom(cfg *config.Config, now time.Time) retention.Policy {
	p := retention.PolicyFromRetentionDays(now, cfg.Retention.Days)
	p.DryRun = cfg.Retention.DryRun
	p.DeletePinned = cfg.Retention.DeletePinned
	p.DeleteReposts = cfg.Retention.DeleteReposts
	p.DeleteLikes = cfg.Retention.DeleteLikes
	return p
}

// observedClient is what every concrete platform client offers beyond
// platform.Client.
type observedClient interface {
	platform.Client
	SetObserver(platform.Observer)
	Close()
}

// buildTargets creates a target per platform in a fixed order: Bluesky,
// Mastodon, Threads. Platforms with missing credentials become skipped
// targets. The returned func closes every client.
func buildTargets(cfg *config.Config, obs platform.Observer) ([]orchestrator.Target, func(), error) {
	var (
		targets []orchestrator.Target
		clients []observedClient
	)
	closeAll := func() {
		for _, c := range clients {
			c.Close()
		}
	}

	add := func(name string, missing []string, build func() (observedClient, error)) error {
		if len(missing) > 0 {
			targets = append(targets, orchestrator.Target{Name: name, Missing: missing})
			return nil
		}
		c, err := build()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if obs != nil {
			c.SetObserver(obs)
		}
		clients = append(clients, c)
		targets = append(targets, orchestrator.Target{Name: name, Client: c})
		return nil
	}

	err := add(bluesky.Name, cfg.Bluesky.Missing(), func() (observedClient, error) {
		return bluesky.New(bluesky.Config{
			Identifier:  cfg.Bluesky.Identifier,
			AppPassword: cfg.Bluesky.AppPassword,
			PDSHost:     cfg.Bluesky.PDSHost,
			Timeout:     cfg.Bluesky.Timeout,
			MaxRetries:  cfg.Bluesky.MaxRetries,
			Pacing:      cfg.Bluesky.Pacing,
		})
	})
	if err == nil {
		err = add(mastodon.Name, cfg.Mastodon.Missing(), func() (observedClient, error) {
			return mastodon.New(mastodon.Config{
				InstanceURL: cfg.Mastodon.InstanceURL,
				AccessToken: cfg.Mastodon.AccessToken,
				Timeout:     cfg.Mastodon.Timeout,
				MaxRetries:  cfg.Mastodon.MaxRetries,
				Pacing:      cfg.Mastodon.Pacing,
			})
		})
	}
	if err == nil {
		err = add(threads.Name, cfg.Threads.Missing(), func() (observedClient, error) {
			return threads.New(threads.Config{
				AccessToken: cfg.Threads.AccessToken,
				BaseURL:     cfg.Threads.BaseURL,
				Timeout:     cfg.Threads.Timeout,
				MaxRetries:  cfg.Threads.MaxRetries,
				Pacing:      cfg.Threads.Pacing,
			})
		})
	}
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return targets, closeAll, nil
}

// credentialSettings names the settings behind each platform's credentials.
var credentialSettings = map[string][]string{
	bluesky.Name:  {config.EnvBlueskyIdentifier, config.EnvBlueskyAppPassword},
	mastodon.Name: {config.EnvMastodonAccessToken},
	threads.Name:  {config.EnvThreadsAccessToken},
}

// reportRejectedCredentials logs the settings to check for every platform
// that rejected its credentials.
func reportRejectedCredentials(logger *slog.Logger, report *orchestrator.Report) {
	for _, p := range report.Platforms {
		if p.Status != orchestrator.StatusFailed || !platform.IsAuthError(p.Err()) {
			continue
		}
		logger.Error("credentials rejected, check the configured values",
			"platform", p.Name,
			"settings", strings.Join(credentialSettings[p.Name], ", "),
		)
	}
}
