package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Retention.Days != DefaultRetentionDays {
		t.Errorf("expected retention days %d, got %d", DefaultRetentionDays, cfg.Retention.Days)
	}
	if cfg.Retention.DryRun {
		t.Error("expected dry run to default to false")
	}
	if cfg.Retention.DeletePinned {
		t.Error("expected delete pinned to default to false")
	}
	if !cfg.Retention.DeleteReposts {
		t.Error("expected delete reposts to default to true")
	}
	if !cfg.Retention.DeleteLikes {
		t.Error("expected delete likes to default to true")
	}
	if cfg.KeepFile != DefaultKeepFile {
		t.Errorf("expected keep file %q, got %q", DefaultKeepFile, cfg.KeepFile)
	}
	if cfg.Bluesky.PDSHost != DefaultPDSHost {
		t.Errorf("expected PDS host %q, got %q", DefaultPDSHost, cfg.Bluesky.PDSHost)
	}
	if cfg.Schedule.Cron != DefaultScheduleCron {
		t.Errorf("expected cron %q, got %q", DefaultScheduleCron, cfg.Schedule.Cron)
	}
	if !cfg.Schedule.WatchKeepFile {
		t.Error("expected keep file watching by default")
	}
	if !cfg.Telemetry.Logging.Redact {
		t.Error("expected log redaction by default")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default configuration does not validate: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input Config
		check func(*testing.T, *Config)
	}{
		{
			name: "empty config gets all defaults",
			check: func(t *testing.T, cfg *Config) {
				for name, h := range map[string]HTTPConfig{
					"bluesky":  cfg.Bluesky.HTTPConfig,
					"mastodon": cfg.Mastodon.HTTPConfig,
					"threads":  cfg.Threads.HTTPConfig,
				} {
					if h.Timeout != DefaultHTTPTimeout {
						t.Errorf("%s: expected timeout %v, got %v", name, DefaultHTTPTimeout, h.Timeout)
					}
					if h.MaxRetries != DefaultMaxRetries {
						t.Errorf("%s: expected max retries %d, got %d", name, DefaultMaxRetries, h.MaxRetries)
					}
					if h.Pacing != 0 {
						t.Errorf("%s: expected pacing left to the client, got %v", name, h.Pacing)
					}
				}
				if cfg.Threads.BaseURL != DefaultThreadsBaseURL {
					t.Errorf("expected threads base URL %q, got %q", DefaultThreadsBaseURL, cfg.Threads.BaseURL)
				}
				if cfg.Telemetry.Metrics.Path != DefaultMetricsPath {
					t.Errorf("expected metrics path %q, got %q", DefaultMetricsPath, cfg.Telemetry.Metrics.Path)
				}
				if cfg.Telemetry.Metrics.PushJob != DefaultNamespace {
					t.Errorf("expected push job %q, got %q", DefaultNamespace, cfg.Telemetry.Metrics.PushJob)
				}
			},
		},
		{
			name: "existing values are preserved",
			input: Config{
				Retention: RetentionConfig{Days: 30},
				KeepFile:  "/etc/keep.txt",
				Mastodon: MastodonConfig{
					HTTPConfig: HTTPConfig{Timeout: 5 * time.Second, MaxRetries: 1, Pacing: time.Second},
				},
				Schedule: ScheduleConfig{Cron: "@hourly"},
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Retention.Days != 30 {
					t.Errorf("expected retention days 30, got %d", cfg.Retention.Days)
				}
				if cfg.KeepFile != "/etc/keep.txt" {
					t.Errorf("expected keep file preserved, got %q", cfg.KeepFile)
				}
				if cfg.Mastodon.Timeout != 5*time.Second || cfg.Mastodon.MaxRetries != 1 || cfg.Mastodon.Pacing != time.Second {
					t.Errorf("mastodon HTTP settings not preserved: %+v", cfg.Mastodon.HTTPConfig)
				}
				if cfg.Schedule.Cron != "@hourly" {
					t.Errorf("expected cron preserved, got %q", cfg.Schedule.Cron)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			ApplyDefaults(&cfg)
			tt.check(t, &cfg)

			// Idempotent
			again := cfg
			ApplyDefaults(&again)
			if again.Retention.Days != cfg.Retention.Days || again.Schedule.Cron != cfg.Schedule.Cron {
				t.Error("ApplyDefaults is not idempotent")
			}
		})
	}
}

func TestMissing(t *testing.T) {
	if got := (BlueskyConfig{}).Missing(); len(got) != 2 || got[0] != EnvBlueskyIdentifier || got[1] != EnvBlueskyAppPassword {
		t.Errorf("bluesky Missing() = %v", got)
	}
	if got := (BlueskyConfig{Identifier: "a"}).Missing(); len(got) != 1 || got[0] != EnvBlueskyAppPassword {
		t.Errorf("bluesky partial Missing() = %v", got)
	}
	if got := (MastodonConfig{InstanceURL: "https://x", AccessToken: "t"}).Missing(); len(got) != 0 {
		t.Errorf("mastodon Missing() = %v, want none", got)
	}
	if got := (ThreadsConfig{}).Missing(); len(got) != 1 || got[0] != EnvThreadsAccessToken {
		t.Errorf("threads Missing() = %v", got)
	}
}
