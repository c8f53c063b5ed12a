// Package config loads Skyscraper's configuration.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("skyscraper.yaml")
//
//  2. From an optional YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides(path)
//
// With an empty path the environment alone drives the configuration, which
// is how container deployments usually run the tool.
//
// # Environment Variables
//
// Retention and credentials use unprefixed names: RETENTION_DAYS, DRY_RUN,
// DELETE_PINNED, DELETE_REPOSTS, DELETE_LIKES, KEEP_FILE,
// BLUESKY_IDENTIFIER, BLUESKY_APP_PASSWORD, BLUESKY_PDS_HOST,
// MASTODON_INSTANCE_URL, MASTODON_ACCESS_TOKEN and THREADS_ACCESS_TOKEN.
// Flags are enabled by "true" or "1"; any other non-empty value disables
// them. Ambient settings use the SKYSCRAPER_ prefix (SKYSCRAPER_LOG_LEVEL,
// SKYSCRAPER_SCHEDULE, SKYSCRAPER_PUSHGATEWAY_URL, ...).
//
// # Configuration Precedence
//
// Later sources override earlier ones:
//
//  1. Built-in defaults (Default)
//  2. YAML file
//  3. Environment variables
//  4. Command-line flags (applied by the CLI)
//
// # Validation
//
// Validate collects every problem into a ValidationError of FieldErrors.
// Missing platform credentials are not errors: that platform is skipped
// when a run starts.
//
// # Example Configuration
//
//	retention:
//	  days: 90
//	  dry_run: true
//	  delete_likes: false
//	keep_file: /etc/skyscraper/keep.txt
//	bluesky:
//	  identifier: alice.bsky.social
//	  app_password: xxxx-xxxx-xxxx-xxxx
//	mastodon:
//	  instance_url: https://hachyderm.io
//	  access_token: ...
//	  pacing: 500ms
//	schedule:
//	  cron: "30 4 * * *"
//	  run_on_start: true
//	telemetry:
//	  logging:
//	    level: debug
//	    format: json
//	  metrics:
//	    listen_address: ":9464"
package config
