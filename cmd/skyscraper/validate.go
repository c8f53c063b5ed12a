package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"skyscraper-hq/skyscraper/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and show which platforms are configured",
	Long: `Load the configuration file and environment, validate them, and print
the effective retention policy and the platforms a run would process.

Nothing is contacted over the network.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := validateOverrides(cfg); err != nil {
		return err
	}

	now := time.Now()
	policy := policyFrom(cfg, now)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "✓ Configuration valid")
	fmt.Fprintf(out, "\nRetention: %d days (cutoff %s)\n", cfg.Retention.Days, policy.Cutoff.Format(time.RFC3339))
	fmt.Fprintf(out, "  dry run: %t, delete pinned: %t, delete reposts: %t, delete likes: %t\n",
		policy.DryRun, policy.DeletePinned, policy.DeleteReposts, policy.DeleteLikes)
	fmt.Fprintf(out, "  keep file: %s\n", cfg.KeepFile)

	fmt.Fprintln(out, "\nPlatforms:")
	configured := 0
	for _, p := range []struct {
		name    string
		missing []string
	}{
		{"bluesky", cfg.Bluesky.Missing()},
		{"mastodon", cfg.Mastodon.Missing()},
		{"threads", cfg.Threads.Missing()},
	} {
		if len(p.missing) == 0 {
			configured++
			fmt.Fprintf(out, "  ✓ %s\n", p.name)
			continue
		}
		fmt.Fprintf(out, "  - %s (missing %s)\n", p.name, strings.Join(p.missing, ", "))
	}

	// Validate has already parsed the expression.
	if sched, err := cron.ParseStandard(cfg.Schedule.Cron); err == nil {
		fmt.Fprintf(out, "\nSchedule: %q, next run %s\n", cfg.Schedule.Cron, sched.Next(now).Format(time.RFC3339))
	}

	if configured == 0 {
		fmt.Fprintf(out, "\n⚠ No platform has credentials; set %s/%s, %s/%s or %s.\n",
			config.EnvBlueskyIdentifier, config.EnvBlueskyAppPassword,
			config.EnvMastodonInstanceURL, config.EnvMastodonAccessToken,
			config.EnvThreadsAccessToken)
	}
	return nil
}
