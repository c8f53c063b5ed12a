package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"skyscraper-hq/skyscraper/pkg/cli"
	"skyscraper-hq/skyscraper/pkg/keeplist"
	"skyscraper-hq/skyscraper/pkg/orchestrator"
	"skyscraper-hq/skyscraper/pkg/telemetry/metrics"
)

// pushTimeout bounds the Pushgateway push after a run.
const pushTimeout = 10 * time.Second

var runFlags struct {
	dryRun        bool
	retentionDays int
	output        string
	progress      bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one cleanup pass over every configured platform",
	Long: `Run one cleanup pass over every configured platform, in order Bluesky,
Mastodon, Threads, then print a report.

The exit status is 1 when any platform failed (authentication or a page
fetch). Skipped platforms and rate-limited passes are not failures; the
next run picks up where this one stopped. If the pinned post cannot be
looked up, that platform's posts pass is skipped and its reposts and likes
are still processed.

Examples:
  # Preview with a 90 day window
  skyscraper run --dry-run --retention-days 90

  # Machine-readable report
  skyscraper run --output json

  # Live per-pass counters on stderr
  skyscraper run --progress`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "log what would be deleted without deleting (overrides DRY_RUN)")
	runCmd.Flags().IntVar(&runFlags.retentionDays, "retention-days", 0, "retention window in days (overrides RETENTION_DAYS)")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "text", "report format: text, json, csv")
	runCmd.Flags().BoolVar(&runFlags.progress, "progress", false, "show live progress on stderr")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(runFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.Retention.DryRun = runFlags.dryRun
	}
	if cmd.Flags().Changed("retention-days") {
		cfg.Retention.Days = runFlags.retentionDays
	}
	if err := validateOverrides(cfg); err != nil {
		return err
	}

	logger, err := setupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := cli.SetupSignalHandler(cmd.Context(), logger)
	defer cancel()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	targets, closeAll, err := buildTargets(cfg, collector)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer closeAll()

	keep := keeplist.Load(cfg.KeepFile, logger)

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithObserver(collector),
	}
	if runFlags.progress {
		opts = append(opts, orchestrator.WithObserver(cli.NewProgress(cmd.ErrOrStderr(), 25)))
	}
	report := orchestrator.New(policyFrom(cfg, time.Now()), keep, opts...).Run(ctx, targets)
	reportRejectedCredentials(logger, report)

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report); err != nil {
		return cli.NewCommandError("run", err)
	}

	if collector.Pushing() {
		// The run context may already be cancelled; the push still goes out.
		pushCtx, pushCancel := context.WithTimeout(context.Background(), pushTimeout)
		defer pushCancel()
		if err := collector.Push(pushCtx); err != nil {
			logger.Warn("failed to push metrics", "error", err)
		}
	}

	return runResult(ctx, report)
}

// runResult turns a finished report into the command's error.
func runResult(ctx context.Context, report *orchestrator.Report) error {
	if ctx.Err() != nil {
		return &cli.ExitError{Code: 130, Err: fmt.Errorf("run interrupted")}
	}
	if report.Failed() {
		return &cli.ExitError{Code: 1, Err: fmt.Errorf("%d platform(s) failed", report.Count(orchestrator.StatusFailed))}
	}
	return nil
}
