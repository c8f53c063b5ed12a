package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"skyscraper-hq/skyscraper/pkg/cli"
	"skyscraper-hq/skyscraper/pkg/keeplist"
	"skyscraper-hq/skyscraper/pkg/orchestrator"
	"skyscraper-hq/skyscraper/pkg/scheduler"
	"skyscraper-hq/skyscraper/pkg/telemetry/metrics"
)

var scheduleFlags struct {
	cron          string
	runOnStart    bool
	metricsListen string
	dryRun        bool
	retentionDays int
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run cleanups on a cron schedule until stopped",
	Long: `Run as a daemon, starting a cleanup run on a cron schedule
(default "0 3 * * *"). Runs never overlap: a tick that fires while a run is
still in progress is skipped.

The keep file is watched and reloaded between runs. Each run uses the
keep list as it was when the run started.

With a metrics listen address, Prometheus metrics and a /healthz endpoint
are served over HTTP. SIGHUP starts a run immediately unless one is in
progress. SIGINT or SIGTERM lets the in-flight request finish, then exits.

Examples:
  skyscraper schedule --cron "30 4 * * *" --run-on-start
  skyscraper schedule --metrics-listen :9464`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleFlags.cron, "cron", "", "cron expression (overrides schedule.cron)")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.runOnStart, "run-on-start", false, "run once immediately at startup")
	scheduleCmd.Flags().StringVar(&scheduleFlags.metricsListen, "metrics-listen", "", "serve metrics on this address (overrides telemetry.metrics.listen_address)")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.dryRun, "dry-run", false, "log what would be deleted without deleting (overrides DRY_RUN)")
	scheduleCmd.Flags().IntVar(&scheduleFlags.retentionDays, "retention-days", 0, "retention window in days (overrides RETENTION_DAYS)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("cron") {
		cfg.Schedule.Cron = scheduleFlags.cron
	}
	if flags.Changed("run-on-start") {
		cfg.Schedule.RunOnStart = scheduleFlags.runOnStart
	}
	if flags.Changed("metrics-listen") {
		cfg.Telemetry.Metrics.ListenAddress = scheduleFlags.metricsListen
	}
	if flags.Changed("dry-run") {
		cfg.Retention.DryRun = scheduleFlags.dryRun
	}
	if flags.Changed("retention-days") {
		cfg.Retention.Days = scheduleFlags.retentionDays
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
		return cli.NewCommandError("schedule", err)
	}
	defer closeAll()

	keepSnapshot := func() *keeplist.Registry {
		return keeplist.Load(cfg.KeepFile, logger)
	}
	if cfg.Schedule.WatchKeepFile {
		watcher := keeplist.NewWatcher(cfg.KeepFile, 0, logger)
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Warn("keep file watcher stopped, keeping the last loaded list", "error", err)
			}
		}()
		keepSnapshot = watcher.Current
	}

	job := func(ctx context.Context) error {
		orch := orchestrator.New(policyFrom(cfg, time.Now()), keepSnapshot(),
			orchestrator.WithLogger(logger),
			orchestrator.WithObserver(collector),
		)
		report := orch.Run(ctx, targets)
		reportRejectedCredentials(logger, report)
		if report.Failed() {
			return fmt.Errorf("%d platform(s) failed", report.Count(orchestrator.StatusFailed))
		}
		return nil
	}

	sched := scheduler.New(scheduler.Config{
		Schedule:   cfg.Schedule.Cron,
		RunOnStart: cfg.Schedule.RunOnStart,
	}, job, logger)

	var srv *http.Server
	if addr := cfg.Telemetry.Metrics.ListenAddress; addr != "" && cfg.Telemetry.Metrics.Enabled {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return cli.NewCommandError("schedule", fmt.Errorf("metrics listener: %w", err))
		}
		srv = newMetricsServer(cfg.Telemetry.Metrics.Path, collector, sched)
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		logger.Info("serving metrics", "address", ln.Addr().String(), "path", cfg.Telemetry.Metrics.Path)
	}

	if err := sched.Start(ctx); err != nil {
		return cli.NewCommandError("schedule", err)
	}

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)
	triggered := make(chan struct{})
	go func() {
		defer close(triggered)
		triggerOnSignal(ctx, hangup, sched, logger)
	}()

	<-ctx.Done()
	logger.Info("shutting down, waiting for in-flight run", "timeout", cfg.Schedule.ShutdownTimeout)

	stopped := make(chan struct{})
	go func() {
		sched.Stop()
		<-triggered
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(cfg.Schedule.ShutdownTimeout):
		logger.Warn("in-flight run did not finish before the shutdown timeout")
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}
	return nil
}

// triggerOnSignal starts a run for every signal received until ctx is done.
// A signal that arrives while a run is in progress is ignored.
func triggerOnSignal(ctx context.Context, sigs <-chan os.Signal, sched interface{ Trigger() }, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			logger.Info("starting a run on signal", "signal", sig.String())
			sched.Trigger()
		}
	}
}
