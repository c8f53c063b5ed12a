// Package scheduler runs cleanup jobs on a cron schedule for daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Config controls when the job runs.
type Config struct {
	// Schedule is a standard five-field cron expression or descriptor.
	// Empty disables the scheduler.
	Schedule string

	// RunOnStart runs the job once as soon as the scheduler starts.
	RunOnStart bool

	// Location is the time zone for the schedule. Nil means time.Local.
	Location *time.Location
}

// Scheduler runs a Job at scheduled times. Runs never overlap: a tick that
// fires while the previous run is still in progress is skipped.
type Scheduler struct {
	config Config
	fn     Job
	cron   *cron.Cron
	job    cron.Job
	mu     sync.Mutex
	logger *slog.Logger

	entry   cron.EntryID
	running bool
	ctx     context.Context
	runs    atomic.Int64
}

// New creates a scheduler for fn. A nil logger uses slog.Default().
func New(cfg Config, fn Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{logger: logger}

	s := &Scheduler{
		config: cfg,
		fn:     fn,
		logger: logger,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
		),
	}
	s.job = cron.NewChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	).Then(cron.FuncJob(s.run))
	return s
}

// Start begins scheduled execution. ctx is handed to every run, and
// cancelling it stops the scheduler. An empty schedule is not an error; the
// scheduler simply does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if s.config.Schedule == "" {
		s.logger.Info("no schedule configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.Schedule, err)
	}
	id, err := s.cron.AddJob(s.config.Schedule, s.job)
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}
	s.entry = id
	if s.config.RunOnStart {
		// Goes through cron so Stop waits for it like any scheduled run.
		s.cron.Schedule(&onceSchedule{}, s.job)
	}

	s.ctx = ctx
	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started",
		"schedule", s.config.Schedule,
		"next_run", s.cron.Entry(id).Next.Format(time.RFC3339),
		"run_on_start", s.config.RunOnStart,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Trigger runs the job now in the calling goroutine, unless a run is
// already in progress, in which case it returns immediately.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return
	}
	s.job.Run()
}

func (s *Scheduler) run() {
	n := s.runs.Add(1)
	logger := s.logger.With("run", n)

	if err := s.ctx.Err(); err != nil {
		logger.Debug("context done, not starting run")
		return
	}

	started := time.Now()
	logger.Info("starting scheduled run")
	if err := s.fn(s.ctx); err != nil {
		logger.Error("scheduled run failed", "error", err, "duration", time.Since(started))
		return
	}
	logger.Info("scheduled run completed", "duration", time.Since(started))
}

// Stop stops the scheduler and waits for a running job to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		done := s.cron.Stop()
		<-done.Done()
		s.running = false
		s.logger.Info("scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run time, or nil when nothing is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

// Runs is the number of runs started so far, skipped ticks excluded.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

// onceSchedule fires at the first time cron asks for it and never again.
type onceSchedule struct {
	fired bool
}

func (o *onceSchedule) Next(t time.Time) time.Time {
	if o.fired {
		return time.Time{}
	}
	o.fired = true
	return t
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.logger.Warn("previous run still in progress, skipping tick")
		return
	}
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
