// Package orchestrator runs the retention engine across every configured
// platform, one platform at a time, and collects a Report.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"skyscraper-hq/skyscraper/pkg/platform"
	"skyscraper-hq/skyscraper/pkg/retention"
)

// Target is a platform slot. A nil Client means the platform's credentials
// are not configured; Missing names the absent settings.
type Target struct {
	Name    string
	Client  platform.Client
	Missing []string
}

// Observer receives pass and run level results.
type Observer interface {
	ObservePass(platformName string, kind platform.Kind, outcome retention.Outcome, err error, duration time.Duration)
	ObserveRun(report *Report)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers an observer; it may be given more than once. An
// observer that also implements retention.Observer receives per-record
// decisions.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithEngineOptions passes options through to every retention.Engine.
func WithEngineOptions(opts ...retention.Option) Option {
	return func(o *Orchestrator) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// Orchestrator sequences authentication and collection passes per platform.
type Orchestrator struct {
	policy     retention.Policy
	keep       retention.Protector
	logger     *slog.Logger
	observers  []Observer
	engineOpts []retention.Option
	now        func() time.Time
	newRunID   func() string
}

// New creates an orchestrator. keep is the keep-list snapshot for the run
// and may be nil.
func New(policy retention.Policy, keep retention.Protector, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		policy:   policy,
		keep:     keep,
		logger:   slog.Default(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes targets strictly in order. A failure on one platform is
// recorded and the next platform still runs. Run only returns early when
// ctx is cancelled; the platforms not reached are then absent from the
// report.
func (o *Orchestrator) Run(ctx context.Context, targets []Target) *Report {
	report := &Report{
		RunID:     o.newRunID(),
		StartedAt: o.now(),
		Cutoff:    o.policy.Cutoff,
		DryRun:    o.policy.DryRun,
	}
	base := o.logger.With("run_id", report.RunID)
	logger := base.With("component", "orchestrator")

	engineOpts := append([]retention.Option{retention.WithLogger(base)}, o.engineOpts...)
	var records recordObservers
	for _, obs := range o.observers {
		if ro, ok := obs.(retention.Observer); ok {
			records = append(records, ro)
		}
	}
	if len(records) > 0 {
		engineOpts = append(engineOpts, retention.WithObserver(records))
	}
	engine := retention.NewEngine(o.policy, o.keep, engineOpts...)

	keepEntries := 0
	if l, ok := o.keep.(interface{ Len() int }); ok {
		keepEntries = l.Len()
	}
	logger.Info("starting cleanup run",
		"cutoff", o.policy.Cutoff.Format(time.RFC3339),
		"dry_run", o.policy.DryRun,
		"delete_pinned", o.policy.DeletePinned,
		"delete_reposts", o.policy.DeleteReposts,
		"delete_likes", o.policy.DeleteLikes,
		"keep_entries", keepEntries,
	)

	for _, target := range targets {
		if ctx.Err() != nil {
			logger.Warn("run cancelled, remaining platforms not processed")
			break
		}
		report.Platforms = append(report.Platforms, o.runPlatform(ctx, logger, engine, target))
	}

	report.FinishedAt = o.now()
	for _, obs := range o.observers {
		obs.ObserveRun(report)
	}

	totals := report.Totals()
	logger.Info("cleanup run finished",
		"deleted", totals.Deleted,
		"failed_platforms", report.Count(StatusFailed),
		"duration", report.Duration(),
	)
	return report
}

func (o *Orchestrator) runPlatform(ctx context.Context, logger *slog.Logger, engine *retention.Engine, target Target) PlatformResult {
	started := o.now()
	result := PlatformResult{Name: target.Name, Missing: target.Missing}
	logger = logger.With("platform", target.Name)

	if target.Client == nil {
		logger.Warn("skipping platform, credentials not configured", "missing", target.Missing)
		result.Status = StatusSkipped
		return result
	}

	fail := func(err error) PlatformResult {
		logger.Error("platform failed", "error", err)
		result.Status = StatusFailed
		result.Error = err.Error()
		result.err = err
		result.Duration = o.now().Sub(started)
		return result
	}

	client := target.Client
	sess, err := client.Authenticate(ctx)
	if err != nil {
		return fail(fmt.Errorf("authenticate: %w", err))
	}
	result.Account = sess.Handle
	if result.Account == "" {
		result.Account = sess.AccountID
	}

	var pacing time.Duration
	if p, ok := client.(platform.Pacer); ok {
		pacing = p.Pacing()
	}

	for _, c := range o.collections(client, sess, pacing) {
		if c.Kind == platform.KindPosts && !o.policy.DeletePinned {
			if lookup, ok := client.(platform.PinnedLookup); ok {
				pinned, err := lookup.PinnedID(ctx, sess)
				if err != nil {
					// Without the pin any old post could be it. Reposts and
					// likes do not depend on it.
					logger.Warn("pinned lookup failed, skipping posts pass", "error", err)
					result.Passes = append(result.Passes, PassResult{Kind: c.Kind, Skipped: "pinned lookup failed: " + err.Error()})
					continue
				}
				if pinned != "" {
					logger.Debug("found pinned record", "pinned", pinned)
				}
				c.PinnedID = pinned
			}
		}

		passStarted := o.now()
		outcome, err := engine.Run(ctx, c)
		pass := PassResult{Kind: c.Kind, Outcome: outcome, Duration: o.now().Sub(passStarted)}
		for _, obs := range o.observers {
			obs.ObservePass(target.Name, c.Kind, outcome, err, pass.Duration)
		}
		if err != nil {
			pass.Error = err.Error()
			result.Passes = append(result.Passes, pass)
			return fail(err)
		}
		result.Passes = append(result.Passes, pass)

		logger.Info("pass complete",
			"collection", string(c.Kind),
			"scanned", outcome.Scanned,
			"deleted", outcome.Deleted,
			"skipped_pinned", outcome.SkippedPinned,
			"skipped_protected", outcome.SkippedProtected,
			"skipped_reposts", outcome.SkippedRepost,
			"failed", outcome.Failed,
			"rate_limited", outcome.RateLimited,
		)
	}

	result.Status = StatusOK
	result.Duration = o.now().Sub(started)
	return result
}

// collections lists the passes for a client in order: posts, then
// reposts, then likes, gated by the policy and the client's capabilities.
func (o *Orchestrator) collections(client platform.Client, sess *platform.Session, pacing time.Duration) []retention.Collection {
	name := client.Name()
	fromClient := func(kind platform.Kind, label string) retention.Collection {
		return retention.Collection{
			Platform: name,
			Kind:     kind,
			Label:    label,
			List: func(ctx context.Context, cursor string) (*platform.Page, error) {
				return client.ListPage(ctx, sess, kind, cursor)
			},
			Delete: func(ctx context.Context, rec platform.Record) error {
				return client.DeleteRecord(ctx, sess, kind, rec)
			},
			Pacing: pacing,
		}
	}

	out := []retention.Collection{fromClient(platform.KindPosts, "post")}

	if o.policy.DeleteReposts && platform.Serves(client, platform.KindReposts) {
		out = append(out, fromClient(platform.KindReposts, "repost"))
	}

	if o.policy.DeleteLikes {
		if likes, ok := client.(platform.LikesLister); ok {
			out = append(out, retention.Collection{
				Platform: name,
				Kind:     platform.KindLikes,
				Label:    "favourite",
				List: func(ctx context.Context, cursor string) (*platform.Page, error) {
					return likes.ListLikesPage(ctx, sess, cursor)
				},
				Delete: func(ctx context.Context, rec platform.Record) error {
					return likes.Unfavourite(ctx, sess, rec)
				},
				Pacing: pacing,
			})
		} else if platform.Serves(client, platform.KindLikes) {
			out = append(out, fromClient(platform.KindLikes, "like"))
		}
	}

	return out
}

// recordObservers fans record decisions out to several observers.
type recordObservers []retention.Observer

func (r recordObservers) ObserveRecord(platformName string, kind platform.Kind, decision retention.Decision) {
	for _, obs := range r {
		obs.ObserveRecord(platformName, kind, decision)
	}
}
