package retention

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"skyscraper-hq/skyscraper/pkg/platform"
)

// Decision is the per-record result of evaluating a record against a Policy.
type Decision string

const (
	DecisionDeleted          Decision = "deleted"
	DecisionWouldDelete      Decision = "would_delete"
	DecisionRecent           Decision = "recent"
	DecisionInvalid          Decision = "invalid_timestamp"
	DecisionSkippedRepost    Decision = "skipped_repost"
	DecisionSkippedPinned    Decision = "skipped_pinned"
	DecisionSkippedProtected Decision = "skipped_protected"
	DecisionFailed           Decision = "failed"
	DecisionRateLimited      Decision = "rate_limited"
)

// Protector answers whether a record has been marked as permanently kept.
// *keeplist.Registry satisfies it.
type Protector interface {
	IsProtected(platform, id string) bool
}

// Observer receives one call per evaluated record.
type Observer interface {
	ObserveRecord(platform string, kind platform.Kind, decision Decision)
}

// Collection describes one deletable content kind on one platform.
type Collection struct {
	Platform string
	Kind     platform.Kind

	// Label names records in log lines ("post", "like", "favourite").
	// Derived from Kind when empty.
	Label string

	// List returns the page at cursor. An empty cursor means the first page.
	List func(ctx context.Context, cursor string) (*platform.Page, error)

	// Delete removes a single record.
	Delete func(ctx context.Context, rec platform.Record) error

	// PinnedID identifies the pinned record, by ID or URI. Empty when the
	// platform has nothing pinned or the lookup was not needed.
	PinnedID string

	// Pacing is the pause after each live delete attempt.
	Pacing time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-record decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers an observer for per-record decisions.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithSleep replaces the pacing sleep. Tests use it to avoid real delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// Engine walks collections and applies a Policy to every record.
// An Engine holds no per-pass state and may be reused.
type Engine struct {
	policy   Policy
	keep     Protector
	logger   *slog.Logger
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an engine for the given policy. keep may be nil.
func NewEngine(policy Policy, keep Protector, opts ...Option) *Engine {
	e := &Engine{
		policy: policy,
		keep:   keep,
		logger: slog.Default(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "retention")
	return e
}

// Run pages through the collection until it is exhausted or the platform
// signals rate limiting, deleting every qualifying record.
//
// A rate-limited pass returns normally with Outcome.RateLimited set.
// A failed page fetch returns a *FetchError and a zero Outcome.
func (e *Engine) Run(ctx context.Context, c Collection) (Outcome, error) {
	var out Outcome
	logger := e.logger.With("platform", c.Platform, "collection", string(c.Kind))

	cursor := ""
	seen := make(map[string]struct{})

	for pageNum := 1; ; pageNum++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		page, err := c.List(ctx, cursor)
		if err != nil {
			return Outcome{}, &FetchError{Platform: c.Platform, Kind: c.Kind, Page: pageNum, Cause: err}
		}
		if page == nil || len(page.Records) == 0 {
			break
		}

		logger.Debug("fetched page", "page", pageNum, "records", len(page.Records))

		for _, rec := range page.Records {
			stop, err := e.evaluate(ctx, logger, c, rec, &out)
			if err != nil {
				return Outcome{}, err
			}
			if stop {
				out.RateLimited = true
				return out, nil
			}
		}

		if page.Cursor == "" {
			break
		}
		if _, dup := seen[page.Cursor]; dup || page.Cursor == cursor {
			logger.Warn("platform returned a cursor already visited, stopping pass", "cursor", page.Cursor)
			break
		}
		seen[page.Cursor] = struct{}{}
		cursor = page.Cursor
	}

	return out, nil
}

// evaluate applies the policy to a single record. It returns stop=true
// when the platform rate limited a deletion.
func (e *Engine) evaluate(ctx context.Context, logger *slog.Logger, c Collection, rec platform.Record, out *Outcome) (bool, error) {
	out.Scanned++
	label := c.Label
	if label == "" || rec.Repost {
		label = recordLabel(c.Kind, rec)
	}

	ts, err := ParseTimestamp(rec.CreatedAt)
	if err != nil {
		logger.Warn("skipping record with unusable timestamp", "kind", label, "id", rec.ID, "created_at", rec.CreatedAt)
		e.observe(c, DecisionInvalid)
		return false, nil
	}

	if !ts.Before(e.policy.Cutoff) {
		e.observe(c, DecisionRecent)
		return false, nil
	}

	if rec.Repost && !e.policy.DeleteReposts {
		logger.Debug("skipping repost", "kind", label, "id", rec.ID)
		out.SkippedRepost++
		e.observe(c, DecisionSkippedRepost)
		return false, nil
	}

	if !e.policy.DeletePinned && e.isPinned(c, rec) {
		logger.Warn("skipping pinned record, add keep_entry to your keep file to keep it once unpinned",
			"kind", label, "id", rec.ID, "created_at", rec.CreatedAt, "keep_entry", c.Platform+":"+rec.ID)
		out.SkippedPinned++
		e.observe(c, DecisionSkippedPinned)
		return false, nil
	}

	if e.isProtected(c.Platform, rec) {
		logger.Info("skipping kept record", "kind", label, "id", rec.ID)
		out.SkippedProtected++
		e.observe(c, DecisionSkippedProtected)
		return false, nil
	}

	if e.policy.DryRun {
		logger.Info("[DRY RUN] would delete", "kind", label, "id", rec.ID, "created_at", rec.CreatedAt)
		out.Deleted++
		e.observe(c, DecisionWouldDelete)
		return false, nil
	}

	if err := c.Delete(ctx, rec); err != nil {
		derr := &DeleteError{Platform: c.Platform, Kind: c.Kind, ID: rec.ID, Cause: err}
		if derr.RateLimited() {
			logger.Warn("rate limited, stopping pass; remaining records will be handled next run",
				"kind", label, "id", rec.ID, "error", err)
			e.observe(c, DecisionRateLimited)
			return true, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		logger.Warn("failed to delete record", "kind", label, "id", rec.ID, "error", derr)
		out.Failed++
		e.observe(c, DecisionFailed)
	} else {
		logger.Info("deleted", "kind", label, "id", rec.ID, "created_at", rec.CreatedAt)
		out.Deleted++
		e.observe(c, DecisionDeleted)
	}

	if c.Pacing > 0 {
		if err := e.sleep(ctx, c.Pacing); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (e *Engine) isPinned(c Collection, rec platform.Record) bool {
	if rec.Pinned {
		return true
	}
	if c.PinnedID == "" {
		return false
	}
	return c.PinnedID == rec.ID || (rec.URI != "" && c.PinnedID == rec.URI)
}

func (e *Engine) isProtected(platformName string, rec platform.Record) bool {
	if e.keep == nil {
		return false
	}
	if e.keep.IsProtected(platformName, rec.ID) {
		return true
	}
	return rec.URI != "" && e.keep.IsProtected(platformName, rec.URI)
}

func (e *Engine) observe(c Collection, d Decision) {
	if e.observer != nil {
		e.observer.ObserveRecord(c.Platform, c.Kind, d)
	}
}

// recordLabel names a record for log lines.
func recordLabel(kind platform.Kind, rec platform.Record) string {
	switch {
	case kind == platform.KindLikes:
		return "like"
	case kind == platform.KindReposts || rec.Repost:
		return "repost"
	default:
		return "post"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
