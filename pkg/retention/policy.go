package retention

import (
	"fmt"
	"time"
)

// Policy decides which records qualify for deletion. It is immutable for
// the duration of a run.
type Policy struct {
	// Cutoff is the instant below which content qualifies for deletion.
	Cutoff time.Time

	// DryRun counts what would be deleted without deleting anything.
	DryRun bool

	// DeletePinned allows the pinned record to be deleted like any other.
	DeletePinned bool

	// DeleteReposts allows reposts/reblogs to be deleted.
	DeleteReposts bool

	// DeleteLikes enables the likes/favourites pass.
	DeleteLikes bool
}

// PolicyFromRetentionDays builds a policy whose cutoff is days before now.
func PolicyFromRetentionDays(now time.Time, days int) Policy {
	return Policy{
		Cutoff:        now.UTC().AddDate(0, 0, -days),
		DeleteReposts: true,
		DeleteLikes:   true,
	}
}

// Outcome holds the counters for one pass over one collection.
// It is purely observational.
type Outcome struct {
	// Scanned is the number of records examined, including ones skipped
	// for a missing or malformed timestamp.
	Scanned int64 `json:"scanned"`

	// Deleted counts successful deletions, or would-be deletions in dry-run.
	Deleted int64 `json:"deleted"`

	SkippedPinned    int64 `json:"skipped_pinned"`
	SkippedProtected int64 `json:"skipped_protected"`
	SkippedRepost    int64 `json:"skipped_reposts"`

	// Failed counts deletions that failed for reasons other than rate limiting.
	Failed int64 `json:"failed"`

	// RateLimited is set when the pass stopped early because the platform
	// signalled rate limiting. The backlog is left for the next run.
	RateLimited bool `json:"rate_limited"`
}

// Add accumulates other into o.
func (o *Outcome) Add(other Outcome) {
	o.Scanned += other.Scanned
	o.Deleted += other.Deleted
	o.SkippedPinned += other.SkippedPinned
	o.SkippedProtected += other.SkippedProtected
	o.SkippedRepost += other.SkippedRepost
	o.Failed += other.Failed
	o.RateLimited = o.RateLimited || other.RateLimited
}

// String renders the counters for humans.
func (o Outcome) String() string {
	s := fmt.Sprintf("deleted %d, skipped %d pinned, skipped %d kept, skipped %d reposts",
		o.Deleted, o.SkippedPinned, o.SkippedProtected, o.SkippedRepost)
	if o.Failed > 0 {
		s += fmt.Sprintf(", %d failed", o.Failed)
	}
	if o.RateLimited {
		s += " (rate limited)"
	}
	return s
}
