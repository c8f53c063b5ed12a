package orchestrator

import (
	"time"

	"skyscraper-hq/skyscraper/pkg/platform"
	"skyscraper-hq/skyscraper/pkg/retention"
)

// Status is the overall result of one platform within a run.
type Status string

const (
	// StatusOK means every attempted pass completed. Passes may still have
	// been cut short by rate limiting.
	StatusOK Status = "ok"

	// StatusSkipped means the platform was not configured.
	StatusSkipped Status = "skipped"

	// StatusFailed means authentication or a page fetch failed and the
	// remaining passes were abandoned.
	StatusFailed Status = "failed"
)

// PassResult is the outcome of one collection pass.
type PassResult struct {
	Kind     platform.Kind     `json:"kind"`
	Outcome  retention.Outcome `json:"outcome"`
	Duration time.Duration     `json:"duration_ns"`
	Error    string            `json:"error,omitempty"`

	// Skipped is set when the pass was not run, with the reason.
	Skipped string `json:"skipped,omitempty"`
}

// PlatformResult summarizes one platform.
type PlatformResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Account  string        `json:"account,omitempty"`
	Missing  []string      `json:"missing,omitempty"`
	Passes   []PassResult  `json:"passes,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`

	err error
}

// Err returns the error that failed the platform, if any.
func (p PlatformResult) Err() error {
	return p.err
}

// Totals sums the outcomes of every pass on the platform.
func (p PlatformResult) Totals() retention.Outcome {
	var total retention.Outcome
	for _, pass := range p.Passes {
		total.Add(pass.Outcome)
	}
	return total
}

// Report is the result of one orchestrator run.
type Report struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Cutoff     time.Time        `json:"cutoff"`
	DryRun     bool             `json:"dry_run"`
	Platforms  []PlatformResult `json:"platforms"`
}

// Failed reports whether any platform failed. Skipped platforms and
// rate-limited passes do not count as failures.
func (r *Report) Failed() bool {
	for _, p := range r.Platforms {
		if p.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Count returns the number of platforms with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, p := range r.Platforms {
		if p.Status == s {
			n++
		}
	}
	return n
}

// Totals sums the outcomes across all platforms.
func (r *Report) Totals() retention.Outcome {
	var total retention.Outcome
	for _, p := range r.Platforms {
		total.Add(p.Totals())
	}
	return total
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
