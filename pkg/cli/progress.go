package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"skyscraper-hq/skyscraper/pkg/orchestrator"
	"skyscraper-hq/skyscraper/pkg/platform"
	"skyscraper-hq/skyscraper/pkg/retention"
)

// Progress prints a live counter line per collection pass to a terminal.
// It observes record decisions from the engine and pass completions from
// the orchestrator.
type Progress struct {
	mu      sync.Mutex
	writer  io.Writer
	every   int64
	current string
	scanned int64
	deleted int64
	started time.Time
}

// NewProgress creates a reporter that redraws after every `every` records.
// If w is nil, it defaults to os.Stderr.
func NewProgress(w io.Writer, every int64) *Progress {
	if w == nil {
		w = os.Stderr
	}
	if every <= 0 {
		every = 1
	}
	return &Progress{writer: w, every: every}
}

// ObserveRecord counts one record and redraws periodically.
func (p *Progress) ObserveRecord(platformName string, kind platform.Kind, decision retention.Decision) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := platformName + " " + string(kind)
	if key != p.current {
		p.current = key
		p.scanned, p.deleted = 0, 0
		p.started = time.Now()
	}
	p.scanned++
	if decision == retention.DecisionDeleted || decision == retention.DecisionWouldDelete {
		p.deleted++
	}
	if p.scanned%p.every == 0 {
		p.render()
	}
}

// ObservePass ends the current line with the pass summary.
func (p *Progress) ObservePass(platformName string, kind platform.Kind, outcome retention.Outcome, err error, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := platformName + " " + string(kind)
	if err != nil {
		fmt.Fprintf(p.writer, "\r✗ %s: %v\n", key, err)
	} else {
		fmt.Fprintf(p.writer, "\r✓ %s: %s (%s)\n", key, outcome.String(), duration.Round(time.Millisecond))
	}
	p.current = ""
}

// ObserveRun is a no-op; the report is printed separately.
func (p *Progress) ObserveRun(*orchestrator.Report) {}

func (p *Progress) render() {
	elapsed := time.Since(p.started).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.scanned) / elapsed
	}
	fmt.Fprintf(p.writer, "\r%s: scanned %d, deleted %d (%.1f rec/s)", p.current, p.scanned, p.deleted, rate)
}
