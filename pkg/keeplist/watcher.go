package keeplist

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is how long the watcher waits for file events to
// settle before reloading.
const DefaultDebounceInterval = 250 * time.Millisecond

// Watcher keeps an up-to-date Registry for a keep file on disk.
//
// The registry itself is never mutated. Each reload builds a new Registry
// and swaps it in atomically, so a caller that took a snapshot with
// Current keeps a stable view for as long as it holds it.
type Watcher struct {
	path     string
	logger   *slog.Logger
	interval time.Duration
	current  atomic.Pointer[Registry]

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	debounce *Debouncer
}

// NewWatcher loads path and returns a watcher for it. Watching does not
// start until Watch is called.
func NewWatcher(path string, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		logger:   logger.With("component", "keeplist.watcher"),
		interval: interval,
	}
	w.current.Store(Load(path, logger))
	return w
}

// Current returns the most recently loaded registry.
func (w *Watcher) Current() *Registry {
	return w.current.Load()
}

// Reload re-reads the keep file and swaps in the result.
func (w *Watcher) Reload() *Registry {
	r := Load(w.path, w.logger)
	w.current.Store(r)
	return r
}

// Watch blocks, reloading the registry whenever the keep file changes,
// until ctx is cancelled. The containing directory is watched so that
// editors which replace the file atomically are handled.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.mu.Lock()
	w.fsw = fsw
	w.debounce = NewDebouncer(w.interval)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.debounce.Stop()
		w.fsw.Close()
		w.fsw = nil
		w.mu.Unlock()
	}()

	w.logger.Info("watching keep file", "path", w.path, "debounce_ms", w.interval.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.shouldProcessEvent(event) {
				continue
			}

			w.logger.Debug("keep file event", "op", event.Op.String())
			w.debounce.Trigger(func() {
				r := w.Reload()
				w.logger.Info("keep list reloaded", "entries", r.Len())
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("keep file watcher error", "error", err)
		}
	}
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}

// Debouncer collects rapid events and runs the last callback only after a
// quiet period.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopped  bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback, replacing any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		stopped := d.stopped
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
