// Package watch runs continuous synchronization: it watches the spec
// file for changes and triggers a sync pass after each debounced burst
// of filesystem events.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/specsync/engine"
)

// DefaultDebounce is how long to wait for more changes before running a
// pass. Editors that save via temp-file rename emit several events per
// save; the debounce window collapses them into one pass.
const DefaultDebounce = 2 * time.Second

// Runner executes one synchronization pass.
type Runner interface {
	Run(ctx context.Context) (*engine.PassResult, error)
}

// Observer receives the outcome of each completed pass.
type Observer interface {
	ObservePass(result *engine.PassResult, err error, elapsed time.Duration)
}

// Options configures a Watcher.
type Options struct {
	// SpecPath is the spec file to watch.
	SpecPath string

	// Debounce is the quiet period before a pass runs. Zero means
	// DefaultDebounce.
	Debounce time.Duration

	// Observer, when set, is notified after every pass.
	Observer Observer

	// Logger receives watch lifecycle and pass outcome logs.
	Logger *slog.Logger
}

// Watcher watches one spec file and runs serialized sync passes. All
// passes execute on the watch goroutine, so no two passes ever overlap.
type Watcher struct {
	specPath string
	debounce time.Duration
	runner   Runner
	observer Observer
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   bool
}

// New creates a Watcher for the given runner and options.
func New(runner Runner, opts Options) (*Watcher, error) {
	if runner == nil {
		return nil, errors.New("watch: runner is required")
	}
	if opts.SpecPath == "" {
		return nil, errors.New("watch: spec path is required")
	}

	abs, err := filepath.Abs(opts.SpecPath)
	if err != nil {
		return nil, fmt.Errorf("resolve spec path: %w", err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		specPath: abs,
		debounce: debounce,
		runner:   runner,
		observer: opts.Observer,
		logger:   logger,
	}, nil
}

// Run watches until ctx is cancelled. One pass runs immediately on
// startup so a spec edited while the watcher was down is still picked
// up; afterwards each debounced change burst triggers exactly one pass.
func (w *Watcher) Run(ctx context.Context) error {
	// Watch the parent directory rather than the file itself: editors
	// that save via rename replace the inode, which silently drops a
	// file-level watch.
	dir := filepath.Dir(w.specPath)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watch spec directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch spec directory: %w", err)
	}

	w.logger.Info("Watching spec for changes",
		slog.String("spec", w.specPath),
		slog.Duration("debounce", w.debounce))

	w.runPass(ctx)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			if w.takePending() {
				w.runPass(ctx)
			}
		}
	}
}

// handleEvent marks a pass pending when the watched spec changed.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.specPath {
		return
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Remove) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()

	w.logger.Debug("Spec change detected",
		slog.String("spec", w.specPath),
		slog.String("op", event.Op.String()))
}

// takePending returns whether a pass is due and clears the flag.
func (w *Watcher) takePending() bool {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	due := w.pending
	w.pending = false
	return due
}

// runPass executes one pass and reports the outcome. Pass failures are
// logged and absorbed so the watcher keeps running; a spec mid-save can
// be unreadable for a moment and the next event retries it.
func (w *Watcher) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	result, err := w.runner.Run(ctx)
	elapsed := time.Since(start)

	if w.observer != nil {
		w.observer.ObservePass(result, err, elapsed)
	}

	if err != nil {
		w.logger.Error("Sync pass failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", elapsed))
		return
	}

	w.logger.Info("Sync pass complete",
		slog.String("state", result.State.String()),
		slog.Int("changes", len(result.Changes)),
		slog.Duration("elapsed", elapsed))
}
