// Package watch invalidates cached local contexts when their files change,
// so that long-running processes pick up edited vocabularies without a restart.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/govmeta/pkg/core"
)

// DefaultPatterns selects the files considered context documents.
var DefaultPatterns = []string{"**/*.jsonld", "**/*.json", "**/*.jsonc", "**/*.yaml", "**/*.yml"}

// Change describes a debounced modification of a watched file.
type Change struct {
	Path      string
	Locations []string
	Removed   bool
	Timestamp time.Time
}

// Config configures a Worker.
type Config struct {
	// Root is the directory watched recursively.
	Root string

	// Patterns filter files by their slash-separated path relative to Root.
	// Empty means DefaultPatterns.
	Patterns []string

	// Debounce is the quiet period before a change is reported.
	Debounce time.Duration

	Logger       *slog.Logger
	ErrorHandler func(error)

	// OnChange, if set, is called after the cache entries of a file were invalidated.
	OnChange func(Change)
}

// Worker watches Config.Root and invalidates the cache entries of the files
// that change below it. It implements worker.Worker, so it can run under a
// lifecycle supervisor.
type Worker struct {
	*worker.BaseWorker
	config    Config
	target    core.Invalidator
	root      string
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
	active    atomic.Bool
}

// New creates a Worker invalidating entries of target.
func New(target core.Invalidator, config Config) *Worker {
	if len(config.Patterns) == 0 {
		config.Patterns = DefaultPatterns
	}
	if config.Debounce <= 0 {
		config.Debounce = 50 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Worker{
		BaseWorker: worker.NewBaseWorker("context-watcher"),
		config:     config,
		target:     target,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	root, err := filepath.Abs(w.config.Root)
	if err != nil {
		return fmt.Errorf("failed to resolve watch root: %w", err)
	}
	w.root = root

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := addRecursive(watcher, root); err != nil {
		_ = watcher.Close()
		return err
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(w.config.Debounce)
	w.active.Store(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *Worker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"root":              w.config.Root,
		}
	})
}

// Active reports whether the event loop is running.
func (w *Worker) Active() bool {
	return w.active.Load()
}

// Locations returns the fetch locations that designate path: its file URL,
// its absolute path and its path relative to Root.
func (w *Worker) Locations(path string) []string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	locations := []string{"file://" + filepath.ToSlash(abs), abs}
	if rel, err := filepath.Rel(w.root, abs); err == nil {
		locations = append(locations, filepath.ToSlash(rel))
	}
	return locations
}

func (w *Worker) matches(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.config.Patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (w *Worker) handle(ctx context.Context, event fsnotify.Event) {
	w.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addRecursive(w.watcher, event.Name); err != nil {
				w.report(err)
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if !w.matches(event.Name) {
		return
	}

	removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	path := event.Name
	w.debouncer.add(path, func() {
		w.invalidate(ctx, path, removed)
	})
}

func (w *Worker) invalidate(ctx context.Context, path string, removed bool) {
	change := Change{Path: path, Locations: w.Locations(path), Removed: removed, Timestamp: time.Now()}
	var errs []error
	for _, loc := range change.Locations {
		if err := w.target.Invalidate(ctx, loc); err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", loc, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		w.report(err)
		return
	}
	w.config.Logger.Info("context file changed", "path", path, "removed", removed)
	if w.config.OnChange != nil {
		w.config.OnChange(change)
	}
}

func (w *Worker) report(err error) {
	w.config.Logger.Error("watcher error", "error", err)
	if w.config.ErrorHandler != nil {
		w.config.ErrorHandler(err)
	}
}

func (w *Worker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.config.Logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.active.Store(false)
	defer w.watcher.Close()

	err = w.loop(ctx)

	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.handle(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.report(wErr)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && len(name) > 1 && name[0] == '.' {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

var _ worker.Worker = (*Worker)(nil)
