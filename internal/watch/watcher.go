// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs generation when the inputs of a package change.
//
// A Watcher observes one directory, not its subdirectories, matching the
// one-package scope of a pass. Events for matching files are coalesced over a
// debounce window and delivered to a single callback; a callback never runs
// concurrently with itself.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/invowk/metagen/pkg/types"
)

// DefaultDebounce is the quiet period used when Config.Debounce is not set.
const DefaultDebounce = 300 * time.Millisecond

var (
	// ErrInvalidPattern is returned by New for a malformed glob.
	ErrInvalidPattern = errors.New("invalid watch pattern")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watcher already running")

	// noise lists files editors and metagen itself create transiently.
	noise = []string{
		".metagen-cache",
		".metagen-tmp-*",
		"*.swp",
		"*.swo",
		"*~",
		".#*",
		".DS_Store",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Dir is the watched directory.
		Dir types.FilesystemPath
		// Patterns are doublestar globs over file names in Dir. An empty slice
		// matches every file.
		Patterns []string
		// Skip reports files to leave alone, such as the artifacts the
		// callback itself writes. It is called from the event loop.
		Skip func(name string) bool
		// Debounce is the quiet period after the last event; zero means
		// DefaultDebounce.
		Debounce time.Duration
		// OnChange receives the sorted names of the changed files. Its errors
		// are logged and do not stop the watcher.
		OnChange func(ctx context.Context, changed []string) error
		Logger   *slog.Logger
	}

	// Watcher delivers debounced change notifications for one directory.
	Watcher struct {
		cfg      Config
		dir      string
		fsw      *fsnotify.Watcher
		logger   *slog.Logger
		debounce time.Duration
		started  atomic.Bool
	}
)

// New validates cfg and starts observing cfg.Dir. Events are only delivered
// once Run is called.
func New(cfg Config) (*Watcher, error) {
	if ok, errs := cfg.Dir.IsValid(); !ok {
		return nil, errors.Join(errs...)
	}
	for _, pat := range cfg.Patterns {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pat)
		}
	}
	dir, err := filepath.Abs(cfg.Dir.String())
	if err != nil {
		return nil, fmt.Errorf("resolving watch directory: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		dir:      dir,
		logger:   cfg.Logger,
		debounce: cfg.Debounce,
	}
	if w.logger == nil {
		w.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	w.fsw = fsw
	return w, nil
}

// Run delivers change notifications until ctx is canceled. It returns nil on
// cancellation and an error when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu       sync.Mutex
		pending  = make(map[string]struct{})
		timer    *time.Timer
		stopped  bool
		inflight sync.WaitGroup
		busy     atomic.Bool
	)

	fire := func() {
		mu.Lock()
		if stopped || ctx.Err() != nil {
			mu.Unlock()
			return
		}
		// A run longer than the debounce window defers the next one rather
		// than overlapping it.
		if !busy.CompareAndSwap(false, true) {
			timer.Reset(w.debounce)
			mu.Unlock()
			return
		}
		inflight.Add(1)
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()
		defer inflight.Done()
		defer busy.Store(false)

		if len(changed) == 0 || w.cfg.OnChange == nil {
			return
		}

		w.logger.Debug("inputs changed", "files", changed)
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.logger.Error("re-run failed", "error", err)
		}
	}

	// Run returns only once a callback already under way has finished.
	defer func() {
		mu.Lock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		inflight.Wait()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing file watcher", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("file watcher closed its event channel")
			}
			name, ok := w.relevant(evt)
			if !ok {
				continue
			}
			mu.Lock()
			pending[name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("file watcher closed its error channel")
			}
			if isFatal(err) {
				return fmt.Errorf("file watcher failed: %w", err)
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// relevant returns the file name of evt when it should trigger a run.
func (w *Watcher) relevant(evt fsnotify.Event) (string, bool) {
	if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
		return "", false
	}
	if filepath.Dir(evt.Name) != w.dir {
		return "", false
	}
	name := filepath.Base(evt.Name)
	if matchAny(noise, name) {
		return "", false
	}
	if len(w.cfg.Patterns) > 0 && !matchAny(w.cfg.Patterns, name) {
		return "", false
	}
	if w.cfg.Skip != nil && w.cfg.Skip(name) {
		return "", false
	}
	return name, true
}

func matchAny(patterns []string, name string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}
