// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/invowk/metagen/pkg/types"
)

// start runs a watcher over dir and returns the channel its callback feeds.
func start(t *testing.T, cfg Config) <-chan []string {
	t.Helper()
	calls := make(chan []string, 16)
	cfg.Debounce = 100 * time.Millisecond
	cfg.OnChange = func(_ context.Context, changed []string) error {
		calls <- changed
		return nil
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
	return calls
}

func write(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("package shop\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func next(t *testing.T, calls <-chan []string) []string {
	t.Helper()
	select {
	case got := <-calls:
		return got
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return nil
	}
}

func TestWatcher_CoalescesEvents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	calls := start(t, Config{Dir: types.FilesystemPath(dir), Patterns: []string{"*.go"}})

	for _, name := range []string{"order.go", "line.go", "order.go"} {
		write(t, dir, name)
		time.Sleep(10 * time.Millisecond)
	}
	if diff := cmp.Diff([]string{"line.go", "order.go"}, next(t, calls)); diff != "" {
		t.Errorf("changed (-want +got):\n%s", diff)
	}

	select {
	case extra := <-calls:
		t.Errorf("unexpected second callback with %v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_FiltersFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	calls := start(t, Config{
		Dir:      types.FilesystemPath(dir),
		Patterns: []string{"*.go", "metagen.{cue,json,toml}"},
		Skip:     func(name string) bool { return name == "zz_registry_meta.go" },
	})

	write(t, dir, "notes.txt")
	write(t, dir, ".metagen-cache")
	write(t, dir, "zz_registry_meta.go")
	write(t, filepath.Join(dir, "sub"), "nested.go")
	time.Sleep(50 * time.Millisecond)
	write(t, dir, "metagen.cue")

	got := next(t, calls)
	if !slices.Equal(got, []string{"metagen.cue"}) {
		t.Errorf("changed = %v, want only metagen.cue", got)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    Config
		wantIs error
	}{
		{"invalid pattern", Config{Dir: types.FilesystemPath(t.TempDir()), Patterns: []string{"[a-"}}, ErrInvalidPattern},
		{"invalid dir", Config{Dir: " "}, types.ErrInvalidFilesystemPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg); !errors.Is(err, tt.wantIs) {
				t.Errorf("New() error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}

func TestRun_Twice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Dir: types.FilesystemPath(t.TempDir())})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// Wait until the first Run has claimed the watcher.
	for !w.started.Load() {
		time.Sleep(time.Millisecond)
	}
	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestRun_WaitsForCallbackOnCancel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entered := make(chan struct{})
	var finished atomic.Bool
	w, err := New(Config{
		Dir:      types.FilesystemPath(dir),
		Patterns: []string{"*.go"},
		Debounce: 20 * time.Millisecond,
		OnChange: func(context.Context, []string) error {
			close(entered)
			time.Sleep(200 * time.Millisecond)
			finished.Store(true)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	for !w.started.Load() {
		time.Sleep(time.Millisecond)
	}
	write(t, dir, "order.go")

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !finished.Load() {
		t.Error("Run returned while the callback was still running")
	}
}
