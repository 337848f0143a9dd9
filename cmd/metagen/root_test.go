// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/invowk/metagen/pkg/types"
)

const shopModel = `
scope: {name: "shop", path: "example.com/shop", module: "example.com/shop"}
local: [{
	name: "Order"
	decorations: ["metagen:Describe"]
	members: [
		{name: "ID", type: "string", tag: #"json:"id""#},
		{name: "Lines", type: "[]LineItem"},
	]
}, {
	name: "LineItem"
	members: [{name: "SKU", type: "string"}]
}]
`

type testCLI struct {
	app    *App
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestCLI(t *testing.T, deps Dependencies) *testCLI {
	t.Helper()
	c := &testCLI{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	deps.Stdout, deps.Stderr = c.stdout, c.stderr
	app, err := NewApp(deps)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	c.app = app
	return c
}

func (c *testCLI) run(t *testing.T, args ...string) error {
	t.Helper()
	c.stdout.Reset()
	c.stderr.Reset()
	root := NewRootCommand(c.app)
	root.SetArgs(args)
	return root.ExecuteContext(t.Context())
}

// writeFiles creates a temporary directory holding files.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v0.3.0"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		got := getVersionString()
		want := "v0.3.0 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got, want := getVersionString(), "dev (built from source)"; got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	c := newTestCLI(t, Dependencies{})
	root := NewRootCommand(c.app)
	for _, name := range []string{"generate", "strategies", "plugins", "manifest", "config"} {
		if sub, _, err := root.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, sub, err)
		}
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{"nil", nil, types.ExitOK},
		{"plain error", errors.New("boom"), types.ExitFailure},
		{"exit error", &ExitError{Code: 3}, 3},
		{"wrapped exit error", fmt.Errorf("run: %w", &ExitError{Code: 4}), 4},
		{"zero code still fails", &ExitError{Code: types.ExitOK, Err: errors.New("x")}, types.ExitFailure},
		{"out of range", &ExitError{Code: 300}, types.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
