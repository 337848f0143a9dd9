// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/issue"
	"github.com/invowk/metagen/pkg/types"
)

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return dir
}

func load(t *testing.T, opts LoadOptions) *LoadResult {
	t.Helper()
	res, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return res
}

func TestLoad_DefaultsWithoutDocument(t *testing.T) {
	t.Parallel()

	res := load(t, LoadOptions{Dir: types.FilesystemPath(t.TempDir())})
	if res.Path != "" || len(res.Diagnostics) != 0 {
		t.Fatalf("Load() = %q, %v", res.Path, res.Diagnostics)
	}
	if diff := cmp.Diff(DefaultConfig(), res.Config, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Config (-want +got):\n%s", diff)
	}
}

func TestLoad_Documents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"cue", "metagen.cue", `
naming: "shop"
discovery: strategies: ["Meta.LocalMarker", "Repo.Marker"]
generation: base_artifacts: true
plugins: ["Repo"]
plugin_config: Repo: suffix: "Call"
diagnostics: true
`},
		{"json", "metagen.json", `{
  "naming": "shop",
  "discovery": {"strategies": ["Meta.LocalMarker", "Repo.Marker"]},
  "generation": {"base_artifacts": true},
  "plugins": ["Repo"],
  "plugin_config": {"Repo": {"suffix": "Call"}},
  "diagnostics": true
}`},
		{"toml", "metagen.toml", `
naming = "shop"
plugins = ["Repo"]
diagnostics = true

[discovery]
strategies = ["Meta.LocalMarker", "Repo.Marker"]

[generation]
base_artifacts = true

[plugin_config.Repo]
suffix = "Call"
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := writeDoc(t, tt.file, tt.content)
			res := load(t, LoadOptions{Dir: types.FilesystemPath(dir)})
			if len(res.Diagnostics) != 0 {
				t.Fatalf("Diagnostics = %v", res.Diagnostics)
			}
			if res.Path != filepath.Join(dir, tt.file) {
				t.Errorf("Path = %q", res.Path)
			}
			cfg := res.Config
			if cfg.Naming != "shop" || !cfg.Generation.BaseArtifacts || !cfg.Diagnostics {
				t.Errorf("Config = %+v", cfg)
			}
			if diff := cmp.Diff([]string{"Meta.LocalMarker", "Repo.Marker"}, cfg.Discovery.Strategies); diff != "" {
				t.Errorf("Strategies (-want +got):\n%s", diff)
			}
			if got := cfg.PluginBlock("Repo")["suffix"]; got != "Call" {
				t.Errorf("PluginBlock(Repo)[suffix] = %v", got)
			}
		})
	}
}

func TestLoad_MalformedDocumentFallsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"syntax", "metagen.cue", `naming: "shop`},
		{"schema", "metagen.cue", `discovery: strategies: ["not a strategy"]`},
		{"unknown key", "metagen.json", `{"colour": "blue"}`},
		{"toml syntax", "metagen.toml", `naming = `},
		{"toml schema", "metagen.toml", `diagnostics = "yes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := writeDoc(t, tt.file, tt.content)
			res := load(t, LoadOptions{Dir: types.FilesystemPath(dir)})
			if res.Path != "" {
				t.Errorf("Path = %q, want empty", res.Path)
			}
			if diff := cmp.Diff(DefaultConfig(), res.Config, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Config (-want +got):\n%s", diff)
			}
			if len(res.Diagnostics) != 1 {
				t.Fatalf("Diagnostics = %v", res.Diagnostics)
			}
			d := res.Diagnostics[0]
			if d.Code != diag.CodeConfigParseFailed || d.Severity != diag.SeverityWarning {
				t.Errorf("diagnostic = %s", d)
			}
			if !errors.Is(d.Cause, ErrConfigParse) {
				t.Errorf("cause %v does not wrap ErrConfigParse", d.Cause)
			}
		})
	}
}

func TestLoad_SchemaErrorCarriesDetails(t *testing.T) {
	t.Parallel()

	dir := writeDoc(t, "metagen.cue", `diagnostics: "yes"`)
	res := load(t, LoadOptions{Dir: types.FilesystemPath(dir)})
	var pe *ParseError
	if len(res.Diagnostics) != 1 || !errors.As(res.Diagnostics[0].Cause, &pe) {
		t.Fatalf("Diagnostics = %v", res.Diagnostics)
	}
	if len(pe.Details()) == 0 {
		t.Error("Details() is empty")
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: types.FilesystemPath(filepath.Join(t.TempDir(), "nope.cue")),
	})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || len(ae.Suggestions) == 0 {
		t.Fatalf("Load() error = %v, want actionable error", err)
	}
}

func TestLoad_InvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{Dir: "  "})
	if !errors.Is(err, ErrInvalidLoadOptions) {
		t.Fatalf("Load() error = %v, want ErrInvalidLoadOptions", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoad_InvalidValuesWarn(t *testing.T) {
	t.Parallel()

	dir := writeDoc(t, "metagen.cue", `
generation: package: "not-a-package"
plugins: ["Repo", "repo"]
`)
	res := load(t, LoadOptions{Dir: types.FilesystemPath(dir)})
	if len(res.Diagnostics) != 2 {
		t.Fatalf("Diagnostics = %v", res.Diagnostics)
	}
	for _, d := range res.Diagnostics {
		if d.Code != diag.CodeConfigInvalid {
			t.Errorf("code = %s", d.Code)
		}
	}
	if !errors.Is(res.Diagnostics[0].Cause, ErrInvalidPackageName) {
		t.Errorf("first cause = %v", res.Diagnostics[0].Cause)
	}
}

// Environment tests mutate process state and cannot run in parallel.

func TestLoad_EnvironmentFallback(t *testing.T) {
	t.Setenv("METAGEN_DIAGNOSTICS", "true")
	t.Setenv("METAGEN_GENERATION_BASE_ARTIFACTS", "true")
	t.Setenv("METAGEN_NAMING", "fromenv")

	dir := writeDoc(t, "metagen.cue", `naming: "fromdoc"`)
	cfg := load(t, LoadOptions{Dir: types.FilesystemPath(dir)}).Config
	if cfg.Naming != "fromdoc" {
		t.Errorf("Naming = %q, want the document value", cfg.Naming)
	}
	if !cfg.Diagnostics || !cfg.Generation.BaseArtifacts {
		t.Errorf("environment fallback not applied: %+v", cfg)
	}
}

func TestLoad_EnvironmentStrategies(t *testing.T) {
	t.Setenv("METAGEN_DISCOVERY_STRATEGIES", "Meta.LocalMarker,Meta.ExternalMarker")

	cfg := load(t, LoadOptions{Dir: types.FilesystemPath(t.TempDir())}).Config
	if diff := cmp.Diff([]string{"Meta.LocalMarker", "Meta.ExternalMarker"}, cfg.Discovery.Strategies); diff != "" {
		t.Errorf("Strategies (-want +got):\n%s", diff)
	}
}

func TestGenerateCUE_RoundTrips(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Naming = "shop"
	cfg.Plugins = []string{"Repo"}
	cfg.PluginConfig["Repo"] = map[string]any{"suffix": "Call"}
	cfg.Generation.Package = "shopmeta"

	src, err := GenerateCUE(cfg)
	if err != nil {
		t.Fatalf("GenerateCUE() error = %v", err)
	}
	if !strings.HasPrefix(src, "// metagen configuration") {
		t.Errorf("missing header:\n%s", src)
	}

	dir := writeDoc(t, "metagen.cue", src)
	res := load(t, LoadOptions{Dir: types.FilesystemPath(dir)})
	if len(res.Diagnostics) != 0 {
		t.Fatalf("re-reading generated document: %v\n%s", res.Diagnostics, src)
	}
	got := res.Config
	if got.Naming != "shop" || got.Generation.Package != "shopmeta" || got.PluginBlock("repo")["suffix"] != "Call" {
		t.Errorf("round trip = %+v", got)
	}
}
