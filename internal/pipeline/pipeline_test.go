// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/invowk/metagen/internal/artifact"
	"github.com/invowk/metagen/internal/config"
	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/discovery"
	"github.com/invowk/metagen/internal/plugin"
	"github.com/invowk/metagen/internal/plugin/repo"
	"github.com/invowk/metagen/internal/plugin/schema"
	"github.com/invowk/metagen/pkg/model"
)

const shop = "example.com/shop"

func marker(name string, args ...model.Literal) model.Decoration {
	return model.Decoration{Namespace: discovery.MarkerNamespace, Name: name, Args: args}
}

func shopProgram(t *testing.T) model.Program {
	t.Helper()

	id := func(name string) model.Identity { return model.Identity{Module: shop, Namespace: shop, Name: name} }
	order := &model.Declaration{
		ID: id("Order"), Kind: model.DeclStruct,
		Decorations: []model.Decoration{marker(discovery.MarkerDescribe), marker(discovery.MarkerSchema)},
		Members: []model.Member{
			{Name: "ID", Type: model.Basic("int64"), Settable: true},
			{Name: "Lines", Type: model.Slice(model.Named(shop, shop, "LineItem")), Settable: true},
		},
	}
	line := &model.Declaration{
		ID: id("LineItem"), Kind: model.DeclStruct,
		Decorations: []model.Decoration{marker(discovery.MarkerDescribe)},
		Members:     []model.Member{{Name: "SKU", Type: model.Basic("string"), Settable: true}},
	}
	orders := &model.Declaration{
		ID: id("OrderRepo"), Kind: model.DeclStruct,
		Decorations: []model.Decoration{marker(discovery.MarkerRepository), marker(discovery.MarkerEntity, model.String("Orders"))},
		Methods: []model.Method{{
			Name: "Find", Exported: true, PointerReceiver: true,
			Params:  []model.Param{{Name: "id", Type: model.Basic("int64")}},
			Results: []model.TypeRef{model.Pointer(model.Named(shop, shop, "Order")), model.Basic("error")},
		}},
	}
	plain := &model.Declaration{ID: id("Unmarked"), Kind: model.DeclStruct}

	prog, err := model.NewSnapshot(model.Scope{Name: "shop", Path: shop, Module: shop},
		[]*model.Declaration{order, line, orders, plain}, nil)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return prog
}

func fullConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Discovery.Strategies = []string{"Meta.LocalMarker", "Repo.Marker", "Schema.Marker"}
	cfg.Generation.BaseArtifacts = true
	cfg.Plugins = []string{"Repo", "Schema"}
	return cfg
}

func names(as []artifact.Artifact) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Name)
	}
	return out
}

func TestRun_FullPass(t *testing.T) {
	t.Parallel()

	res, err := New().Run(context.Background(), shopProgram(t), fullConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{
		"line_item_meta.go",
		"order.schema.json",
		"order_meta.go",
		"order_repo_meta.go",
		"order_repo_repo_meta.go",
		"zz_registry_meta.go",
		"zz_registry_repo_meta.go",
	}
	if diff := cmp.Diff(want, names(res.Artifacts)); diff != "" {
		t.Errorf("artifacts (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{artifact.ProducerBase: 4, repo.Name: 2, schema.Name: 1},
		artifact.CountByProducer(res.Artifacts)); diff != "" {
		t.Errorf("producers (-want +got):\n%s", diff)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %v", res.Diagnostics)
	}
	if !res.BaseGenerated || res.Package != "shop" || res.ScopeName != "shop" {
		t.Errorf("Result = %+v", res)
	}
	if res.Discovered.Len() != 3 {
		t.Errorf("Discovered has %d records, want 3", res.Discovered.Len())
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	cfg := fullConfig()
	cfg.Diagnostics = true
	first, err := New().Run(context.Background(), shopProgram(t), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := New(WithParallelism(1)).Run(context.Background(), shopProgram(t), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff(first.Artifacts, second.Artifacts); diff != "" {
		t.Errorf("artifacts differ between runs (-first +second):\n%s", diff)
	}
}

func TestRun_UnknownStrategyIsFatal(t *testing.T) {
	t.Parallel()

	cfg := fullConfig()
	cfg.Discovery.Strategies = []string{"Meta.LocalMarker", "Z.Unknown"}
	res, err := New().Run(context.Background(), shopProgram(t), cfg)
	if !errors.Is(err, discovery.ErrUnknownStrategy) {
		t.Fatalf("Run() error = %v, want ErrUnknownStrategy", err)
	}
	if res != nil {
		t.Errorf("Run() returned %d artifacts alongside a fatal error", len(res.Artifacts))
	}
	for _, id := range []string{"Meta.LocalMarker", "Repo.Marker", "Schema.Marker"} {
		if !strings.Contains(err.Error(), id) {
			t.Errorf("error %q does not list %s", err, id)
		}
	}
}

func TestRun_PluginsWithoutBase(t *testing.T) {
	t.Parallel()

	cfg := fullConfig()
	cfg.Generation.BaseArtifacts = false
	cfg.Diagnostics = true
	cfg.Plugins = []string{"Repo", "Schema", "Nope"}

	res, err := New().Run(context.Background(), shopProgram(t), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff([]string{SummaryFile, "order.schema.json"}, names(res.Artifacts)); diff != "" {
		t.Errorf("artifacts (-want +got):\n%s", diff)
	}

	codes := map[diag.Code]string{}
	for _, d := range res.Diagnostics {
		codes[d.Code] = d.Source
	}
	if codes[diag.CodePluginBaseMissing] != repo.Name {
		t.Errorf("plugin_base_missing source = %q", codes[diag.CodePluginBaseMissing])
	}
	if _, ok := codes[diag.CodePluginUnknown]; !ok {
		t.Errorf("missing plugin_unknown in %v", res.Diagnostics)
	}

	var sum artifact.Artifact
	for _, a := range res.Artifacts {
		if a.Name == SummaryFile {
			sum = a
		}
	}
	for _, want := range []string{"| Meta.LocalMarker | 2 |", "| Schema | 1 |", "plugin_unknown", "base descriptors generated: false"} {
		if !strings.Contains(sum.Content, want) {
			t.Errorf("summary lacks %q:\n%s", want, sum.Content)
		}
	}
	if strings.Contains(sum.Content, "\x1b[") {
		t.Error("summary contains terminal escapes")
	}
}

func TestRun_InfoDiagnosticsNeedOptIn(t *testing.T) {
	t.Parallel()

	cfg := fullConfig()
	cfg.Generation.BaseArtifacts = false
	res, err := New().Run(context.Background(), shopProgram(t), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, d := range res.Diagnostics {
		if d.Severity == diag.SeverityInfo {
			t.Errorf("info diagnostic kept with diagnostics off: %s", d)
		}
	}
}

type rogue struct{ fail bool }

func (rogue) Name() string { return "Rogue" }
func (rogue) Description() string { return "emits for declarations it does not own" }
func (rogue) Namespace() string { return "Rogue" }
func (rogue) Configure(map[string]any) []diag.Diagnostic { return nil }
func (rogue) RequiresBaseArtifacts() bool { return false }
func (r rogue) Generate(set *discovery.Set, _ model.Program, _ plugin.Context) ([]artifact.Artifact, error) {
	if r.fail {
		panic("rogue plugin")
	}
	var out []artifact.Artifact
	for _, rec := range set.Items() {
		id := rec.ID()
		out = append(out, artifact.Artifact{Name: id.Name + ".rogue", Subject: &id})
	}
	out = append(out, artifact.Artifact{Name: "rogue.txt", Content: "scope-wide"})
	return out, nil
}

func TestRun_PluginOutputRestrictedToEntitled(t *testing.T) {
	t.Parallel()

	p := New(WithPlugins(plugin.NewRegistry().MustRegister(func() plugin.Plugin { return rogue{} })))
	cfg := config.DefaultConfig()
	cfg.Plugins = []string{"rogue"}

	res, err := p.Run(context.Background(), shopProgram(t), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff([]string{"rogue.txt"}, names(res.Artifacts)); diff != "" {
		t.Errorf("artifacts (-want +got):\n%s", diff)
	}
	if n := diag.Count(res.Diagnostics, diag.SeverityWarning); n != 2 {
		t.Errorf("want one warning per dropped artifact, got %v", res.Diagnostics)
	}
}

func TestRun_PluginPanicIsIsolated(t *testing.T) {
	t.Parallel()

	p := New(WithPlugins(plugin.NewRegistry().MustRegister(
		func() plugin.Plugin { return rogue{fail: true} },
		schema.New,
	)))
	cfg := fullConfig()
	cfg.Generation.BaseArtifacts = false
	cfg.Plugins = []string{"Rogue", "Schema"}

	res, err := p.Run(context.Background(), shopProgram(t), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff([]string{"order.schema.json"}, names(res.Artifacts)); diff != "" {
		t.Errorf("artifacts (-want +got):\n%s", diff)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != diag.CodePluginFailed {
		t.Fatalf("Diagnostics = %v", res.Diagnostics)
	}
	if !errors.Is(res.Diagnostics[0].Cause, plugin.ErrPluginFailed) {
		t.Errorf("cause %v does not wrap ErrPluginFailed", res.Diagnostics[0].Cause)
	}
}

func TestRun_InvalidPluginConfigFallsBack(t *testing.T) {
	t.Parallel()

	cfg := fullConfig()
	cfg.PluginConfig["repo"] = map[string]any{"suffix": 12, "bogus": true}
	res, err := New().Run(context.Background(), shopProgram(t), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Code == diag.CodePluginConfigInvalid && errors.Is(d.Cause, plugin.ErrPluginConfig) {
			found = true
		}
	}
	if !found {
		t.Errorf("missing plugin_config_invalid in %v", res.Diagnostics)
	}
	if len(res.Artifacts) != 7 {
		t.Errorf("defaults should still generate every artifact, got %v", names(res.Artifacts))
	}
}

func TestRun_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Run(ctx, shopProgram(t), fullConfig()); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	cfg := fullConfig()
	cfg.Plugins = []string{"schema"}
	cfg.PluginConfig["Schema"] = map[string]any{"require_base_artifacts": true}
	m := New().Describe(cfg)

	var ids []string
	for _, s := range m.Strategies {
		ids = append(ids, s.ID)
		wantSelected := slices.Contains(cfg.Discovery.Strategies, s.ID)
		if s.Selected != wantSelected {
			t.Errorf("%s selected = %v, want %v", s.ID, s.Selected, wantSelected)
		}
	}
	want := []string{"Meta.ContainerElements", "Meta.ExternalMarker", "Meta.LocalMarker", "Repo.Marker", "Schema.Marker"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("strategies (-want +got):\n%s", diff)
	}

	wantPlugins := []PluginInfo{
		{Name: repo.Name, Description: m.Plugins[0].Description, Namespace: repo.Name, RequiresBaseArtifacts: true, Enabled: false},
		{Name: schema.Name, Description: m.Plugins[1].Description, Namespace: schema.Name, RequiresBaseArtifacts: true, Enabled: true},
	}
	if diff := cmp.Diff(wantPlugins, m.Plugins); diff != "" {
		t.Errorf("plugins (-want +got):\n%s", diff)
	}
}

func TestRun_PriorDiagnosticsAreMerged(t *testing.T) {
	t.Parallel()

	cfg := fullConfig()
	cfg.Diagnostics = true
	prior := diag.Warning(diag.CodeConfigParseFailed, "config", "metagen.cue: using defaults")

	res, err := New().Run(context.Background(), shopProgram(t), cfg, prior)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !slices.ContainsFunc(res.Diagnostics, func(d diag.Diagnostic) bool { return d.Code == diag.CodeConfigParseFailed }) {
		t.Errorf("prior diagnostic missing from %v", res.Diagnostics)
	}
	for _, a := range res.Artifacts {
		if a.Name == SummaryFile && !strings.Contains(a.Content, "config_parse_failed") {
			t.Errorf("summary lacks the prior diagnostic:\n%s", a.Content)
		}
	}
}

func TestMarkDescribed_SkipsDroppedDescriptors(t *testing.T) {
	t.Parallel()

	kept := model.Identity{Module: "example.com/shop", Namespace: "example.com/shop", Name: "Order"}
	dropped := model.Identity{Module: "example.com/shop", Namespace: "example.com/shop", Name: "Cart"}

	arts := artifact.NewSet()
	arts.Add(artifact.Artifact{Name: "cart_meta.go", Producer: "other"})
	out := stageOutput{
		artifacts: []artifact.Artifact{
			{Name: "order_meta.go", Subject: &kept, Producer: artifact.ProducerBase},
			{Name: "cart_meta.go", Subject: &dropped, Producer: artifact.ProducerBase},
		},
		described: []model.Identity{kept, dropped},
	}
	arts.Add(out.artifacts...)

	described := make(map[string]bool)
	markDescribed(described, arts, out)
	if diff := cmp.Diff(map[string]bool{kept.Key(): true}, described); diff != "" {
		t.Errorf("described (-want +got):\n%s", diff)
	}
}
