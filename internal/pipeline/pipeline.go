// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/invowk/metagen/internal/artifact"
	"github.com/invowk/metagen/internal/basegen"
	"github.com/invowk/metagen/internal/config"
	"github.com/invowk/metagen/internal/dag"
	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/discovery"
	"github.com/invowk/metagen/internal/naming"
	"github.com/invowk/metagen/internal/plugin"
	"github.com/invowk/metagen/pkg/model"
)

const (
	stageBase   = "base"
	stagePlugin = "plugin:"
	source      = "pipeline"
)

type (
	// Pass runs generation passes over explicit strategy and plugin tables.
	Pass struct {
		strategies  *discovery.Registry
		plugins     *plugin.Registry
		policy      basegen.DecorationPolicy
		parallelism int
		logger      *slog.Logger
	}

	// Option configures a Pass.
	Option func(*Pass)

	// Result is the outcome of a pass.
	Result struct {
		// Artifacts are sorted by name.
		Artifacts []artifact.Artifact
		// Diagnostics are sorted; informational entries are only kept when
		// the configuration enables diagnostics.
		Diagnostics []diag.Diagnostic
		Manifest    Manifest
		// Active lists the strategies that ran, in registry order.
		Active []discovery.StrategyID
		// Discovered is the aggregated set the generators consumed.
		Discovered *discovery.Set
		// Counts is the number of candidates each active strategy proposed.
		Counts        map[discovery.StrategyID]int
		BaseGenerated bool
		ScopeName     string
		Package       string
	}

	stage struct {
		name   string
		plugin plugin.Plugin
	}

	stageOutput struct {
		artifacts []artifact.Artifact
		diags     []diag.Diagnostic
		// described is only set by the base stage.
		described []model.Identity
	}
)

// WithStrategies replaces the strategy table.
func WithStrategies(r *discovery.Registry) Option {
	return func(p *Pass) {
		if r != nil {
			p.strategies = r
		}
	}
}

// WithPlugins replaces the plugin table.
func WithPlugins(r *plugin.Registry) Option {
	return func(p *Pass) {
		if r != nil {
			p.plugins = r
		}
	}
}

// WithDecorationPolicy replaces the base generator's decoration policy.
func WithDecorationPolicy(dp basegen.DecorationPolicy) Option {
	return func(p *Pass) { p.policy = dp }
}

// WithParallelism bounds concurrent strategies and plugins. Values below one
// mean runtime.GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(p *Pass) { p.parallelism = n }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pass) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a Pass over DefaultStrategies and DefaultPlugins.
func New(opts ...Option) *Pass {
	p := &Pass{
		strategies: DefaultStrategies(),
		plugins:    DefaultPlugins(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.parallelism <= 0 {
		p.parallelism = runtime.GOMAXPROCS(0)
	}
	return p
}

// Run executes one pass over prog. The only errors are an unknown strategy
// identifier in cfg, a stage cycle and cancellation of ctx; every other
// failure is a diagnostic. prior carries the findings of earlier phases,
// such as configuration loading, into the result and the summary.
func (p *Pass) Run(ctx context.Context, prog model.Program, cfg *config.Config, prior ...diag.Diagnostic) (*Result, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	exec := discovery.NewExecutor(p.strategies,
		discovery.WithParallelism(p.parallelism), discovery.WithLogger(p.logger))
	found, err := exec.Run(ctx, prog, discovery.RunOptions{
		Strategies:  cfg.Discovery.Strategies,
		CrossModule: cfg.Discovery.CrossModule,
	})
	if err != nil {
		return nil, err
	}

	scope := prog.Scope()
	res := &Result{
		Manifest:      p.Describe(cfg),
		Active:        found.Active,
		Discovered:    found.Set,
		Counts:        found.Counts,
		ScopeName:     naming.ScopeName(scope, cfg.Naming),
		Package:       cfg.Generation.Package,
		BaseGenerated: cfg.Generation.BaseArtifacts,
	}
	if res.Package == "" {
		res.Package = naming.PackageName(naming.ScopeName(scope, ""))
	}
	diags := append(slices.Clone(prior), found.Diagnostics...)
	p.logger.Debug("discovery finished", "strategies", len(found.Active), "declarations", found.Set.Len())

	stages, stageDiags := p.stages(cfg)
	diags = append(diags, stageDiags...)
	graph := dag.New()
	graph.Add(stageBase)
	byName := make(map[string]stage, len(stages))
	for _, s := range stages {
		byName[s.name] = s
		graph.Before(stageBase, s.name)
	}
	levels, err := graph.Levels()
	if err != nil {
		return nil, err
	}

	arts := artifact.NewSet()
	described := make(map[string]bool)
	for _, level := range levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outs := make([]stageOutput, len(level))
		var g errgroup.Group
		g.SetLimit(p.parallelism)
		for i, name := range level {
			g.Go(func() error {
				if name == stageBase {
					outs[i] = p.runBase(found.Set, scope, res, cfg)
					return nil
				}
				outs[i] = p.runPlugin(byName[name].plugin, found.Set, prog, res, cfg, described)
				return nil
			})
		}
		_ = g.Wait()
		for i, out := range outs {
			p.logger.Debug("stage finished", "stage", level[i], "artifacts", len(out.artifacts))
			arts.Add(out.artifacts...)
			diags = append(diags, out.diags...)
			markDescribed(described, arts, out)
		}
	}
	diags = append(diags, arts.Diagnostics()...)

	if !cfg.Diagnostics {
		diags = diag.Filter(diags, func(d diag.Diagnostic) bool { return d.Severity != diag.SeverityInfo })
	}
	diag.Sort(diags)
	res.Diagnostics = diags
	res.Artifacts = arts.Sorted()

	if cfg.Diagnostics {
		arts.Add(artifact.Artifact{
			Name:     SummaryFile,
			Content:  res.Summary(),
			Producer: ProducerPipeline,
		})
		res.Artifacts = arts.Sorted()
	}
	return res, nil
}

// stages resolves the configured plugins, configures them and reports the
// unknown ones. Repeated names run once.
func (p *Pass) stages(cfg *config.Config) ([]stage, []diag.Diagnostic) {
	var out []stage
	var diags []diag.Diagnostic
	seen := make(map[string]bool)
	for _, name := range cfg.Plugins {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		pl, ok := p.plugins.New(name)
		if !ok {
			diags = append(diags, diag.Warning(diag.CodePluginUnknown, source,
				"plugin %q is not registered; known plugins: %s", name, strings.Join(p.plugins.Names(), ", ")))
			continue
		}
		diags = append(diags, pl.Configure(cfg.PluginBlock(pl.Name()))...)
		out = append(out, stage{name: stagePlugin + pl.Name(), plugin: pl})
	}
	return out, diags
}

func (p *Pass) runBase(set *discovery.Set, scope model.Scope, res *Result, cfg *config.Config) stageOutput {
	if !cfg.Generation.BaseArtifacts {
		return stageOutput{}
	}
	var opts []basegen.Option
	if p.policy != nil {
		opts = append(opts, basegen.WithPolicy(p.policy))
	}
	opts = append(opts, basegen.WithLogger(p.logger))
	out := basegen.New(opts...).Generate(set, basegen.Options{
		Scope:       scope,
		Package:     res.Package,
		ScopeName:   res.ScopeName,
		Diagnostics: cfg.Diagnostics,
	})
	return stageOutput{artifacts: out.Artifacts, diags: out.Diagnostics, described: out.Described}
}

// markDescribed records the declarations of out whose descriptor artifact
// survived conflict resolution in arts.
func markDescribed(described map[string]bool, arts *artifact.Set, out stageOutput) {
	for _, id := range out.described {
		for _, a := range out.artifacts {
			if a.Subject == nil || *a.Subject != id {
				continue
			}
			if kept, ok := arts.Lookup(a.Name); ok && kept.Producer == artifact.ProducerBase && kept.Subject != nil && *kept.Subject == id {
				described[id.Key()] = true
			}
		}
	}
}

func (p *Pass) runPlugin(pl plugin.Plugin, set *discovery.Set, prog model.Program, res *Result, cfg *config.Config, described map[string]bool) stageOutput {
	var out stageOutput
	pctx := plugin.Context{
		BaseGenerated: res.BaseGenerated,
		Described:     described,
		Scope:         prog.Scope(),
		ScopeName:     res.ScopeName,
		Package:       res.Package,
		Diagnostics:   cfg.Diagnostics,
		Report:        func(d diag.Diagnostic) { out.diags = append(out.diags, d) },
	}
	if !plugin.Gate(pl, pctx) {
		out.diags = append(out.diags, diag.Info(diag.CodePluginBaseMissing, pl.Name(),
			"skipped: requires base descriptors, which were not generated"))
		return out
	}

	arts, err := plugin.Run(pl, set, prog, pctx)
	if err != nil {
		p.logger.Warn("plugin failed", "plugin", pl.Name(), "error", err)
		out.diags = append(out.diags, diag.Warning(diag.CodePluginFailed, pl.Name(), "plugin produced no artifacts").Because(err))
		return out
	}

	entitled := plugin.Entitled(set, pl.Namespace())
	for _, a := range arts {
		if a.Subject != nil && !entitled.Contains(*a.Subject) {
			out.diags = append(out.diags, diag.Warning(diag.CodePluginFailed, pl.Name(),
				"artifact %s dropped: its subject was not found by a %s strategy", a.Name, pl.Namespace()).About(*a.Subject))
			continue
		}
		out.artifacts = append(out.artifacts, a)
	}
	return out
}
