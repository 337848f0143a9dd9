// SPDX-License-Identifier: MPL-2.0

// Package repo is the repository plugin. For every declaration found by a
// Repo strategy it wraps the exported methods in functions returning
// meta.Async, groups them into entity buckets and registers one
// meta.RepositoryFacet per bucket on the declaration's base descriptor.
package repo

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/invowk/metagen/internal/artifact"
	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/discovery"
	"github.com/invowk/metagen/internal/gosrc"
	"github.com/invowk/metagen/internal/naming"
	"github.com/invowk/metagen/internal/plugin"
	"github.com/invowk/metagen/pkg/meta"
	"github.com/invowk/metagen/pkg/model"
)

const (
	// Name is the plugin name.
	Name = "Repo"
	// MarkerID is the identifier of the Repo discovery strategy.
	MarkerID discovery.StrategyID = "Repo.Marker"
	// RegistryFile is the name of the facet registration artifact.
	RegistryFile = "zz_registry_repo_meta.go"
)

type (
	// Config is the Repo plugin configuration block.
	Config struct {
		RequireBaseArtifacts bool   `mapstructure:"require_base_artifacts"`
		DefaultBucket        string `mapstructure:"default_bucket"`
		Suffix               string `mapstructure:"suffix"`
	}

	// Plugin is the repository plugin.
	Plugin struct {
		cfg Config
	}

	wrapper struct {
		Name     string
		Method   string
		Receiver string
		Params   []param
		Args     string
		Value    string
		Shape    returnShape
		bucket   string
	}

	param struct {
		Name string
		Type string
	}

	facet struct {
		Accessor   string
		Bucket     string
		Operations []wrapper
	}
)

// DefaultConfig returns the defaults applied before the configuration block.
func DefaultConfig() Config {
	return Config{RequireBaseArtifacts: true, DefaultBucket: "Default", Suffix: "Async"}
}

// New returns an unconfigured Repo plugin.
func New() plugin.Plugin { return &Plugin{cfg: DefaultConfig()} }

// Strategy returns the Repo.Marker discovery strategy.
func Strategy() discovery.Strategy {
	return discovery.MarkerStrategy(MarkerID, "local declarations decorated metagen:Repository",
		discovery.MarkerRepository, false)
}

// Name implements plugin.Plugin.
func (*Plugin) Name() string { return Name }

// Description implements plugin.Plugin.
func (*Plugin) Description() string {
	return "async repository wrappers grouped into entity buckets"
}

// Namespace implements plugin.Plugin.
func (*Plugin) Namespace() string { return Name }

// RequiresBaseArtifacts implements plugin.Plugin.
func (p *Plugin) RequiresBaseArtifacts() bool { return p.cfg.RequireBaseArtifacts }

// Config returns the effective configuration.
func (p *Plugin) Config() Config { return p.cfg }

// Configure implements plugin.Plugin.
func (p *Plugin) Configure(raw map[string]any) []diag.Diagnostic {
	cfg, err := plugin.DecodeConfig(Name, raw, DefaultConfig())
	if err == nil && !isIdentifierSuffix(cfg.Suffix) {
		err = &plugin.ConfigError{Plugin: Name, Cause: fmt.Errorf("suffix %q is not a Go identifier fragment", cfg.Suffix)}
		cfg = DefaultConfig()
	}
	if strings.TrimSpace(cfg.DefaultBucket) == "" {
		cfg.DefaultBucket = DefaultConfig().DefaultBucket
	}
	p.cfg = cfg
	return plugin.ConfigDiagnostic(err)
}

// Generate implements plugin.Plugin.
func (p *Plugin) Generate(set *discovery.Set, _ model.Program, ctx plugin.Context) ([]artifact.Artifact, error) {
	if !plugin.Gate(p, ctx) {
		return nil, nil
	}

	names := naming.Assign(set.Identities())
	var (
		out    []artifact.Artifact
		facets []facet
	)
	for _, rec := range plugin.Entitled(set, Name).Items() {
		d := rec.Declaration
		if len(d.TypeParams) > 0 {
			ctx.Emit(diag.Info(diag.CodeDecorationSkipped, Name,
				"generic declarations are not wrapped").About(d.ID))
			continue
		}
		a, ws, err := p.render(d, names, ctx)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", d.ID, err)
		}
		if len(ws) == 0 {
			continue
		}
		out = append(out, a)
		if !ctx.HasDescriptor(d.ID) {
			if ctx.BaseGenerated {
				ctx.Emit(diag.Info(diag.CodePluginBaseMissing, Name,
					"no base descriptor was generated; facets not registered").About(d.ID))
			}
			continue
		}
		facets = append(facets, bucketize(names.Descriptor(d.ID), ws)...)
	}

	if !ctx.BaseGenerated {
		ctx.Emit(diag.Info(diag.CodePluginBaseMissing, Name,
			"base descriptors were not generated; facet registration skipped"))
		return out, nil
	}
	reg, err := execute(registryTemplate, map[string]any{
		"Header":       gosrc.Header,
		"Package":      ctx.Package,
		"RegisterFunc": naming.RegistrationFunc(ctx.ScopeName, Name),
		"Facets":       facets,
	})
	if err != nil {
		return nil, err
	}
	out = append(out, artifact.Artifact{Name: RegistryFile, Content: reg})
	return out, nil
}

func (p *Plugin) render(d *model.Declaration, names naming.Names, ctx plugin.Context) (artifact.Artifact, []wrapper, error) {
	im := gosrc.NewImports(ctx.Scope.Path)
	im.Add(meta.ImportPath, "meta")

	recvType := model.Named(d.ID.Module, d.ID.Namespace, d.ID.Name)
	receiver := im.TypeExpr(recvType)
	if d.Kind != model.DeclInterface {
		receiver = "*" + receiver
	}
	declBucket := entity(d.Decorations)
	typeName := names.TypeName(d.ID)

	methods := slices.Clone(d.Methods)
	slices.SortFunc(methods, func(a, b model.Method) int { return cmp.Compare(a.Name, b.Name) })

	var ws []wrapper
	for _, m := range methods {
		if !m.Exported {
			continue
		}
		if _, ignored := model.FindDecoration(m.Decorations, discovery.MarkerNamespace, discovery.MarkerIgnore); ignored {
			continue
		}
		shape, value, ok := classify(m.Results)
		if !ok {
			ctx.Emit(diag.Info(diag.CodeDecorationSkipped, Name,
				"method %s has an unsupported return shape", m.Name).About(d.ID))
			continue
		}
		w := wrapper{
			Name:     naming.Wrapper(typeName, m.Name, p.cfg.Suffix),
			Method:   m.Name,
			Receiver: receiver,
			Value:    im.TypeExpr(value),
			Shape:    shape,
			bucket:   cmp.Or(entity(m.Decorations), declBucket, p.cfg.DefaultBucket),
		}
		types := make([]string, len(m.Params))
		for i, prm := range m.Params {
			if prm.Variadic {
				elem, _ := prm.Type.Elem()
				types[i] = "..." + im.TypeExpr(elem)
			} else {
				types[i] = im.TypeExpr(prm.Type)
			}
		}
		var args []string
		used := map[string]bool{"recv": true, "v": true, "err": true}
		for i, prm := range m.Params {
			name := prm.Name
			if name == "" || name == "_" || used[name] || im.Taken(name) {
				name = fmt.Sprintf("arg%d", i)
			}
			used[name] = true
			w.Params = append(w.Params, param{Name: name, Type: types[i]})
			if prm.Variadic {
				name += "..."
			}
			args = append(args, name)
		}
		w.Args = strings.Join(args, ", ")
		ws = append(ws, w)
	}
	if len(ws) == 0 {
		return artifact.Artifact{}, nil, nil
	}

	content, err := execute(wrappersTemplate, map[string]any{
		"Header":   gosrc.Header,
		"Display":  d.ID.String(),
		"Package":  ctx.Package,
		"Imports":  im.Block(),
		"Wrappers": ws,
	})
	if err != nil {
		return artifact.Artifact{}, nil, err
	}
	id := d.ID
	return artifact.Artifact{
		Name:    names.FileStem(id) + "_repo_meta.go",
		Content: content,
		Subject: &id,
	}, ws, nil
}

// bucketize groups wrappers by bucket, buckets sorted by name.
func bucketize(accessor string, ws []wrapper) []facet {
	byBucket := make(map[string][]wrapper)
	for _, w := range ws {
		byBucket[w.bucket] = append(byBucket[w.bucket], w)
	}
	names := make([]string, 0, len(byBucket))
	for b := range byBucket {
		names = append(names, b)
	}
	slices.Sort(names)
	out := make([]facet, 0, len(names))
	for _, b := range names {
		out = append(out, facet{Accessor: accessor, Bucket: b, Operations: byBucket[b]})
	}
	return out
}

// entity returns the string argument of a metagen:Entity decoration.
func entity(ds []model.Decoration) string {
	d, ok := model.FindDecoration(ds, discovery.MarkerNamespace, discovery.MarkerEntity)
	if !ok {
		return ""
	}
	if v, ok := d.Arg(0); ok && v.Kind == model.LiteralString {
		return v.Text
	}
	if v, ok := d.NamedValue("name"); ok && v.Kind == model.LiteralString {
		return v.Text
	}
	return ""
}

func isIdentifierSuffix(s string) bool {
	for _, r := range s {
		if !(r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')) {
			return false
		}
	}
	return true
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %s template: %w", tmpl.Name(), err)
	}
	src, err := gosrc.Format(buf.Bytes())
	if err != nil {
		return "", err
	}
	return string(src), nil
}
