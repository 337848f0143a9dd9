// SPDX-License-Identifier: MPL-2.0

// Package basegen renders the base metadata descriptors of a discovered set:
// one accessor file per declaration plus a registry file for the scope.
package basegen

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"text/template"

	"github.com/invowk/metagen/internal/artifact"
	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/discovery"
	"github.com/invowk/metagen/internal/gosrc"
	"github.com/invowk/metagen/internal/naming"
	"github.com/invowk/metagen/internal/xref"
	"github.com/invowk/metagen/pkg/model"
)

// RegistryFile is the name of the per-scope registry artifact.
const RegistryFile = "zz_registry_meta.go"

type (
	// Generator renders base descriptors.
	Generator struct {
		policy DecorationPolicy
		logger *slog.Logger
	}

	// Option configures a Generator.
	Option func(*Generator)

	// Options are the per-pass inputs of Generate.
	Options struct {
		Scope model.Scope
		// Package is the Go package name of the generated files.
		Package string
		// ScopeName is the short scope name used for registration functions.
		ScopeName string
		// Diagnostics enables informational diagnostics.
		Diagnostics bool
	}

	// Output is the result of Generate.
	Output struct {
		Artifacts []artifact.Artifact
		// Described lists the declarations whose descriptor was rendered,
		// in set order.
		Described   []model.Identity
		Diagnostics []diag.Diagnostic
	}

	descriptorData struct {
		Header      string
		Package     string
		Display     string
		Once        string
		Value       string
		Accessor    string
		Module      string
		Namespace   string
		Name        string
		Arity       int
		Kind        string
		TypeParams  []typeParamData
		Decorations []decorationData
		Members     []memberData
	}

	typeParamData struct {
		Name       string
		Constraint string
	}

	decorationData struct {
		Namespace string
		Name      string
	}

	memberData struct {
		Name             string
		Type             string
		Settable         bool
		Collection       bool
		GenericArguments []string
		Decorations      []decorationData
		Reference        string
	}

	registryData struct {
		Header       string
		Package      string
		Accessors    []string
		RegisterFunc string
	}
)

// WithPolicy replaces the decoration policy.
func WithPolicy(p DecorationPolicy) Option {
	return func(g *Generator) {
		if p != nil {
			g.policy = p
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New returns a Generator using DefaultPolicy.
func New(opts ...Option) *Generator {
	g := &Generator{
		policy: DefaultPolicy(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders one descriptor artifact per record of set and the scope
// registry. A declaration that fails to render is reported and skipped; the
// registry only lists descriptors that were rendered.
func (g *Generator) Generate(set *discovery.Set, opts Options) Output {
	var out Output
	names := naming.Assign(set.Identities())

	var accessors []string
	for _, rec := range set.Items() {
		a, ds, err := g.describe(rec, set, opts, names)
		out.Diagnostics = append(out.Diagnostics, ds...)
		if err != nil {
			g.logger.Warn("descriptor generation failed", "declaration", rec.ID(), "error", err)
			out.Diagnostics = append(out.Diagnostics,
				diag.New(diag.SeverityError, diag.CodeGenerationFailed, artifact.ProducerBase,
					"descriptor not generated").About(rec.ID()).Because(err))
			continue
		}
		out.Artifacts = append(out.Artifacts, a)
		out.Described = append(out.Described, rec.ID())
		accessors = append(accessors, names.Descriptor(rec.ID()))
	}

	slices.Sort(accessors)
	reg, err := render(registryTemplate, registryData{
		Header:       gosrc.Header,
		Package:      opts.Package,
		Accessors:    accessors,
		RegisterFunc: naming.RegistrationFunc(opts.ScopeName, ""),
	})
	if err != nil {
		out.Diagnostics = append(out.Diagnostics,
			diag.New(diag.SeverityError, diag.CodeGenerationFailed, artifact.ProducerBase,
				"registry not generated").Because(err))
		return out
	}
	out.Artifacts = append(out.Artifacts, artifact.Artifact{
		Name:     RegistryFile,
		Content:  reg,
		Producer: artifact.ProducerBase,
	})
	artifact.Sort(out.Artifacts)
	return out
}

func (g *Generator) describe(rec *discovery.Discovered, set *discovery.Set, opts Options, names naming.Names) (artifact.Artifact, []diag.Diagnostic, error) {
	d := rec.Declaration
	id := d.ID
	once, value := names.DescriptorOnce(id)
	spell := func(t model.TypeRef) string { return gosrc.NewImports(opts.Scope.Path).TypeExpr(t) }

	var diags []diag.Diagnostic
	data := descriptorData{
		Header:    gosrc.Header,
		Package:   opts.Package,
		Display:   id.String(),
		Once:      once,
		Value:     value,
		Accessor:  names.Descriptor(id),
		Module:    id.Module,
		Namespace: id.Namespace,
		Name:      id.Name,
		Arity:     id.Arity,
		Kind:      string(d.Kind),
	}
	for _, tp := range d.TypeParams {
		data.TypeParams = append(data.TypeParams, typeParamData{Name: tp.Name, Constraint: spell(tp.Constraint)})
	}
	data.Decorations, diags = g.decorations(d.Decorations, id, "", opts, diags)

	for _, m := range d.Members {
		md := memberData{
			Name:       m.Name,
			Type:       spell(m.Type),
			Settable:   m.Settable,
			Collection: xref.IsCollection(m.Type),
		}
		args := xref.ElementTypes(m.Type)
		if args == nil && m.Type.Kind == model.KindNamed {
			args = m.Type.Args
		}
		for _, a := range args {
			md.GenericArguments = append(md.GenericArguments, spell(a))
		}
		md.Decorations, diags = g.decorations(m.Decorations, id, m.Name, opts, diags)

		switch res := xref.ResolveMember(m, set); res.Kind {
		case xref.Reference:
			md.Reference = names.Descriptor(res.Target)
		case xref.Ambiguous:
			if opts.Diagnostics {
				diags = append(diags, diag.Info(diag.CodeXrefAmbiguous, artifact.ProducerBase,
					"member %s has type %s nesting a described declaration deeper than one level; treated as terminal",
					m.Name, m.Type).About(id))
			}
		}
		data.Members = append(data.Members, md)
	}

	content, err := render(descriptorTemplate, data)
	if err != nil {
		return artifact.Artifact{}, diags, err
	}
	return artifact.Artifact{
		Name:     names.FileStem(id) + "_meta.go",
		Content:  content,
		Subject:  &id,
		Producer: artifact.ProducerBase,
	}, diags, nil
}

func (g *Generator) decorations(ds []model.Decoration, owner model.Identity, member string, opts Options, diags []diag.Diagnostic) ([]decorationData, []diag.Diagnostic) {
	var out []decorationData
	for _, dec := range ds {
		ok, reason := g.policy.Capture(dec)
		if ok {
			out = append(out, decorationData{Namespace: dec.Namespace, Name: dec.Name})
			continue
		}
		if reason != "" && opts.Diagnostics {
			where := "declaration"
			if member != "" {
				where = "member " + member
			}
			diags = append(diags, diag.Info(diag.CodeDecorationSkipped, artifact.ProducerBase,
				"%s: %s skipped: %s", where, dec, reason).About(owner))
		}
	}
	return out, diags
}

func render(tmpl *template.Template, data any) (string, error) {
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
