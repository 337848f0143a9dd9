// SPDX-License-Identifier: MPL-2.0

// Package modelfile reads and writes program model documents.
//
// A model document is CUE or JSON validated against an embedded schema. It
// lets a pass run without a Go toolchain and makes fixtures reviewable:
//
//	scope: {name: "shop", path: "example.com/shop", module: "example.com/shop"}
//	local: [{
//		name: "Order"
//		decorations: ["metagen:Describe"]
//		members: [{name: "Lines", type: "[]LineItem"}]
//	}]
//
// Types are Go type expressions. Unqualified names refer to the declaring
// namespace; qualifiers name the scope package or an entry of packages.
package modelfile

import (
	_ "embed"
	"errors"
	"fmt"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/invowk/metagen/internal/basegen"
	"github.com/invowk/metagen/internal/gosyntax"
	"github.com/invowk/metagen/pkg/cueutil"
	"github.com/invowk/metagen/pkg/model"
	"github.com/invowk/metagen/pkg/types"
)

const schemaPath = "#Model"

var (
	//go:embed model_schema.cue
	modelSchema []byte

	// ErrInvalidModel is the sentinel error wrapped by FieldError.
	ErrInvalidModel = errors.New("invalid model document")
	// ErrUnsupportedFormat is returned for a document that is neither CUE nor JSON.
	ErrUnsupportedFormat = errors.New("unsupported model document format")
)

type (
	document struct {
		Scope    scopeDoc     `json:"scope"`
		Packages []packageDoc `json:"packages,omitempty"`
		Local    []declDoc    `json:"local,omitempty"`
		External []declDoc    `json:"external,omitempty"`
	}

	scopeDoc struct {
		Name   string `json:"name"`
		Path   string `json:"path"`
		Module string `json:"module,omitempty"`
	}

	packageDoc struct {
		Path   string `json:"path"`
		Name   string `json:"name,omitempty"`
		Module string `json:"module,omitempty"`
	}

	typeParamDoc struct {
		Name       string `json:"name"`
		Constraint string `json:"constraint,omitempty"`
	}

	memberDoc struct {
		Name        string   `json:"name"`
		Type        string   `json:"type"`
		Settable    *bool    `json:"settable,omitempty"`
		Embedded    bool     `json:"embedded,omitempty"`
		Tag         string   `json:"tag,omitempty"`
		Decorations []string `json:"decorations,omitempty"`
	}

	paramDoc struct {
		Name string `json:"name,omitempty"`
		Type string `json:"type"`
	}

	methodDoc struct {
		Name            string     `json:"name"`
		Params          []paramDoc `json:"params,omitempty"`
		Results         []string   `json:"results,omitempty"`
		PointerReceiver bool       `json:"pointer_receiver,omitempty"`
		Decorations     []string   `json:"decorations,omitempty"`
	}

	declDoc struct {
		Name        string         `json:"name"`
		Namespace   string         `json:"namespace,omitempty"`
		Module      string         `json:"module,omitempty"`
		Kind        string         `json:"kind,omitempty"`
		TypeParams  []typeParamDoc `json:"type_params,omitempty"`
		Decorations []string       `json:"decorations,omitempty"`
		Members     []memberDoc    `json:"members,omitempty"`
		Methods     []methodDoc    `json:"methods,omitempty"`
		Position    string         `json:"position,omitempty"`
	}

	// FieldError reports an invalid value at a document location such as
	// "local[0].members[2].type".
	FieldError struct {
		Field string
		Cause error
	}
)

// Error implements the error interface.
func (e *FieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Cause) }

// Unwrap returns ErrInvalidModel and the cause.
func (e *FieldError) Unwrap() []error { return []error{ErrInvalidModel, e.Cause} }

// Load reads the model document at p. The format follows the extension:
// .cue or .json.
func Load(p types.FilesystemPath) (*model.Snapshot, error) {
	if ok, errs := p.IsValid(); !ok {
		return nil, errors.Join(errs...)
	}
	switch ext := strings.ToLower(filepath.Ext(p.String())); ext {
	case ".cue", ".json":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	data, err := os.ReadFile(p.String())
	if err != nil {
		return nil, fmt.Errorf("reading model document: %w", err)
	}
	return Parse(data, p.String())
}

// Parse decodes a CUE or JSON model document. filename is used in error
// messages.
func Parse(data []byte, filename string) (*model.Snapshot, error) {
	res, err := cueutil.ParseAndDecode[document](modelSchema, data, schemaPath, cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return build(res.Value)
}

// builder converts a decoded document, collecting every problem.
type builder struct {
	scope    model.Scope
	packages map[string]packageDoc
	errs     []error
}

func build(doc *document) (*model.Snapshot, error) {
	b := &builder{
		scope:    model.Scope{Name: doc.Scope.Name, Path: doc.Scope.Path, Module: doc.Scope.Module},
		packages: make(map[string]packageDoc),
	}
	b.packages[doc.Scope.Name] = packageDoc{Path: doc.Scope.Path, Name: doc.Scope.Name, Module: doc.Scope.Module}
	for i, p := range doc.Packages {
		name := p.Name
		if name == "" {
			name = path.Base(p.Path)
		}
		if prev, dup := b.packages[name]; dup && prev.Path != p.Path {
			b.fail(fmt.Sprintf("packages[%d].name", i), fmt.Errorf("qualifier %q already names %s", name, prev.Path))
			continue
		}
		p.Name = name
		b.packages[name] = p
	}

	local := b.declarations("local", doc.Local, true)
	external := b.declarations("external", doc.External, false)
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return model.NewSnapshot(b.scope, local, external)
}

func (b *builder) fail(field string, err error) {
	b.errs = append(b.errs, &FieldError{Field: field, Cause: err})
}

func (b *builder) declarations(field string, docs []declDoc, local bool) []*model.Declaration {
	out := make([]*model.Declaration, 0, len(docs))
	for i, dd := range docs {
		at := fmt.Sprintf("%s[%d]", field, i)
		d := &model.Declaration{
			ID:       model.Identity{Module: dd.Module, Namespace: dd.Namespace, Name: dd.Name, Arity: len(dd.TypeParams)},
			Kind:     model.DeclKind(dd.Kind),
			Position: dd.Position,
		}
		switch {
		case d.ID.Namespace == "" && local:
			d.ID.Namespace = b.scope.Path
		case d.ID.Namespace == "":
			b.fail(at+".namespace", errors.New("external declarations need a namespace"))
			continue
		}
		if d.ID.Module == "" {
			d.ID.Module = b.moduleOf(d.ID.Namespace)
		}
		if d.Kind == "" {
			d.Kind = model.DeclStruct
		}

		conv := gosyntax.Converter{Params: make(map[string]bool), Resolver: &resolver{b: b, module: d.ID.Module, namespace: d.ID.Namespace}}
		for _, tp := range dd.TypeParams {
			conv.Params[tp.Name] = true
		}
		for j, tp := range dd.TypeParams {
			c := model.Basic("any")
			if tp.Constraint != "" {
				c = b.parseType(conv, fmt.Sprintf("%s.type_params[%d].constraint", at, j), tp.Constraint)
			}
			d.TypeParams = append(d.TypeParams, model.TypeParam{Name: tp.Name, Constraint: c})
		}
		d.Decorations = b.decorations(at, dd.Decorations)
		for j, md := range dd.Members {
			d.Members = append(d.Members, b.member(conv, fmt.Sprintf("%s.members[%d]", at, j), md))
		}
		for j, md := range dd.Methods {
			d.Methods = append(d.Methods, b.method(conv, fmt.Sprintf("%s.methods[%d]", at, j), md))
		}
		out = append(out, d)
	}
	return out
}

func (b *builder) member(conv gosyntax.Converter, at string, md memberDoc) model.Member {
	m := model.Member{
		Name:     md.Name,
		Type:     b.parseType(conv, at+".type", md.Type),
		Settable: token.IsExported(md.Name),
		Embedded: md.Embedded,
	}
	if md.Settable != nil {
		m.Settable = *md.Settable
	}
	switch m.Type.Kind {
	case model.KindSlice, model.KindArray, model.KindMap:
		m.Collection = true
	}
	m.Decorations = b.decorations(at, md.Decorations)
	if md.Tag != "" {
		m.Decorations = append(m.Decorations, gosyntax.StructTags(basegen.TagNamespace, md.Tag)...)
	}
	return m
}

func (b *builder) method(conv gosyntax.Converter, at string, md methodDoc) model.Method {
	m := model.Method{
		Name:            md.Name,
		PointerReceiver: md.PointerReceiver,
		Exported:        token.IsExported(md.Name),
	}
	for i, pd := range md.Params {
		field := fmt.Sprintf("%s.params[%d].type", at, i)
		src, variadic := strings.CutPrefix(pd.Type, "...")
		if variadic && i != len(md.Params)-1 {
			b.fail(field, errors.New("only the last parameter may be variadic"))
		}
		t := b.parseType(conv, field, src)
		if variadic {
			t = model.Slice(t)
		}
		m.Params = append(m.Params, model.Param{Name: pd.Name, Type: t, Variadic: variadic})
	}
	for i, src := range md.Results {
		m.Results = append(m.Results, b.parseType(conv, fmt.Sprintf("%s.results[%d]", at, i), src))
	}
	m.Decorations = b.decorations(at, md.Decorations)
	return m
}

func (b *builder) parseType(conv gosyntax.Converter, field, src string) model.TypeRef {
	r := conv.Resolver.(*resolver)
	r.unknown = nil
	t, err := conv.ParseType(src)
	if err == nil && len(r.unknown) > 0 {
		err = fmt.Errorf("unknown package qualifier %s", strings.Join(r.unknown, ", "))
	}
	if err != nil {
		b.fail(field, err)
		return model.TypeRef{}
	}
	return t
}

func (b *builder) decorations(at string, srcs []string) []model.Decoration {
	var out []model.Decoration
	for i, src := range srcs {
		d, err := gosyntax.ParseDecoration(src)
		if err != nil {
			b.fail(fmt.Sprintf("%s.decorations[%d]", at, i), err)
			continue
		}
		out = append(out, d)
	}
	return out
}

func (b *builder) moduleOf(namespace string) string {
	for _, p := range b.packages {
		if p.Path == namespace {
			return p.Module
		}
	}
	return ""
}

// resolver binds the identifiers of one declaration.
type resolver struct {
	b         *builder
	module    string
	namespace string
	unknown   []string
}

// Local implements gosyntax.Resolver.
func (r *resolver) Local(name string) model.TypeRef {
	t := model.Named(r.module, r.namespace, name)
	if r.namespace == r.b.scope.Path {
		t.Package = r.b.scope.Name
	}
	return t
}

// Qualified implements gosyntax.Resolver.
func (r *resolver) Qualified(qualifier, name string) (model.TypeRef, bool) {
	p, ok := r.b.packages[qualifier]
	if !ok {
		r.unknown = append(r.unknown, qualifier)
		return model.TypeRef{}, false
	}
	t := model.Named(p.Module, p.Path, name)
	t.Package = p.Name
	return t, true
}
