// SPDX-License-Identifier: MPL-2.0

package goload

import (
	"fmt"
	"go/ast"
	"go/token"
	"path"
	"path/filepath"
	"strconv"

	"golang.org/x/tools/go/packages"

	"github.com/invowk/metagen/internal/basegen"
	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/gosyntax"
	"github.com/invowk/metagen/pkg/model"
)

type (
	// refs collects the named types of other packages a package mentions,
	// keyed by import path.
	refs map[string]*extRef

	extRef struct {
		module string
		names  map[string]bool
	}

	// fileScope resolves identifiers of one source file.
	fileScope struct {
		l       *loader
		pkg     *packages.Package
		imports map[string]string
		params  map[string]bool
		refs    refs
	}

	typeDecl struct {
		spec *ast.TypeSpec
		doc  *ast.CommentGroup
		file *fileScope
	}
)

func importPath(spec *ast.ImportSpec) string {
	p, err := strconv.Unquote(spec.Path.Value)
	if err != nil {
		return ""
	}
	return p
}

// collect converts the type declarations of pkg accepted by want (nil means
// all) and returns them with the external references they make.
func (l *loader) collect(pkg *packages.Package, want func(string) bool) ([]*model.Declaration, refs) {
	found := make(refs)
	var order []typeDecl
	enums := make(map[string]bool)
	methods := make(map[string][]*ast.FuncDecl)
	files := make(map[*ast.FuncDecl]*fileScope)

	for _, f := range pkg.Syntax {
		if ast.IsGenerated(f) {
			l.logger.Debug("skipping generated file", "file", pkg.Fset.Position(f.Pos()).Filename)
			continue
		}
		fs := &fileScope{l: l, pkg: pkg, imports: make(map[string]string), refs: found}
		for _, spec := range f.Imports {
			p := importPath(spec)
			switch {
			case spec.Name == nil:
				fs.imports[packageName(l.known[p], p)] = p
			case spec.Name.Name != "_" && spec.Name.Name != ".":
				fs.imports[spec.Name.Name] = p
			}
		}
		for _, decl := range f.Decls {
			switch decl := decl.(type) {
			case *ast.GenDecl:
				switch decl.Tok {
				case token.TYPE:
					for _, s := range decl.Specs {
						ts := s.(*ast.TypeSpec)
						doc := ts.Doc
						if doc == nil && !decl.Lparen.IsValid() {
							doc = decl.Doc
						}
						order = append(order, typeDecl{spec: ts, doc: doc, file: fs})
					}
				case token.CONST:
					markEnums(decl, enums)
				}
			case *ast.FuncDecl:
				if name := receiverName(decl); name != "" {
					methods[name] = append(methods[name], decl)
					files[decl] = fs
				}
			}
		}
	}

	var out []*model.Declaration
	for _, td := range order {
		ts := td.spec
		if ts.Assign.IsValid() || (want != nil && !want(ts.Name.Name)) {
			continue
		}
		out = append(out, td.file.declaration(td, enums[ts.Name.Name], methods[ts.Name.Name], files))
	}
	return out, found
}

// markEnums records the named types given to constants, following the
// implicit repetition of the previous spec inside a const block.
func markEnums(decl *ast.GenDecl, enums map[string]bool) {
	var last ast.Expr
	for _, s := range decl.Specs {
		vs := s.(*ast.ValueSpec)
		switch {
		case vs.Type != nil:
			last = vs.Type
		case len(vs.Values) > 0:
			last = nil
		}
		if id, ok := last.(*ast.Ident); ok {
			enums[id.Name] = true
		}
	}
}

func receiverName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch x := expr.(type) {
	case *ast.IndexExpr:
		expr = x.X
	case *ast.IndexListExpr:
		expr = x.X
	}
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func packageName(pkg *packages.Package, importPath string) string {
	if pkg != nil && pkg.Name != "" {
		return pkg.Name
	}
	return path.Base(importPath)
}

func (fs *fileScope) declaration(td typeDecl, enum bool, fns []*ast.FuncDecl, files map[*ast.FuncDecl]*fileScope) *model.Declaration {
	ts := td.spec
	d := &model.Declaration{
		ID: model.Identity{
			Module:    modulePath(fs.pkg),
			Namespace: fs.pkg.PkgPath,
			Name:      ts.Name.Name,
		},
		Position: fs.position(ts.Pos()),
	}
	fs.params = make(map[string]bool)
	if ts.TypeParams != nil {
		for _, field := range ts.TypeParams.List {
			for _, n := range field.Names {
				fs.params[n.Name] = true
			}
		}
		for _, field := range ts.TypeParams.List {
			for _, n := range field.Names {
				d.TypeParams = append(d.TypeParams, model.TypeParam{Name: n.Name, Constraint: fs.typeRef(field.Type)})
			}
		}
	}
	d.ID.Arity = len(d.TypeParams)
	d.Decorations = fs.directives(d.ID, td.doc)

	switch t := ts.Type.(type) {
	case *ast.StructType:
		d.Kind = model.DeclStruct
		d.Members = fs.members(d.ID, t.Fields)
	case *ast.InterfaceType:
		d.Kind = model.DeclInterface
		for _, field := range t.Methods.List {
			ft, ok := field.Type.(*ast.FuncType)
			if !ok || len(field.Names) == 0 {
				continue
			}
			m := fs.method(field.Names[0].Name, ft)
			m.Decorations = fs.directives(d.ID, field.Doc)
			d.Methods = append(d.Methods, m)
		}
	case *ast.Ident:
		d.Kind = model.DeclClass
		if enum && gosyntax.IsPredeclared(t.Name) {
			d.Kind = model.DeclEnum
		}
	default:
		d.Kind = model.DeclClass
	}

	for _, fn := range fns {
		mfs := files[fn]
		mfs.params = fs.params
		m := mfs.method(fn.Name.Name, fn.Type)
		_, m.PointerReceiver = fn.Recv.List[0].Type.(*ast.StarExpr)
		m.Decorations = mfs.directives(d.ID, fn.Doc)
		d.Methods = append(d.Methods, m)
	}
	return d
}

func (fs *fileScope) members(owner model.Identity, fields *ast.FieldList) []model.Member {
	var out []model.Member
	for _, field := range fields.List {
		t := fs.typeRef(field.Type)
		decs := fs.directives(owner, field.Doc, field.Comment)
		if field.Tag != nil {
			if tag, err := strconv.Unquote(field.Tag.Value); err == nil {
				decs = append(decs, gosyntax.StructTags(basegen.TagNamespace, tag)...)
			}
		}
		if len(field.Names) == 0 {
			name := embeddedName(field.Type)
			out = append(out, fs.member(name, t, decs, true))
			continue
		}
		for _, n := range field.Names {
			out = append(out, fs.member(n.Name, t, decs, false))
		}
	}
	return out
}

func (fs *fileScope) member(name string, t model.TypeRef, decs []model.Decoration, embedded bool) model.Member {
	m := model.Member{
		Name:     name,
		Type:     t,
		Settable: ast.IsExported(name),
		Embedded: embedded,
	}
	switch t.Kind {
	case model.KindSlice, model.KindArray, model.KindMap:
		m.Collection = true
	}
	if len(decs) > 0 {
		m.Decorations = make([]model.Decoration, len(decs))
		for i, dec := range decs {
			m.Decorations[i] = dec.Clone()
		}
	}
	return m
}

func embeddedName(expr ast.Expr) string {
	switch x := expr.(type) {
	case *ast.StarExpr:
		return embeddedName(x.X)
	case *ast.SelectorExpr:
		return x.Sel.Name
	case *ast.IndexExpr:
		return embeddedName(x.X)
	case *ast.IndexListExpr:
		return embeddedName(x.X)
	case *ast.Ident:
		return x.Name
	default:
		return ""
	}
}

func (fs *fileScope) method(name string, ft *ast.FuncType) model.Method {
	m := model.Method{Name: name, Exported: ast.IsExported(name)}
	if ft.Params != nil {
		for _, field := range ft.Params.List {
			variadic := false
			expr := field.Type
			if ell, ok := expr.(*ast.Ellipsis); ok {
				variadic = true
				expr = ell.Elt
			}
			t := fs.typeRef(expr)
			if variadic {
				t = model.Slice(t)
			}
			if len(field.Names) == 0 {
				m.Params = append(m.Params, model.Param{Type: t, Variadic: variadic})
				continue
			}
			for _, n := range field.Names {
				m.Params = append(m.Params, model.Param{Name: n.Name, Type: t.Clone(), Variadic: variadic})
			}
		}
	}
	if ft.Results != nil {
		for _, field := range ft.Results.List {
			t := fs.typeRef(field.Type)
			for range max(1, len(field.Names)) {
				m.Results = append(m.Results, t.Clone())
			}
		}
	}
	return m
}

// Local implements gosyntax.Resolver.
func (fs *fileScope) Local(name string) model.TypeRef {
	t := model.Named(modulePath(fs.pkg), fs.pkg.PkgPath, name)
	t.Package = fs.pkg.Name
	return t
}

// Qualified implements gosyntax.Resolver.
func (fs *fileScope) Qualified(qualifier, name string) (model.TypeRef, bool) {
	p, ok := fs.imports[qualifier]
	if !ok {
		return model.TypeRef{}, false
	}
	dep := fs.l.known[p]
	t := model.Named(modulePath(dep), p, name)
	t.Package = packageName(dep, p)
	fs.refer(t)
	return t, true
}

func (fs *fileScope) typeRef(expr ast.Expr) model.TypeRef {
	return gosyntax.Converter{Params: fs.params, Resolver: fs}.TypeRef(expr)
}

// refer records a named reference into another package.
func (fs *fileScope) refer(t model.TypeRef) {
	if t.Namespace == fs.pkg.PkgPath {
		return
	}
	r, ok := fs.refs[t.Namespace]
	if !ok {
		r = &extRef{module: t.Module, names: make(map[string]bool)}
		fs.refs[t.Namespace] = r
	}
	r.names[t.Name] = true
}

func (fs *fileScope) position(pos token.Pos) string {
	p := fs.pkg.Fset.Position(pos)
	if !p.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(p.Filename), p.Line)
}

// directives parses the directive comments of groups. Malformed directives
// are reported and skipped.
func (fs *fileScope) directives(subject model.Identity, groups ...*ast.CommentGroup) []model.Decoration {
	var out []model.Decoration
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			ns, body, ok := gosyntax.SplitDirective(c.Text)
			if !ok || !fs.l.namespaces[ns] {
				continue
			}
			d, err := gosyntax.ParseDirective(ns, body)
			if err != nil {
				fs.l.report(diag.Warning(diag.CodeDirectiveInvalid, Source,
					"%s: directive ignored", fs.position(c.Pos())).About(subject).Because(err))
				continue
			}
			out = append(out, d)
		}
	}
	return out
}
