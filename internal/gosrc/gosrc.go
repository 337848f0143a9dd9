// SPDX-License-Identifier: MPL-2.0

// Package gosrc holds the small Go-source rendering helpers shared by the
// generators: import bookkeeping, type spelling and gofmt.
package gosrc

import (
	"fmt"
	"go/format"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/invowk/metagen/pkg/model"
)

// Header is the first line of every generated Go file.
const Header = "// Code generated by metagen. DO NOT EDIT."

type (
	// Imports tracks the imports of one generated file and assigns
	// collision-free names.
	Imports struct {
		self   string
		byPath map[string]string
		taken  map[string]bool
	}

	// ImportSpec is one rendered import.
	ImportSpec struct {
		Name string
		Path string
		// Explicit is true when Name differs from the last path element.
		Explicit bool
	}
)

// NewImports returns the import set of a file in the package at selfPath.
func NewImports(selfPath string) *Imports {
	return &Imports{self: selfPath, byPath: make(map[string]string), taken: make(map[string]bool)}
}

// Add imports importPath and returns the name to qualify it with. pkgName is
// the package name when known; empty means the last path element.
func (im *Imports) Add(importPath, pkgName string) string {
	if importPath == "" || importPath == im.self {
		return ""
	}
	if name, ok := im.byPath[importPath]; ok {
		return name
	}
	base := pkgName
	if base == "" {
		base = path.Base(importPath)
	}
	name := base
	for i := 2; im.taken[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	im.byPath[importPath] = name
	im.taken[name] = true
	return name
}

// Reserve marks name as unavailable for imports (a local identifier).
func (im *Imports) Reserve(name string) { im.taken[name] = true }

// Taken reports whether name is used by an import or reserved.
func (im *Imports) Taken(name string) bool { return im.taken[name] }

// Specs returns the imports sorted by path.
func (im *Imports) Specs() []ImportSpec {
	out := make([]ImportSpec, 0, len(im.byPath))
	for p, name := range im.byPath {
		out = append(out, ImportSpec{Name: name, Path: p, Explicit: name != path.Base(p)})
	}
	slices.SortFunc(out, func(a, b ImportSpec) int { return strings.Compare(a.Path, b.Path) })
	return out
}

// Block renders the import declaration, or "" when there are no imports.
func (im *Imports) Block() string {
	specs := im.Specs()
	if len(specs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("import (\n")
	for _, s := range specs {
		b.WriteByte('\t')
		if s.Explicit {
			b.WriteString(s.Name)
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Quote(s.Path))
		b.WriteByte('\n')
	}
	b.WriteString(")\n")
	return b.String()
}

// TypeExpr spells t as a Go type expression valid in this file, importing
// the packages of named types as needed.
func (im *Imports) TypeExpr(t model.TypeRef) string {
	var b strings.Builder
	im.writeType(&b, t)
	return b.String()
}

func (im *Imports) writeType(b *strings.Builder, t model.TypeRef) {
	elem := func() {
		if e, ok := t.Elem(); ok {
			im.writeType(b, e)
		}
	}
	switch t.Kind {
	case model.KindNamed:
		if q := im.Add(t.Namespace, t.Package); q != "" {
			b.WriteString(q)
			b.WriteByte('.')
		}
		b.WriteString(t.Name)
		if len(t.Args) > 0 {
			b.WriteByte('[')
			for i, a := range t.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				im.writeType(b, a)
			}
			b.WriteByte(']')
		}
	case model.KindPointer:
		b.WriteByte('*')
		elem()
	case model.KindSlice:
		b.WriteString("[]")
		elem()
	case model.KindArray:
		fmt.Fprintf(b, "[%d]", t.Len)
		elem()
	case model.KindMap:
		b.WriteString("map[")
		if len(t.Args) == 2 {
			im.writeType(b, t.Args[0])
			b.WriteByte(']')
			im.writeType(b, t.Args[1])
		}
	case model.KindChan:
		switch t.Dir {
		case model.ChanSend:
			b.WriteString("chan<- ")
		case model.ChanRecv:
			b.WriteString("<-chan ")
		default:
			b.WriteString("chan ")
		}
		elem()
	default:
		b.WriteString(t.Name)
	}
}

// Format gofmts src. On failure the unformatted source is returned with the
// error so callers can report it.
func Format(src []byte) ([]byte, error) {
	out, err := format.Source(src)
	if err != nil {
		return src, fmt.Errorf("formatting generated source: %w", err)
	}
	return out, nil
}

// Quote returns s as a Go string literal.
func Quote(s string) string { return strconv.Quote(s) }
