// SPDX-License-Identifier: MPL-2.0

package modelfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/invowk/metagen/internal/basegen"
	"github.com/invowk/metagen/pkg/model"
)

// Encode renders prog as a JSON model document that Parse reads back into an
// equal program. Struct tag decorations are folded back into member tags.
func Encode(prog model.Program) ([]byte, error) {
	scope := prog.Scope()
	e := &encoder{scope: scope, packages: make(map[string]packageDoc)}
	doc := document{
		Scope:    scopeDoc{Name: scope.Name, Path: scope.Path, Module: scope.Module},
		Local:    e.declarations(prog.Local()),
		External: e.declarations(prog.External()),
	}
	if e.err != nil {
		return nil, e.err
	}
	for _, name := range slices.Sorted(maps.Keys(e.packages)) {
		doc.Packages = append(doc.Packages, e.packages[name])
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding model document: %w", err)
	}
	return buf.Bytes(), nil
}

type encoder struct {
	scope    model.Scope
	packages map[string]packageDoc
	err      error
}

func (e *encoder) declarations(decls []*model.Declaration) []declDoc {
	out := make([]declDoc, 0, len(decls))
	for _, d := range decls {
		dd := declDoc{
			Name:        d.ID.Name,
			Namespace:   d.ID.Namespace,
			Module:      d.ID.Module,
			Kind:        string(d.Kind),
			Decorations: e.decorations(d.Decorations),
			Position:    d.Position,
		}
		for _, tp := range d.TypeParams {
			dd.TypeParams = append(dd.TypeParams, typeParamDoc{Name: tp.Name, Constraint: e.typeString(tp.Constraint)})
		}
		for _, m := range d.Members {
			settable := m.Settable
			md := memberDoc{Name: m.Name, Type: e.typeString(m.Type), Settable: &settable, Embedded: m.Embedded}
			var tags []string
			for _, dec := range m.Decorations {
				if v, ok := dec.Arg(0); ok && dec.Namespace == basegen.TagNamespace && len(dec.Args) == 1 && len(dec.Named) == 0 {
					tags = append(tags, fmt.Sprintf("%s:%q", dec.Name, v.Text))
					continue
				}
				md.Decorations = append(md.Decorations, e.decoration(dec))
			}
			md.Tag = strings.Join(tags, " ")
			dd.Members = append(dd.Members, md)
		}
		for _, m := range d.Methods {
			md := methodDoc{Name: m.Name, PointerReceiver: m.PointerReceiver, Decorations: e.decorations(m.Decorations)}
			for _, p := range m.Params {
				pd := paramDoc{Name: p.Name, Type: e.typeString(p.Type)}
				if elem, ok := p.Type.Elem(); ok && p.Variadic {
					pd.Type = "..." + e.typeString(elem)
				}
				md.Params = append(md.Params, pd)
			}
			for _, r := range m.Results {
				md.Results = append(md.Results, e.typeString(r))
			}
			dd.Methods = append(dd.Methods, md)
		}
		out = append(out, dd)
	}
	return out
}

func (e *encoder) decorations(ds []model.Decoration) []string {
	var out []string
	for _, d := range ds {
		out = append(out, e.decoration(d))
	}
	return out
}

func (e *encoder) decoration(d model.Decoration) string {
	if d.Namespace == "" && e.err == nil {
		e.err = fmt.Errorf("decoration %s has no namespace", d.Name)
	}
	return d.String()
}

// typeString spells t and registers the packages its qualifiers name.
func (e *encoder) typeString(t model.TypeRef) string {
	e.register(t)
	return t.String()
}

func (e *encoder) register(t model.TypeRef) {
	for _, a := range t.Args {
		e.register(a)
	}
	if t.Kind != model.KindNamed || t.Namespace == "" {
		return
	}
	q := t.Qualifier()
	if t.Namespace == e.scope.Path && q == e.scope.Name {
		return
	}
	if prev, ok := e.packages[q]; ok {
		if prev.Path != t.Namespace && e.err == nil {
			e.err = fmt.Errorf("qualifier %q names both %s and %s", q, prev.Path, t.Namespace)
		}
		return
	}
	e.packages[q] = packageDoc{Path: t.Namespace, Name: q, Module: t.Module}
}
