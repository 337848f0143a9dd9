// SPDX-License-Identifier: MPL-2.0

package model

import "slices"

const (
	// DeclStruct is a Go struct or another value aggregate.
	DeclStruct DeclKind = "struct"
	// DeclClass is a reference aggregate (a named non-struct type in Go).
	DeclClass DeclKind = "class"
	// DeclRecord is an immutable aggregate.
	DeclRecord DeclKind = "record"
	// DeclEnum is an enum-like type: a named basic type with declared constants.
	DeclEnum DeclKind = "enum"
	// DeclInterface is an interface type.
	DeclInterface DeclKind = "interface"
)

const (
	// OriginLocal marks a declaration authored in the scope being generated,
	// with syntax-level decoration data.
	OriginLocal Origin = iota
	// OriginExternal marks a declaration referenced from another module,
	// with metadata-level decoration data.
	OriginExternal
)

type (
	// DeclKind classifies a declaration.
	DeclKind string

	// Origin tells where a declaration was sourced from.
	Origin int

	// TypeParam is a generic parameter of a declaration.
	TypeParam struct {
		Name       string
		Constraint TypeRef
	}

	// Member is a field or property of a declaration.
	Member struct {
		Name string
		Type TypeRef
		// Settable is true when code outside the declaring scope may assign it.
		Settable bool
		// Collection is the adapter's own collection hint. Generators
		// re-derive collection-ness from Type against their closed shape list.
		Collection  bool
		Embedded    bool
		Decorations []Decoration
	}

	// Param is a method parameter. For a variadic parameter Type is the
	// slice type.
	Param struct {
		Name     string
		Type     TypeRef
		Variadic bool
	}

	// Method is a function declared on a declaration.
	Method struct {
		Name            string
		Params          []Param
		Results         []TypeRef
		Decorations     []Decoration
		PointerReceiver bool
		Exported        bool
	}

	// Declaration is an immutable snapshot of a type-like construct.
	Declaration struct {
		ID          Identity
		Kind        DeclKind
		Origin      Origin
		TypeParams  []TypeParam
		Decorations []Decoration
		Members     []Member
		Methods     []Method
		// Position is a human-readable source location, if known.
		Position string
	}
)

// String returns the provenance label of the origin.
func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local-syntax"
	case OriginExternal:
		return "external-reference"
	default:
		return "unknown"
	}
}

// GenericArguments returns the type arguments of the member's type.
func (m Member) GenericArguments() []TypeRef { return slices.Clone(m.Type.Args) }

// Decoration returns the first decoration namespace:name on the declaration.
func (d *Declaration) Decoration(namespace, name string) (Decoration, bool) {
	return FindDecoration(d.Decorations, namespace, name)
}

// HasDecoration reports whether the declaration carries namespace:name.
func (d *Declaration) HasDecoration(namespace, name string) bool {
	_, ok := d.Decoration(namespace, name)
	return ok
}

// Member returns the member called name.
func (d *Declaration) Member(name string) (Member, bool) {
	for _, m := range d.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// Clone returns a deep copy of the declaration.
func (d *Declaration) Clone() *Declaration {
	if d == nil {
		return nil
	}
	c := *d
	if d.TypeParams != nil {
		c.TypeParams = make([]TypeParam, len(d.TypeParams))
		for i, tp := range d.TypeParams {
			c.TypeParams[i] = TypeParam{Name: tp.Name, Constraint: tp.Constraint.Clone()}
		}
	}
	c.Decorations = cloneDecorations(d.Decorations)
	if d.Members != nil {
		c.Members = make([]Member, len(d.Members))
		for i, m := range d.Members {
			m.Type = m.Type.Clone()
			m.Decorations = cloneDecorations(m.Decorations)
			c.Members[i] = m
		}
	}
	if d.Methods != nil {
		c.Methods = make([]Method, len(d.Methods))
		for i, m := range d.Methods {
			params := make([]Param, len(m.Params))
			for j, p := range m.Params {
				p.Type = p.Type.Clone()
				params[j] = p
			}
			results := make([]TypeRef, len(m.Results))
			for j, r := range m.Results {
				results[j] = r.Clone()
			}
			m.Params = params
			m.Results = results
			m.Decorations = cloneDecorations(m.Decorations)
			c.Methods[i] = m
		}
	}
	return &c
}
