// SPDX-License-Identifier: MPL-2.0

package meta

import "strconv"

type (
	// TypeDescriptor mirrors the shape of a described declaration.
	TypeDescriptor struct {
		Module           string
		Namespace        string
		Name             string
		Arity            int
		Kind             string
		GenericArguments []TypeParameter
		Decorations      []Decoration
		Members          []MemberDescriptor
	}

	// TypeParameter is a generic parameter and its constraint spelling.
	TypeParameter struct {
		Name       string
		Constraint string
	}

	// Decoration is a captured argument-free decoration.
	Decoration struct {
		Namespace string
		Name      string
	}

	// MemberDescriptor mirrors one member of a described declaration.
	MemberDescriptor struct {
		Name       string
		Type       string
		Settable   bool
		Collection bool
		// GenericArguments holds the spelled type arguments of Type.
		GenericArguments []string
		Decorations      []Decoration
		// Reference returns the descriptor of the referenced declaration when
		// the member cross-references another described declaration.
		Reference func() *TypeDescriptor
	}
)

// Key returns the registry key of the descriptor.
func (d *TypeDescriptor) Key() string {
	k := d.Namespace + "." + d.Name
	if d.Arity > 0 {
		k += "`" + strconv.Itoa(d.Arity)
	}
	return k
}

// Member returns the member named name.
func (d *TypeDescriptor) Member(name string) (MemberDescriptor, bool) {
	for _, m := range d.Members {
		if m.Name == name {
			return m, true
		}
	}
	return MemberDescriptor{}, false
}

// HasDecoration reports whether the descriptor captured namespace:name.
func (d *TypeDescriptor) HasDecoration(namespace, name string) bool {
	for _, dec := range d.Decorations {
		if dec.Namespace == namespace && dec.Name == name {
			return true
		}
	}
	return false
}

// IsReference reports whether the member links to another descriptor.
func (m MemberDescriptor) IsReference() bool { return m.Reference != nil }

// Target returns the referenced descriptor, or nil.
func (m MemberDescriptor) Target() *TypeDescriptor {
	if m.Reference == nil {
		return nil
	}
	return m.Reference()
}
