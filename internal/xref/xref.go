// SPDX-License-Identifier: MPL-2.0

// Package xref decides whether a member's type refers to another declaration
// of the discovered set.
//
// One reference candidate is computed per type: the type itself when it is a
// named declaration, the element of a single pointer, or the first generic
// slot of a recognized collection shape (whose element may itself be a single
// pointer). Anything nested deeper is never guessed at: it is Ambiguous when
// it mentions a discovered declaration and Terminal otherwise.
package xref

import "github.com/invowk/metagen/pkg/model"

const (
	// Terminal means the member does not reference the discovered set.
	Terminal Kind = iota
	// Reference means the member links to Resolution.Target.
	Reference
	// Ambiguous means the type nests a discovered declaration deeper than the
	// resolver unwraps. It is treated as a non-match.
	Ambiguous
)

const (
	ViaDirect     Via = "direct"
	ViaPointer    Via = "pointer"
	ViaCollection Via = "collection"
)

type (
	// Kind is the outcome of resolving a type.
	Kind int

	// Via tells how the candidate was reached.
	Via string

	// Set is the view of the discovered set the resolver consults.
	Set interface {
		Contains(id model.Identity) bool
	}

	// Resolution is the outcome of resolving one type reference.
	Resolution struct {
		Kind   Kind
		Target model.Identity
		Via    Via
		// Shape is the collection shape unwrapped, when Via is ViaCollection.
		Shape Shape
	}
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case Reference:
		return "reference"
	case Ambiguous:
		return "ambiguous"
	default:
		return "terminal"
	}
}

// IsReference reports whether the resolution links to a target.
func (r Resolution) IsReference() bool { return r.Kind == Reference }

// Candidate returns the single reference candidate of t. ok is false when t
// has no candidate; nested is true when t had a shape the resolver refuses to
// unwrap.
func Candidate(t model.TypeRef) (cand model.TypeRef, via Via, shape Shape, ok, nested bool) {
	if s, isColl := CollectionShape(t); isColl {
		slot := t.Args[0]
		if isPlainNamed(slot) {
			return slot, ViaCollection, s, true, false
		}
		if slot.Kind == model.KindPointer {
			if e, hasElem := slot.Elem(); hasElem && isPlainNamed(e) {
				return e, ViaCollection, s, true, false
			}
		}
		return model.TypeRef{}, "", s, false, isComposite(slot)
	}
	switch t.Kind {
	case model.KindNamed:
		return t, ViaDirect, "", true, false
	case model.KindPointer:
		e, hasElem := t.Elem()
		if hasElem && isPlainNamed(e) {
			return e, ViaPointer, "", true, false
		}
		return model.TypeRef{}, "", "", false, hasElem && isComposite(e)
	default:
		return model.TypeRef{}, "", "", false, false
	}
}

// Resolve resolves t against set.
func Resolve(t model.TypeRef, set Set) Resolution {
	cand, via, shape, ok, nested := Candidate(t)
	if ok {
		if id, named := cand.Identity(); named && set.Contains(id) {
			return Resolution{Kind: Reference, Target: id, Via: via, Shape: shape}
		}
		return Resolution{Kind: Terminal}
	}
	if nested && mentions(t, set) {
		return Resolution{Kind: Ambiguous, Shape: shape}
	}
	return Resolution{Kind: Terminal}
}

// ResolveMember resolves the declared type of m against set.
func ResolveMember(m model.Member, set Set) Resolution { return Resolve(m.Type, set) }

func isPlainNamed(t model.TypeRef) bool {
	return t.Kind == model.KindNamed && !IsCollection(t)
}

func isComposite(t model.TypeRef) bool {
	return t.Kind == model.KindPointer || IsCollection(t)
}

// mentions reports whether any named type nested in t is in set.
func mentions(t model.TypeRef, set Set) bool {
	if t.Kind == model.KindNamed && !IsCollection(t) {
		if id, _ := t.Identity(); set.Contains(id) {
			return true
		}
	}
	for _, a := range t.Args {
		if mentions(a, set) {
			return true
		}
	}
	return false
}
