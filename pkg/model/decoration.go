// SPDX-License-Identifier: MPL-2.0

package model

import (
	"slices"
	"strconv"
	"strings"
)

const (
	// LiteralString is a quoted string argument.
	LiteralString LiteralKind = "string"
	// LiteralInt is an integer argument.
	LiteralInt LiteralKind = "int"
	// LiteralFloat is a floating point argument.
	LiteralFloat LiteralKind = "float"
	// LiteralBool is a boolean argument.
	LiteralBool LiteralKind = "bool"
)

type (
	// LiteralKind classifies a decoration argument.
	LiteralKind string

	// Literal is a literal-constructible decoration argument. Text holds the
	// unquoted value for strings and the canonical spelling otherwise.
	Literal struct {
		Kind LiteralKind
		Text string
	}

	// NamedArg is a name=value decoration argument.
	NamedArg struct {
		Name  string
		Value Literal
	}

	// Decoration is a marker attached to a declaration, member or method, with
	// optional constructor (positional) and named arguments.
	Decoration struct {
		Namespace string
		Name      string
		Args      []Literal
		Named     []NamedArg
	}
)

// String returns a literal string argument.
func String(s string) Literal { return Literal{Kind: LiteralString, Text: s} }

// Int returns a literal integer argument.
func Int(v int64) Literal { return Literal{Kind: LiteralInt, Text: strconv.FormatInt(v, 10)} }

// Bool returns a literal boolean argument.
func Bool(v bool) Literal { return Literal{Kind: LiteralBool, Text: strconv.FormatBool(v)} }

// GoString spells the literal as Go source.
func (l Literal) GoString() string {
	if l.Kind == LiteralString {
		return strconv.Quote(l.Text)
	}
	return l.Text
}

// Is reports whether d is namespace:name.
func (d Decoration) Is(namespace, name string) bool {
	return d.Namespace == namespace && d.Name == name
}

// HasArguments reports whether the decoration carries constructor or named
// arguments.
func (d Decoration) HasArguments() bool { return len(d.Args) > 0 || len(d.Named) > 0 }

// Arg returns the i-th positional argument.
func (d Decoration) Arg(i int) (Literal, bool) {
	if i < 0 || i >= len(d.Args) {
		return Literal{}, false
	}
	return d.Args[i], true
}

// NamedValue returns the value of the named argument name.
func (d Decoration) NamedValue(name string) (Literal, bool) {
	for _, na := range d.Named {
		if na.Name == name {
			return na.Value, true
		}
	}
	return Literal{}, false
}

// String renders the decoration as namespace:Name(args).
func (d Decoration) String() string {
	var b strings.Builder
	if d.Namespace != "" {
		b.WriteString(d.Namespace)
		b.WriteByte(':')
	}
	b.WriteString(d.Name)
	if !d.HasArguments() {
		return b.String()
	}
	b.WriteByte('(')
	first := true
	for _, a := range d.Args {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(a.GoString())
	}
	for _, na := range d.Named {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(na.Name)
		b.WriteByte('=')
		b.WriteString(na.Value.GoString())
	}
	b.WriteByte(')')
	return b.String()
}

// Clone returns a deep copy.
func (d Decoration) Clone() Decoration {
	d.Args = slices.Clone(d.Args)
	d.Named = slices.Clone(d.Named)
	return d
}

// FindDecoration returns the first decoration namespace:name in ds.
func FindDecoration(ds []Decoration, namespace, name string) (Decoration, bool) {
	for _, d := range ds {
		if d.Is(namespace, name) {
			return d, true
		}
	}
	return Decoration{}, false
}

func cloneDecorations(ds []Decoration) []Decoration {
	if ds == nil {
		return nil
	}
	out := make([]Decoration, len(ds))
	for i, d := range ds {
		out[i] = d.Clone()
	}
	return out
}
