// SPDX-License-Identifier: MPL-2.0

package model

import (
	"path"
	"slices"
	"strconv"
	"strings"
)

const (
	// KindNamed is a reference to a declared (possibly generic) type.
	KindNamed TypeKind = "named"
	// KindBasic is a predeclared type such as int, string or error.
	KindBasic TypeKind = "basic"
	// KindPointer is the nullable wrapper; Args[0] is the element.
	KindPointer TypeKind = "pointer"
	// KindSlice is []T; Args[0] is the element.
	KindSlice TypeKind = "slice"
	// KindArray is [N]T; Args[0] is the element and Len the length.
	KindArray TypeKind = "array"
	// KindMap is map[K]V; Args holds the key then the value.
	KindMap TypeKind = "map"
	// KindChan is a channel; Args[0] is the element and Dir the direction.
	KindChan TypeKind = "chan"
	// KindFunc is a function type; Name holds its spelling.
	KindFunc TypeKind = "func"
	// KindParam is a reference to a type parameter of the enclosing declaration.
	KindParam TypeKind = "param"
	// KindInterface is an anonymous interface type; Name holds its spelling.
	KindInterface TypeKind = "interface"
	// KindOther covers every remaining type; Name holds its spelling.
	KindOther TypeKind = "other"
)

const (
	// ChanBoth is a bidirectional channel.
	ChanBoth ChanDir = iota
	// ChanSend is a send-only channel.
	ChanSend
	// ChanRecv is a receive-only channel.
	ChanRecv
)

type (
	// TypeKind classifies a TypeRef.
	TypeKind string

	// ChanDir is the direction of a channel TypeRef.
	ChanDir int

	// TypeRef is a reference to a type as written on a member, parameter or
	// result. Composite kinds keep their operands in Args so that every
	// generic-looking shape (slices, maps, instantiated named types) can be
	// unwrapped the same way.
	TypeRef struct {
		Kind TypeKind
		// Name is the simple name for named, basic and param kinds, and the
		// full spelling for func, interface and other kinds.
		Name string
		// Namespace is the import path declaring a named type.
		Namespace string
		// Package is the package name used to qualify a named type. When empty
		// the last element of Namespace is used.
		Package string
		// Module owns Namespace.
		Module string
		Args   []TypeRef
		Len    int64
		Dir    ChanDir
	}
)

// Named returns a reference to a declared type instantiated with args.
func Named(module, namespace, name string, args ...TypeRef) TypeRef {
	return TypeRef{Kind: KindNamed, Module: module, Namespace: namespace, Name: name, Args: args}
}

// Basic returns a reference to a predeclared type.
func Basic(name string) TypeRef { return TypeRef{Kind: KindBasic, Name: name} }

// TypeParamRef returns a reference to a type parameter.
func TypeParamRef(name string) TypeRef { return TypeRef{Kind: KindParam, Name: name} }

// Pointer returns *elem.
func Pointer(elem TypeRef) TypeRef { return TypeRef{Kind: KindPointer, Args: []TypeRef{elem}} }

// Slice returns []elem.
func Slice(elem TypeRef) TypeRef { return TypeRef{Kind: KindSlice, Args: []TypeRef{elem}} }

// Array returns [n]elem.
func Array(n int64, elem TypeRef) TypeRef {
	return TypeRef{Kind: KindArray, Len: n, Args: []TypeRef{elem}}
}

// Map returns map[key]value.
func Map(key, value TypeRef) TypeRef { return TypeRef{Kind: KindMap, Args: []TypeRef{key, value}} }

// Chan returns a channel of elem with the given direction.
func Chan(dir ChanDir, elem TypeRef) TypeRef {
	return TypeRef{Kind: KindChan, Dir: dir, Args: []TypeRef{elem}}
}

// Identity returns the identity of a named type reference. The arity is the
// number of type arguments.
func (t TypeRef) Identity() (Identity, bool) {
	if t.Kind != KindNamed {
		return Identity{}, false
	}
	return Identity{Module: t.Module, Namespace: t.Namespace, Name: t.Name, Arity: len(t.Args)}, true
}

// Elem returns the first operand of a composite reference.
func (t TypeRef) Elem() (TypeRef, bool) {
	if len(t.Args) == 0 {
		return TypeRef{}, false
	}
	return t.Args[0], true
}

// Is reports whether t is the named type namespace.name.
func (t TypeRef) Is(namespace, name string) bool {
	return t.Kind == KindNamed && t.Namespace == namespace && t.Name == name
}

// Qualifier returns the package name used to qualify a named reference.
func (t TypeRef) Qualifier() string {
	if t.Package != "" {
		return t.Package
	}
	if t.Namespace == "" {
		return ""
	}
	return path.Base(t.Namespace)
}

// Equal reports deep equality.
func (t TypeRef) Equal(other TypeRef) bool {
	if t.Kind != other.Kind || t.Name != other.Name || t.Namespace != other.Namespace ||
		t.Module != other.Module || t.Len != other.Len || t.Dir != other.Dir {
		return false
	}
	return slices.EqualFunc(t.Args, other.Args, TypeRef.Equal)
}

// Clone returns a deep copy.
func (t TypeRef) Clone() TypeRef {
	if t.Args != nil {
		args := make([]TypeRef, len(t.Args))
		for i, a := range t.Args {
			args[i] = a.Clone()
		}
		t.Args = args
	}
	return t
}

// String spells the reference the way Go source would, qualifying named
// types with their package name.
func (t TypeRef) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t TypeRef) write(b *strings.Builder) {
	switch t.Kind {
	case KindNamed:
		if q := t.Qualifier(); q != "" {
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
				a.write(b)
			}
			b.WriteByte(']')
		}
	case KindPointer:
		b.WriteByte('*')
		t.writeElem(b)
	case KindSlice:
		b.WriteString("[]")
		t.writeElem(b)
	case KindArray:
		b.WriteByte('[')
		b.WriteString(strconv.FormatInt(t.Len, 10))
		b.WriteByte(']')
		t.writeElem(b)
	case KindMap:
		b.WriteString("map[")
		if len(t.Args) == 2 {
			t.Args[0].write(b)
			b.WriteByte(']')
			t.Args[1].write(b)
		} else {
			b.WriteString("?]?")
		}
	case KindChan:
		switch t.Dir {
		case ChanSend:
			b.WriteString("chan<- ")
		case ChanRecv:
			b.WriteString("<-chan ")
		default:
			b.WriteString("chan ")
		}
		t.writeElem(b)
	default:
		b.WriteString(t.Name)
	}
}

func (t TypeRef) writeElem(b *strings.Builder) {
	if e, ok := t.Elem(); ok {
		e.write(b)
		return
	}
	b.WriteByte('?')
}
