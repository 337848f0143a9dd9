// SPDX-License-Identifier: MPL-2.0

package model

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidIdentity is the sentinel error wrapped by InvalidIdentityError.
var ErrInvalidIdentity = errors.New("invalid identity")

type (
	// Identity is the structural key of a declaration: owning module, namespace
	// (Go import path), simple name and generic arity. Two declarations with the
	// same Identity are the same declaration, whichever adapter produced them.
	Identity struct {
		Module    string
		Namespace string
		Name      string
		Arity     int
	}

	// InvalidIdentityError is returned when an Identity has an empty or
	// malformed name, or a negative arity.
	InvalidIdentityError struct {
		Value  Identity
		Reason string
	}
)

// Key returns a string form of the identity usable as a map key.
func (id Identity) Key() string {
	var b strings.Builder
	b.Grow(len(id.Module) + len(id.Namespace) + len(id.Name) + 6)
	b.WriteString(id.Module)
	b.WriteByte('|')
	b.WriteString(id.Namespace)
	b.WriteByte('|')
	b.WriteString(id.Name)
	b.WriteByte('`')
	b.WriteString(strconv.Itoa(id.Arity))
	return b.String()
}

// String returns the namespace-qualified name, with a `N suffix for
// generic declarations (e.g. "example.com/shop.Page`1").
func (id Identity) String() string {
	s := id.Name
	if id.Namespace != "" {
		s = id.Namespace + "." + s
	}
	if id.Arity > 0 {
		s += "`" + strconv.Itoa(id.Arity)
	}
	return s
}

// IsZero reports whether the identity is the zero value.
func (id Identity) IsZero() bool { return id == Identity{} }

// Compare orders identities by namespace, name, arity and module.
func (id Identity) Compare(other Identity) int {
	if c := cmp.Compare(id.Namespace, other.Namespace); c != 0 {
		return c
	}
	if c := cmp.Compare(id.Name, other.Name); c != 0 {
		return c
	}
	if c := cmp.Compare(id.Arity, other.Arity); c != 0 {
		return c
	}
	return cmp.Compare(id.Module, other.Module)
}

// IsValid returns whether the identity can key a declaration.
func (id Identity) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(id.Name) == "" {
		errs = append(errs, &InvalidIdentityError{Value: id, Reason: "name must not be empty"})
	} else if strings.ContainsAny(id.Name, "|`. \t\n") {
		errs = append(errs, &InvalidIdentityError{Value: id, Reason: "name contains a reserved character"})
	}
	if id.Arity < 0 {
		errs = append(errs, &InvalidIdentityError{Value: id, Reason: "arity must not be negative"})
	}
	return len(errs) == 0, errs
}

// Error implements the error interface.
func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("invalid identity %q: %s", e.Value.String(), e.Reason)
}

// Unwrap returns ErrInvalidIdentity for errors.Is() compatibility.
func (e *InvalidIdentityError) Unwrap() error { return ErrInvalidIdentity }
