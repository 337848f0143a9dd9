// SPDX-License-Identifier: MPL-2.0

package model

import (
	"errors"
	"fmt"
	"slices"
)

// ErrDuplicateDeclaration is the sentinel error wrapped by DuplicateDeclarationError.
var ErrDuplicateDeclaration = errors.New("duplicate declaration")

type (
	// Scope describes the compilation scope being generated for.
	Scope struct {
		// Name is the short scope name used by naming helpers.
		Name string
		// Path is the import path of the scope's package.
		Path string
		// Module is the module that owns Path.
		Module string
	}

	// Program is the read-only declaration model a pass runs over.
	// Implementations must be safe for concurrent readers.
	Program interface {
		// Scope returns the compilation scope.
		Scope() Scope
		// Local returns the declarations authored in the scope, sorted by identity.
		Local() []*Declaration
		// External returns declarations referenced from other modules, sorted by
		// identity.
		External() []*Declaration
		// Lookup finds a declaration by identity in either set.
		Lookup(id Identity) (*Declaration, bool)
	}

	// DuplicateDeclarationError is returned when two declarations share an identity.
	DuplicateDeclarationError struct {
		ID Identity
	}

	// Snapshot is the immutable in-memory Program.
	Snapshot struct {
		scope    Scope
		local    []*Declaration
		external []*Declaration
		byKey    map[string]*Declaration
	}
)

// Error implements the error interface.
func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("duplicate declaration %s", e.ID)
}

// Unwrap returns ErrDuplicateDeclaration for errors.Is() compatibility.
func (e *DuplicateDeclarationError) Unwrap() error { return ErrDuplicateDeclaration }

// NewSnapshot builds a Program from local and external declarations. The
// inputs are cloned and their Origin overwritten to match the set they were
// passed in. Invalid or duplicate identities are rejected.
func NewSnapshot(scope Scope, local, external []*Declaration) (*Snapshot, error) {
	s := &Snapshot{
		scope: scope,
		byKey: make(map[string]*Declaration, len(local)+len(external)),
	}
	var errs []error
	add := func(src []*Declaration, origin Origin) []*Declaration {
		out := make([]*Declaration, 0, len(src))
		for _, d := range src {
			if d == nil {
				continue
			}
			if ok, idErrs := d.ID.IsValid(); !ok {
				errs = append(errs, idErrs...)
				continue
			}
			key := d.ID.Key()
			if _, dup := s.byKey[key]; dup {
				errs = append(errs, &DuplicateDeclarationError{ID: d.ID})
				continue
			}
			c := d.Clone()
			c.Origin = origin
			s.byKey[key] = c
			out = append(out, c)
		}
		slices.SortFunc(out, func(a, b *Declaration) int { return a.ID.Compare(b.ID) })
		return out
	}
	s.local = add(local, OriginLocal)
	s.external = add(external, OriginExternal)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// Scope implements Program.
func (s *Snapshot) Scope() Scope { return s.scope }

// Local implements Program.
func (s *Snapshot) Local() []*Declaration { return slices.Clone(s.local) }

// External implements Program.
func (s *Snapshot) External() []*Declaration { return slices.Clone(s.external) }

// Lookup implements Program.
func (s *Snapshot) Lookup(id Identity) (*Declaration, bool) {
	d, ok := s.byKey[id.Key()]
	return d, ok
}
