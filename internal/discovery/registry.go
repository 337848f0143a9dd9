// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownStrategy is the sentinel error wrapped by UnknownStrategyError.
	ErrUnknownStrategy = errors.New("unknown discovery strategy")
	// ErrDuplicateStrategy is the sentinel error wrapped by DuplicateStrategyError.
	ErrDuplicateStrategy = errors.New("duplicate discovery strategy")
)

type (
	// Registry is the explicit table of available strategies. Registration
	// order is kept and decides merge precedence.
	Registry struct {
		order []Strategy
		byID  map[StrategyID]int
	}

	// UnknownStrategyError is returned when configuration names identifiers
	// that are not registered. It is fatal for a pass.
	UnknownStrategyError struct {
		Unknown []string
		Valid   []StrategyID
	}

	// DuplicateStrategyError is returned when an identifier is registered twice.
	DuplicateStrategyError struct {
		ID StrategyID
	}
)

// Error implements the error interface.
func (e *UnknownStrategyError) Error() string {
	valid := make([]string, len(e.Valid))
	for i, id := range e.Valid {
		valid[i] = string(id)
	}
	return fmt.Sprintf("unknown discovery strategy %s (valid: %s)",
		strings.Join(quoteAll(e.Unknown), ", "), strings.Join(valid, ", "))
}

// Unwrap returns ErrUnknownStrategy for errors.Is() compatibility.
func (e *UnknownStrategyError) Unwrap() error { return ErrUnknownStrategy }

// Error implements the error interface.
func (e *DuplicateStrategyError) Error() string {
	return fmt.Sprintf("discovery strategy %q registered twice", e.ID)
}

// Unwrap returns ErrDuplicateStrategy for errors.Is() compatibility.
func (e *DuplicateStrategyError) Unwrap() error { return ErrDuplicateStrategy }

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[StrategyID]int)}
}

// Register adds strategies in order. It stops at the first invalid or
// duplicate identifier.
func (r *Registry) Register(strategies ...Strategy) error {
	for _, s := range strategies {
		id := s.ID()
		if ok, errs := id.IsValid(); !ok {
			return errs[0]
		}
		if _, dup := r.byID[id]; dup {
			return &DuplicateStrategyError{ID: id}
		}
		r.byID[id] = len(r.order)
		r.order = append(r.order, s)
	}
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(strategies ...Strategy) *Registry {
	if err := r.Register(strategies...); err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the strategy registered under id.
func (r *Registry) Lookup(id StrategyID) (Strategy, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return r.order[i], true
}

// IDs returns the registered identifiers sorted.
func (r *Registry) IDs() []StrategyID {
	ids := make([]StrategyID, 0, len(r.order))
	for _, s := range r.order {
		ids = append(ids, s.ID())
	}
	slices.Sort(ids)
	return ids
}

// Strategies returns the registered strategies in registration order.
func (r *Registry) Strategies() []Strategy { return slices.Clone(r.order) }

// Resolve maps configured identifiers to strategies, dropping duplicates and
// ordering the result by registration order. Any unregistered identifier
// yields an UnknownStrategyError listing every one of them.
func (r *Registry) Resolve(ids []string) ([]Strategy, error) {
	var unknown []string
	seen := make(map[int]bool, len(ids))
	idx := make([]int, 0, len(ids))
	for _, raw := range ids {
		i, ok := r.byID[StrategyID(raw)]
		if !ok {
			if !slices.Contains(unknown, raw) {
				unknown = append(unknown, raw)
			}
			continue
		}
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i)
		}
	}
	if len(unknown) > 0 {
		return nil, &UnknownStrategyError{Unknown: unknown, Valid: r.IDs()}
	}
	slices.Sort(idx)
	out := make([]Strategy, len(idx))
	for j, i := range idx {
		out[j] = r.order[i]
	}
	return out, nil
}

// Index returns the registration position of id, or -1.
func (r *Registry) Index(id StrategyID) int {
	if i, ok := r.byID[id]; ok {
		return i
	}
	return -1
}
