// SPDX-License-Identifier: MPL-2.0

package meta

import (
	"slices"
	"strings"
	"sync"
)

type (
	// Facet is a domain-specific addition to a descriptor.
	Facet interface {
		// FacetDomain names the plugin domain that produced the facet.
		FacetDomain() string
	}

	// Registry indexes descriptors and their facets. It is safe for
	// concurrent use.
	Registry struct {
		mu     sync.RWMutex
		byKey  map[string]*TypeDescriptor
		facets map[string][]Facet
	}
)

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey:  make(map[string]*TypeDescriptor),
		facets: make(map[string][]Facet),
	}
}

// Register adds descriptors. Registering a key again replaces the previous
// descriptor.
func (r *Registry) Register(descs ...*TypeDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range descs {
		if d != nil {
			r.byKey[d.Key()] = d
		}
	}
}

// Lookup returns the descriptor registered under key (see TypeDescriptor.Key).
func (r *Registry) Lookup(key string) (*TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byKey[key]
	return d, ok
}

// All returns every registered descriptor sorted by key.
func (r *Registry) All() []*TypeDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TypeDescriptor, 0, len(r.byKey))
	for _, d := range r.byKey {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *TypeDescriptor) int { return strings.Compare(a.Key(), b.Key()) })
	return out
}

// AddFacet attaches f to d. The descriptor is registered if it was not.
func (r *Registry) AddFacet(d *TypeDescriptor, f Facet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := d.Key()
	if _, ok := r.byKey[key]; !ok {
		r.byKey[key] = d
	}
	r.facets[key] = append(r.facets[key], f)
}

// Facets returns the facets attached to d in registration order.
func (r *Registry) Facets(d *TypeDescriptor) []Facet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.facets[d.Key()])
}

// FacetsOf returns the facets of d that have type T.
func FacetsOf[T Facet](r *Registry, d *TypeDescriptor) []T {
	var out []T
	for _, f := range r.Facets(d) {
		if t, ok := f.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
