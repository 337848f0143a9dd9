// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"maps"
	"slices"
	"strings"

	"github.com/invowk/metagen/pkg/model"
)

type (
	// Batch is the output of one strategy, in registry order.
	Batch struct {
		Strategy   StrategyID
		Candidates []Candidate
	}

	// Discovered is one merged declaration with its provenance.
	Discovered struct {
		Declaration *model.Declaration
		// Primary is local if any contributing candidate was local.
		Primary model.Origin
		// Strategies is the sorted set of contributing strategy identifiers.
		Strategies []StrategyID
		// Context maps a contributing strategy to its evidence.
		Context map[StrategyID]string
	}

	// Set is the immutable, identity-unique discovered set sorted by identity.
	Set struct {
		items []*Discovered
		byKey map[string]*Discovered
	}

	group struct {
		decl     *model.Declaration
		local    bool
		evidence map[StrategyID][]string
	}
)

// ID returns the identity of the declaration.
func (d *Discovered) ID() model.Identity { return d.Declaration.ID }

// FoundBy reports whether id contributed to the record.
func (d *Discovered) FoundBy(id StrategyID) bool { return slices.Contains(d.Strategies, id) }

// InDomain reports whether any contributing strategy belongs to domain.
func (d *Discovered) InDomain(domain string) bool {
	return slices.ContainsFunc(d.Strategies, func(id StrategyID) bool { return id.InDomain(domain) })
}

// Aggregate merges strategy batches by identity. Batches must be in registry
// order: the snapshot of a group is taken from its first local candidate, or
// its first candidate when none is local.
func Aggregate(batches []Batch) *Set {
	groups := make(map[string]*group)
	var order []string
	for _, b := range batches {
		for _, c := range b.Candidates {
			if c.Declaration == nil {
				continue
			}
			key := c.Declaration.ID.Key()
			g, ok := groups[key]
			if !ok {
				g = &group{decl: c.Declaration, evidence: make(map[StrategyID][]string)}
				groups[key] = g
				order = append(order, key)
			}
			if c.Declaration.Origin == model.OriginLocal && !g.local {
				g.decl = c.Declaration
				g.local = true
			}
			g.evidence[b.Strategy] = append(g.evidence[b.Strategy], c.Evidence)
		}
	}

	items := make([]*Discovered, 0, len(order))
	for _, key := range order {
		g := groups[key]
		rec := &Discovered{
			Declaration: g.decl,
			Primary:     model.OriginExternal,
			Strategies:  slices.Sorted(maps.Keys(g.evidence)),
			Context:     make(map[StrategyID]string, len(g.evidence)),
		}
		if g.local {
			rec.Primary = model.OriginLocal
		}
		for id, ev := range g.evidence {
			ev = slices.Compact(slices.Sorted(slices.Values(ev)))
			rec.Context[id] = strings.Join(ev, "; ")
		}
		items = append(items, rec)
	}
	return NewSet(items...)
}

// NewSet builds a Set from records that already have unique identities.
// Later records with a duplicate identity are ignored.
func NewSet(items ...*Discovered) *Set {
	s := &Set{byKey: make(map[string]*Discovered, len(items))}
	for _, it := range items {
		key := it.ID().Key()
		if _, dup := s.byKey[key]; dup {
			continue
		}
		s.byKey[key] = it
		s.items = append(s.items, it)
	}
	slices.SortFunc(s.items, func(a, b *Discovered) int { return a.ID().Compare(b.ID()) })
	return s
}

// Items returns the records sorted by identity.
func (s *Set) Items() []*Discovered { return slices.Clone(s.items) }

// Len returns the number of records.
func (s *Set) Len() int { return len(s.items) }

// Lookup returns the record for id.
func (s *Set) Lookup(id model.Identity) (*Discovered, bool) {
	d, ok := s.byKey[id.Key()]
	return d, ok
}

// Contains reports whether id is in the set.
func (s *Set) Contains(id model.Identity) bool {
	_, ok := s.byKey[id.Key()]
	return ok
}

// Filter returns the subset of records keep accepts.
func (s *Set) Filter(keep func(*Discovered) bool) *Set {
	var out []*Discovered
	for _, it := range s.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return NewSet(out...)
}

// InDomain returns the records with at least one contributing strategy of
// domain.
func (s *Set) InDomain(domain string) *Set {
	return s.Filter(func(d *Discovered) bool { return d.InDomain(domain) })
}

// Identities returns the identities in set order.
func (s *Set) Identities() []model.Identity {
	out := make([]model.Identity, len(s.items))
	for i, it := range s.items {
		out[i] = it.ID()
	}
	return out
}
