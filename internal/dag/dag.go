// SPDX-License-Identifier: MPL-2.0

// Package dag orders the stages of a generation pass. Stages are string keys;
// an edge records that one stage consumes what another produces.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle is the sentinel error wrapped by CycleError.
var ErrCycle = errors.New("stage cycle")

type (
	// CycleError reports the stages left unordered because they form a cycle.
	CycleError struct {
		Stages []string
	}

	// Graph is a directed graph of stages. An edge from A to B means A must
	// finish before B starts.
	Graph struct {
		next  map[string][]string
		order []string
		known map[string]bool
	}
)

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("stage cycle between %s", strings.Join(e.Stages, ", "))
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{next: make(map[string][]string), known: make(map[string]bool)}
}

// Add registers stages. Known stages are ignored.
func (g *Graph) Add(stages ...string) {
	for _, s := range stages {
		if g.known[s] {
			continue
		}
		g.known[s] = true
		g.order = append(g.order, s)
	}
}

// Before records that from must finish before each of to. Unknown stages are
// added.
func (g *Graph) Before(from string, to ...string) {
	g.Add(from)
	for _, t := range to {
		g.Add(t)
		if !slices.Contains(g.next[from], t) {
			g.next[from] = append(g.next[from], t)
		}
	}
}

// Len returns the number of stages.
func (g *Graph) Len() int { return len(g.order) }

// Levels groups the stages into layers: every stage of a layer only depends
// on stages of earlier layers. Stages inside a layer are sorted by name, so
// the result does not depend on insertion order.
func (g *Graph) Levels() ([][]string, error) {
	pending := make(map[string]int, len(g.order))
	for _, s := range g.order {
		pending[s] += 0
		for _, t := range g.next[s] {
			pending[t]++
		}
	}

	var levels [][]string
	var ready []string
	for _, s := range g.order {
		if pending[s] == 0 {
			ready = append(ready, s)
		}
	}
	done := 0
	for len(ready) > 0 {
		slices.Sort(ready)
		levels = append(levels, ready)
		done += len(ready)
		var upcoming []string
		for _, s := range ready {
			for _, t := range g.next[s] {
				pending[t]--
				if pending[t] == 0 {
					upcoming = append(upcoming, t)
				}
			}
		}
		ready = upcoming
	}

	if done != len(g.order) {
		var stuck []string
		for _, s := range g.order {
			if pending[s] > 0 {
				stuck = append(stuck, s)
			}
		}
		slices.Sort(stuck)
		return nil, &CycleError{Stages: stuck}
	}
	return levels, nil
}

// Sort flattens Levels into one execution order.
func (g *Graph) Sort() ([]string, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	return slices.Concat(levels...), nil
}
