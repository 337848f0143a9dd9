// SPDX-License-Identifier: MPL-2.0

// Package artifact holds the generated outputs of a pass.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/pkg/model"
)

// ProducerBase is the producer name of the base metadata generator.
const ProducerBase = "base"

type (
	// Artifact is one generated file: a name hint and its full content.
	Artifact struct {
		Name    string
		Content string
		// Subject is the declaration the artifact describes; nil for
		// scope-wide artifacts such as registries.
		Subject *model.Identity
		// Producer is "base" or the plugin name.
		Producer string
	}

	// Set collects artifacts by name. The first artifact added under a name
	// wins; later ones are reported as conflicts.
	Set struct {
		byName map[string]Artifact
		diags  []diag.Diagnostic
	}
)

// Fingerprint returns the hex SHA-256 of the content.
func (a Artifact) Fingerprint() string {
	sum := sha256.Sum256([]byte(a.Content))
	return hex.EncodeToString(sum[:])
}

// IsGoSource reports whether the artifact is a Go source file.
func (a Artifact) IsGoSource() bool { return strings.HasSuffix(a.Name, ".go") }

// NewSet returns an empty Set.
func NewSet() *Set { return &Set{byName: make(map[string]Artifact)} }

// Add adds artifacts, recording an artifact_conflict warning for every name
// that is already taken.
func (s *Set) Add(as ...Artifact) {
	for _, a := range as {
		if prev, ok := s.byName[a.Name]; ok {
			d := diag.Warning(diag.CodeArtifactConflict, a.Producer,
				"artifact %q already produced by %s; output dropped", a.Name, prev.Producer)
			if a.Subject != nil {
				d = d.About(*a.Subject)
			}
			s.diags = append(s.diags, d)
			continue
		}
		s.byName[a.Name] = a
	}
}

// Len returns the number of artifacts.
func (s *Set) Len() int { return len(s.byName) }

// Has reports whether an artifact named name exists.
func (s *Set) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Lookup returns the artifact kept under name.
func (s *Set) Lookup(name string) (Artifact, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// Sorted returns the artifacts ordered by name.
func (s *Set) Sorted() []Artifact {
	out := make([]Artifact, 0, len(s.byName))
	for _, a := range s.byName {
		out = append(out, a)
	}
	Sort(out)
	return out
}

// Diagnostics returns the conflicts recorded so far.
func (s *Set) Diagnostics() []diag.Diagnostic { return slices.Clone(s.diags) }

// Sort orders artifacts by name.
func Sort(as []Artifact) {
	slices.SortFunc(as, func(a, b Artifact) int { return strings.Compare(a.Name, b.Name) })
}

// CountByProducer returns the number of artifacts per producer.
func CountByProducer(as []Artifact) map[string]int {
	out := make(map[string]int)
	for _, a := range as {
		out[a.Producer]++
	}
	return out
}
