// SPDX-License-Identifier: MPL-2.0

package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/invowk/metagen/pkg/model"
)

// hashLen is the number of hex digits of the identity hash appended to names
// that namespace qualification cannot separate.
const hashLen = 8

type (
	// Names holds the generated base name of every identity of a set. Names
	// are unique within the set after Pascal and snake case conversion, so
	// accessors, cache variables and file stems never collide.
	Names struct {
		byKey map[string]assigned
	}

	assigned struct {
		typeName string
		stem     string
	}

	candidate struct {
		id       model.Identity
		segments []string
		depth    int
		hashed   bool
	}
)

// Assign names ids. A declaration keeps its own name unless another one maps
// to the same identifier or file stem; colliding declarations are prefixed
// with one more trailing namespace segment at a time, and those that still
// collide once their namespace is exhausted get a hash of their identity.
func Assign(ids []model.Identity) Names {
	cands := make(map[string]*candidate, len(ids))
	for _, id := range ids {
		if _, ok := cands[id.Key()]; ok {
			continue
		}
		cands[id.Key()] = &candidate{id: id, segments: segments(id.Namespace)}
	}
	keys := make([]string, 0, len(cands))
	for k := range cands {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := Names{byKey: make(map[string]assigned, len(cands))}
	for {
		for _, k := range keys {
			out.byKey[k] = cands[k].name()
		}
		byType := make(map[string][]string)
		byStem := make(map[string][]string)
		for _, k := range keys {
			a := out.byKey[k]
			byType[a.typeName] = append(byType[a.typeName], k)
			byStem[a.stem] = append(byStem[a.stem], k)
		}

		grow := make(map[string]bool)
		for _, group := range [...]map[string][]string{byType, byStem} {
			for _, ks := range group {
				if len(ks) < 2 {
					continue
				}
				for _, k := range ks {
					grow[k] = true
				}
			}
		}
		changed := false
		for _, k := range keys {
			if grow[k] && cands[k].grow() {
				changed = true
			}
		}
		if !changed {
			return out
		}
	}
}

func segments(namespace string) []string {
	var out []string
	for _, s := range strings.Split(namespace, "/") {
		if Pascal(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// grow widens the qualification of c and reports whether its name changed.
func (c *candidate) grow() bool {
	switch {
	case c.hashed:
		return false
	case c.depth < len(c.segments):
		c.depth++
	default:
		c.hashed = true
	}
	return true
}

func (c *candidate) name() assigned {
	words := slices.Clone(c.segments[len(c.segments)-c.depth:])
	words = append(words, c.id.Name)
	var typeName, stems []string
	for _, w := range words {
		typeName = append(typeName, Pascal(w))
		stems = append(stems, Snake(w))
	}
	a := assigned{typeName: strings.Join(typeName, ""), stem: strings.Join(stems, "_")}
	if c.hashed {
		sum := sha256.Sum256([]byte(c.id.Key()))
		h := hex.EncodeToString(sum[:])[:hashLen]
		a.typeName += "X" + h
		a.stem += "_" + h
	}
	return a
}

func (n Names) lookup(id model.Identity) assigned {
	if a, ok := n.byKey[id.Key()]; ok {
		return a
	}
	return assigned{typeName: Pascal(id.Name), stem: Snake(id.Name)}
}

// TypeName returns the base name of id in generated identifiers.
func (n Names) TypeName(id model.Identity) string { return n.lookup(id).typeName }

// Descriptor returns the name of the descriptor accessor of id.
func (n Names) Descriptor(id model.Identity) string {
	return n.TypeName(id) + descriptorSuffix
}

// DescriptorOnce returns the unexported names of the sync.Once and cached
// value backing the accessor of id.
func (n Names) DescriptorOnce(id model.Identity) (once, value string) {
	base := lowerFirst(n.TypeName(id)) + descriptorSuffix
	return base + "Once", base
}

// FileStem returns the file name stem of the artifacts describing id.
func (n Names) FileStem(id model.Identity) string { return n.lookup(id).stem }
