// SPDX-License-Identifier: MPL-2.0

package basegen

import (
	"slices"

	"github.com/invowk/metagen/internal/discovery"
	"github.com/invowk/metagen/pkg/model"
)

// TagNamespace is the decoration namespace adapters use for struct tags.
const TagNamespace = "tag"

type (
	// DecorationPolicy decides which decorations a descriptor captures.
	DecorationPolicy interface {
		// Capture reports whether d is emitted. When it is not and reason is
		// non-empty, the omission is reported as decoration_skipped.
		Capture(d model.Decoration) (ok bool, reason string)
	}

	// ZeroArgumentPolicy captures only decorations without constructor or
	// named arguments. Decorations in Silent namespaces are dropped without a
	// report.
	ZeroArgumentPolicy struct {
		Silent []string
	}
)

// DefaultPolicy returns the ZeroArgumentPolicy that silently drops metagen
// directives and struct tags.
func DefaultPolicy() ZeroArgumentPolicy {
	return ZeroArgumentPolicy{Silent: []string{discovery.MarkerNamespace, TagNamespace}}
}

// Capture implements DecorationPolicy.
func (p ZeroArgumentPolicy) Capture(d model.Decoration) (bool, string) {
	if slices.Contains(p.Silent, d.Namespace) {
		return false, ""
	}
	if d.HasArguments() {
		return false, "decoration has arguments; only argument-free decorations are captured"
	}
	return true, ""
}
