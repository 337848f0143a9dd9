// SPDX-License-Identifier: MPL-2.0

// Package naming derives every generated identifier and file name. It is a
// leaf: generators call it, it calls nothing of metagen.
package naming

import (
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/invowk/metagen/pkg/model"
)

const (
	descriptorSuffix = "Descriptor"
	fallbackPackage  = "meta"
)

var title = cases.Title(language.Und, cases.NoLower)

// Words splits s on every non-letter, non-digit rune and on lower-to-upper
// case transitions.
func Words(s string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// Pascal converts s to an exported Go identifier fragment ("order-lines" ->
// "OrderLines"). Existing inner capitals are kept.
func Pascal(s string) string {
	var b strings.Builder
	for _, w := range Words(s) {
		b.WriteString(title.String(w))
	}
	out := b.String()
	if out != "" && unicode.IsDigit([]rune(out)[0]) {
		out = "X" + out
	}
	return out
}

// Snake converts s to lower snake case ("OrderLine" -> "order_line").
func Snake(s string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// PackageName returns a valid Go package name derived from s.
func PackageName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(path.Base(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || unicode.IsDigit([]rune(out)[0]) {
		return fallbackPackage
	}
	return out
}

// ScopeName returns the short name of a scope: override if set, else the
// scope's Name, else the last element of its Path.
func ScopeName(scope model.Scope, override string) string {
	switch {
	case override != "":
		return override
	case scope.Name != "":
		return scope.Name
	default:
		return path.Base(scope.Path)
	}
}

// RegistrationFunc returns the registration function name for a scope and a
// facet domain. An empty domain names the base descriptor registration.
func RegistrationFunc(scope, domain string) string {
	if domain == "" {
		return "Register" + Pascal(scope) + "Descriptors"
	}
	return "Register" + Pascal(scope) + Pascal(domain) + "Facets"
}

// Wrapper returns the name of a generated method wrapper.
func Wrapper(declName, method, suffix string) string {
	return Pascal(declName) + Pascal(method) + suffix
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
