// SPDX-License-Identifier: MPL-2.0

// Package types defines the small value types shared by the metagen packages
// and its CLI. It imports only the standard library.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDescriptionText is the sentinel error wrapped by InvalidDescriptionTextError.
var ErrInvalidDescriptionText = errors.New("invalid description text")

type (
	// DescriptionText is the one-line description of a strategy or plugin.
	// The zero value is valid; other values must not be blank or span lines.
	DescriptionText string

	// InvalidDescriptionTextError is returned for a blank or multi-line
	// DescriptionText.
	InvalidDescriptionTextError struct {
		Value  DescriptionText
		Reason string
	}
)

// String returns the description.
func (d DescriptionText) String() string { return string(d) }

// IsValid reports whether the description can be shown on one line.
func (d DescriptionText) IsValid() (bool, []error) {
	switch {
	case d == "":
		return true, nil
	case strings.TrimSpace(string(d)) == "":
		return false, []error{&InvalidDescriptionTextError{Value: d, Reason: "must not be blank"}}
	case strings.ContainsAny(string(d), "\r\n"):
		return false, []error{&InvalidDescriptionTextError{Value: d, Reason: "must fit on one line"}}
	}
	return true, nil
}

// Truncate shortens the description to at most n runes, ending in "…" when
// cut.
func (d DescriptionText) Truncate(n int) DescriptionText {
	r := []rune(string(d))
	if n <= 0 || len(r) <= n {
		return d
	}
	if n == 1 {
		return "…"
	}
	return DescriptionText(strings.TrimRight(string(r[:n-1]), " ") + "…")
}

// Error implements the error interface.
func (e *InvalidDescriptionTextError) Error() string {
	return fmt.Sprintf("invalid description %q: %s", string(e.Value), e.Reason)
}

// Unwrap returns ErrInvalidDescriptionText for errors.Is() compatibility.
func (e *InvalidDescriptionTextError) Unwrap() error { return ErrInvalidDescriptionText }
