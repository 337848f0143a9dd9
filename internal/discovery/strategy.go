// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/invowk/metagen/pkg/model"
)

// ErrInvalidStrategyID is the sentinel error wrapped by InvalidStrategyIDError.
var ErrInvalidStrategyID = errors.New("invalid strategy identifier")

type (
	// StrategyID identifies a strategy as "<Domain>.<Name>". Plugins select
	// the declarations they are entitled to by Domain.
	StrategyID string

	// InvalidStrategyIDError is returned when a StrategyID is not of the form
	// "<Domain>.<Name>" with identifier segments.
	InvalidStrategyIDError struct {
		Value StrategyID
	}

	// Candidate is one declaration proposed by a strategy, with free-text
	// evidence of why it was selected.
	Candidate struct {
		Declaration *model.Declaration
		Evidence    string
	}

	// Strategy is a pluggable rule that proposes declarations of a program.
	// Implementations must not mutate the program.
	Strategy interface {
		ID() StrategyID
		Description() string
		// RequiresCrossModule reports whether the strategy inspects
		// declarations of other modules.
		RequiresCrossModule() bool
		// CanRun reports whether the strategy applies to prog at all.
		CanRun(prog model.Program) bool
		// Discover returns candidates. Candidates returned together with an
		// error are kept.
		Discover(ctx context.Context, prog model.Program) ([]Candidate, error)
	}

	// Definition adapts plain functions to Strategy.
	Definition struct {
		Identifier  StrategyID
		Summary     string
		CrossModule bool
		// Precondition defaults to always runnable.
		Precondition func(prog model.Program) bool
		Scan         func(ctx context.Context, prog model.Program) ([]Candidate, error)
	}
)

// String returns the string representation of the StrategyID.
func (id StrategyID) String() string { return string(id) }

// Domain returns the segment before the first dot.
func (id StrategyID) Domain() string {
	domain, _, _ := strings.Cut(string(id), ".")
	return domain
}

// Name returns the segment after the first dot.
func (id StrategyID) Name() string {
	_, name, _ := strings.Cut(string(id), ".")
	return name
}

// InDomain reports whether the identifier carries the "<domain>." prefix.
func (id StrategyID) InDomain(domain string) bool {
	return domain != "" && strings.HasPrefix(string(id), domain+".")
}

// IsValid returns whether the identifier is "<Domain>.<Name>".
func (id StrategyID) IsValid() (bool, []error) {
	domain, name, ok := strings.Cut(string(id), ".")
	if !ok || !isIdent(domain) || !isIdent(name) {
		return false, []error{&InvalidStrategyIDError{Value: id}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidStrategyIDError) Error() string {
	return fmt.Sprintf("invalid strategy identifier %q (must be <Domain>.<Name>)", e.Value)
}

// Unwrap returns ErrInvalidStrategyID for errors.Is() compatibility.
func (e *InvalidStrategyIDError) Unwrap() error { return ErrInvalidStrategyID }

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// ID implements Strategy.
func (d *Definition) ID() StrategyID { return d.Identifier }

// Description implements Strategy.
func (d *Definition) Description() string { return d.Summary }

// RequiresCrossModule implements Strategy.
func (d *Definition) RequiresCrossModule() bool { return d.CrossModule }

// CanRun implements Strategy.
func (d *Definition) CanRun(prog model.Program) bool {
	if d.Precondition == nil {
		return true
	}
	return d.Precondition(prog)
}

// Discover implements Strategy.
func (d *Definition) Discover(ctx context.Context, prog model.Program) ([]Candidate, error) {
	if d.Scan == nil {
		return nil, nil
	}
	return d.Scan(ctx, prog)
}
