// SPDX-License-Identifier: MPL-2.0

// Package diag defines the structured diagnostics a generation pass returns
// to its caller. Diagnostics are values, never printed by the core: the CLI
// decides how to render them.
package diag

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/invowk/metagen/pkg/model"
)

const (
	// SeverityInfo is purely informational.
	SeverityInfo Severity = "info"
	// SeverityWarning indicates a recovered failure.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal failure that dropped output.
	SeverityError Severity = "error"
)

const (
	CodeConfigParseFailed          Code = "config_parse_failed"
	CodeStrategyFailed             Code = "strategy_failed"
	CodeStrategySkippedCrossModule Code = "strategy_skipped_cross_module"
	CodeStrategyCannotRun          Code = "strategy_cannot_run"
	CodePluginConfigInvalid        Code = "plugin_config_invalid"
	CodePluginBaseMissing          Code = "plugin_base_missing"
	CodePluginUnknown              Code = "plugin_unknown"
	CodePluginFailed               Code = "plugin_failed"
	CodeXrefAmbiguous              Code = "xref_ambiguous"
	CodeArtifactConflict           Code = "artifact_conflict"
	CodeDecorationSkipped          Code = "decoration_skipped"
	CodeGenerationFailed           Code = "generation_failed"
	CodeConfigInvalid              Code = "config_invalid"
	CodeDirectiveInvalid           Code = "directive_invalid"
)

var (
	// ErrInvalidSeverity is the sentinel error wrapped by InvalidSeverityError.
	ErrInvalidSeverity = errors.New("invalid diagnostic severity")
	// ErrInvalidCode is the sentinel error wrapped by InvalidCodeError.
	ErrInvalidCode = errors.New("invalid diagnostic code")

	validCodes = map[Code]struct{}{
		CodeConfigParseFailed: {}, CodeStrategyFailed: {}, CodeStrategySkippedCrossModule: {},
		CodeStrategyCannotRun: {}, CodePluginConfigInvalid: {}, CodePluginBaseMissing: {},
		CodePluginUnknown: {}, CodePluginFailed: {}, CodeXrefAmbiguous: {},
		CodeArtifactConflict: {}, CodeDecorationSkipped: {}, CodeGenerationFailed: {},
		CodeConfigInvalid: {}, CodeDirectiveInvalid: {},
	}
)

type (
	// Severity is the level of a diagnostic.
	Severity string

	// Code is a machine-readable diagnostic identifier.
	Code string

	// Diagnostic is one structured, non-fatal finding of a pass.
	Diagnostic struct {
		Severity Severity
		Code     Code
		Message  string
		// Source names the component that produced the diagnostic
		// (a strategy identifier, a plugin name, "config", "base").
		Source string
		// Subject is the declaration the diagnostic is about, if any.
		Subject *model.Identity
		// Cause is the underlying error, for errors.Is/As inspection.
		Cause error
	}

	// InvalidSeverityError is returned for an unknown Severity.
	InvalidSeverityError struct {
		Value Severity
	}

	// InvalidCodeError is returned for an unknown Code.
	InvalidCodeError struct {
		Value Code
	}
)

// IsValid returns whether the severity is one of the defined levels.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true, nil
	default:
		return false, []error{&InvalidSeverityError{Value: s}}
	}
}

func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// IsValid returns whether the code is one of the defined codes.
func (c Code) IsValid() (bool, []error) {
	if _, ok := validCodes[c]; ok {
		return true, nil
	}
	return false, []error{&InvalidCodeError{Value: c}}
}

func (e *InvalidSeverityError) Error() string {
	return fmt.Sprintf("invalid diagnostic severity %q (must be info, warning or error)", e.Value)
}

// Unwrap returns ErrInvalidSeverity for errors.Is() compatibility.
func (e *InvalidSeverityError) Unwrap() error { return ErrInvalidSeverity }

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid diagnostic code %q", e.Value)
}

// Unwrap returns ErrInvalidCode for errors.Is() compatibility.
func (e *InvalidCodeError) Unwrap() error { return ErrInvalidCode }

// New builds a diagnostic with the given severity.
func New(sev Severity, code Code, source, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Source: source, Message: fmt.Sprintf(format, args...)}
}

// Info builds an informational diagnostic.
func Info(code Code, source, format string, args ...any) Diagnostic {
	return New(SeverityInfo, code, source, format, args...)
}

// Warning builds a warning diagnostic.
func Warning(code Code, source, format string, args ...any) Diagnostic {
	return New(SeverityWarning, code, source, format, args...)
}

// About returns a copy of d whose subject is id.
func (d Diagnostic) About(id model.Identity) Diagnostic {
	d.Subject = &id
	return d
}

// Because returns a copy of d caused by err.
func (d Diagnostic) Because(err error) Diagnostic {
	d.Cause = err
	return d
}

// String renders the diagnostic as a single plain-text line.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s [%s]", d.Severity, d.Code)
	if d.Source != "" {
		s += " " + d.Source + ":"
	}
	s += " " + d.Message
	if d.Subject != nil {
		s += " (" + d.Subject.String() + ")"
	}
	if d.Cause != nil {
		s += ": " + d.Cause.Error()
	}
	return s
}

// Sort orders diagnostics deterministically: severity (most severe first),
// code, source, subject, then message. The sort is stable.
func Sort(ds []Diagnostic) {
	slices.SortStableFunc(ds, func(a, b Diagnostic) int {
		if c := cmp.Compare(b.Severity.rank(), a.Severity.rank()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Code, b.Code); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		if c := compareSubject(a.Subject, b.Subject); c != 0 {
			return c
		}
		return cmp.Compare(a.Message, b.Message)
	})
}

func compareSubject(a, b *model.Identity) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

// Count returns how many diagnostics have at least the given severity.
func Count(ds []Diagnostic, atLeast Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity.rank() >= atLeast.rank() {
			n++
		}
	}
	return n
}

// Filter keeps the diagnostics for which keep returns true.
func Filter(ds []Diagnostic, keep func(Diagnostic) bool) []Diagnostic {
	var out []Diagnostic
	for _, d := range ds {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
