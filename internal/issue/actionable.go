// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a failure of a CLI operation with the context a user
	// needs to recover:
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("load configuration").
	//		WithResource("./metagen.cue").
	//		WithIssue(issue.ConfigLoadFailedId).
	//		Wrap(cause).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "write artifacts".
		Operation string
		// Resource names the file or directory involved, if any.
		Resource    string
		Suggestions []string
		Cause       error
		// Issue links a catalog entry with longer guidance; zero means none.
		Issue Id
	}

	// ErrorContext builds an ActionableError. An operation is required.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext starts an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error renders "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the cause.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error followed by its suggestions as a bullet list.
// Verbose output appends every error of the cause chain, one per line.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())
	if len(e.Suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range e.Suggestions {
			b.WriteString("\n  • " + s)
		}
	}
	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		for i, err := 1, e.Cause; err != nil; i, err = i+1, errors.Unwrap(err) {
			fmt.Fprintf(&b, "\n  %d. %s", i, err)
		}
	}
	return b.String()
}

// Guidance returns the catalog entry linked to the error, or nil.
func (e *ActionableError) Guidance() *Issue {
	if e.Issue == 0 {
		return nil
	}
	return Get(e.Issue)
}

// WithOperation sets the failed operation.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

// WithResource sets the file or directory involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion appends a recovery hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sug)
	return c
}

// WithIssue links the catalog entry id.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

// Wrap sets the cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns the error, or nil when no operation was set. Later builder
// calls do not affect errors already built.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	ae.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &ae
}

// BuildError is Build typed as error, so a missing operation yields a nil
// interface rather than a typed nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
