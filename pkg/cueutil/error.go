// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrValidation is the sentinel error wrapped by ValidationError.
var ErrValidation = errors.New("schema validation failed")

type (
	// CUEPath is a field path inside a document, such as plugins[1].
	CUEPath string

	// ValidationError is one CUE error located by file and path.
	ValidationError struct {
		FilePath string
		CUEPath  CUEPath
		Message  string
	}
)

// String returns the path text.
func (p CUEPath) String() string { return string(p) }

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.CUEPath != "" {
		return fmt.Sprintf("%s: %s: %s", e.FilePath, e.CUEPath, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Unwrap returns ErrValidation for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// FormatError converts err into one *ValidationError per CUE error, joined.
// Errors that do not come from CUE are wrapped with filePath.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	out := make([]error, 0, len(list))
	for _, e := range list {
		path := formatPath(cueerrors.Path(e))
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path != "" {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		out = append(out, &ValidationError{FilePath: filePath, CUEPath: CUEPath(path), Message: msg})
	}
	return errors.Join(out...)
}

// Details returns every *ValidationError joined in err.
func Details(err error) []*ValidationError {
	var out []*ValidationError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if ve, ok := e.(*ValidationError); ok {
			out = append(out, ve)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// formatPath renders a CUE error path as cmds[0].name.
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize rejects data larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
