// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidFilesystemPath is the sentinel error wrapped by InvalidFilesystemPathError.
var ErrInvalidFilesystemPath = errors.New("invalid filesystem path")

type (
	// FilesystemPath is a file or directory path given on the command line
	// or in options. A valid path is non-empty and not blank.
	FilesystemPath string

	// InvalidFilesystemPathError is returned for an empty or blank path.
	InvalidFilesystemPathError struct {
		Value FilesystemPath
	}
)

// String returns the path.
func (p FilesystemPath) String() string { return string(p) }

// IsValid reports whether the path is non-empty and not blank.
func (p FilesystemPath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidFilesystemPathError{Value: p}}
	}
	return true, nil
}

// Join appends slash-separated elements such as artifact names.
func (p FilesystemPath) Join(elem ...string) FilesystemPath {
	parts := make([]string, 0, len(elem)+1)
	parts = append(parts, string(p))
	for _, e := range elem {
		parts = append(parts, filepath.FromSlash(e))
	}
	return FilesystemPath(filepath.Join(parts...))
}

// Error implements the error interface.
func (e *InvalidFilesystemPathError) Error() string {
	return fmt.Sprintf("invalid filesystem path %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidFilesystemPath for errors.Is() compatibility.
func (e *InvalidFilesystemPathError) Unwrap() error { return ErrInvalidFilesystemPath }
