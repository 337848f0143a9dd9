// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitOK is returned when the command succeeded.
	ExitOK ExitCode = 0
	// ExitFailure is returned for every fatal error.
	ExitFailure ExitCode = 1
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process exit status in the POSIX range 0-255.
	ExitCode int

	// InvalidExitCodeError is returned for an ExitCode outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// ExitCodeFor maps a command result to its exit code.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitOK
	}
	return ExitFailure
}

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode for errors.Is() compatibility.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside 0-255.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether the code is ExitOK.
func (c ExitCode) IsSuccess() bool { return c == ExitOK }

// String returns the decimal code.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
