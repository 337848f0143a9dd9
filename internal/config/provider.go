// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/pkg/types"
)

// ErrInvalidLoadOptions is the sentinel error wrapped by InvalidLoadOptionsError.
var ErrInvalidLoadOptions = errors.New("invalid load options")

type (
	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific document when set.
		// A missing file is an error.
		ConfigFilePath types.FilesystemPath
		// Dir is searched for a default document name when ConfigFilePath is
		// empty. The zero value searches the working directory.
		Dir types.FilesystemPath
	}

	// InvalidLoadOptionsError collects the field errors of LoadOptions.
	InvalidLoadOptionsError struct {
		FieldErrors []error
	}

	// LoadResult is the outcome of a Load.
	LoadResult struct {
		Config *Config
		// Path is the document that supplied the configuration, empty when
		// none was found or it could not be parsed.
		Path string
		// Diagnostics holds config_parse_failed and config_invalid warnings.
		Diagnostics []diag.Diagnostic
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*LoadResult, error)
	}

	fileProvider struct{}
)

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return loadWithOptions(ctx, opts)
}

// Validate checks the non-empty fields of the options.
func (o LoadOptions) Validate() error {
	var errs []error
	if o.ConfigFilePath != "" {
		if ok, fieldErrs := o.ConfigFilePath.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	if o.Dir != "" {
		if ok, fieldErrs := o.Dir.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	if len(errs) > 0 {
		return &InvalidLoadOptionsError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidLoadOptionsError) Error() string {
	return fmt.Sprintf("invalid load options: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidLoadOptions for errors.Is() compatibility.
func (e *InvalidLoadOptionsError) Unwrap() error { return ErrInvalidLoadOptions }
