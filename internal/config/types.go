// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"go/token"
	"maps"
	"slices"
	"strings"

	"github.com/invowk/metagen/internal/discovery"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidPackageName is the sentinel error wrapped by InvalidPackageNameError.
	ErrInvalidPackageName = errors.New("invalid package name")
	// ErrInvalidPluginList is the sentinel error wrapped by InvalidPluginListError.
	ErrInvalidPluginList = errors.New("invalid plugin list")
)

type (
	// Config is the configuration of one generation pass.
	Config struct {
		// Naming overrides the scope name used in generated identifiers.
		Naming     string           `json:"naming,omitempty" mapstructure:"naming"`
		Discovery  DiscoveryConfig  `json:"discovery" mapstructure:"discovery"`
		Generation GenerationConfig `json:"generation" mapstructure:"generation"`
		// Plugins lists the plugins to run, by name.
		Plugins []string `json:"plugins" mapstructure:"plugins"`
		// PluginConfig holds one opaque block per plugin name.
		PluginConfig map[string]map[string]any `json:"plugin_config,omitempty" mapstructure:"plugin_config"`
		// Diagnostics enables informational diagnostics and the summary artifact.
		Diagnostics bool `json:"diagnostics" mapstructure:"diagnostics"`
	}

	// DiscoveryConfig selects the discovery strategies.
	DiscoveryConfig struct {
		CrossModule bool     `json:"cross_module" mapstructure:"cross_module"`
		Strategies  []string `json:"strategies" mapstructure:"strategies"`
	}

	// GenerationConfig controls the base descriptor generator.
	GenerationConfig struct {
		BaseArtifacts bool `json:"base_artifacts" mapstructure:"base_artifacts"`
		// Package overrides the package clause of generated Go files.
		Package string `json:"package,omitempty" mapstructure:"package"`
	}

	// InvalidConfigError collects the field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// InvalidPackageNameError is returned for a package override that is not
	// a Go identifier.
	InvalidPackageNameError struct {
		Value string
	}

	// InvalidPluginListError is returned for an empty or repeated plugin name.
	InvalidPluginListError struct {
		Name   string
		Reason string
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			Strategies: []string{discovery.LocalMarkerID.String()},
		},
		Plugins:      []string{},
		PluginConfig: map[string]map[string]any{},
	}
}

// PluginBlock returns the configuration block of the named plugin. Names
// match case-insensitively since configuration keys are folded to lower case.
func (c *Config) PluginBlock(name string) map[string]any {
	if block, ok := c.PluginConfig[name]; ok {
		return block
	}
	for _, k := range slices.Sorted(maps.Keys(c.PluginConfig)) {
		if strings.EqualFold(k, name) {
			return c.PluginConfig[k]
		}
	}
	return nil
}

// ToMap returns the configuration as a document tree keyed like the
// configuration file.
func (c *Config) ToMap() map[string]any {
	plugins := make(map[string]any, len(c.PluginConfig))
	for name, block := range c.PluginConfig {
		plugins[name] = maps.Clone(block)
	}
	m := map[string]any{
		"discovery": map[string]any{
			"cross_module": c.Discovery.CrossModule,
			"strategies":   slices.Clone(c.Discovery.Strategies),
		},
		"generation": map[string]any{
			"base_artifacts": c.Generation.BaseArtifacts,
		},
		"plugins":     slices.Clone(c.Plugins),
		"diagnostics": c.Diagnostics,
	}
	if c.Naming != "" {
		m["naming"] = c.Naming
	}
	if c.Generation.Package != "" {
		m["generation"].(map[string]any)["package"] = c.Generation.Package
	}
	if len(plugins) > 0 {
		m["plugin_config"] = plugins
	}
	return m
}

// IsValid reports whether every field holds a usable value. Strategy names
// are checked for shape only; unknown strategies fail the pass later.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, s := range c.Discovery.Strategies {
		if ok, idErrs := discovery.StrategyID(s).IsValid(); !ok {
			errs = append(errs, idErrs...)
		}
	}
	if p := c.Generation.Package; p != "" && !token.IsIdentifier(p) {
		errs = append(errs, &InvalidPackageNameError{Value: p})
	}
	seen := make(map[string]bool, len(c.Plugins))
	for _, name := range c.Plugins {
		key := strings.ToLower(strings.TrimSpace(name))
		switch {
		case key == "":
			errs = append(errs, &InvalidPluginListError{Name: name, Reason: "empty name"})
		case seen[key]:
			errs = append(errs, &InvalidPluginListError{Name: name, Reason: "listed twice"})
		}
		seen[key] = true
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Error implements the error interface.
func (e *InvalidPackageNameError) Error() string {
	return fmt.Sprintf("invalid package name %q: must be a Go identifier", e.Value)
}

// Unwrap returns ErrInvalidPackageName for errors.Is() compatibility.
func (e *InvalidPackageNameError) Unwrap() error { return ErrInvalidPackageName }

// Error implements the error interface.
func (e *InvalidPluginListError) Error() string {
	return fmt.Sprintf("invalid plugin %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidPluginList for errors.Is() compatibility.
func (e *InvalidPluginListError) Unwrap() error { return ErrInvalidPluginList }
