// SPDX-License-Identifier: MPL-2.0

// Package plugin defines supplementary generators that add domain facets to
// base descriptors.
//
// A plugin only sees the declarations it is entitled to: those found by at
// least one strategy of its own namespace. A plugin that needs base
// descriptors produces nothing unless the pass attests that they were
// generated.
package plugin

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/invowk/metagen/internal/artifact"
	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/discovery"
	"github.com/invowk/metagen/pkg/model"
)

var (
	// ErrPluginConfig is the sentinel error wrapped by ConfigError.
	ErrPluginConfig = errors.New("invalid plugin configuration")
	// ErrPluginFailed is the sentinel error wrapped by Error.
	ErrPluginFailed = errors.New("plugin failed")
)

type (
	// Context is the shared state plugins receive from the pass.
	Context struct {
		// BaseGenerated attests that base descriptors were generated for the
		// scope in this pass.
		BaseGenerated bool
		// Described holds the identity keys of the declarations whose base
		// descriptor was actually produced. Nil means every declaration of
		// the set has one whenever BaseGenerated is set.
		Described map[string]bool
		Scope     model.Scope
		// ScopeName is the naming override or the scope name.
		ScopeName string
		// Package is the Go package name of generated files.
		Package string
		// Diagnostics enables informational diagnostics.
		Diagnostics bool
		// Report receives non-fatal findings; nil discards them.
		Report func(diag.Diagnostic)
	}

	// Plugin is a supplementary generator.
	Plugin interface {
		Name() string
		Description() string
		// Namespace is the strategy domain whose declarations the plugin may
		// extend.
		Namespace() string
		// Configure applies the plugin's opaque configuration block. Invalid
		// blocks leave the defaults in place and are reported.
		Configure(raw map[string]any) []diag.Diagnostic
		RequiresBaseArtifacts() bool
		// Generate emits artifacts for the entitled subset of set. It returns
		// no artifacts and no error when gated.
		Generate(set *discovery.Set, prog model.Program, ctx Context) ([]artifact.Artifact, error)
	}

	// ConfigError reports a configuration block that could not be decoded.
	ConfigError struct {
		Plugin string
		Cause  error
	}

	// Error reports a plugin that returned an error or panicked.
	Error struct {
		Plugin string
		Cause  error
		Panic  any
	}
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("plugin %s: invalid configuration, using defaults: %v", e.Plugin, e.Cause)
}

// Unwrap returns ErrPluginConfig and the cause.
func (e *ConfigError) Unwrap() []error { return []error{ErrPluginConfig, e.Cause} }

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("plugin %s panicked: %v", e.Plugin, e.Panic)
	}
	return fmt.Sprintf("plugin %s failed: %v", e.Plugin, e.Cause)
}

// Unwrap returns ErrPluginFailed and the cause.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrPluginFailed}
	}
	return []error{ErrPluginFailed, e.Cause}
}

// Emit forwards d to Report when set.
func (c Context) Emit(d diag.Diagnostic) {
	if c.Report != nil {
		c.Report(d)
	}
}

// HasDescriptor reports whether a base descriptor of id exists in this pass.
func (c Context) HasDescriptor(id model.Identity) bool {
	if !c.BaseGenerated {
		return false
	}
	return c.Described == nil || c.Described[id.Key()]
}

// Entitled returns the records of set found by a strategy of namespace.
func Entitled(set *discovery.Set, namespace string) *discovery.Set {
	return set.InDomain(namespace)
}

// Gate reports whether p may generate in ctx.
func Gate(p Plugin, ctx Context) bool {
	return !p.RequiresBaseArtifacts() || ctx.BaseGenerated
}

// DecodeConfig decodes raw over defaults. Unknown keys are errors. On failure
// the defaults are returned with a *ConfigError.
func DecodeConfig[T any](name string, raw map[string]any, defaults T) (T, error) {
	if len(raw) == 0 {
		return defaults, nil
	}
	out := defaults
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "mapstructure",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		MatchName:        equalFoldUnderscore,
	})
	if err != nil {
		return defaults, &ConfigError{Plugin: name, Cause: err}
	}
	if err := dec.Decode(raw); err != nil {
		return defaults, &ConfigError{Plugin: name, Cause: err}
	}
	return out, nil
}

// ConfigDiagnostic converts a DecodeConfig error into a plugin_config_invalid
// warning.
func ConfigDiagnostic(err error) []diag.Diagnostic {
	if err == nil {
		return nil
	}
	var ce *ConfigError
	source := ""
	if errors.As(err, &ce) {
		source = ce.Plugin
	}
	return []diag.Diagnostic{
		diag.Warning(diag.CodePluginConfigInvalid, source, "configuration ignored, using defaults").Because(err),
	}
}

// Run calls p.Generate behind a recover boundary and stamps the producer on
// every artifact.
func Run(p Plugin, set *discovery.Set, prog model.Program, ctx Context) (out []artifact.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &Error{Plugin: p.Name(), Panic: r}
		}
	}()
	out, err = p.Generate(set, prog, ctx)
	if err != nil {
		return nil, &Error{Plugin: p.Name(), Cause: err}
	}
	for i := range out {
		out[i].Producer = p.Name()
	}
	return out, nil
}

func equalFoldUnderscore(mapKey, fieldName string) bool {
	return normalizeKey(mapKey) == normalizeKey(fieldName)
}

func normalizeKey(s string) string {
	b := make([]byte, 0, len(s))
	for i := range len(s) {
		c := s[i]
		switch {
		case c == '_' || c == '-':
			continue
		case 'A' <= c && c <= 'Z':
			c += 'a' - 'A'
		}
		b = append(b, c)
	}
	return string(b)
}
