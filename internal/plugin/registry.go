// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrDuplicatePlugin is returned when a plugin name is registered twice.
var ErrDuplicatePlugin = errors.New("duplicate plugin")

type (
	// Factory creates a fresh, unconfigured plugin instance. Each pass
	// configures its own instances.
	Factory func() Plugin

	// Registry is the explicit table of available plugins.
	Registry struct {
		names     []string
		factories map[string]Factory
	}

	// Info describes a registered plugin with its default configuration.
	Info struct {
		Name                  string
		Description           string
		Namespace             string
		RequiresBaseArtifacts bool
	}
)

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a plugin factory. Names are matched case-insensitively.
func (r *Registry) Register(f Factory) error {
	name := f().Name()
	key := strings.ToLower(name)
	if _, dup := r.factories[key]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, name)
	}
	r.factories[key] = f
	r.names = append(r.names, name)
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(fs ...Factory) *Registry {
	for _, f := range fs {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

// New returns a fresh instance of the plugin called name.
func (r *Registry) New(name string) (Plugin, bool) {
	f, ok := r.factories[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Names returns the registered plugin names sorted.
func (r *Registry) Names() []string {
	out := slices.Clone(r.names)
	slices.Sort(out)
	return out
}

// Infos describes every registered plugin, sorted by name.
func (r *Registry) Infos() []Info {
	var out []Info
	for _, name := range r.Names() {
		p, _ := r.New(name)
		out = append(out, Info{
			Name:                  p.Name(),
			Description:           p.Description(),
			Namespace:             p.Namespace(),
			RequiresBaseArtifacts: p.RequiresBaseArtifacts(),
		})
	}
	return out
}
