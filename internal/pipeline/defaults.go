// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"github.com/invowk/metagen/internal/discovery"
	"github.com/invowk/metagen/internal/plugin"
	"github.com/invowk/metagen/internal/plugin/repo"
	"github.com/invowk/metagen/internal/plugin/schema"
)

// DefaultStrategies returns the built-in strategies followed by the
// strategies contributed for the shipped plugins.
func DefaultStrategies() *discovery.Registry {
	return discovery.BuiltinRegistry().MustRegister(repo.Strategy(), schema.Strategy())
}

// DefaultPlugins returns the shipped plugins.
func DefaultPlugins() *plugin.Registry {
	return plugin.NewRegistry().MustRegister(repo.New, schema.New)
}
