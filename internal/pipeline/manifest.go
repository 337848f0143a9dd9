// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"slices"
	"strings"

	"github.com/invowk/metagen/internal/config"
	"github.com/invowk/metagen/pkg/types"
)

type (
	// Manifest describes what a pass can run and what cfg selects.
	Manifest struct {
		Strategies []StrategyInfo `json:"strategies"`
		Plugins    []PluginInfo   `json:"plugins"`
	}

	// StrategyInfo describes a registered strategy.
	StrategyInfo struct {
		ID          string                `json:"id"`
		Description types.DescriptionText `json:"description"`
		CrossModule bool                  `json:"cross_module"`
		Selected    bool                  `json:"selected"`
	}

	// PluginInfo describes a registered plugin with its effective
	// configuration.
	PluginInfo struct {
		Name                  string                `json:"name"`
		Description           types.DescriptionText `json:"description"`
		Namespace             string                `json:"namespace"`
		RequiresBaseArtifacts bool                  `json:"requires_base_artifacts"`
		Enabled               bool                  `json:"enabled"`
	}
)

// Describe returns the manifest of p under cfg. Plugin entries reflect their
// configuration blocks; invalid blocks fall back to defaults silently here,
// Run reports them.
func (p *Pass) Describe(cfg *config.Config) Manifest {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	var m Manifest
	for _, s := range p.strategies.Strategies() {
		id := s.ID().String()
		m.Strategies = append(m.Strategies, StrategyInfo{
			ID:          id,
			Description: types.DescriptionText(s.Description()),
			CrossModule: s.RequiresCrossModule(),
			Selected:    slices.Contains(cfg.Discovery.Strategies, id),
		})
	}
	slices.SortFunc(m.Strategies, func(a, b StrategyInfo) int { return strings.Compare(a.ID, b.ID) })

	for _, name := range p.plugins.Names() {
		pl, _ := p.plugins.New(name)
		_ = pl.Configure(cfg.PluginBlock(pl.Name()))
		m.Plugins = append(m.Plugins, PluginInfo{
			Name:                  pl.Name(),
			Description:           types.DescriptionText(pl.Description()),
			Namespace:             pl.Namespace(),
			RequiresBaseArtifacts: pl.RequiresBaseArtifacts(),
			Enabled: slices.ContainsFunc(cfg.Plugins, func(n string) bool {
				return strings.EqualFold(n, pl.Name())
			}),
		})
	}
	return m
}
