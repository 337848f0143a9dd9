// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/invowk/metagen/internal/pipeline"
)

const descriptionWidth = 72

func newStrategiesCommand(app *App, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the registered discovery strategies",
		Long: `List the registered discovery strategies.

Strategies selected by discovery.strategies are marked. Cross-module
strategies only run when discovery.cross_module is enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := describe(cmd, app, root)
			if err != nil {
				return root.fail(cmd, err)
			}
			renderStrategies(cmd.OutOrStdout(), m.Strategies)
			return nil
		},
	}
}

func newPluginsCommand(app *App, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the registered plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := describe(cmd, app, root)
			if err != nil {
				return root.fail(cmd, err)
			}
			renderPlugins(cmd.OutOrStdout(), m.Plugins)
			return nil
		},
	}
}

func newManifestCommand(app *App, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Print the strategies and plugins of a pass as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := describe(cmd, app, root)
			if err != nil {
				return root.fail(cmd, err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		},
	}
}

func describe(cmd *cobra.Command, app *App, root *rootOptions) (pipeline.Manifest, error) {
	res, err := root.loadConfig(cmd.Context(), app)
	if err != nil {
		return pipeline.Manifest{}, err
	}
	return app.Pass.Describe(res.Config), nil
}

func marker(on bool) string {
	if on {
		return SuccessStyle.Render("●")
	}
	return SubtitleStyle.Render("○")
}

func renderStrategies(w io.Writer, strategies []pipeline.StrategyInfo) {
	fmt.Fprintln(w, TitleStyle.Render("Discovery strategies"))
	fmt.Fprintln(w)
	for _, s := range strategies {
		line := fmt.Sprintf("  %s %s", marker(s.Selected), CmdStyle.Render(s.ID))
		if s.CrossModule {
			line += " " + WarningStyle.Render("(cross-module)")
		}
		fmt.Fprintln(w, line)
		fmt.Fprintf(w, "    %s\n", SubtitleStyle.Render(s.Description.Truncate(descriptionWidth).String()))
	}
}

func renderPlugins(w io.Writer, plugins []pipeline.PluginInfo) {
	fmt.Fprintln(w, TitleStyle.Render("Plugins"))
	fmt.Fprintln(w)
	for _, p := range plugins {
		line := fmt.Sprintf("  %s %s %s", marker(p.Enabled), CmdStyle.Render(p.Name),
			VerboseStyle.Render("namespace "+p.Namespace))
		if p.RequiresBaseArtifacts {
			line += " " + WarningStyle.Render("(requires base artifacts)")
		}
		fmt.Fprintln(w, line)
		fmt.Fprintf(w, "    %s\n", SubtitleStyle.Render(p.Description.Truncate(descriptionWidth).String()))
	}
}
