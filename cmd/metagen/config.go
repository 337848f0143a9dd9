// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/metagen/internal/config"
)

// newConfigCommand creates the `metagen config` command tree.
func newConfigCommand(app *App, root *rootOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the metagen configuration",
		Long: `Inspect the metagen configuration.

The configuration is read from the file given with --config, or from the
first of metagen.cue, metagen.json and metagen.toml found in --dir. Keys the
document leaves out fall back to METAGEN_* environment variables, such as
METAGEN_DIAGNOSTICS=true, and then to the built-in defaults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := root.loadConfig(cmd.Context(), app)
			if err != nil {
				return root.fail(cmd, err)
			}
			showConfig(cmd, res)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := root.loadConfig(cmd.Context(), app)
			if err != nil {
				return root.fail(cmd, err)
			}
			cueContent, err := config.GenerateCUE(res.Config)
			if err != nil {
				return root.fail(cmd, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), cueContent)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, res *config.LoadResult) {
	w := cmd.OutOrStdout()
	cfg := res.Config

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if res.Path != "" {
		fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("Config file"), res.Path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	value := func(key, v string) {
		if v == "" {
			v = SubtitleStyle.Render("(none)")
		} else {
			v = SuccessStyle.Render(v)
		}
		fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render(key), v)
	}
	value("naming", cfg.Naming)
	value("discovery.strategies", strings.Join(cfg.Discovery.Strategies, ", "))
	value("discovery.cross_module", strconv.FormatBool(cfg.Discovery.CrossModule))
	value("generation.base_artifacts", strconv.FormatBool(cfg.Generation.BaseArtifacts))
	value("generation.package", cfg.Generation.Package)
	value("plugins", strings.Join(cfg.Plugins, ", "))
	value("diagnostics", strconv.FormatBool(cfg.Diagnostics))

	if len(res.Diagnostics) > 0 {
		fmt.Fprintln(w)
		renderDiagnostics(cmd.ErrOrStderr(), res.Diagnostics)
	}
}
