// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/discovery"
	"github.com/invowk/metagen/internal/issue"
	"github.com/invowk/metagen/internal/outcache"
	"github.com/invowk/metagen/internal/watch"
	"github.com/invowk/metagen/pkg/types"
)

const summaryWordWrap = 100

type generateOptions struct {
	modelFile  string
	outDir     string
	namespaces []string
	dryRun     bool
	summary    bool
	watch      bool
}

func newGenerateCommand(app *App, root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate [packages]",
		Short: "Run a generation pass and write its artifacts",
		Long: `Run a generation pass over one Go package and write its artifacts.

The package patterns are resolved in --dir and must match exactly one
package. With --model the program is read from a CUE or JSON model document
instead and no Go toolchain is needed.

Artifacts are written to --out (default --dir). Files whose content did not
change are left alone, and files produced by an earlier pass that are no
longer produced are removed.

With --watch the pass re-runs whenever a Go file or configuration document in
--dir changes, until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runGenerate(cmd, app, root, opts, args); err != nil {
				return root.fail(cmd, err)
			}
			if opts.watch {
				if err := watchGenerate(cmd, app, root, opts, args); err != nil {
					return root.fail(cmd, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.modelFile, "model", "", "read the program from a model document (.cue or .json)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory (default is --dir)")
	cmd.Flags().StringSliceVar(&opts.namespaces, "namespace", nil, "additional directive namespace to read from Go sources")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "report the file changes without writing")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "render the diagnostics summary after the pass")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-run when the inputs change")
	return cmd
}

func runGenerate(cmd *cobra.Command, app *App, root *rootOptions, opts *generateOptions, patterns []string) error {
	ctx := cmd.Context()
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	cfgRes, err := root.loadConfig(ctx, app)
	if err != nil {
		return err
	}
	if cfgRes.Path != "" {
		app.slogger.Debug("configuration loaded", "path", cfgRes.Path)
	}

	req := ModelRequest{
		Dir:        types.FilesystemPath(root.dir),
		ModelFile:  types.FilesystemPath(opts.modelFile),
		Patterns:   patterns,
		Namespaces: opts.namespaces,
	}
	prog, loadDiags, err := app.Models.Load(ctx, req)
	if err != nil {
		resource := opts.modelFile
		if resource == "" {
			resource = root.dir
		}
		return issue.NewErrorContext().
			WithOperation("load program model").
			WithResource(resource).
			WithIssue(issue.ModelLoadFailedId).
			Wrap(err).
			BuildError()
	}

	res, err := app.Pass.Run(ctx, prog, cfgRes.Config, slices.Concat(cfgRes.Diagnostics, loadDiags)...)
	if err != nil {
		ec := issue.NewErrorContext().WithOperation("run generation pass")
		if errors.Is(err, discovery.ErrUnknownStrategy) {
			ec = ec.WithSuggestion("Run 'metagen strategies' to list the registered identifiers").
				WithIssue(issue.UnknownStrategyId)
		} else {
			ec = ec.WithIssue(issue.PassFailedId)
		}
		return ec.Wrap(err).BuildError()
	}
	renderDiagnostics(stderr, res.Diagnostics)

	outDir := opts.output(root)
	cache, err := outcache.Open(types.FilesystemPath(outDir), outcache.WithLogger(app.slogger))
	if err != nil {
		return writeError(outDir, err)
	}
	plan, err := cache.Plan(res.Artifacts)
	if err != nil {
		return writeError(outDir, err)
	}

	if opts.dryRun {
		renderPlan(stdout, plan)
	} else {
		if err := cache.Apply(plan); err != nil {
			return writeError(outDir, err)
		}
		fmt.Fprintf(stdout, "%s %d written, %d unchanged, %d removed in %s\n",
			SuccessStyle.Render("✓"), len(plan.Write), len(plan.Unchanged), len(plan.Remove), CmdStyle.Render(outDir))
	}

	if opts.summary {
		return renderSummary(stdout, res.Summary())
	}
	return nil
}

func (o *generateOptions) output(root *rootOptions) string {
	if o.outDir == "" {
		return root.dir
	}
	return o.outDir
}

// watchGenerate re-runs the pass on input changes until the command context
// is canceled. Failed passes are reported and the watch goes on.
func watchGenerate(cmd *cobra.Command, app *App, root *rootOptions, opts *generateOptions, patterns []string) error {
	inputs := []string{"*.go", "metagen.cue", "metagen.json", "metagen.toml"}
	for _, f := range []string{opts.modelFile, root.cfgFile} {
		if f != "" && sameDir(f, root.dir) {
			inputs = append(inputs, filepath.Base(f))
		}
	}

	skip := func(string) bool { return false }
	if sameDir(filepath.Join(opts.output(root), outcache.ManifestFile), root.dir) {
		manifest := types.FilesystemPath(root.dir).Join(outcache.ManifestFile)
		skip = func(name string) bool {
			m, err := outcache.ReadManifest(manifest)
			if err != nil {
				return false
			}
			_, produced := m.Files[name]
			return produced
		}
	}

	w, err := watch.New(watch.Config{
		Dir:      types.FilesystemPath(root.dir),
		Patterns: inputs,
		Skip:     skip,
		Logger:   app.slogger,
		OnChange: func(_ context.Context, changed []string) error {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", VerboseStyle.Render("changed:"), strings.Join(changed, ", "))
			if err := runGenerate(cmd, app, root, opts, patterns); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, root.verbose))
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", SubtitleStyle.Render("watching"), CmdStyle.Render(root.dir))
	return w.Run(cmd.Context())
}

func sameDir(file, dir string) bool {
	a, errA := filepath.Abs(filepath.Dir(file))
	b, errB := filepath.Abs(dir)
	return errA == nil && errB == nil && a == b
}

func writeError(dir string, err error) error {
	return issue.NewErrorContext().
		WithOperation("write artifacts").
		WithResource(dir).
		WithIssue(issue.WriteFailedId).
		Wrap(err).
		BuildError()
}

// renderDiagnostics prints one styled line per diagnostic.
func renderDiagnostics(w io.Writer, diags []diag.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	for _, d := range diags {
		var sev string
		switch d.Severity {
		case diag.SeverityError:
			sev = ErrorStyle.Render(string(d.Severity))
		case diag.SeverityWarning:
			sev = WarningStyle.Render(string(d.Severity))
		default:
			sev = VerboseStyle.Render(string(d.Severity))
		}
		line := d.Message
		if d.Subject != nil {
			line += " " + CmdStyle.Render(d.Subject.String())
		}
		if d.Cause != nil {
			line += ": " + d.Cause.Error()
		}
		fmt.Fprintf(w, "%s %s %s\n", sev, codeStyle.Render("["+string(d.Code)+"]"), line)
	}
	fmt.Fprintln(w)
}

func renderPlan(w io.Writer, plan outcache.Plan) {
	fmt.Fprintln(w, TitleStyle.Render("Planned changes"))
	for _, a := range plan.Write {
		fmt.Fprintf(w, "  %s %s %s\n", SuccessStyle.Render("write"), CmdStyle.Render(a.Name), SubtitleStyle.Render(a.Producer))
	}
	for _, name := range plan.Unchanged {
		fmt.Fprintf(w, "  %s %s\n", VerboseStyle.Render("keep "), name)
	}
	for _, name := range plan.Remove {
		fmt.Fprintf(w, "  %s %s\n", WarningStyle.Render("remove"), name)
	}
}

func renderSummary(w io.Writer, markdown string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(summaryWordWrap),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(markdown)
	if err != nil {
		return err
	}
	fmt.Fprint(w, out)
	return nil
}
