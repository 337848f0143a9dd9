// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/invowk/metagen/internal/config"
	"github.com/invowk/metagen/internal/issue"
	"github.com/invowk/metagen/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// ExitError carries the status of a command that already reported its own
// failure on stderr.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit " + e.Code.String()
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	verbose bool
	cfgFile string
	dir     string
}

// NewRootCommand builds the command tree over app.
func NewRootCommand(app *App) *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "metagen",
		Short: "Generate type descriptors from metadata markers",
		Long: TitleStyle.Render("metagen") + SubtitleStyle.Render(" - Generate type descriptors from metadata markers") + `

metagen reads a Go package, or a model document describing one, discovers
the declarations selected by the configured strategies and writes descriptor
files and plugin output next to the sources.

` + SubtitleStyle.Render("Examples:") + `
  metagen generate                   Generate for the package in the current directory
  metagen generate --dry-run         Show which files would change
  metagen generate --model shop.cue  Generate from a model document
  metagen strategies                 List the discovery strategies
  metagen config dump                Print the effective configuration as CUE`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				app.logger.SetLevel(log.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "configuration document (default is metagen.cue, metagen.json or metagen.toml in --dir)")
	rootCmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "directory to load packages and configuration from")

	rootCmd.AddCommand(newGenerateCommand(app, opts))
	rootCmd.AddCommand(newStrategiesCommand(app, opts))
	rootCmd.AddCommand(newPluginsCommand(app, opts))
	rootCmd.AddCommand(newManifestCommand(app, opts))
	rootCmd.AddCommand(newConfigCommand(app, opts))

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(int(types.ExitFailure))
	}

	// fang overrides rootCmd.Version, so the version is passed explicitly.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(int(exitCode(err)))
	}
}

// exitCode returns the code carried by an ExitError, or the generic failure
// code when there is none or it is out of range or zero.
func exitCode(err error) types.ExitCode {
	code := types.ExitCodeFor(err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code.Validate() == nil && !exitErr.Code.IsSuccess() {
		code = exitErr.Code
	}
	return code
}

// loadConfig loads the configuration selected by the persistent flags.
func (o *rootOptions) loadConfig(ctx context.Context, app *App) (*config.LoadResult, error) {
	res, err := app.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(o.cfgFile),
		Dir:            types.FilesystemPath(o.dir),
	})
	if err != nil {
		resource := o.cfgFile
		if resource == "" {
			resource = o.dir
		}
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(resource).
			WithSuggestion("Run 'metagen config dump' to print a valid document").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return res, nil
}

// fail renders err on stderr and returns the ExitError the command exits with.
// Guidance from the issue catalog is appended in verbose mode.
func (o *rootOptions) fail(cmd *cobra.Command, err error) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	stderr := cmd.ErrOrStderr()
	fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, o.verbose))

	var ae *issue.ActionableError
	if o.verbose && errors.As(err, &ae) {
		if guidance := ae.Guidance(); guidance != nil {
			renderGuidance(stderr, guidance)
		}
	}
	return &ExitError{Code: types.ExitCodeFor(err), Err: err}
}

func renderGuidance(w io.Writer, guidance *issue.Issue) {
	rendered, err := guidance.Render("dark")
	if err != nil {
		rendered = guidance.Markdown()
	}
	fmt.Fprint(w, rendered)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
