// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/metagen/internal/config"
	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/goload"
	"github.com/invowk/metagen/internal/modelfile"
	"github.com/invowk/metagen/internal/pipeline"
	"github.com/invowk/metagen/pkg/model"
	"github.com/invowk/metagen/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root
	// for the CLI layer: command handlers receive an App and delegate through
	// its services.
	App struct {
		Config config.Provider
		Models ModelLoader
		Pass   *pipeline.Pass
		// logger is the handler behind slogger; its level follows --verbose.
		logger  *log.Logger
		slogger *slog.Logger
		stdout  io.Writer
		stderr  io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Models ModelLoader
		// Pass is built with the App logger when nil.
		Pass   *pipeline.Pass
		Logger *log.Logger
		Stdout io.Writer
		Stderr io.Writer
	}

	// ModelRequest captures the program model inputs of one invocation.
	ModelRequest struct {
		// Dir is the directory Go package patterns are resolved in.
		Dir types.FilesystemPath
		// ModelFile selects a model document instead of Go packages.
		ModelFile types.FilesystemPath
		Patterns  []string
		// Namespaces lists extra directive namespaces to read from Go sources.
		Namespaces []string
	}

	// ModelLoader produces the program model a pass runs over, with the
	// findings of loading it.
	ModelLoader interface {
		Load(ctx context.Context, req ModelRequest) (model.Program, []diag.Diagnostic, error)
	}

	defaultModelLoader struct {
		logger *slog.Logger
	}
)

// NewApp creates the CLI composition root with defaults for nil dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Logger == nil {
		deps.Logger = newLogger(deps.Stderr)
	}
	logger := slog.New(deps.Logger)
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Models == nil {
		deps.Models = &defaultModelLoader{logger: logger}
	}
	if deps.Pass == nil {
		deps.Pass = pipeline.New(pipeline.WithLogger(logger))
	}

	return &App{
		Config:  deps.Config,
		Models:  deps.Models,
		Pass:    deps.Pass,
		logger:  deps.Logger,
		slogger: logger,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}, nil
}

// newLogger returns the charm logger behind every slog call of the CLI. Only
// errors are shown until --verbose lowers the level.
func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix: "metagen",
		Level:  log.ErrorLevel,
	})
}

// Load reads a model document when one is requested and Go packages otherwise.
func (l *defaultModelLoader) Load(ctx context.Context, req ModelRequest) (model.Program, []diag.Diagnostic, error) {
	if req.ModelFile != "" {
		prog, err := modelfile.Load(req.ModelFile)
		if err != nil {
			return nil, nil, err
		}
		return prog, nil, nil
	}
	res, err := goload.Load(ctx, goload.Config{
		Dir:        req.Dir,
		Namespaces: req.Namespaces,
		Logger:     l.logger,
	}, req.Patterns...)
	if err != nil {
		return nil, nil, err
	}
	return res.Program, res.Diagnostics, nil
}
