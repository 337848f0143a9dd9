// SPDX-License-Identifier: MPL-2.0

// Package goload builds a program model from Go packages.
//
// Declarations are read from syntax only: no type checking is performed.
// Decorations come from directive comments such as
//
//	//metagen:Describe
//	//metagen:Entity("Orders")
//
// placed on type declarations, fields and methods, and from struct tags,
// which become decorations in the "tag" namespace. Files carrying a
// "Code generated ... DO NOT EDIT." header are skipped.
//
// Named types referenced from other modules are loaded as the program's
// external declarations.
package goload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/discovery"
	"github.com/invowk/metagen/pkg/model"
	"github.com/invowk/metagen/pkg/types"
)

// Source is the diagnostic source of the loader.
const Source = "goload"

const (
	nameMode   = packages.NeedName | packages.NeedModule
	syntaxMode = nameMode | packages.NeedFiles | packages.NeedSyntax
)

var (
	// ErrScope is returned when the patterns do not match exactly one package.
	ErrScope = errors.New("patterns must match exactly one package")
	// ErrPackage is the sentinel error wrapped by PackageError.
	ErrPackage = errors.New("package could not be loaded")
)

type (
	// Config controls Load.
	Config struct {
		// Dir is the directory patterns are resolved in; empty means the
		// working directory.
		Dir types.FilesystemPath
		// Env overrides the environment of the go command.
		Env []string
		// Namespaces lists directive namespaces read in addition to metagen.
		Namespaces []string
		Logger     *slog.Logger
	}

	// Result is a loaded program with the findings of the loader.
	Result struct {
		Program     *model.Snapshot
		Diagnostics []diag.Diagnostic
	}

	// PackageError reports the errors of a package the go command returned.
	PackageError struct {
		Path   string
		Errors []string
	}

	loader struct {
		cfg        Config
		logger     *slog.Logger
		namespaces map[string]bool
		known      map[string]*packages.Package
		diags      []diag.Diagnostic
	}
)

// Error implements the error interface.
func (e *PackageError) Error() string {
	return fmt.Sprintf("package %s: %s", e.Path, strings.Join(e.Errors, "; "))
}

// Unwrap returns ErrPackage for errors.Is() compatibility.
func (e *PackageError) Unwrap() error { return ErrPackage }

// Load loads the single package matched by patterns and the declarations it
// references from other modules.
func Load(ctx context.Context, cfg Config, patterns ...string) (*Result, error) {
	if cfg.Dir != "" {
		if ok, errs := cfg.Dir.IsValid(); !ok {
			return nil, errors.Join(errs...)
		}
	}
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	l := &loader{
		cfg:        cfg,
		logger:     cfg.Logger,
		namespaces: map[string]bool{discovery.MarkerNamespace: true},
		known:      make(map[string]*packages.Package),
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, ns := range cfg.Namespaces {
		l.namespaces[ns] = true
	}

	roots, err := l.load(ctx, syntaxMode, patterns...)
	if err != nil {
		return nil, err
	}
	if len(roots) != 1 {
		return nil, fmt.Errorf("%w: %q matched %d", ErrScope, patterns, len(roots))
	}
	root := roots[0]
	scope := model.Scope{Name: root.Name, Path: root.PkgPath, Module: modulePath(root)}
	l.logger.Debug("package loaded", "path", root.PkgPath, "files", len(root.Syntax))

	if err := l.resolveImports(ctx, root); err != nil {
		return nil, err
	}
	local, refs := l.collect(root, nil)

	// Only named types from other modules become external declarations;
	// standard library types have no module.
	var external []*model.Declaration
	paths := slices.Sorted(maps.Keys(refs))
	paths = slices.DeleteFunc(paths, func(p string) bool {
		return refs[p].module == "" || refs[p].module == scope.Module
	})
	if len(paths) > 0 {
		pkgs, err := l.load(ctx, syntaxMode, paths...)
		if err != nil {
			return nil, err
		}
		for _, pkg := range pkgs {
			if err := l.resolveImports(ctx, pkg); err != nil {
				return nil, err
			}
			want := refs[pkg.PkgPath].names
			decls, _ := l.collect(pkg, func(name string) bool { return want[name] })
			external = append(external, decls...)
		}
	}

	prog, err := model.NewSnapshot(scope, local, external)
	if err != nil {
		return nil, err
	}
	diag.Sort(l.diags)
	return &Result{Program: prog, Diagnostics: l.diags}, nil
}

func (l *loader) load(ctx context.Context, mode packages.LoadMode, patterns ...string) ([]*packages.Package, error) {
	pcfg := &packages.Config{
		Context: ctx,
		Mode:    mode,
		Dir:     l.cfg.Dir.String(),
		Env:     l.cfg.Env,
		Logf: func(format string, args ...any) {
			l.logger.Debug(fmt.Sprintf(format, args...))
		},
	}
	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, err
	}
	for _, pkg := range pkgs {
		// Import resolution only needs names; a broken dependency is the
		// compiler's concern.
		if len(pkg.Errors) == 0 || mode == nameMode {
			l.known[pkg.PkgPath] = pkg
			continue
		}
		msgs := make([]string, len(pkg.Errors))
		for i, e := range pkg.Errors {
			msgs[i] = e.Error()
		}
		return nil, &PackageError{Path: pkg.PkgPath, Errors: msgs}
	}
	return pkgs, nil
}

// resolveImports learns the name and module of every package pkg imports.
func (l *loader) resolveImports(ctx context.Context, pkg *packages.Package) error {
	var missing []string
	for _, f := range pkg.Syntax {
		for _, spec := range f.Imports {
			p := importPath(spec)
			if _, ok := l.known[p]; !ok && p != "" && p != "C" && !slices.Contains(missing, p) {
				missing = append(missing, p)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	_, err := l.load(ctx, nameMode, missing...)
	return err
}

func (l *loader) report(d diag.Diagnostic) {
	l.logger.Warn(d.Message, "code", d.Code)
	l.diags = append(l.diags, d)
}

func modulePath(pkg *packages.Package) string {
	if pkg == nil || pkg.Module == nil {
		return ""
	}
	return pkg.Module.Path
}
