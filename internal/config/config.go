// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/issue"
	"github.com/invowk/metagen/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "metagen"
	// EnvPrefix prefixes the environment variables read as fallback.
	EnvPrefix = "METAGEN"

	source = "config"
)

// ErrConfigParse is the sentinel error wrapped by ParseError.
var ErrConfigParse = errors.New("configuration parse failed")

// DocumentNames are the document names searched in LoadOptions.Dir, in order.
var DocumentNames = []string{AppName + ".cue", AppName + ".json", AppName + ".toml"}

//go:embed config_schema.cue
var configSchema []byte

// envKeys are the keys that can fall back to METAGEN_* variables.
var envKeys = []string{
	"naming",
	"discovery.cross_module",
	"discovery.strategies",
	"generation.base_artifacts",
	"generation.package",
	"plugins",
	"diagnostics",
}

// ParseError reports a configuration document that could not be used.
type ParseError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing configuration %s: %v", e.Path, e.Cause)
}

// Unwrap returns ErrConfigParse and the cause.
func (e *ParseError) Unwrap() []error { return []error{ErrConfigParse, e.Cause} }

// Details returns the schema validation errors behind the parse failure.
func (e *ParseError) Details() []*cueutil.ValidationError { return cueutil.Details(e.Cause) }

func loadWithOptions(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	res := &LoadResult{}

	path, err := resolvePath(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		doc, err := readDocument(path)
		if err == nil {
			err = v.MergeConfigMap(doc)
		}
		if err != nil {
			res.Diagnostics = append(res.Diagnostics,
				diag.Warning(diag.CodeConfigParseFailed, source,
					"configuration document %s could not be parsed; using defaults", path).
					Because(&ParseError{Path: path, Cause: err}))
		} else {
			res.Path = path
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if !v.InConfig(key) {
			_ = v.BindEnv(key)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		res.Diagnostics = append(res.Diagnostics,
			diag.Warning(diag.CodeConfigInvalid, source, "configuration values could not be decoded; using defaults").Because(err))
		cfg = *DefaultConfig()
	}
	if cfg.PluginConfig == nil {
		cfg.PluginConfig = map[string]map[string]any{}
	}

	if ok, errs := cfg.IsValid(); !ok {
		var invalid *InvalidConfigError
		if errors.As(errs[0], &invalid) {
			errs = invalid.FieldErrors
		}
		for _, e := range errs {
			res.Diagnostics = append(res.Diagnostics,
				diag.Warning(diag.CodeConfigInvalid, source, "%v", e).Because(e))
		}
	}

	res.Config = &cfg
	return res, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("naming", d.Naming)
	v.SetDefault("discovery.cross_module", d.Discovery.CrossModule)
	v.SetDefault("discovery.strategies", d.Discovery.Strategies)
	v.SetDefault("generation.base_artifacts", d.Generation.BaseArtifacts)
	v.SetDefault("generation.package", d.Generation.Package)
	v.SetDefault("plugins", d.Plugins)
	v.SetDefault("plugin_config", map[string]any{})
	v.SetDefault("diagnostics", d.Diagnostics)
}

// resolvePath returns the document to read, or "" when none exists.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		path := opts.ConfigFilePath.String()
		if !fileExists(path) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'metagen config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		return path, nil
	}
	dir := opts.Dir.String()
	if dir == "" {
		dir = "."
	}
	for _, name := range DocumentNames {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p, nil
		}
	}
	return "", nil
}

// readDocument decodes a document and validates it against #Config.
func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	opts := []cueutil.Option{cueutil.WithFilename(path), cueutil.WithConcrete(false)}

	var res *cueutil.ParseResult[map[string]any]
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue", ".json":
		res, err = cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config", opts...)
	case ".toml":
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
			return nil, err
		}
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		res, err = cueutil.EncodeAndDecode[map[string]any](configSchema, raw, "#Config", opts...)
	default:
		return nil, fmt.Errorf("%s: unsupported configuration format %q", path, ext)
	}
	if err != nil {
		return nil, err
	}
	return *res.Value, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as a formatted configuration document.
func GenerateCUE(cfg *Config) (string, error) {
	v := cuecontext.New().Encode(cfg.ToMap())
	if v.Err() != nil {
		return "", fmt.Errorf("encoding configuration: %w", v.Err())
	}
	node := v.Syntax()
	if st, ok := node.(*ast.StructLit); ok {
		node = &ast.File{Decls: st.Elts}
	}
	src, err := format.Node(node)
	if err != nil {
		return "", fmt.Errorf("formatting configuration: %w", err)
	}
	return "// metagen configuration\n\n" + string(src), nil
}
