// SPDX-License-Identifier: MPL-2.0

// Package schema is the JSON Schema plugin. It renders one draft 2020-12
// schema per declaration found by a Schema strategy and compiles the whole
// batch before returning it, so every emitted $ref resolves.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/invowk/metagen/internal/artifact"
	"github.com/invowk/metagen/internal/basegen"
	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/discovery"
	"github.com/invowk/metagen/internal/naming"
	"github.com/invowk/metagen/internal/plugin"
	"github.com/invowk/metagen/internal/xref"
	"github.com/invowk/metagen/pkg/model"
)

const (
	// Name is the plugin name.
	Name = "Schema"
	// MarkerID is the identifier of the Schema discovery strategy.
	MarkerID discovery.StrategyID = "Schema.Marker"
	// Draft is the $schema of every emitted document.
	Draft = "https://json-schema.org/draft/2020-12/schema"

	fileSuffix = ".schema.json"
)

type (
	// Config is the Schema plugin configuration block.
	Config struct {
		RequireBaseArtifacts bool   `mapstructure:"require_base_artifacts"`
		IDPrefix             string `mapstructure:"id_prefix"`
	}

	// Plugin is the JSON Schema plugin.
	Plugin struct {
		cfg Config
	}

	document struct {
		id      string
		subject model.Identity
		name    string
		body    map[string]any
	}
)

// DefaultConfig returns the defaults applied before the configuration block.
func DefaultConfig() Config {
	return Config{IDPrefix: "https://metagen.invalid/schemas/"}
}

// New returns an unconfigured Schema plugin.
func New() plugin.Plugin { return &Plugin{cfg: DefaultConfig()} }

// Strategy returns the Schema.Marker discovery strategy.
func Strategy() discovery.Strategy {
	return discovery.MarkerStrategy(MarkerID, "local declarations decorated metagen:Schema",
		discovery.MarkerSchema, false)
}

// Name implements plugin.Plugin.
func (*Plugin) Name() string { return Name }

// Description implements plugin.Plugin.
func (*Plugin) Description() string { return "JSON Schema (draft 2020-12) documents" }

// Namespace implements plugin.Plugin.
func (*Plugin) Namespace() string { return Name }

// RequiresBaseArtifacts implements plugin.Plugin.
func (p *Plugin) RequiresBaseArtifacts() bool { return p.cfg.RequireBaseArtifacts }

// Config returns the effective configuration.
func (p *Plugin) Config() Config { return p.cfg }

// Configure implements plugin.Plugin.
func (p *Plugin) Configure(raw map[string]any) []diag.Diagnostic {
	cfg, err := plugin.DecodeConfig(Name, raw, DefaultConfig())
	if err == nil && !strings.HasSuffix(cfg.IDPrefix, "/") {
		cfg.IDPrefix += "/"
	}
	p.cfg = cfg
	return plugin.ConfigDiagnostic(err)
}

// Generate implements plugin.Plugin.
func (p *Plugin) Generate(set *discovery.Set, prog model.Program, ctx plugin.Context) ([]artifact.Artifact, error) {
	if !plugin.Gate(p, ctx) {
		return nil, nil
	}
	entitled := plugin.Entitled(set, Name)
	names := naming.Assign(set.Identities())
	fileOf := func(id model.Identity) string { return names.FileStem(id) + fileSuffix }

	docs := make([]document, 0, entitled.Len())
	for _, rec := range entitled.Items() {
		id := rec.ID()
		file := fileOf(id)
		b := &builder{entitled: entitled, prog: prog, urlOf: func(t model.Identity) string { return p.cfg.IDPrefix + fileOf(t) }}
		body := b.object(rec.Declaration)
		body["$schema"] = Draft
		body["$id"] = p.cfg.IDPrefix + file
		body["title"] = id.Name
		body["description"] = "Schema of " + id.String()
		docs = append(docs, document{id: p.cfg.IDPrefix + file, subject: id, name: file, body: body})
	}
	if err := compile(docs); err != nil {
		return nil, err
	}

	out := make([]artifact.Artifact, 0, len(docs))
	for _, d := range docs {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d.body); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", d.name, err)
		}
		subject := d.subject
		out = append(out, artifact.Artifact{Name: d.name, Content: buf.String(), Subject: &subject})
	}
	return out, nil
}

// compile loads every document into one compiler and compiles each of them.
func compile(docs []document) error {
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	for _, d := range docs {
		raw, err := json.Marshal(d.body)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", d.name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("decoding %s: %w", d.name, err)
		}
		if err := c.AddResource(d.id, doc); err != nil {
			return fmt.Errorf("adding %s: %w", d.name, err)
		}
	}
	for _, d := range docs {
		if _, err := c.Compile(d.id); err != nil {
			return fmt.Errorf("compiling %s: %w", d.name, err)
		}
	}
	return nil
}

type builder struct {
	entitled *discovery.Set
	prog     model.Program
	urlOf    func(model.Identity) string
}

func (b *builder) object(d *model.Declaration) map[string]any {
	props := make(map[string]any)
	var required []string
	for _, m := range d.Members {
		if m.Embedded || !exported(m.Name) {
			continue
		}
		name, omitEmpty, skip := jsonName(m)
		if skip {
			continue
		}
		props[name] = b.typeSchema(m.Type, 0)
		if !omitEmpty && m.Type.Kind != model.KindPointer {
			required = append(required, name)
		}
	}
	body := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		body["required"] = required
	}
	return body
}

// typeSchema maps a member type to a schema. Named declarations of the
// entitled set become $refs through the same candidate rule the descriptor
// cross-references use.
func (b *builder) typeSchema(t model.TypeRef, depth int) map[string]any {
	if depth > 8 {
		return map[string]any{}
	}
	if t.Kind == model.KindNamed && !xref.IsCollection(t) {
		if id, _ := t.Identity(); b.entitled.Contains(id) {
			return map[string]any{"$ref": b.urlOf(id)}
		}
	}
	switch t.Kind {
	case model.KindBasic:
		return basicSchema(t.Name)
	case model.KindPointer:
		elem, _ := t.Elem()
		return map[string]any{"anyOf": []any{b.typeSchema(elem, depth+1), map[string]any{"type": "null"}}}
	case model.KindSlice, model.KindArray:
		elem, _ := t.Elem()
		if elem.Kind == model.KindBasic && (elem.Name == "byte" || elem.Name == "uint8") {
			return map[string]any{"type": "string", "contentEncoding": "base64"}
		}
		s := map[string]any{"type": "array", "items": b.typeSchema(elem, depth+1)}
		if t.Kind == model.KindArray {
			s["minItems"] = t.Len
			s["maxItems"] = t.Len
		}
		return s
	case model.KindMap:
		return map[string]any{"type": "object", "additionalProperties": b.typeSchema(t.Args[1], depth+1)}
	case model.KindNamed:
		return b.namedSchema(t, depth)
	default:
		return map[string]any{}
	}
}

func (b *builder) namedSchema(t model.TypeRef, depth int) map[string]any {
	switch {
	case t.Is("time", "Time"):
		return map[string]any{"type": "string", "format": "date-time"}
	case t.Is("time", "Duration"):
		return map[string]any{"type": "integer"}
	}
	id, _ := t.Identity()
	if b.prog == nil {
		return map[string]any{}
	}
	d, ok := b.prog.Lookup(id)
	if !ok {
		return map[string]any{}
	}
	if d.Kind == model.DeclStruct && depth < 4 {
		return b.object(d)
	}
	return map[string]any{}
}

func basicSchema(name string) map[string]any {
	switch name {
	case "string", "error":
		return map[string]any{"type": "string"}
	case "bool":
		return map[string]any{"type": "boolean"}
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "uintptr", "byte", "rune":
		return map[string]any{"type": "integer"}
	case "float32", "float64":
		return map[string]any{"type": "number"}
	default:
		return map[string]any{}
	}
}

// jsonName applies a tag:json decoration the way encoding/json reads it.
func jsonName(m model.Member) (name string, omitEmpty, skip bool) {
	name = m.Name
	d, ok := model.FindDecoration(m.Decorations, basegen.TagNamespace, "json")
	if !ok {
		return name, false, false
	}
	v, ok := d.Arg(0)
	if !ok {
		return name, false, false
	}
	if v.Text == "-" {
		return "", false, true
	}
	parts := strings.Split(v.Text, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func exported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
