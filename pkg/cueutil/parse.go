// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult contains the result of a successful parse.
type ParseResult[T any] struct {
	// Value is the decoded Go value.
	Value *T
	// Unified is the schema-unified CUE value.
	Unified cue.Value
}

// ParseAndDecode compiles data (CUE or JSON source), unifies it with the
// schemaPath definition of schema and decodes the result into T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := apply(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}
	return decode[T](schema, schemaPath, o, func(ctx *cue.Context) cue.Value {
		return ctx.CompileBytes(data, cue.Filename(o.filename))
	})
}

// EncodeAndDecode validates an already decoded Go value (for example a TOML
// document) against the schemaPath definition of schema and decodes the
// unified result into T.
func EncodeAndDecode[T any](schema []byte, value any, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := apply(opts)
	return decode[T](schema, schemaPath, o, func(ctx *cue.Context) cue.Value {
		return ctx.Encode(value)
	})
}

func apply(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.filename == "" {
		o.filename = "<input>"
	}
	return o
}

func decode[T any](schema []byte, schemaPath string, o options, build func(*cue.Context) cue.Value) (*ParseResult[T], error) {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: compiling schema: %w", schemaValue.Err())
	}
	root := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if root.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s: %w", schemaPath, root.Err())
	}

	user := build(ctx)
	if user.Err() != nil {
		return nil, FormatError(user.Err(), o.filename)
	}

	unified := root.Unify(user)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &ParseResult[T]{Value: &out, Unified: unified}, nil
}
