// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the CUE schema validation shared by the
// configuration loader and the model document reader.
//
// Every document goes through the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile (or encode) the user data and unify it with a schema definition
//  3. Validate and decode into a Go value
//
// # Usage
//
//	//go:embed model_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[document](schema, data, "#Model",
//	    cueutil.WithFilename("shop.model.cue"))
//	if err != nil {
//	    return nil, err // a *ValidationError list carrying CUE paths
//	}
package cueutil
