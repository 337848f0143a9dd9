// SPDX-License-Identifier: MPL-2.0

// Package config loads the pass configuration.
//
// The explicit document wins (metagen.cue, metagen.json or metagen.toml,
// validated against the embedded config_schema.cue), then METAGEN_*
// environment variables for keys the document leaves unset, then the
// built-in defaults. Layering is done with Viper. A document that cannot be
// parsed is not fatal: Load falls back to the lower layers and reports a
// config_parse_failed warning.
package config
