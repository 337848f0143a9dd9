// SPDX-License-Identifier: MPL-2.0

// Package pipeline runs one generation pass: discovery, aggregation, base
// descriptor generation and the configured plugins, in stage order.
//
// A pass never writes files. It returns the artifacts sorted by name together
// with every diagnostic; the caller decides where the artifacts go.
package pipeline
