// SPDX-License-Identifier: MPL-2.0

// Package model defines the read-only program model that metagen consumes.
//
// A Program exposes the locally authored declarations of the compilation scope
// being generated plus the declarations it references from other modules.
// Every value handed out by this package is a snapshot: callers must treat
// declarations, members and type references as immutable.
//
// The package is a leaf: it imports only the standard library so that every
// adapter (Go packages, model documents, tests) can build a Snapshot without
// pulling generator code.
package model
