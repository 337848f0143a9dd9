// SPDX-License-Identifier: MPL-2.0

// Package meta is the runtime support imported by metagen-generated code.
//
// Generated files expose one lazily built *TypeDescriptor accessor per
// described declaration and a registration function that adds them to a
// Registry. Plugins attach domain facets (for example RepositoryFacet) to
// descriptors through the same Registry instead of extending the descriptor
// types.
package meta

// ImportPath is the import path generated code uses for this package.
const ImportPath = "github.com/invowk/metagen/pkg/meta"
