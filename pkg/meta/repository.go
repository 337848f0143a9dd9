// SPDX-License-Identifier: MPL-2.0

package meta

// RepositoryDomain is the facet domain of RepositoryFacet.
const RepositoryDomain = "Repo"

type (
	// RepositoryFacet groups the repository operations of a declaration that
	// target one entity bucket.
	RepositoryFacet struct {
		Bucket     string
		Operations []Operation
	}

	// Operation is one wrapped repository method. Call holds the generated
	// wrapper function value.
	Operation struct {
		Name    string
		Wrapper string
		Call    any
	}
)

// FacetDomain implements Facet.
func (*RepositoryFacet) FacetDomain() string { return RepositoryDomain }

// Operation returns the operation called name.
func (f *RepositoryFacet) Operation(name string) (Operation, bool) {
	for _, op := range f.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}
