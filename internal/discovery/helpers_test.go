// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"testing"

	"github.com/invowk/metagen/pkg/model"
)

const testModule = "example.com/shop"

func testID(name string) model.Identity {
	return model.Identity{Module: testModule, Namespace: testModule, Name: name}
}

func testDecl(name string, decorations ...string) *model.Declaration {
	d := &model.Declaration{ID: testID(name), Kind: model.DeclStruct}
	for _, dec := range decorations {
		d.Decorations = append(d.Decorations, model.Decoration{Namespace: MarkerNamespace, Name: dec})
	}
	return d
}

func testProgram(t *testing.T, local, external []*model.Declaration) *model.Snapshot {
	t.Helper()
	s, err := model.NewSnapshot(model.Scope{Name: "shop", Path: testModule, Module: testModule}, local, external)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return s
}

// fixedStrategy proposes the named declarations of the program.
func fixedStrategy(id StrategyID, names ...string) Strategy {
	return &Definition{
		Identifier: id,
		Summary:    "test strategy",
		Scan: func(_ context.Context, prog model.Program) ([]Candidate, error) {
			var out []Candidate
			for _, n := range names {
				if d, ok := prog.Lookup(testID(n)); ok {
					out = append(out, Candidate{Declaration: d, Evidence: "listed by " + string(id)})
				}
			}
			return out, nil
		},
	}
}
