// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"fmt"

	"github.com/invowk/metagen/internal/xref"
	"github.com/invowk/metagen/pkg/model"
)

// MarkerNamespace is the decoration namespace of every metagen directive.
const MarkerNamespace = "metagen"

// Marker decoration names.
const (
	MarkerDescribe   = "Describe"
	MarkerContainer  = "Container"
	MarkerRepository = "Repository"
	MarkerSchema     = "Schema"
	MarkerEntity     = "Entity"
	MarkerIgnore     = "Ignore"
)

// Built-in strategy identifiers.
const (
	LocalMarkerID       StrategyID = "Meta.LocalMarker"
	ExternalMarkerID    StrategyID = "Meta.ExternalMarker"
	ContainerElementsID StrategyID = "Meta.ContainerElements"
)

// BuiltinRegistry returns a Registry holding the built-in Meta strategies.
func BuiltinRegistry() *Registry {
	return NewRegistry().MustRegister(
		LocalMarker(),
		ExternalMarker(),
		ContainerElements(),
	)
}

// LocalMarker selects local declarations decorated metagen:Describe.
func LocalMarker() Strategy {
	return MarkerStrategy(LocalMarkerID, "local declarations decorated metagen:Describe", MarkerDescribe, false)
}

// ExternalMarker selects declarations of other modules decorated
// metagen:Describe.
func ExternalMarker() Strategy {
	return MarkerStrategy(ExternalMarkerID, "external-module declarations decorated metagen:Describe", MarkerDescribe, true)
}

// MarkerStrategy returns a strategy selecting declarations that carry the
// metagen:<marker> decoration, scanning external declarations when external
// is true and local ones otherwise.
func MarkerStrategy(id StrategyID, summary, marker string, external bool) Strategy {
	decls := model.Program.Local
	if external {
		decls = model.Program.External
	}
	return &Definition{
		Identifier:   id,
		Summary:      summary,
		CrossModule:  external,
		Precondition: func(prog model.Program) bool { return len(decls(prog)) > 0 },
		Scan: func(ctx context.Context, prog model.Program) ([]Candidate, error) {
			var out []Candidate
			for _, d := range decls(prog) {
				if err := ctx.Err(); err != nil {
					return out, err
				}
				if d.HasDecoration(MarkerNamespace, marker) {
					out = append(out, Candidate{
						Declaration: d,
						Evidence:    fmt.Sprintf("decorated %s:%s", MarkerNamespace, marker),
					})
				}
			}
			return out, nil
		},
	}
}

// ContainerElements selects the local element declarations of collection
// members of declarations decorated metagen:Container.
func ContainerElements() Strategy {
	return &Definition{
		Identifier: ContainerElementsID,
		Summary:    "element declarations of collection members on metagen:Container declarations",
		Precondition: func(prog model.Program) bool {
			for _, d := range prog.Local() {
				if d.HasDecoration(MarkerNamespace, MarkerContainer) {
					return true
				}
			}
			return false
		},
		Scan: scanContainers,
	}
}

func scanContainers(ctx context.Context, prog model.Program) ([]Candidate, error) {
	var out []Candidate
	for _, owner := range prog.Local() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if !owner.HasDecoration(MarkerNamespace, MarkerContainer) {
			continue
		}
		for _, m := range owner.Members {
			if !xref.IsCollection(m.Type) {
				continue
			}
			cand, _, _, ok, _ := xref.Candidate(m.Type)
			if !ok {
				continue
			}
			id, _ := cand.Identity()
			elem, found := prog.Lookup(id)
			if !found || elem.Origin != model.OriginLocal {
				continue
			}
			out = append(out, Candidate{
				Declaration: elem,
				Evidence:    fmt.Sprintf("element of %s.%s", owner.ID, m.Name),
			})
		}
	}
	return out, nil
}
