// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"strings"
	"testing"

	"github.com/invowk/metagen/pkg/model"
)

func TestMarkerStrategies(t *testing.T) {
	t.Parallel()

	ext := &model.Declaration{
		ID:          model.Identity{Module: "example.com/lib", Namespace: "example.com/lib", Name: "Money"},
		Kind:        model.DeclStruct,
		Decorations: []model.Decoration{{Namespace: MarkerNamespace, Name: MarkerDescribe}},
	}
	prog := testProgram(t,
		[]*model.Declaration{testDecl("Order", MarkerDescribe), testDecl("Plain")},
		[]*model.Declaration{ext},
	)

	local, err := LocalMarker().Discover(context.Background(), prog)
	if err != nil {
		t.Fatalf("LocalMarker error = %v", err)
	}
	if len(local) != 1 || local[0].Declaration.ID.Name != "Order" {
		t.Errorf("LocalMarker candidates = %v", local)
	}

	external, err := ExternalMarker().Discover(context.Background(), prog)
	if err != nil {
		t.Fatalf("ExternalMarker error = %v", err)
	}
	if len(external) != 1 || external[0].Declaration.ID.Name != "Money" {
		t.Errorf("ExternalMarker candidates = %v", external)
	}
	if !ExternalMarker().RequiresCrossModule() || LocalMarker().RequiresCrossModule() {
		t.Error("cross-module flags are wrong")
	}
}

func TestContainerElements(t *testing.T) {
	t.Parallel()

	item := testDecl("Item")
	tag := testDecl("Tag")
	money := &model.Declaration{ID: model.Identity{Module: "example.com/lib", Namespace: "example.com/lib", Name: "Money"}}
	cart := testDecl("Cart", MarkerContainer)
	cart.Members = []model.Member{
		{Name: "Items", Type: model.Slice(model.Pointer(model.Named(testModule, testModule, "Item")))},
		{Name: "Tags", Type: model.Map(model.Named(testModule, testModule, "Tag"), model.Basic("int"))},
		{Name: "Prices", Type: model.Slice(model.Named("example.com/lib", "example.com/lib", "Money"))},
		{Name: "Owner", Type: model.Named(testModule, testModule, "Item")},
	}
	prog := testProgram(t, []*model.Declaration{cart, item, tag}, []*model.Declaration{money})

	s := ContainerElements()
	if !s.CanRun(prog) {
		t.Fatal("CanRun() = false with a container present")
	}
	cands, err := s.Discover(context.Background(), prog)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	var names []string
	for _, c := range cands {
		names = append(names, c.Declaration.ID.Name)
		if !strings.Contains(c.Evidence, "Cart.") {
			t.Errorf("evidence %q does not name the container", c.Evidence)
		}
	}
	if strings.Join(names, ",") != "Item,Tag" {
		t.Errorf("elements = %v, want [Item Tag]", names)
	}

	empty := testProgram(t, []*model.Declaration{testDecl("Solo")}, nil)
	if s.CanRun(empty) {
		t.Error("CanRun() = true without containers")
	}
}
