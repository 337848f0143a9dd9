// SPDX-License-Identifier: MPL-2.0

package meta

import (
	"context"
	"errors"
	"testing"
)

func orderDescriptor() *TypeDescriptor {
	return &TypeDescriptor{Namespace: "example.com/shop", Name: "Order", Kind: "struct"}
}

func TestRegistry_RegisterAndFacets(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	order := orderDescriptor()
	page := &TypeDescriptor{Namespace: "example.com/shop", Name: "Page", Arity: 1}
	r.Register(page, order)

	all := r.All()
	if len(all) != 2 || all[0] != order || all[1] != page {
		t.Fatalf("All() = %v", all)
	}
	if _, ok := r.Lookup("example.com/shop.Page`1"); !ok {
		t.Error("Lookup(generic key) failed")
	}

	r.AddFacet(order, &RepositoryFacet{Bucket: "Default"})
	facets := FacetsOf[*RepositoryFacet](r, order)
	if len(facets) != 1 || facets[0].Bucket != "Default" || facets[0].FacetDomain() != RepositoryDomain {
		t.Errorf("FacetsOf() = %v", facets)
	}
	if len(r.Facets(page)) != 0 {
		t.Error("unexpected facets on page")
	}
}

func TestMemberDescriptor_Reference(t *testing.T) {
	t.Parallel()

	target := orderDescriptor()
	m := MemberDescriptor{Name: "Order", Reference: func() *TypeDescriptor { return target }}
	if !m.IsReference() || m.Target() != target {
		t.Error("reference member did not resolve")
	}
	if (MemberDescriptor{}).Target() != nil {
		t.Error("terminal member resolved a target")
	}
}

func TestFromChan(t *testing.T) {
	t.Parallel()

	ch := make(chan Result[int], 1)
	ch <- Result[int]{Value: 7}
	v, err := FromChan(ch).Await(context.Background())
	if err != nil || v != 7 {
		t.Fatalf("FromChan() = %d, %v", v, err)
	}

	closed := make(chan Result[int])
	close(closed)
	if _, err := FromChan(closed)(context.Background()); !errors.Is(err, ErrNoResult) {
		t.Errorf("closed channel error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := FromChan(make(chan Result[int]))(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled error = %v", err)
	}
}

func TestValueResolvedFail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if v, _ := Value("x")(ctx); v != "x" {
		t.Errorf("Value() = %q", v)
	}
	boom := errors.New("boom")
	if _, err := Resolved(1, boom)(ctx); !errors.Is(err, boom) {
		t.Errorf("Resolved() err = %v", err)
	}
	if _, err := Fail[string](boom)(ctx); !errors.Is(err, boom) {
		t.Errorf("Fail() err = %v", err)
	}
}
