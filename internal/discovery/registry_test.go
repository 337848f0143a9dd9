// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestStrategyID_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id    StrategyID
		valid bool
	}{
		{"Meta.LocalMarker", true},
		{"Repo.Marker2", true},
		{"Meta", false},
		{".Marker", false},
		{"Meta.", false},
		{"1Meta.X", false},
		{"Me ta.X", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			t.Parallel()
			ok, errs := tt.id.IsValid()
			if ok != tt.valid {
				t.Fatalf("IsValid() = %v, want %v", ok, tt.valid)
			}
			if !ok && !errors.Is(errs[0], ErrInvalidStrategyID) {
				t.Errorf("error should wrap ErrInvalidStrategyID: %v", errs[0])
			}
		})
	}

	if got := StrategyID("Repo.Marker").Domain(); got != "Repo" {
		t.Errorf("Domain() = %q", got)
	}
	if StrategyID("Repository.Marker").InDomain("Repo") {
		t.Error("InDomain must match the full domain segment")
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(fixedStrategy("X.One")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := r.Register(fixedStrategy("X.One"))
	if !errors.Is(err, ErrDuplicateStrategy) {
		t.Fatalf("duplicate Register() error = %v", err)
	}
}

func TestRegistry_ResolveUnknownEnumeratesValid(t *testing.T) {
	t.Parallel()

	r := BuiltinRegistry()
	_, err := r.Resolve([]string{"Meta.LocalMarker", "Z.Unknown"})
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("Resolve() error = %v", err)
	}

	var unknown *UnknownStrategyError
	if !errors.As(err, &unknown) {
		t.Fatal("error is not *UnknownStrategyError")
	}
	if !slices.Equal(unknown.Unknown, []string{"Z.Unknown"}) {
		t.Errorf("Unknown = %v", unknown.Unknown)
	}
	if !slices.Equal(unknown.Valid, r.IDs()) {
		t.Errorf("Valid = %v, want %v", unknown.Valid, r.IDs())
	}
	for _, id := range r.IDs() {
		if !strings.Contains(err.Error(), string(id)) {
			t.Errorf("error message does not list %s: %v", id, err)
		}
	}
}

func TestRegistry_ResolveDedupesInRegistryOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry().MustRegister(fixedStrategy("A.First"), fixedStrategy("B.Second"))
	got, err := r.Resolve([]string{"B.Second", "A.First", "B.Second"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 2 || got[0].ID() != "A.First" || got[1].ID() != "B.Second" {
		t.Errorf("Resolve() = %v", got)
	}
}
