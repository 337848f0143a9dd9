// SPDX-License-Identifier: MPL-2.0

package basegen

import (
	"go/parser"
	"go/token"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/invowk/metagen/internal/artifact"
	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/internal/discovery"
	"github.com/invowk/metagen/internal/naming"
	"github.com/invowk/metagen/pkg/model"
)

const shop = "example.com/shop"

func named(name string) model.TypeRef { return model.Named(shop, shop, name) }

func describe(decls ...*model.Declaration) *discovery.Set {
	var items []*discovery.Discovered
	for _, d := range decls {
		if d.Decorations == nil {
			d.Decorations = []model.Decoration{{Namespace: discovery.MarkerNamespace, Name: discovery.MarkerDescribe}}
		}
		items = append(items, &discovery.Discovered{
			Declaration: d,
			Strategies:  []discovery.StrategyID{discovery.LocalMarkerID},
		})
	}
	return discovery.NewSet(items...)
}

func opts() Options {
	return Options{Scope: model.Scope{Name: "shop", Path: shop, Module: shop}, Package: "shop", ScopeName: "shop", Diagnostics: true}
}

func byName(t *testing.T, out Output, name string) artifact.Artifact {
	t.Helper()
	for _, a := range out.Artifacts {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("artifact %s not generated; have %v", name, out.Artifacts)
	return artifact.Artifact{}
}

func assertField(t *testing.T, content, key, value string) {
	t.Helper()
	re := regexp.MustCompile(regexp.QuoteMeta(key) + `:\s+` + regexp.QuoteMeta(value) + `,`)
	if !re.MatchString(content) {
		t.Errorf("missing %s: %s in:\n%s", key, value, content)
	}
}

func assertParses(t *testing.T, a artifact.Artifact) {
	t.Helper()
	if _, err := parser.ParseFile(token.NewFileSet(), a.Name, a.Content, parser.AllErrors); err != nil {
		t.Errorf("%s does not parse: %v\n%s", a.Name, err, a.Content)
	}
}

func TestGenerate_CollectionMemberReferencesElement(t *testing.T) {
	t.Parallel()

	a := &model.Declaration{ID: model.Identity{Module: shop, Namespace: shop, Name: "A"}, Kind: model.DeclStruct,
		Members: []model.Member{{Name: "ID", Type: model.Basic("int"), Settable: true}}}
	b := &model.Declaration{ID: model.Identity{Module: shop, Namespace: shop, Name: "B"}, Kind: model.DeclStruct,
		Members: []model.Member{{Name: "Items", Type: model.Slice(named("A")), Settable: true}}}

	out := New().Generate(describe(a, b), opts())
	if n := diag.Count(out.Diagnostics, diag.SeverityWarning); n != 0 {
		t.Fatalf("unexpected diagnostics: %v", out.Diagnostics)
	}

	bFile := byName(t, out, "b_meta.go")
	assertParses(t, bFile)
	assertField(t, bFile.Content, "Name", `"Items"`)
	assertField(t, bFile.Content, "Type", `"[]A"`)
	assertField(t, bFile.Content, "Collection", "true")
	assertField(t, bFile.Content, "GenericArguments", `[]string{"A"}`)
	assertField(t, bFile.Content, "Reference", "ADescriptor")

	aFile := byName(t, out, "a_meta.go")
	assertParses(t, aFile)
	if strings.Contains(aFile.Content, "Reference:") {
		t.Errorf("terminal member rendered a reference:\n%s", aFile.Content)
	}
	if strings.Contains(aFile.Content, `"Describe"`) {
		t.Error("marker decoration was captured")
	}

	reg := byName(t, out, RegistryFile)
	assertParses(t, reg)
	if !regexp.MustCompile(`(?s)ADescriptor\(\),\s+BDescriptor\(\),`).MatchString(reg.Content) {
		t.Errorf("registry not sorted:\n%s", reg.Content)
	}
	if !strings.Contains(reg.Content, "func RegisterShopDescriptors(r *meta.Registry)") {
		t.Errorf("registry function missing:\n%s", reg.Content)
	}
}

func TestGenerate_DecorationPolicyAndAmbiguity(t *testing.T) {
	t.Parallel()

	a := &model.Declaration{ID: model.Identity{Module: shop, Namespace: shop, Name: "A"}, Kind: model.DeclStruct,
		Decorations: []model.Decoration{
			{Namespace: discovery.MarkerNamespace, Name: discovery.MarkerDescribe},
			{Namespace: "audit", Name: "Tracked"},
			{Namespace: "audit", Name: "Table", Args: []model.Literal{model.String("a")}},
		},
		Members: []model.Member{
			{Name: "Nested", Type: model.Slice(model.Slice(named("A")))},
			{Name: "Self", Type: model.Pointer(named("A")),
				Decorations: []model.Decoration{{Namespace: TagNamespace, Name: "json", Args: []model.Literal{model.String("self")}}}},
		},
	}

	out := New().Generate(describe(a), opts())
	file := byName(t, out, "a_meta.go")
	assertParses(t, file)

	if !strings.Contains(file.Content, `Name: "Tracked"`) && !regexp.MustCompile(`Name:\s+"Tracked"`).MatchString(file.Content) {
		t.Errorf("zero-argument decoration not captured:\n%s", file.Content)
	}
	if strings.Contains(file.Content, `"Table"`) || strings.Contains(file.Content, `"json"`) {
		t.Errorf("argument-bearing decoration captured:\n%s", file.Content)
	}
	assertField(t, file.Content, "Reference", "ADescriptor")

	codes := make(map[diag.Code]int)
	for _, d := range out.Diagnostics {
		codes[d.Code]++
	}
	want := map[diag.Code]int{diag.CodeDecorationSkipped: 1, diag.CodeXrefAmbiguous: 1}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Errorf("diagnostic codes (-want +got):\n%s", diff)
	}
}

func TestGenerate_DisambiguatesCollidingNames(t *testing.T) {
	t.Parallel()

	billing := &model.Declaration{ID: model.Identity{Module: shop, Namespace: shop + "/billing", Name: "Item"}, Kind: model.DeclStruct}
	catalog := &model.Declaration{ID: model.Identity{Module: shop, Namespace: shop + "/catalog", Name: "Item"}, Kind: model.DeclStruct,
		Members: []model.Member{{Name: "Billed", Type: model.Named(shop, shop+"/billing", "Item")}}}

	out := New().Generate(describe(billing, catalog), opts())
	byName(t, out, "billing_item_meta.go")
	c := byName(t, out, "catalog_item_meta.go")
	assertField(t, c.Content, "Reference", "BillingItemDescriptor")
	assertField(t, c.Content, "Type", `"billing.Item"`)
	if !strings.Contains(c.Content, "func CatalogItemDescriptor() *meta.TypeDescriptor") {
		t.Errorf("accessor not qualified:\n%s", c.Content)
	}
}

func TestGenerate_NamesStayDistinct(t *testing.T) {
	t.Parallel()

	const mod = "example.com/x"
	user := func(ns string) *model.Declaration {
		return &model.Declaration{ID: model.Identity{Module: mod, Namespace: ns, Name: "User"}, Kind: model.DeclStruct}
	}
	upper := &model.Declaration{ID: model.Identity{Module: shop, Namespace: shop, Name: "Order"}, Kind: model.DeclStruct}
	lower := &model.Declaration{ID: model.Identity{Module: shop, Namespace: shop, Name: "order"}, Kind: model.DeclStruct}
	internalUser := user(mod + "/internal/model")
	pkgUser := user(mod + "/pkg/model")
	cart := &model.Declaration{ID: model.Identity{Module: shop, Namespace: shop, Name: "Cart"}, Kind: model.DeclStruct,
		Members: []model.Member{
			{Name: "Draft", Type: model.Pointer(named("order"))},
			{Name: "Placed", Type: model.Slice(named("Order"))},
			{Name: "Owner", Type: model.Named(mod, mod+"/pkg/model", "User")},
		}}

	set := describe(upper, lower, internalUser, pkgUser, cart)
	out := New().Generate(set, opts())

	arts := artifact.NewSet()
	arts.Add(out.Artifacts...)
	if conflicts := arts.Diagnostics(); len(conflicts) != 0 {
		t.Fatalf("artifact conflicts: %v", conflicts)
	}
	if len(out.Described) != set.Len() {
		t.Errorf("Described = %v, want all %d declarations", out.Described, set.Len())
	}

	names := naming.Assign(set.Identities())
	accessors := make(map[string]bool)
	for _, id := range set.Identities() {
		accessors[names.Descriptor(id)] = true
	}
	if len(accessors) != set.Len() {
		t.Fatalf("accessors collide: %v", accessors)
	}
	if !accessors["InternalModelUserDescriptor"] || !accessors["PkgModelUserDescriptor"] {
		t.Errorf("model.User accessors = %v", accessors)
	}

	c := byName(t, out, "cart_meta.go")
	assertParses(t, c)
	assertField(t, c.Content, "Reference", names.Descriptor(lower.ID))
	assertField(t, c.Content, "Reference", names.Descriptor(upper.ID))
	assertField(t, c.Content, "Reference", "PkgModelUserDescriptor")

	reg := byName(t, out, RegistryFile)
	for accessor := range accessors {
		if n := strings.Count(reg.Content, accessor+"(),"); n != 1 {
			t.Errorf("registry lists %s %d times:\n%s", accessor, n, reg.Content)
		}
	}
}

func TestGenerate_GenericDeclaration(t *testing.T) {
	t.Parallel()

	page := &model.Declaration{
		ID:         model.Identity{Module: shop, Namespace: shop, Name: "Page", Arity: 1},
		Kind:       model.DeclStruct,
		TypeParams: []model.TypeParam{{Name: "T", Constraint: model.Basic("any")}},
		Members:    []model.Member{{Name: "Items", Type: model.Slice(model.TypeParamRef("T"))}},
	}
	out := New().Generate(describe(page), opts())
	file := byName(t, out, "page_meta.go")
	assertParses(t, file)
	assertField(t, file.Content, "Arity", "1")
	if !strings.Contains(file.Content, `{Name: "T", Constraint: "any"}`) {
		t.Errorf("type parameter missing:\n%s", file.Content)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	t.Parallel()

	build := func() Output {
		a := &model.Declaration{ID: model.Identity{Module: shop, Namespace: shop, Name: "A"}, Kind: model.DeclStruct}
		b := &model.Declaration{ID: model.Identity{Module: shop, Namespace: shop, Name: "B"}, Kind: model.DeclStruct,
			Members: []model.Member{{Name: "A", Type: model.Pointer(named("A"))}}}
		return New().Generate(describe(b, a), opts())
	}
	if diff := cmp.Diff(build().Artifacts, build().Artifacts); diff != "" {
		t.Errorf("two runs differ (-first +second):\n%s", diff)
	}
}
