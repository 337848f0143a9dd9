// SPDX-License-Identifier: MPL-2.0

package modelfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/invowk/metagen/pkg/cueutil"
	"github.com/invowk/metagen/pkg/model"
	"github.com/invowk/metagen/pkg/types"
)

const shopDocument = `
scope: {name: "shop", path: "example.com/shop", module: "example.com/shop"}
packages: [{path: "example.com/ext/currency", module: "example.com/ext"}]
local: [{
	name: "Order"
	decorations: ["metagen:Describe"]
	members: [
		{name: "ID", type: "string", tag: #"json:"id""#},
		{name: "Lines", type: "[]LineItem"},
		{name: "Total", type: "currency.Amount", decorations: ["metagen:Describe"]},
		{name: "note", type: "string"},
	]
	methods: [{
		name: "Delete"
		params: [{name: "ids", type: "...string"}]
		results: ["error"]
		pointer_receiver: true
	}]
	position: "shop.go:12"
}, {
	name: "Page"
	type_params: [{name: "T"}]
	members: [{name: "Items", type: "[]T"}]
}, {
	name: "OrderRepo"
	kind: "interface"
	decorations: ["metagen:Repository"]
	methods: [{
		name: "Find"
		params: [{name: "id", type: "string"}]
		results: ["*Order", "error"]
		decorations: ["metagen:Entity(\"Orders\")"]
	}]
}]
external: [{
	name: "Amount"
	namespace: "example.com/ext/currency"
	decorations: ["metagen:Describe"]
	members: [{name: "Cents", type: "int64"}]
}]
`

func named(module, namespace, pkg, name string, args ...model.TypeRef) model.TypeRef {
	t := model.Named(module, namespace, name, args...)
	t.Package = pkg
	return t
}

func TestParse_Document(t *testing.T) {
	t.Parallel()

	prog, err := Parse([]byte(shopDocument), "shop.cue")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got, want := prog.Scope(), (model.Scope{Name: "shop", Path: "example.com/shop", Module: "example.com/shop"}); got != want {
		t.Errorf("Scope() = %+v, want %+v", got, want)
	}

	const shop = "example.com/shop"
	order, ok := prog.Lookup(model.Identity{Module: shop, Namespace: shop, Name: "Order"})
	if !ok {
		t.Fatal("Order not found")
	}
	amount := named("example.com/ext", "example.com/ext/currency", "currency", "Amount")
	want := &model.Declaration{
		ID:          model.Identity{Module: shop, Namespace: shop, Name: "Order"},
		Kind:        model.DeclStruct,
		Decorations: []model.Decoration{{Namespace: "metagen", Name: "Describe"}},
		Members: []model.Member{
			{Name: "ID", Type: model.Basic("string"), Settable: true, Decorations: []model.Decoration{
				{Namespace: "tag", Name: "json", Args: []model.Literal{model.String("id")}},
			}},
			{Name: "Lines", Type: model.Slice(named(shop, shop, "shop", "LineItem")), Settable: true, Collection: true},
			{Name: "Total", Type: amount, Settable: true, Decorations: []model.Decoration{{Namespace: "metagen", Name: "Describe"}}},
			{Name: "note", Type: model.Basic("string")},
		},
		Methods: []model.Method{{
			Name:            "Delete",
			Params:          []model.Param{{Name: "ids", Type: model.Slice(model.Basic("string")), Variadic: true}},
			Results:         []model.TypeRef{model.Basic("error")},
			PointerReceiver: true,
			Exported:        true,
		}},
		Position: "shop.go:12",
	}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("Order (-want +got):\n%s", diff)
	}

	page, ok := prog.Lookup(model.Identity{Module: shop, Namespace: shop, Name: "Page", Arity: 1})
	if !ok {
		t.Fatal("Page`1 not found")
	}
	if m, _ := page.Member("Items"); !m.Type.Equal(model.Slice(model.TypeParamRef("T"))) {
		t.Errorf("Page.Items = %s", m.Type)
	}
	if c := page.TypeParams[0].Constraint; !c.Equal(model.Basic("any")) {
		t.Errorf("default constraint = %s", c)
	}

	repo, _ := prog.Lookup(model.Identity{Module: shop, Namespace: shop, Name: "OrderRepo"})
	if repo.Kind != model.DeclInterface {
		t.Errorf("OrderRepo kind = %s", repo.Kind)
	}
	entity := repo.Methods[0].Decorations[0]
	if arg, _ := entity.Arg(0); !entity.Is("metagen", "Entity") || arg.Text != "Orders" {
		t.Errorf("Find decoration = %s", entity)
	}

	ext := prog.External()
	if len(ext) != 1 || ext[0].ID.Module != "example.com/ext" || ext[0].Origin != model.OriginExternal {
		t.Errorf("External() = %v", ext)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	const scope = `scope: {name: "shop", path: "example.com/shop"}` + "\n"
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{"schema violation", scope + `local: [{name: "Order", kind: "table"}]`, cueutil.ErrValidation},
		{"unknown field", scope + `local: [{name: "Order", color: "red"}]`, cueutil.ErrValidation},
		{"unknown qualifier", scope + `local: [{name: "Order", members: [{name: "T", type: "money.Amount"}]}]`, ErrInvalidModel},
		{"bad type", scope + `local: [{name: "Order", members: [{name: "T", type: "map[string"}]}]`, ErrInvalidModel},
		{"bad decoration", scope + `local: [{name: "Order", decorations: ["metagen:Entity("]}]`, ErrInvalidModel},
		{"external namespace", scope + `external: [{name: "Amount"}]`, ErrInvalidModel},
		{"variadic not last", scope + `local: [{name: "R", methods: [{name: "M", params: [{type: "...int"}, {type: "int"}]}]}]`, ErrInvalidModel},
		{"duplicate", scope + `local: [{name: "Order"}, {name: "Order"}]`, model.ErrDuplicateDeclaration},
		{"qualifier clash", scope + `packages: [{path: "a/x"}, {path: "b/x"}]`, ErrInvalidModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse([]byte(tt.doc), "model.cue"); !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_FieldLocation(t *testing.T) {
	t.Parallel()

	doc := `scope: {name: "shop", path: "example.com/shop"}
local: [{name: "Order"}, {name: "Line", members: [{name: "A", type: "int"}, {name: "B", type: "x.Y"}]}]`
	_, err := Parse([]byte(doc), "model.cue")
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("Parse() error = %v, want *FieldError", err)
	}
	if fe.Field != "local[1].members[1].type" {
		t.Errorf("Field = %q", fe.Field)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jsonDoc := filepath.Join(dir, "model.json")
	if err := os.WriteFile(jsonDoc, []byte(`{"scope": {"name": "shop", "path": "example.com/shop"}, "local": [{"name": "Order"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	prog, err := Load(types.FilesystemPath(jsonDoc))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(prog.Local()) != 1 {
		t.Errorf("Local() = %v", prog.Local())
	}

	if _, err := Load(types.FilesystemPath(filepath.Join(dir, "model.yaml"))); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load(yaml) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Load(types.FilesystemPath(filepath.Join(dir, "missing.cue"))); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	t.Parallel()

	prog, err := Parse([]byte(shopDocument), "shop.cue")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	data, err := Encode(prog)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	again, err := Parse(data, "shop.json")
	if err != nil {
		t.Fatalf("Parse(Encode()) error = %v\n%s", err, data)
	}
	if diff := cmp.Diff(prog.Local(), again.Local()); diff != "" {
		t.Errorf("Local() after round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(prog.External(), again.External()); diff != "" {
		t.Errorf("External() after round trip (-want +got):\n%s", diff)
	}
}

func TestEncode_RejectsNamespacelessDecoration(t *testing.T) {
	t.Parallel()

	prog, err := model.NewSnapshot(model.Scope{Name: "shop", Path: "example.com/shop"}, []*model.Declaration{{
		ID:          model.Identity{Namespace: "example.com/shop", Name: "Order"},
		Decorations: []model.Decoration{{Name: "Bare"}},
	}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Encode(prog); err == nil {
		t.Error("Encode() succeeded")
	}
}
