package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/colelawrence/derive-codegen/internal/builtin"
	"github.com/colelawrence/derive-codegen/internal/decl"
	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

func parse(t *testing.T, doc string) []decl.Declaration {
	t.Helper()
	decls, err := decl.Parse([]byte(doc), decl.DocJSON)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return decls
}

func convert(t *testing.T, doc string, opts Options) *Result {
	t.Helper()
	if opts.SourceRoot == "" {
		opts.SourceRoot = t.TempDir()
	}
	res, err := New(opts).Convert(context.Background(), parse(t, doc))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	return res
}

func prim(k schema.Kind) schema.Format { return schema.MakePrimitive(k) }

var ignoreAttrs = cmpopts.IgnoreFields(schema.NamedField{}, "Attrs")

func TestRecordWithPrimitiveAndReference(t *testing.T) {
	res := convert(t, `[{
		"file": "src/lib.rs", "line": 3,
		"item": {"Container": {
			"id": {"$": "Point", "_": [7, 12]},
			"$": {"Struct": [
				{"id": {"$": "x", "_": [20, 21]}, "$": "u32"},
				{"id": {"$": "owner", "_": [30, 35]}, "$": "crate::User"}
			]}
		}}
	}]`, Options{})

	if len(res.Input.Declarations) != 1 {
		t.Fatalf("declarations = %d, want 1", len(res.Input.Declarations))
	}
	got := res.Input.Declarations[0]
	if got.ID != "Point" || got.IDLocation != "L(src/lib.rs:3 #B7-B12)" {
		t.Errorf("id = %s at %s", got.ID, got.IDLocation)
	}
	want := schema.MakeStruct(
		schema.NamedField{ID: "x", IDLocation: "L(src/lib.rs:3 #B20-B21)", Format: prim(schema.KindU32)},
		schema.NamedField{ID: "owner", IDLocation: "L(src/lib.rs:3 #B30-B35)", Format: schema.MakeTypeName("User")},
	)
	if diff := cmp.Diff(want, got.ContainerKind, ignoreAttrs, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("container mismatch (-want +got):\n%s", diff)
	}
	if res.Bag.Len() != 0 {
		t.Errorf("unexpected diagnostics: %s", diag.FormatShort(res.Bag.Items(), true))
	}
}

func TestEnumRepresentation(t *testing.T) {
	tests := []struct {
		name  string
		attrs string
		flags string
		want  schema.EnumRepresentation
	}{
		{"tag only", `[[{"$": "tag", "_": [2, 5]}, {"$": "type", "_": [8, 14]}]]`, `[]`,
			schema.Tagged("type", "L(src/lib.rs:1 #B8-B14)", nil, nil)},
		{"tag and content", `[[{"$": "tag"}, {"$": "t", "_": [8, 9]}], [{"$": "content"}, {"$": "c", "_": [20, 21]}]]`, `[]`,
			func() schema.EnumRepresentation {
				c, cl := "c", source.LocationID("L(src/lib.rs:1 #B20-B21)")
				return schema.Tagged("t", "L(src/lib.rs:1 #B8-B9)", &c, &cl)
			}()},
		{"untagged wins", `[[{"$": "tag"}, {"$": "t"}]]`, `[{"$": "untagged"}]`, schema.Untagged()},
		{"nothing", `[]`, `[]`, schema.External()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := convert(t, `[{"file": "src/lib.rs", "line": 1, "item": {"Container": {
				"id": "Shape",
				"serde_attrs": `+tt.attrs+`,
				"serde_flags": `+tt.flags+`,
				"$": {"Enum": [{"id": "Circle", "$": "Unit"}, {"id": "Square", "$": {"NewType": {"id": "0", "$": "f64"}}}]}
			}}}]`, Options{})
			got := res.Input.Declarations[0].ContainerKind
			if diff := cmp.Diff(tt.want, got.Repr); diff != "" {
				t.Errorf("repr mismatch (-want +got):\n%s", diff)
			}
			if len(got.Variants) != 2 || got.Variants[1].VariantFormat.Kind != schema.VariantNewType {
				t.Errorf("variants = %+v", got.Variants)
			}
		})
	}
}

func TestSharedResultSynthesizedOnce(t *testing.T) {
	field := `{"id": "r", "$": {"Path": {"segments": ["Result"], "args": ["u32", "String"]}}}`
	res := convert(t, `[
		{"file": "a.rs", "line": 1, "item": {"Container": {"id": "A", "$": {"Struct": [`+field+`]}}}},
		{"file": "b.rs", "line": 1, "item": {"Container": {"id": "B", "$": {"Struct": [`+field+`]}}}}
	]`, Options{Jobs: 2})

	var names []string
	for _, d := range res.Input.Declarations {
		names = append(names, d.ID)
	}
	if diff := cmp.Diff([]string{"A", "B", "Result_OkU32_ErrStr"}, names); diff != "" {
		t.Errorf("declaration order (-want +got):\n%s", diff)
	}
	if n := res.Registry.Syntheses(); n != 1 {
		t.Errorf("Syntheses() = %d, want 1", n)
	}
	for _, d := range res.Input.Declarations[:2] {
		if got := d.ContainerKind.Fields[0].Format; !got.Equal(schema.MakeTypeName("Result_OkU32_ErrStr")) {
			t.Errorf("%s.r = %s", d.ID, got)
		}
	}
}

func TestSkippedFieldsDegrade(t *testing.T) {
	res := convert(t, `[
		{"file": "a.rs", "line": 1, "item": {"Container": {"id": "Gone",
			"$": {"TupleStruct": [{"id": "0", "serde_flags": ["skip"], "$": "u8"}]}}}},
		{"file": "a.rs", "line": 2, "item": {"Container": {"id": "Wrapper", "serde_flags": ["transparent"],
			"$": {"TupleStruct": [{"id": "0", "$": "String"}, {"id": "1", "$": {"Path": {"segments": ["PhantomData"], "args": ["T"]}}}]}}}},
		{"file": "a.rs", "line": 3, "item": {"Container": {"id": "Pair",
			"$": {"TupleStruct": [{"id": "0", "$": "String"}, {"id": "1", "$": "i8"}]}}}},
		{"file": "a.rs", "line": 4, "item": {"Container": {"id": "Hidden",
			"$": {"NewTypeStruct": {"id": "0", "serde_flags": ["skip_serializing"], "$": "u8"}}}}},
		{"file": "a.rs", "line": 5, "item": {"Container": {"id": "Fields",
			"$": {"Struct": [{"id": "a", "serde_flags": ["skip"], "$": "u8"}, {"id": "b", "$": "bool"}]}}}}
	]`, Options{})

	byName := map[string]schema.ContainerFormat{}
	for _, d := range res.Input.Declarations {
		byName[d.ID] = d.ContainerKind
	}
	want := map[string]schema.ContainerFormat{
		"Gone":    schema.MakeUnitStruct(),
		"Wrapper": schema.MakeNewTypeStruct(prim(schema.KindStr)),
		"Pair":    schema.MakeTupleStruct(prim(schema.KindStr), prim(schema.KindI8)),
		"Hidden":  schema.MakeUnitStruct(),
		"Fields":  schema.MakeStruct(schema.NamedField{ID: "b", IDLocation: "L(a.rs:5 #B0-B0)", Format: prim(schema.KindBool)}),
	}
	if diff := cmp.Diff(want, byName, ignoreAttrs, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("containers (-want +got):\n%s", diff)
	}
	if got := res.Bag.Count(diag.SevInfo); got != 2 {
		t.Errorf("degrade notices = %d, want 2", got)
	}
}

func TestTypeExpressions(t *testing.T) {
	res := convert(t, `[{"file": "a.rs", "line": 1, "item": {"Container": {"id": "T", "$": {"TupleStruct": [
		{"id": "0", "$": {"Tuple": []}},
		{"id": "1", "$": {"Tuple": ["u8", "bool"]}},
		{"id": "2", "$": {"Array": {"elem": "u8", "len": 4}}},
		{"id": "3", "$": {"Slice": "u16"}},
		{"id": "4", "$": {"Ref": "str"}},
		{"id": "5", "$": "Never"},
		{"id": "6", "$": {"Unknown": "impl Trait"}},
		{"id": "7", "$": {"Path": {"segments": ["std", "collections", "HashMap"], "args": ["String", {"Path": {"segments": ["Vec"], "args": ["u8"]}}]}}}
	]}}}}]`, Options{})

	want := schema.MakeTupleStruct(
		prim(schema.KindUnit),
		schema.MakeTuple(prim(schema.KindU8), prim(schema.KindBool)),
		schema.MakeSeq(prim(schema.KindU8)),
		schema.MakeSeq(prim(schema.KindU16)),
		prim(schema.KindStr),
		prim(schema.KindNever),
		schema.MakeIncomplete("impl Trait"),
		schema.MakeMap(prim(schema.KindStr), schema.MakeSeq(prim(schema.KindU8))),
	)
	if diff := cmp.Diff(want, res.Input.Declarations[0].ContainerKind, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("tuple (-want +got):\n%s", diff)
	}
	if res.Bag.Count(diag.SevWarning) != 1 || res.Bag.HasErrors() {
		t.Errorf("expected one Incomplete warning, got:\n%s", diag.FormatShort(res.Bag.Items(), false))
	}
}

func TestFunctions(t *testing.T) {
	res := convert(t, `[{"file": "api.rs", "line": 9, "item": {"Function": {
		"id": {"$": "fetch", "_": [3, 8]},
		"$": {"is_async": true,
			"self_opt": {"id": "self", "$": {"Ref": "Client"}},
			"params": [{"id": "key", "$": "String"}]}
	}}}]`, Options{})

	if len(res.Input.Functions) != 1 || len(res.Input.Declarations) != 0 {
		t.Fatalf("functions=%d declarations=%d", len(res.Input.Functions), len(res.Input.Declarations))
	}
	fn := res.Input.Functions[0]
	if fn.IDLocation != "L(api.rs:9 #B3-B8)" || !fn.Function.IsAsync {
		t.Errorf("fn = %+v", fn)
	}
	if !fn.Function.ReturnType.Equal(prim(schema.KindUnit)) {
		t.Errorf("missing return type should be Unit, got %s", fn.Function.ReturnType)
	}
	if fn.Function.Self == nil || !fn.Function.Self.Format.Equal(schema.MakeTypeName("Client")) {
		t.Errorf("self = %+v", fn.Function.Self)
	}
	if len(fn.Function.Params) != 1 || !fn.Function.Params[0].Format.Equal(prim(schema.KindStr)) {
		t.Errorf("params = %+v", fn.Function.Params)
	}
}

func TestMisplacedVariantTagDropsDeclaration(t *testing.T) {
	doc := `[
		{"file": "a.rs", "line": 1, "item": {"Container": {"id": "Bad", "$": {"Enum": [
			{"id": "V", "serde_attrs": [[{"$": "tag"}, {"$": "kind", "_": [40, 46]}]], "$": "Unit"}
		]}}}},
		{"file": "a.rs", "line": 5, "item": {"Container": {"id": "Good", "$": "UnitStruct"}}}
	]`
	res := convert(t, doc, Options{})
	if len(res.Input.Declarations) != 1 || res.Input.Declarations[0].ID != "Good" {
		t.Fatalf("declarations = %+v", res.Input.Declarations)
	}
	if diff := cmp.Diff([]string{"Bad"}, res.Dropped); diff != "" {
		t.Errorf("dropped (-want +got):\n%s", diff)
	}
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.CnvMisplacedAttr || items[0].Primary != "L(a.rs:1 #B40-B46)" || items[0].Subject != "Bad" {
		t.Errorf("diagnostics = %+v", items)
	}

	strict, err := New(Options{Strict: true, SourceRoot: t.TempDir()}).Convert(context.Background(), parse(t, doc))
	if !errors.Is(err, ErrStrict) {
		t.Fatalf("strict err = %v", err)
	}
	if strict == nil || strict.Bag.Len() != 1 {
		t.Errorf("strict mode should still return the result")
	}
}

func TestExtrasAndCollisions(t *testing.T) {
	extra := func(kind string) string {
		return `"extras": [{"id": "Aux", "$": ` + kind + `}]`
	}
	res := convert(t, `[
		{"file": "a.rs", "line": 1, "item": {"Container": {"id": "A", "$": "UnitStruct"}}, `+extra(`"UnitStruct"`)+`},
		{"file": "a.rs", "line": 2, "item": {"Container": {"id": "B", "$": "UnitStruct"}}, `+extra(`"UnitStruct"`)+`}
	]`, Options{})
	var names []string
	for _, d := range res.Input.Declarations {
		names = append(names, d.ID)
	}
	if diff := cmp.Diff([]string{"A", "B", "Aux"}, names); diff != "" {
		t.Errorf("extras should be deduplicated (-want +got):\n%s", diff)
	}

	_, err := New(Options{SourceRoot: t.TempDir()}).Convert(context.Background(), parse(t, `[
		{"file": "a.rs", "line": 1, "item": {"Container": {"id": "A", "$": "UnitStruct"}}, `+extra(`"UnitStruct"`)+`},
		{"file": "a.rs", "line": 2, "item": {"Container": {"id": "B", "$": "UnitStruct"}}, `+extra(`{"TupleStruct": [{"id": "0", "$": "u8"}]}`)+`}
	]`))
	var collision *builtin.CollisionError
	if !errors.As(err, &collision) || collision.Name != "Aux" {
		t.Fatalf("expected collision on Aux, got %v", err)
	}
}

func TestLocationsFromSourceIndex(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "lib.rs"), []byte("// x\nstruct Unit;\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	res := convert(t, `[
		{"file": "src/lib.rs", "item": {"Container": {"id": {"$": "Unit", "_": [12, 16]}, "$": "UnitStruct"}}},
		{"file": "src/missing.rs", "item": {"Container": {"id": {"$": "Lost", "_": [4, 8]}, "$": "UnitStruct"}}}
	]`, Options{SourceRoot: root})

	got := []source.LocationID{res.Input.Declarations[0].IDLocation, res.Input.Declarations[1].IDLocation}
	want := []source.LocationID{"L(src/lib.rs:2:7 #B12-B16)", "L(src/missing.rs:0:0 #B4-B8)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("locations (-want +got):\n%s", diff)
	}
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.CnvMissingSource {
		t.Errorf("expected one missing-source warning, got:\n%s", diag.FormatShort(items, false))
	}
}

func TestDuplicateNamesWarn(t *testing.T) {
	res := convert(t, `[
		{"file": "a.rs", "line": 1, "item": {"Container": {"id": "Duration", "$": "UnitStruct"}}},
		{"file": "a.rs", "line": 2, "item": {"Container": {"id": "Timer", "$": {"Struct": [{"id": "d", "$": "Duration"}]}}}}
	]`, Options{})
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.CnvDuplicateName || len(items[0].Notes) != 1 {
		t.Errorf("diagnostics:\n%s", diag.FormatShort(items, true))
	}
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{SourceRoot: t.TempDir()}).Convert(ctx, parse(t, `[
		{"file": "a.rs", "line": 1, "item": {"Container": {"id": "A", "$": "UnitStruct"}}}
	]`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestConvertEmpty(t *testing.T) {
	res, err := New(Options{}).Convert(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Input.Declarations) != 0 || len(res.Input.Functions) != 0 {
		t.Errorf("input = %+v", res.Input)
	}
}

func TestExtraBuiltinMeetsFieldReference(t *testing.T) {
	durationExtra := `"extras": [{"id": "Duration", "$": {"Struct": [{"id": "secs", "$": "u64"}, {"id": "nanos", "$": "u32"}]}}]`
	docs := map[string]string{
		"same declaration": `[
			{"file": "a.rs", "line": 1, "item": {"Container": {"id": "Job", "$": {"Struct": [{"id": "timeout", "$": "std::time::Duration"}]}}}, ` + durationExtra + `}
		]`,
		"separate declarations": `[
			{"file": "a.rs", "line": 1, "item": {"Container": {"id": "Job", "$": {"Struct": [{"id": "timeout", "$": "std::time::Duration"}]}}}},
			{"file": "a.rs", "line": 5, "item": {"Container": {"id": "Timer", "$": "UnitStruct"}}, ` + durationExtra + `}
		]`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			for _, jobs := range []int{1, 2} {
				res := convert(t, doc, Options{Jobs: jobs})
				var ids []string
				for _, d := range res.Input.Declarations {
					ids = append(ids, d.ID)
				}
				if n := len(ids); n == 0 || ids[n-1] != "Duration" {
					t.Errorf("jobs=%d: declarations = %v", jobs, ids)
				}
				if res.Registry.Len() != 1 {
					t.Errorf("jobs=%d: registry len = %d, want 1", jobs, res.Registry.Len())
				}
			}
		})
	}
}
