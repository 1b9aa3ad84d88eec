package decl

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const userJSON = `[
  {
    "file": "src/model.rs",
    "line": 3,
    "item": {"Container": {
      "id": {"$": "User", "_": [11, 15]},
      "docs": "A user",
      "serde_attrs": [[{"$": "rename_all"}, {"$": "camelCase", "_": [2, 11]}]],
      "codegen_attrs": [["tags", "api,web"]],
      "$": {"Struct": [
        {"id": {"$": "id", "_": [20, 22]}, "$": "u64"},
        {"id": "friends", "$": {"Path": {"segments": ["Vec"], "args": ["User"]}}}
      ]}
    }}
  },
  {
    "file": "src/api.rs",
    "item": {"Function": {
      "id": "lookup",
      "$": {"is_async": true, "params": [{"id": "id", "$": "u64"}], "ret": {"Path": {"segments": ["Option"], "args": ["User"]}}}
    }}
  }
]`

func TestParseJSON(t *testing.T) {
	decls, err := Parse([]byte(userJSON), DocJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(decls) != 2 {
		t.Fatalf("got %d declarations", len(decls))
	}

	user := decls[0]
	if user.Name() != "User" || user.Line == nil || *user.Line != 3 {
		t.Errorf("unexpected header: %+v", user)
	}
	c := user.Item.Container
	if c.ID.Span != (source.Span{Start: 11, End: 15}) {
		t.Errorf("id span = %v", c.ID.Span)
	}
	if c.Value.Kind != schema.ContainerStruct || len(c.Value.Fields) != 2 {
		t.Fatalf("container = %+v", c.Value)
	}
	if got := c.Value.Fields[1].Value.String(); got != "Vec<User>" {
		t.Errorf("friends type = %s", got)
	}
	if c.SerdeAttrs[0].Value.Value != "camelCase" || c.CodegenAttrs[0].Key.Value != "tags" {
		t.Errorf("attributes = %+v / %+v", c.SerdeAttrs, c.CodegenAttrs)
	}

	fn := decls[1].Item.Function
	if fn == nil || !fn.Value.IsAsync || fn.Value.Return.String() != "Option<User>" {
		t.Errorf("function = %+v", fn)
	}
}

func TestParseYAMLMatchesJSON(t *testing.T) {
	doc := `
- file: src/model.rs
  line: 3
  item:
    Container:
      id: {$: User, _: [11, 15]}
      docs: A user
      serde_attrs:
        - [{$: rename_all}, {$: camelCase, _: [2, 11]}]
      codegen_attrs:
        - [tags, "api,web"]
      $:
        Struct:
          - id: {$: id, _: [20, 22]}
            $: u64
          - id: friends
            $: {Path: {segments: [Vec], args: [User]}}
- file: src/api.rs
  item:
    Function:
      id: lookup
      $:
        is_async: true
        params:
          - id: id
            $: u64
        ret: {Path: {segments: [Option], args: [User]}}
`
	fromYAML, err := Parse([]byte(doc), DocYAML)
	if err != nil {
		t.Fatalf("Parse yaml: %v", err)
	}
	fromJSON, err := Parse([]byte(userJSON), DocJSON)
	if err != nil {
		t.Fatalf("Parse json: %v", err)
	}
	if diff := cmp.Diff(fromJSON, fromYAML, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("yaml and json disagree (-json +yaml):\n%s", diff)
	}
}

func TestEnumVariantsByIndex(t *testing.T) {
	in := `{"Enum": {"1": {"id": "B", "$": "Unit"}, "0": {"id": "A", "$": {"NewType": {"id": "0", "$": "u8"}}}}}`
	var c Container
	if err := json.Unmarshal([]byte(in), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(c.Variants) != 2 || c.Variants[0].ID.Value != "A" || c.Variants[1].ID.Value != "B" {
		t.Fatalf("variants out of order: %+v", c.Variants)
	}
	if c.Variants[0].Value.Kind != schema.VariantNewType {
		t.Errorf("A kind = %s", c.Variants[0].Value.Kind)
	}
}

func TestTypeRoundTrip(t *testing.T) {
	elem := PathType("u8")
	types := []Type{
		PathType("std::collections::HashMap", PathType("String"), PathType("u32")),
		{Kind: TypeTuple, Elems: []Type{PathType("bool"), PathType("char")}},
		{Kind: TypeArray, Elem: &elem, Len: 16},
		{Kind: TypeSlice, Elem: &elem},
		{Kind: TypeRef, Elem: &elem},
		{Kind: TypeNever},
		{Kind: TypeUnknown, Debug: "impl Fn()"},
	}
	for _, ty := range types {
		data, err := json.Marshal(ty)
		if err != nil {
			t.Fatalf("marshal %s: %v", ty, err)
		}
		var back Type
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if diff := cmp.Diff(ty, back, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("%s (-want +got):\n%s", ty, diff)
		}
	}
}

func TestParseRejectsBrokenDeclarations(t *testing.T) {
	bad := []string{
		`[{"item": {"Container": {"id": "A", "$": "UnitStruct"}}}]`,
		`[{"file": "a.rs", "item": {"Container": {"id": "A", "$": "UnitStruct"}, "Function": {"id": "f", "$": {"params": []}}}}]`,
		`[{"file": "a.rs", "item": {"Container": {"id": "", "$": "UnitStruct"}}}]`,
		`[{"file": "a.rs", "bogus": 1, "item": {"Container": {"id": "A", "$": "UnitStruct"}}}]`,
	}
	for _, in := range bad {
		if _, err := Parse([]byte(in), DocJSON); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
}

func TestLoadPicksFormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "decls.yml")
	if err := os.WriteFile(path, []byte("- file: a.rs\n  item: {Container: {id: A, $: UnitStruct}}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	decls, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(decls) != 1 || decls[0].Name() != "A" {
		t.Errorf("got %+v", decls)
	}
}
