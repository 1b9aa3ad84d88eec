package schema

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestFormatIdent(t *testing.T) {
	tests := []struct {
		f    Format
		want string
	}{
		{MakePrimitive(KindUnit), "Nil"},
		{MakePrimitive(KindU32), "U32"},
		{MakePrimitive(KindISize), "ISIZE"},
		{MakePrimitive(KindNever), "Never"},
		{MakeTypeName("User"), "User"},
		{MakeTypeName("Page", MakeTypeName("User"), MakePrimitive(KindStr)), "Page_User_Str"},
		{MakeOption(MakePrimitive(KindStr)), "Str_Option"},
		{MakeSeq(MakeTypeName("User")), "User_List"},
		{MakeMap(MakePrimitive(KindStr), MakeSeq(MakePrimitive(KindU8))), "Str_U8_List_Map"},
		{MakeTuple(MakePrimitive(KindBool), MakePrimitive(KindI64)), "Bool_I64_Tuple"},
		{MakeTupleArray(MakePrimitive(KindF32), 3), "F32_3_TupleOf"},
		{MakeIncomplete("impl Trait"), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.f.AsIdent(); got != tt.want {
			t.Errorf("%s.AsIdent() = %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestFormatWireShape(t *testing.T) {
	tests := []struct {
		f    Format
		want string
	}{
		{MakePrimitive(KindU32), `"U32"`},
		{MakePrimitive(KindUSize), `"USIZE"`},
		{MakeOption(MakePrimitive(KindStr)), `{"Option":"Str"}`},
		{MakeTypeName("User"), `{"TypeName":{"ident":"User","generics":[]}}`},
		{MakeMap(MakePrimitive(KindStr), MakePrimitive(KindI32)), `{"Map":{"key":"Str","value":"I32"}}`},
		{MakeTuple(), `{"Tuple":[]}`},
		{MakeTupleArray(MakePrimitive(KindU8), 4), `{"TupleArray":{"content":"U8","size":4}}`},
		{MakeIncomplete("?"), `{"Incomplete":{"debug":"?"}}`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.f)
		if err != nil {
			t.Fatalf("marshal %s: %v", tt.f, err)
		}
		if string(data) != tt.want {
			t.Errorf("marshal %s = %s, want %s", tt.f, data, tt.want)
		}
		var back Format
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if !back.Equal(tt.f) {
			t.Errorf("round trip of %s gave %s", tt.f, back)
		}
	}
}

func TestFormatDecodeErrors(t *testing.T) {
	bad := []string{
		`"Option"`,
		`"Nope"`,
		`{"Option":"Str","Seq":"Str"}`,
		`{"Map":{"key":"Str","value":"Wat"}}`,
		`12`,
	}
	for _, in := range bad {
		var f Format
		if err := json.Unmarshal([]byte(in), &f); err == nil {
			t.Errorf("expected error for %s, got %s", in, f)
		}
	}
}

func TestFormatTypeNameShorthand(t *testing.T) {
	var f Format
	if err := json.Unmarshal([]byte(`{"TypeName":"User"}`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !f.Equal(MakeTypeName("User")) {
		t.Errorf("got %s", f)
	}
}

func TestFormatCloneIsDeep(t *testing.T) {
	orig := MakeMap(MakePrimitive(KindStr), MakeSeq(MakeIncomplete("x")))
	c := orig.Clone()
	c.Value.Elem.Kind = KindU8
	if !orig.HasIncomplete() {
		t.Errorf("mutating the clone leaked into the original: %s", orig)
	}
	if c.HasIncomplete() {
		t.Errorf("clone still incomplete: %s", c)
	}
	opts := cmpopts.EquateEmpty()
	if diff := cmp.Diff(orig.Key, c.Key, opts); diff != "" {
		t.Errorf("key changed (-orig +clone):\n%s", diff)
	}
}

func TestMakePrimitivePanicsOnComposite(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	MakePrimitive(KindSeq)
}
