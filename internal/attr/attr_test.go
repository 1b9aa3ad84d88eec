package attr

import (
	"testing"

	"github.com/colelawrence/derive-codegen/internal/decl"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

var line = uint32(7)

func testLocator() source.Locator {
	return source.NewLocator("src/lib.rs", &line, nil)
}

func pair(key, value string, start uint32) decl.Pair {
	return decl.Pair{
		Key:   source.At(key, start, start+uint32(len(key))),
		Value: source.At(value, start+10, start+10+uint32(len(value))),
	}
}

func TestFoldLastWins(t *testing.T) {
	got := Fold([]decl.Pair{
		pair("rename", "first", 0),
		pair("tag", "kind", 20),
		pair("rename", "second", 40),
	}, testLocator())
	if len(got) != 2 {
		t.Fatalf("got %d keys, want 2", len(got))
	}
	if got["rename"].Value != "second" {
		t.Errorf("rename = %q, want second", got["rename"].Value)
	}
	if got["rename"].Location != "L(src/lib.rs:7 #B50-B56)" {
		t.Errorf("rename location = %q", got["rename"].Location)
	}
}

func TestRepresentation(t *testing.T) {
	loc := testLocator()
	tests := []struct {
		name  string
		pairs []decl.Pair
		flags []string
		want  string
	}{
		{"none", nil, nil, "external"},
		{"untagged", nil, []string{"untagged"}, "untagged"},
		{"untagged wins over tag", []decl.Pair{pair("tag", "t", 0)}, []string{"untagged"}, "untagged"},
		{"tag only", []decl.Pair{pair("tag", "kind", 0)}, nil, "tag=kind"},
		{"tag and content", []decl.Pair{pair("tag", "t", 0), pair("content", "c", 20)}, nil, "tag=t,content=c"},
		{"content before tag", []decl.Pair{pair("content", "c", 0), pair("tag", "t", 20)}, nil, "tag=t,content=c"},
		{"content without tag", []decl.Pair{pair("content", "c", 0)}, nil, "external"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flags []source.Spanned[string]
			for _, f := range tt.flags {
				flags = append(flags, source.Unspanned(f))
			}
			a := schema.Attrs{SerdeAttrs: Fold(tt.pairs, loc), SerdeFlags: FoldFlags(flags, loc)}
			if got := Representation(a).String(); got != tt.want {
				t.Errorf("Representation() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTagAndContentIsAlwaysTagged(t *testing.T) {
	loc := testLocator()
	for _, extra := range [][]decl.Pair{nil, {pair("rename", "x", 60)}, {pair("tag", "again", 80)}} {
		pairs := append([]decl.Pair{pair("tag", "t", 0), pair("content", "c", 20)}, extra...)
		r := Representation(schema.Attrs{SerdeAttrs: Fold(pairs, loc)})
		if r.Kind != schema.ReprTagged || r.Content == nil || *r.Content != "c" {
			t.Errorf("pairs %v gave %s", pairs, r)
		}
		if r.ContentLocation == nil || *r.ContentLocation == "" {
			t.Errorf("content location lost")
		}
	}
}

func TestSerializeName(t *testing.T) {
	loc := testLocator()
	plain := schema.Attrs{}
	if got := SerializeName("user_id", plain); got != "user_id" {
		t.Errorf("got %q", got)
	}
	renamed := schema.Attrs{SerdeAttrs: Fold([]decl.Pair{pair("rename", "a", 0), pair("rename", "userId", 20)}, loc)}
	if got := SerializeName("user_id", renamed); got != "userId" {
		t.Errorf("got %q", got)
	}
}

func TestClassify(t *testing.T) {
	n := decl.Named[decl.Type]{
		ID:           source.At("Page", 30, 34),
		Generics:     []source.Spanned[string]{source.At("T", 35, 36)},
		Docs:         "One page of results",
		SerdeFlags:   []source.Spanned[string]{source.At("skip", 2, 6), source.At("transparent", 8, 19)},
		CodegenAttrs: []decl.Pair{pair("tags", " api, ,web ", 0)},
	}
	a := Classify(n, testLocator())
	if a.DocText() != "One page of results" {
		t.Errorf("docs = %q", a.DocText())
	}
	if len(a.Generics) != 1 || a.Generics[0].Name != "T" || a.Generics[0].Location != "L(src/lib.rs:7 #B35-B36)" {
		t.Errorf("generics = %+v", a.Generics)
	}
	if !Skipped(a) || !Transparent(a) {
		t.Errorf("flags not classified: %+v", a.SerdeFlags)
	}
	tags := Tags(a)
	if len(tags) != 2 || tags[0] != "api" || tags[1] != "web" {
		t.Errorf("tags = %q", tags)
	}
	if a.SerdeAttrs != nil {
		t.Errorf("empty pair list should leave the map nil")
	}
}

func TestCheckVariant(t *testing.T) {
	loc := testLocator()
	if err := CheckVariant(schema.Attrs{SerdeAttrs: Fold([]decl.Pair{pair("rename", "A", 0)}, loc)}); err != nil {
		t.Errorf("rename on a variant is fine: %v", err)
	}
	err := CheckVariant(schema.Attrs{SerdeAttrs: Fold([]decl.Pair{pair("tag", "kind", 0)}, loc)})
	if err == nil {
		t.Fatalf("tag on a variant must be rejected")
	}
	if me, ok := err.(*MisplacedError); !ok || me.Key != "tag" {
		t.Errorf("unexpected error %#v", err)
	}
}
