// Package builtin recognizes well-known generic wrappers and collections and
// synthesizes canonical containers for standard value types.
package builtin

import (
	"strings"

	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

const nanosDoc = "Always 0 <= nanos < NANOS_PER_SEC"

// Request is one path type with its generic arguments already converted.
type Request struct {
	Segments []string
	Args     []schema.Format
	// Origin is where the type was written; synthesized containers report it.
	Origin source.LocationID
}

func (q Request) name() string {
	if len(q.Segments) == 0 {
		return ""
	}
	return q.Segments[len(q.Segments)-1]
}

func (q Request) path() string { return strings.Join(q.Segments, "::") }

type rule struct {
	names []string // last path segment; empty matches by full path
	path  string   // full path, e.g. chrono::DateTime
	arity int      // -1 accepts any
	apply func(*Resolver, Request) (schema.Format, error)
}

func (ru rule) matches(q Request) bool {
	if ru.arity >= 0 && len(q.Args) != ru.arity {
		return false
	}
	if ru.path != "" {
		return q.path() == ru.path || strings.HasSuffix(q.path(), "::"+ru.path)
	}
	name := q.name()
	for _, n := range ru.names {
		if n == name {
			return true
		}
	}
	return false
}

var primitives = map[string]schema.Kind{
	"i8": schema.KindI8, "i16": schema.KindI16, "i32": schema.KindI32,
	"i64": schema.KindI64, "i128": schema.KindI128, "isize": schema.KindISize,
	"u8": schema.KindU8, "u16": schema.KindU16, "u32": schema.KindU32,
	"u64": schema.KindU64, "u128": schema.KindU128, "usize": schema.KindUSize,
	"f32": schema.KindF32, "f64": schema.KindF64,
	"char": schema.KindChar, "bool": schema.KindBool,
	"String": schema.KindStr, "str": schema.KindStr, "Path": schema.KindStr, "PathBuf": schema.KindStr,
}

func primitiveNames() []string {
	out := make([]string, 0, len(primitives))
	for n := range primitives {
		out = append(out, n)
	}
	return out
}

// rules are checked in order, first match wins.
var rules = []rule{
	{names: primitiveNames(), arity: -1, apply: func(_ *Resolver, q Request) (schema.Format, error) {
		return schema.MakePrimitive(primitives[q.name()]), nil
	}},
	{names: []string{"Box", "Cow", "Rc", "Arc", "Cell", "RefCell"}, arity: 1, apply: func(_ *Resolver, q Request) (schema.Format, error) {
		return q.Args[0], nil
	}},
	{names: []string{"Duration"}, arity: -1, apply: (*Resolver).duration},
	{names: []string{"SystemTime"}, arity: -1, apply: (*Resolver).systemTime},
	{names: []string{"Vec", "VecDeque", "LinkedList"}, arity: 1, apply: func(_ *Resolver, q Request) (schema.Format, error) {
		return schema.MakeSeq(q.Args[0]), nil
	}},
	{names: []string{"HashMap", "BTreeMap"}, arity: 2, apply: func(_ *Resolver, q Request) (schema.Format, error) {
		return schema.MakeMap(q.Args[0], q.Args[1]), nil
	}},
	{names: []string{"HashSet", "BTreeSet"}, arity: 1, apply: func(_ *Resolver, q Request) (schema.Format, error) {
		return schema.MakeSeq(q.Args[0]), nil
	}},
	{names: []string{"Option"}, arity: 1, apply: func(_ *Resolver, q Request) (schema.Format, error) {
		return schema.MakeOption(q.Args[0]), nil
	}},
	{names: []string{"Result"}, arity: 2, apply: (*Resolver).result},
	{path: "chrono::DateTime", arity: -1, apply: func(_ *Resolver, _ Request) (schema.Format, error) {
		return schema.MakePrimitive(schema.KindStr), nil
	}},
}

// Resolver applies the built-in rules, registering synthesized containers in
// its Registry.
type Resolver struct {
	reg *Registry
}

func NewResolver(reg *Registry) *Resolver {
	return &Resolver{reg: reg}
}

func (r *Resolver) Registry() *Registry { return r.reg }

// Resolve maps a path type to a Format. Unknown names become TypeName
// references to be satisfied by some other declaration.
func (r *Resolver) Resolve(q Request) (schema.Format, error) {
	for _, ru := range rules {
		if ru.matches(q) {
			return ru.apply(r, q)
		}
	}
	return schema.MakeTypeName(q.name(), q.Args...), nil
}

// synthesize stores a container once and returns a reference to it. The
// registry key is the container's structural shape, the same key extras are
// stored under, so an extractor-supplied copy of a built-in matches it.
func (r *Resolver) synthesize(name, docs string, origin source.LocationID, container func() schema.ContainerFormat) (schema.Format, error) {
	built := container()
	_, err := r.reg.Obtain(name, built.Shape(), func() schema.InputDeclaration {
		d := schema.InputDeclaration{ID: name, IDLocation: origin, ContainerKind: built}
		if docs != "" {
			d.Docs = &docs
		}
		return d
	})
	if err != nil {
		return schema.Format{}, err
	}
	return schema.MakeTypeName(name), nil
}

func field(id, docs string, f schema.Format) schema.NamedField {
	nf := schema.NamedField{ID: id, Format: f}
	if docs != "" {
		nf.Docs = &docs
	}
	return nf
}

func (r *Resolver) duration(q Request) (schema.Format, error) {
	return r.synthesize("Duration", "A span of time made of whole seconds and a nanosecond fraction.", q.Origin,
		func() schema.ContainerFormat {
			return schema.MakeStruct(
				field("secs", "", schema.MakePrimitive(schema.KindU64)),
				field("nanos", nanosDoc, schema.MakePrimitive(schema.KindU32)),
			)
		})
}

func (r *Resolver) systemTime(q Request) (schema.Format, error) {
	return r.synthesize("SystemTime", "A measurement of the system clock, as time since the unix epoch.", q.Origin,
		func() schema.ContainerFormat {
			return schema.MakeStruct(
				field("secs_since_epoch", "", schema.MakePrimitive(schema.KindU64)),
				field("nanos_since_epoch", nanosDoc, schema.MakePrimitive(schema.KindU32)),
			)
		})
}

// ResultName is the synthesized name for Result<ok, err>. Distinct argument
// shapes may project to the same name.
func ResultName(ok, err schema.Format) string {
	return "Result_Ok" + ok.AsIdent() + "_Err" + err.AsIdent()
}

func (r *Resolver) result(q Request) (schema.Format, error) {
	ok, errf := q.Args[0], q.Args[1]
	return r.synthesize(ResultName(ok, errf), "`Result` represents either success (`Ok`) or failure (`Err`).", q.Origin,
		func() schema.ContainerFormat {
			okDoc, errDoc := "Contains the success value", "Contains the error value"
			return schema.MakeEnum(schema.External(),
				schema.NamedVariant{ID: "Ok", IDLocation: q.Origin, Attrs: schema.Attrs{Docs: &okDoc}, VariantFormat: schema.MakeNewTypeVariant(ok.Clone())},
				schema.NamedVariant{ID: "Err", IDLocation: q.Origin, Attrs: schema.Attrs{Docs: &errDoc}, VariantFormat: schema.MakeNewTypeVariant(errf.Clone())},
			)
		})
}

// RegisterExtra stores an auxiliary container that an extractor emitted next
// to a declaration. It shares the dedup and collision rules of synthesized
// built-ins.
func (r *Resolver) RegisterExtra(d schema.InputDeclaration) error {
	_, err := r.reg.Obtain(d.ID, d.ContainerKind.Shape(), func() schema.InputDeclaration { return d })
	return err
}
