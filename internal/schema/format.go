package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates every anonymous value shape.
type Kind uint8

const (
	KindIncomplete Kind = iota
	KindTypeName
	KindUnit
	KindBool
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	KindISize
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindUSize
	KindF32
	KindF64
	KindChar
	KindStr
	KindBytes
	KindOption
	KindNever
	KindSeq
	KindMap
	KindTuple
	KindTupleArray
)

var kindNames = [...]string{
	KindIncomplete: "Incomplete",
	KindTypeName:   "TypeName",
	KindUnit:       "Unit",
	KindBool:       "Bool",
	KindI8:         "I8",
	KindI16:        "I16",
	KindI32:        "I32",
	KindI64:        "I64",
	KindI128:       "I128",
	KindISize:      "ISIZE",
	KindU8:         "U8",
	KindU16:        "U16",
	KindU32:        "U32",
	KindU64:        "U64",
	KindU128:       "U128",
	KindUSize:      "USIZE",
	KindF32:        "F32",
	KindF64:        "F64",
	KindChar:       "Char",
	KindStr:        "Str",
	KindBytes:      "Bytes",
	KindOption:     "Option",
	KindNever:      "Never",
	KindSeq:        "Seq",
	KindMap:        "Map",
	KindTuple:      "Tuple",
	KindTupleArray: "TupleArray",
}

// String returns the wire tag of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

func kindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsPrimitive reports scalar kinds, Unit and Never included.
func (k Kind) IsPrimitive() bool {
	return (k >= KindUnit && k <= KindBytes) || k == KindNever
}

// Format is a compact descriptor for an anonymous value shape.
type Format struct {
	Kind     Kind
	Debug    string   // Incomplete
	Ident    string   // TypeName
	Generics []Format // TypeName
	Elem     *Format  // Option, Seq, TupleArray
	Key      *Format  // Map
	Value    *Format  // Map
	Items    []Format // Tuple
	Size     uint64   // TupleArray
}

// Descriptor helpers ---------------------------------------------------------

// MakeIncomplete marks a shape the extractor could not resolve.
func MakeIncomplete(debug string) Format {
	return Format{Kind: KindIncomplete, Debug: debug}
}

// MakeTypeName references a container declared elsewhere by name.
func MakeTypeName(ident string, generics ...Format) Format {
	return Format{Kind: KindTypeName, Ident: ident, Generics: generics}
}

// MakePrimitive panics on non-primitive kinds.
func MakePrimitive(k Kind) Format {
	if !k.IsPrimitive() {
		panic(fmt.Sprintf("schema: %s is not a primitive kind", k))
	}
	return Format{Kind: k}
}

func MakeOption(of Format) Format {
	return Format{Kind: KindOption, Elem: &of}
}

func MakeSeq(of Format) Format {
	return Format{Kind: KindSeq, Elem: &of}
}

func MakeMap(key, value Format) Format {
	return Format{Kind: KindMap, Key: &key, Value: &value}
}

func MakeTuple(items ...Format) Format {
	return Format{Kind: KindTuple, Items: items}
}

func MakeTupleArray(content Format, size uint64) Format {
	return Format{Kind: KindTupleArray, Elem: &content, Size: size}
}

// Predicates -----------------------------------------------------------------

func (f Format) IsPrimitive() bool { return f.Kind.IsPrimitive() }

// IsTerminal reports leaves that a merge never rewrites.
func (f Format) IsTerminal() bool {
	return f.Kind.IsPrimitive() || f.Kind == KindTypeName
}

// HasIncomplete reports whether any Incomplete node remains in the tree.
func (f Format) HasIncomplete() bool {
	found := false
	f.Walk(func(n *Format) bool {
		if n.Kind == KindIncomplete {
			found = true
		}
		return !found
	})
	return found
}

// Walk visits f and its children depth-first until visit returns false.
func (f *Format) Walk(visit func(*Format) bool) bool {
	if !visit(f) {
		return false
	}
	for _, child := range f.children() {
		if !child.Walk(visit) {
			return false
		}
	}
	return true
}

func (f *Format) children() []*Format {
	var out []*Format
	switch f.Kind {
	case KindTypeName:
		for i := range f.Generics {
			out = append(out, &f.Generics[i])
		}
	case KindOption, KindSeq, KindTupleArray:
		if f.Elem != nil {
			out = append(out, f.Elem)
		}
	case KindMap:
		if f.Key != nil {
			out = append(out, f.Key)
		}
		if f.Value != nil {
			out = append(out, f.Value)
		}
	case KindTuple:
		for i := range f.Items {
			out = append(out, &f.Items[i])
		}
	}
	return out
}

// Clone returns a deep copy that shares no pointers with f.
func (f Format) Clone() Format {
	out := f
	if f.Generics != nil {
		out.Generics = make([]Format, len(f.Generics))
		for i, g := range f.Generics {
			out.Generics[i] = g.Clone()
		}
	}
	if f.Items != nil {
		out.Items = make([]Format, len(f.Items))
		for i, it := range f.Items {
			out.Items[i] = it.Clone()
		}
	}
	out.Elem = clonePtr(f.Elem)
	out.Key = clonePtr(f.Key)
	out.Value = clonePtr(f.Value)
	return out
}

func clonePtr(f *Format) *Format {
	if f == nil {
		return nil
	}
	c := f.Clone()
	return &c
}

// Equal compares two shapes structurally.
func (f Format) Equal(o Format) bool {
	if f.Kind != o.Kind {
		return false
	}
	switch f.Kind {
	case KindIncomplete:
		return f.Debug == o.Debug
	case KindTypeName:
		return f.Ident == o.Ident && equalList(f.Generics, o.Generics)
	case KindOption, KindSeq:
		return equalPtr(f.Elem, o.Elem)
	case KindTupleArray:
		return f.Size == o.Size && equalPtr(f.Elem, o.Elem)
	case KindMap:
		return equalPtr(f.Key, o.Key) && equalPtr(f.Value, o.Value)
	case KindTuple:
		return equalList(f.Items, o.Items)
	default:
		return true
	}
}

func equalPtr(a, b *Format) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalList(a, b []Format) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// AsIdent projects a shape to an identifier fragment, used to name synthesized
// built-ins. Different shapes may project to the same name.
func (f Format) AsIdent() string {
	switch f.Kind {
	case KindIncomplete:
		return "Unknown"
	case KindTypeName:
		var sb strings.Builder
		sb.WriteString(f.Ident)
		for _, g := range f.Generics {
			sb.WriteByte('_')
			sb.WriteString(g.AsIdent())
		}
		return sb.String()
	case KindUnit:
		return "Nil"
	case KindOption:
		return f.elem().AsIdent() + "_Option"
	case KindSeq:
		return f.elem().AsIdent() + "_List"
	case KindMap:
		return f.key().AsIdent() + "_" + f.value().AsIdent() + "_Map"
	case KindTuple:
		var sb strings.Builder
		for _, it := range f.Items {
			sb.WriteString(it.AsIdent())
			sb.WriteByte('_')
		}
		sb.WriteString("Tuple")
		return sb.String()
	case KindTupleArray:
		return f.elem().AsIdent() + "_" + strconv.FormatUint(f.Size, 10) + "_TupleOf"
	default:
		return f.Kind.String()
	}
}

// String renders a compact debugging form, e.g. Map<Str, Seq<U8>>.
func (f Format) String() string {
	switch f.Kind {
	case KindIncomplete:
		return fmt.Sprintf("Incomplete(%q)", f.Debug)
	case KindTypeName:
		if len(f.Generics) == 0 {
			return f.Ident
		}
		return f.Ident + "<" + joinFormats(f.Generics) + ">"
	case KindOption, KindSeq:
		return f.Kind.String() + "<" + f.elem().String() + ">"
	case KindMap:
		return "Map<" + f.key().String() + ", " + f.value().String() + ">"
	case KindTuple:
		return "(" + joinFormats(f.Items) + ")"
	case KindTupleArray:
		return fmt.Sprintf("[%s; %d]", f.elem(), f.Size)
	default:
		return f.Kind.String()
	}
}

func joinFormats(list []Format) string {
	parts := make([]string, len(list))
	for i, it := range list {
		parts[i] = it.String()
	}
	return strings.Join(parts, ", ")
}

var unknown = MakeIncomplete("missing")

func (f Format) elem() Format {
	if f.Elem == nil {
		return unknown
	}
	return *f.Elem
}

func (f Format) key() Format {
	if f.Key == nil {
		return unknown
	}
	return *f.Key
}

func (f Format) value() Format {
	if f.Value == nil {
		return unknown
	}
	return *f.Value
}
