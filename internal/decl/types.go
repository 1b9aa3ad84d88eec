package decl

import (
	"fmt"
	"strings"

	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

// Declaration is one extracted record, union or function, as reported by the
// extractor. Spans are byte ranges into File.
type Declaration struct {
	File   string             `json:"file"`
	Line   *uint32            `json:"line,omitempty"`
	Item   Item               `json:"item"`
	Extras []Named[Container] `json:"extras,omitempty"`
}

// Item holds exactly one of Container or Function.
type Item struct {
	Container *Named[Container]
	Function  *Named[Function]
}

// Name returns the identifier of whichever payload is set.
func (d Declaration) Name() string {
	switch {
	case d.Item.Container != nil:
		return d.Item.Container.ID.Value
	case d.Item.Function != nil:
		return d.Item.Function.ID.Value
	default:
		return ""
	}
}

// Named wraps a payload with its identifier and raw attributes.
type Named[T any] struct {
	ID           source.Spanned[string]   `json:"id"`
	Generics     []source.Spanned[string] `json:"generics,omitempty"`
	Docs         string                   `json:"docs,omitempty"`
	SerdeAttrs   []Pair                   `json:"serde_attrs,omitempty"`
	SerdeFlags   []source.Spanned[string] `json:"serde_flags,omitempty"`
	CodegenAttrs []Pair                   `json:"codegen_attrs,omitempty"`
	CodegenFlags []source.Spanned[string] `json:"codegen_flags,omitempty"`
	Value        T                        `json:"$"`
}

// Pair is a key = "value" attribute in source order. Encoded as [key, value].
type Pair struct {
	Key   source.Spanned[string]
	Value source.Spanned[string]
}

// Container is the raw shape of a record or union. Tuple elements keep their
// attributes so skipped positions can be dropped.
type Container struct {
	Kind     schema.ContainerKind
	Fields   []Named[Type] // NewTypeStruct (one), TupleStruct, Struct
	Variants []Named[Variant]
}

// Variant is the raw payload of one union case.
type Variant struct {
	Kind   schema.VariantKind
	Fields []Named[Type] // NewType (one), Tuple, Struct
}

// Function is a raw free-standing operation.
type Function struct {
	IsAsync bool          `json:"is_async"`
	Self    *Named[Type]  `json:"self_opt,omitempty"`
	Params  []Named[Type] `json:"params"`
	Return  *Type         `json:"ret,omitempty"`
}

// TypeKind enumerates raw type expressions.
type TypeKind uint8

const (
	TypePath TypeKind = iota
	TypeTuple
	TypeArray
	TypeSlice
	TypeRef
	TypeNever
	TypeUnknown
)

func (k TypeKind) String() string {
	switch k {
	case TypePath:
		return "Path"
	case TypeTuple:
		return "Tuple"
	case TypeArray:
		return "Array"
	case TypeSlice:
		return "Slice"
	case TypeRef:
		return "Ref"
	case TypeNever:
		return "Never"
	case TypeUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("TypeKind(%d)", k)
	}
}

// Type is a type expression as written in the source, before built-in
// resolution.
type Type struct {
	Kind     TypeKind
	Segments []string // Path
	Args     []Type   // Path generics
	Elems    []Type   // Tuple
	Elem     *Type    // Array, Slice, Ref
	Len      uint64   // Array
	Debug    string   // Unknown
}

// PathType builds a path from "a::b::C" and its generic arguments.
func PathType(path string, args ...Type) Type {
	return Type{Kind: TypePath, Segments: strings.Split(path, "::"), Args: args}
}

// Last returns the final path segment.
func (t Type) Last() string {
	if len(t.Segments) == 0 {
		return ""
	}
	return t.Segments[len(t.Segments)-1]
}

// Path joins the segments back with "::".
func (t Type) Path() string {
	return strings.Join(t.Segments, "::")
}

func (t Type) String() string {
	switch t.Kind {
	case TypePath:
		if len(t.Args) == 0 {
			return t.Path()
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = a.String()
		}
		return t.Path() + "<" + strings.Join(args, ", ") + ">"
	case TypeTuple:
		elems := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = e.String()
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case TypeArray:
		return fmt.Sprintf("[%s; %d]", t.elem(), t.Len)
	case TypeSlice:
		return "[" + t.elem().String() + "]"
	case TypeRef:
		return "&" + t.elem().String()
	case TypeNever:
		return "!"
	default:
		return "?" + t.Debug
	}
}

func (t Type) elem() Type {
	if t.Elem == nil {
		return Type{Kind: TypeUnknown, Debug: "missing element"}
	}
	return *t.Elem
}
