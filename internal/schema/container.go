package schema

import (
	"fmt"
	"strings"

	"github.com/colelawrence/derive-codegen/internal/source"
)

// ContainerKind enumerates the shapes of a declared record or union.
type ContainerKind uint8

const (
	ContainerUnitStruct ContainerKind = iota
	ContainerNewTypeStruct
	ContainerTupleStruct
	ContainerStruct
	ContainerEnum
)

func (k ContainerKind) String() string {
	switch k {
	case ContainerUnitStruct:
		return "UnitStruct"
	case ContainerNewTypeStruct:
		return "NewTypeStruct"
	case ContainerTupleStruct:
		return "TupleStruct"
	case ContainerStruct:
		return "Struct"
	case ContainerEnum:
		return "Enum"
	default:
		return fmt.Sprintf("ContainerKind(%d)", k)
	}
}

// ContainerFormat is the shape of a declared container. Kind never changes
// after construction.
type ContainerFormat struct {
	Kind     ContainerKind
	Inner    *Format            // NewTypeStruct
	Tuple    []Format           // TupleStruct
	Fields   []NamedField       // Struct
	Repr     EnumRepresentation // Enum
	Variants []NamedVariant     // Enum
}

func MakeUnitStruct() ContainerFormat {
	return ContainerFormat{Kind: ContainerUnitStruct}
}

func MakeNewTypeStruct(inner Format) ContainerFormat {
	return ContainerFormat{Kind: ContainerNewTypeStruct, Inner: &inner}
}

func MakeTupleStruct(items ...Format) ContainerFormat {
	return ContainerFormat{Kind: ContainerTupleStruct, Tuple: items}
}

func MakeStruct(fields ...NamedField) ContainerFormat {
	return ContainerFormat{Kind: ContainerStruct, Fields: fields}
}

func MakeEnum(repr EnumRepresentation, variants ...NamedVariant) ContainerFormat {
	return ContainerFormat{Kind: ContainerEnum, Repr: repr, Variants: variants}
}

// Shape renders the structure of the container without docs or locations.
// Two containers with the same shape are interchangeable on the wire.
func (c ContainerFormat) Shape() string {
	var sb strings.Builder
	sb.WriteString(c.Kind.String())
	switch c.Kind {
	case ContainerNewTypeStruct:
		if c.Inner != nil {
			fmt.Fprintf(&sb, "(%s)", c.Inner)
		}
	case ContainerTupleStruct:
		fmt.Fprintf(&sb, "(%s)", joinFormats(c.Tuple))
	case ContainerStruct:
		writeFields(&sb, c.Fields)
	case ContainerEnum:
		fmt.Fprintf(&sb, "[%s]{", c.Repr)
		for i, v := range c.Variants {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(v.ID)
			sb.WriteString(v.VariantFormat.shape())
		}
		sb.WriteByte('}')
	}
	return sb.String()
}

func writeFields(sb *strings.Builder, fields []NamedField) {
	sb.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s: %s", f.ID, f.Format)
	}
	sb.WriteByte('}')
}

// VariantKind enumerates the shapes of one union case.
type VariantKind uint8

const (
	VariantUnit VariantKind = iota
	VariantNewType
	VariantTuple
	VariantStruct
)

func (k VariantKind) String() string {
	switch k {
	case VariantUnit:
		return "Unit"
	case VariantNewType:
		return "NewType"
	case VariantTuple:
		return "Tuple"
	case VariantStruct:
		return "Struct"
	default:
		return fmt.Sprintf("VariantKind(%d)", k)
	}
}

// VariantFormat is the payload shape of an enum variant.
type VariantFormat struct {
	Kind   VariantKind
	Inner  *Format      // NewType
	Tuple  []Format     // Tuple
	Fields []NamedField // Struct
}

func MakeUnitVariant() VariantFormat {
	return VariantFormat{Kind: VariantUnit}
}

func MakeNewTypeVariant(inner Format) VariantFormat {
	return VariantFormat{Kind: VariantNewType, Inner: &inner}
}

func MakeTupleVariant(items ...Format) VariantFormat {
	return VariantFormat{Kind: VariantTuple, Tuple: items}
}

func MakeStructVariant(fields ...NamedField) VariantFormat {
	return VariantFormat{Kind: VariantStruct, Fields: fields}
}

func (v VariantFormat) shape() string {
	var sb strings.Builder
	switch v.Kind {
	case VariantNewType:
		if v.Inner != nil {
			fmt.Fprintf(&sb, "(%s)", v.Inner)
		}
	case VariantTuple:
		fmt.Fprintf(&sb, "(%s)", joinFormats(v.Tuple))
	case VariantStruct:
		writeFields(&sb, v.Fields)
	}
	return sb.String()
}

// ReprKind selects how an enum is laid out on the wire.
type ReprKind uint8

const (
	// ReprExternal: {"Variant": payload}
	ReprExternal ReprKind = iota
	// ReprUntagged: payload only
	ReprUntagged
	// ReprTagged: {"<tag>": "Variant", ...payload} or {"<tag>": "Variant", "<content>": payload}
	ReprTagged
)

// EnumRepresentation is derived once per enum from its serde attributes.
type EnumRepresentation struct {
	Kind            ReprKind
	Tag             string
	TagLocation     source.LocationID
	Content         *string
	ContentLocation *source.LocationID
}

func External() EnumRepresentation { return EnumRepresentation{Kind: ReprExternal} }

func Untagged() EnumRepresentation { return EnumRepresentation{Kind: ReprUntagged} }

// Tagged builds an internally tagged representation; content may be nil.
func Tagged(tag string, tagLoc source.LocationID, content *string, contentLoc *source.LocationID) EnumRepresentation {
	return EnumRepresentation{Kind: ReprTagged, Tag: tag, TagLocation: tagLoc, Content: content, ContentLocation: contentLoc}
}

func (r EnumRepresentation) String() string {
	switch r.Kind {
	case ReprUntagged:
		return "untagged"
	case ReprTagged:
		if r.Content != nil {
			return fmt.Sprintf("tag=%s,content=%s", r.Tag, *r.Content)
		}
		return "tag=" + r.Tag
	default:
		return "external"
	}
}

// NamedField is a struct field or function parameter.
type NamedField struct {
	ID         string            `json:"id"`
	IDLocation source.LocationID `json:"id_location"`
	Attrs
	Format Format `json:"format"`
}

// FunctionParameter shares the field layout.
type FunctionParameter = NamedField

// NamedVariant is one case of an enum.
type NamedVariant struct {
	ID         string            `json:"id"`
	IDLocation source.LocationID `json:"id_location"`
	Attrs
	VariantFormat VariantFormat `json:"variant_format"`
}
