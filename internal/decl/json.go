package decl

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

func (it Item) MarshalJSON() ([]byte, error) {
	switch {
	case it.Container != nil && it.Function == nil:
		return schema.EncodeTagged("Container", it.Container)
	case it.Function != nil && it.Container == nil:
		return schema.EncodeTagged("Function", it.Function)
	default:
		return nil, fmt.Errorf("item must hold exactly one of Container or Function")
	}
}

func (it *Item) UnmarshalJSON(data []byte) error {
	tag, payload, err := schema.DecodeTagged(data)
	if err != nil {
		return fmt.Errorf("item: %w", err)
	}
	if payload == nil {
		return fmt.Errorf("item %q: missing payload", tag)
	}
	*it = Item{}
	switch tag {
	case "Container":
		it.Container = new(Named[Container])
		return json.Unmarshal(payload, it.Container)
	case "Function":
		it.Function = new(Named[Function])
		return json.Unmarshal(payload, it.Function)
	default:
		return fmt.Errorf("item: unknown variant %q", tag)
	}
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]source.Spanned[string]{p.Key, p.Value})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var pair [2]source.Spanned[string]
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("attribute pair: %w", err)
	}
	p.Key, p.Value = pair[0], pair[1]
	return nil
}

func (c Container) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case schema.ContainerUnitStruct:
		return json.Marshal("UnitStruct")
	case schema.ContainerNewTypeStruct:
		if len(c.Fields) != 1 {
			return nil, fmt.Errorf("NewTypeStruct needs exactly one field, has %d", len(c.Fields))
		}
		return schema.EncodeTagged("NewTypeStruct", c.Fields[0])
	case schema.ContainerTupleStruct:
		return schema.EncodeTagged("TupleStruct", nonNil(c.Fields))
	case schema.ContainerStruct:
		return schema.EncodeTagged("Struct", nonNil(c.Fields))
	case schema.ContainerEnum:
		variants := c.Variants
		if variants == nil {
			variants = []Named[Variant]{}
		}
		return schema.EncodeTagged("Enum", variants)
	default:
		return nil, fmt.Errorf("unknown container kind %s", c.Kind)
	}
}

func (c *Container) UnmarshalJSON(data []byte) error {
	tag, payload, err := schema.DecodeTagged(data)
	if err != nil {
		return fmt.Errorf("container: %w", err)
	}
	*c = Container{}
	switch tag {
	case "UnitStruct":
		c.Kind = schema.ContainerUnitStruct
		return nil
	case "NewTypeStruct":
		c.Kind = schema.ContainerNewTypeStruct
		var f Named[Type]
		if err := decodePayload(tag, payload, &f); err != nil {
			return err
		}
		c.Fields = []Named[Type]{f}
		return nil
	case "TupleStruct":
		c.Kind = schema.ContainerTupleStruct
		return decodePayload(tag, payload, &c.Fields)
	case "Struct":
		c.Kind = schema.ContainerStruct
		return decodePayload(tag, payload, &c.Fields)
	case "Enum":
		c.Kind = schema.ContainerEnum
		variants, err := decodeVariants(payload)
		if err != nil {
			return err
		}
		c.Variants = variants
		return nil
	default:
		return fmt.Errorf("container: unknown variant %q", tag)
	}
}

// decodeVariants accepts a list in declaration order or an object keyed by
// declaration index ({"0": ..., "1": ...}).
func decodeVariants(payload json.RawMessage) ([]Named[Variant], error) {
	if payload == nil {
		return nil, fmt.Errorf("Enum: missing payload")
	}
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "[") {
		var list []Named[Variant]
		if err := json.Unmarshal(payload, &list); err != nil {
			return nil, fmt.Errorf("Enum: %w", err)
		}
		return list, nil
	}
	var byIndex map[string]Named[Variant]
	if err := json.Unmarshal(payload, &byIndex); err != nil {
		return nil, fmt.Errorf("Enum: %w", err)
	}
	type entry struct {
		idx uint64
		v   Named[Variant]
	}
	entries := make([]entry, 0, len(byIndex))
	for k, v := range byIndex {
		idx, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("Enum: variant key %q is not an index", k)
		}
		entries = append(entries, entry{idx: idx, v: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })
	out := make([]Named[Variant], len(entries))
	for i, e := range entries {
		out[i] = e.v
	}
	return out, nil
}

func (v Variant) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case schema.VariantUnit:
		return json.Marshal("Unit")
	case schema.VariantNewType:
		if len(v.Fields) != 1 {
			return nil, fmt.Errorf("NewType variant needs exactly one field, has %d", len(v.Fields))
		}
		return schema.EncodeTagged("NewType", v.Fields[0])
	case schema.VariantTuple:
		return schema.EncodeTagged("Tuple", nonNil(v.Fields))
	case schema.VariantStruct:
		return schema.EncodeTagged("Struct", nonNil(v.Fields))
	default:
		return nil, fmt.Errorf("unknown variant kind %s", v.Kind)
	}
}

func (v *Variant) UnmarshalJSON(data []byte) error {
	tag, payload, err := schema.DecodeTagged(data)
	if err != nil {
		return fmt.Errorf("variant: %w", err)
	}
	*v = Variant{}
	switch tag {
	case "Unit":
		v.Kind = schema.VariantUnit
		return nil
	case "NewType":
		v.Kind = schema.VariantNewType
		var f Named[Type]
		if err := decodePayload(tag, payload, &f); err != nil {
			return err
		}
		v.Fields = []Named[Type]{f}
		return nil
	case "Tuple":
		v.Kind = schema.VariantTuple
		return decodePayload(tag, payload, &v.Fields)
	case "Struct":
		v.Kind = schema.VariantStruct
		return decodePayload(tag, payload, &v.Fields)
	default:
		return fmt.Errorf("variant: unknown variant %q", tag)
	}
}

type pathWire struct {
	Segments []string `json:"segments"`
	Args     []Type   `json:"args,omitempty"`
}

type arrayWire struct {
	Elem Type   `json:"elem"`
	Len  uint64 `json:"len"`
}

func (t Type) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TypePath:
		return schema.EncodeTagged("Path", pathWire{Segments: t.Segments, Args: t.Args})
	case TypeTuple:
		elems := t.Elems
		if elems == nil {
			elems = []Type{}
		}
		return schema.EncodeTagged("Tuple", elems)
	case TypeArray:
		return schema.EncodeTagged("Array", arrayWire{Elem: t.elem(), Len: t.Len})
	case TypeSlice, TypeRef:
		return schema.EncodeTagged(t.Kind.String(), t.elem())
	case TypeNever:
		return json.Marshal("Never")
	case TypeUnknown:
		return schema.EncodeTagged("Unknown", t.Debug)
	default:
		return nil, fmt.Errorf("unknown type kind %s", t.Kind)
	}
}

// UnmarshalJSON also accepts a bare path string ("u32", "std::time::Duration")
// for types without generic arguments.
func (t *Type) UnmarshalJSON(data []byte) error {
	tag, payload, err := schema.DecodeTagged(data)
	if err != nil {
		return fmt.Errorf("type: %w", err)
	}
	if payload == nil {
		if tag == "Never" || tag == "!" {
			*t = Type{Kind: TypeNever}
		} else {
			*t = PathType(tag)
		}
		return nil
	}
	switch tag {
	case "Path":
		var w pathWire
		if err := decodePayload(tag, payload, &w); err != nil {
			return err
		}
		if len(w.Segments) == 0 {
			return fmt.Errorf("Path: no segments")
		}
		*t = Type{Kind: TypePath, Segments: w.Segments, Args: w.Args}
	case "Tuple":
		var elems []Type
		if err := decodePayload(tag, payload, &elems); err != nil {
			return err
		}
		*t = Type{Kind: TypeTuple, Elems: elems}
	case "Array":
		var w arrayWire
		if err := decodePayload(tag, payload, &w); err != nil {
			return err
		}
		*t = Type{Kind: TypeArray, Elem: &w.Elem, Len: w.Len}
	case "Slice", "Ref":
		var elem Type
		if err := decodePayload(tag, payload, &elem); err != nil {
			return err
		}
		kind := TypeSlice
		if tag == "Ref" {
			kind = TypeRef
		}
		*t = Type{Kind: kind, Elem: &elem}
	case "Unknown":
		var debug string
		if err := decodePayload(tag, payload, &debug); err != nil {
			return err
		}
		*t = Type{Kind: TypeUnknown, Debug: debug}
	default:
		return fmt.Errorf("type: unknown variant %q", tag)
	}
	return nil
}

func decodePayload(tag string, payload json.RawMessage, dst any) error {
	if payload == nil {
		return fmt.Errorf("%s: missing payload", tag)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%s: %w", tag, err)
	}
	return nil
}

func nonNil(fields []Named[Type]) []Named[Type] {
	if fields == nil {
		return []Named[Type]{}
	}
	return fields
}
