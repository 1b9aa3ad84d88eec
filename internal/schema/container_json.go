package schema

import (
	"encoding/json"
	"fmt"

	"github.com/colelawrence/derive-codegen/internal/source"
)

type structWire struct {
	Fields []NamedField `json:"fields"`
}

type enumWire struct {
	Repr     EnumRepresentation `json:"repr"`
	Variants []NamedVariant     `json:"variants"`
}

func (c ContainerFormat) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContainerUnitStruct:
		return json.Marshal("UnitStruct")
	case ContainerNewTypeStruct:
		return tagged("NewTypeStruct", derefOrUnit(c.Inner))
	case ContainerTupleStruct:
		return tagged("TupleStruct", nonNil(c.Tuple))
	case ContainerStruct:
		fields := c.Fields
		if fields == nil {
			fields = []NamedField{}
		}
		return tagged("Struct", structWire{Fields: fields})
	case ContainerEnum:
		variants := c.Variants
		if variants == nil {
			variants = []NamedVariant{}
		}
		return tagged("Enum", enumWire{Repr: c.Repr, Variants: variants})
	default:
		return nil, fmt.Errorf("schema: cannot encode container kind %s", c.Kind)
	}
}

func (c *ContainerFormat) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTagged(data)
	if err != nil {
		return fmt.Errorf("container: %w", err)
	}
	switch tag {
	case "UnitStruct":
		*c = MakeUnitStruct()
	case "NewTypeStruct":
		var inner Format
		if err := unmarshalPayload(tag, payload, &inner); err != nil {
			return err
		}
		*c = MakeNewTypeStruct(inner)
	case "TupleStruct":
		var items []Format
		if err := unmarshalPayload(tag, payload, &items); err != nil {
			return err
		}
		*c = MakeTupleStruct(items...)
	case "Struct":
		var w structWire
		if err := unmarshalPayload(tag, payload, &w); err != nil {
			return err
		}
		*c = MakeStruct(w.Fields...)
	case "Enum":
		var w enumWire
		if err := unmarshalPayload(tag, payload, &w); err != nil {
			return err
		}
		*c = MakeEnum(w.Repr, w.Variants...)
	default:
		return fmt.Errorf("container: unknown variant %q", tag)
	}
	return nil
}

func (v VariantFormat) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case VariantUnit:
		return json.Marshal("Unit")
	case VariantNewType:
		return tagged("NewType", derefOrUnit(v.Inner))
	case VariantTuple:
		return tagged("Tuple", nonNil(v.Tuple))
	case VariantStruct:
		fields := v.Fields
		if fields == nil {
			fields = []NamedField{}
		}
		return tagged("Struct", structWire{Fields: fields})
	default:
		return nil, fmt.Errorf("schema: cannot encode variant kind %s", v.Kind)
	}
}

func (v *VariantFormat) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTagged(data)
	if err != nil {
		return fmt.Errorf("variant: %w", err)
	}
	switch tag {
	case "Unit":
		*v = MakeUnitVariant()
	case "NewType":
		var inner Format
		if err := unmarshalPayload(tag, payload, &inner); err != nil {
			return err
		}
		*v = MakeNewTypeVariant(inner)
	case "Tuple":
		var items []Format
		if err := unmarshalPayload(tag, payload, &items); err != nil {
			return err
		}
		*v = MakeTupleVariant(items...)
	case "Struct":
		var w structWire
		if err := unmarshalPayload(tag, payload, &w); err != nil {
			return err
		}
		*v = MakeStructVariant(w.Fields...)
	default:
		return fmt.Errorf("variant: unknown variant %q", tag)
	}
	return nil
}

type taggedWire struct {
	Tag             string             `json:"tag"`
	TagLocation     source.LocationID  `json:"tag_location"`
	Content         *string            `json:"content"`
	ContentLocation *source.LocationID `json:"content_location"`
}

func (r EnumRepresentation) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ReprExternal:
		return json.Marshal("External")
	case ReprUntagged:
		return json.Marshal("Untagged")
	case ReprTagged:
		return tagged("Tagged", taggedWire{
			Tag:             r.Tag,
			TagLocation:     r.TagLocation,
			Content:         r.Content,
			ContentLocation: r.ContentLocation,
		})
	default:
		return nil, fmt.Errorf("schema: unknown representation %d", r.Kind)
	}
}

func (r *EnumRepresentation) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTagged(data)
	if err != nil {
		return fmt.Errorf("representation: %w", err)
	}
	switch tag {
	case "External":
		*r = External()
	case "Untagged":
		*r = Untagged()
	case "Tagged":
		var w taggedWire
		if err := unmarshalPayload(tag, payload, &w); err != nil {
			return err
		}
		*r = Tagged(w.Tag, w.TagLocation, w.Content, w.ContentLocation)
	default:
		return fmt.Errorf("representation: unknown variant %q", tag)
	}
	return nil
}

func unmarshalPayload(tag string, payload json.RawMessage, dst any) error {
	if payload == nil {
		return fmt.Errorf("%s: missing payload", tag)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%s: %w", tag, err)
	}
	return nil
}

func derefOrUnit(f *Format) Format {
	if f == nil {
		return Format{Kind: KindUnit}
	}
	return *f
}

func nonNil(items []Format) []Format {
	if items == nil {
		return []Format{}
	}
	return items
}
