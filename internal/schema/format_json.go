package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Unit-like cases encode as a bare string, every other case as a single-key
// object: "U32", {"Option": "Str"}, {"Map": {"key": ..., "value": ...}}.

type typeNameWire struct {
	Ident    string   `json:"ident"`
	Generics []Format `json:"generics"`
}

type mapWire struct {
	Key   Format `json:"key"`
	Value Format `json:"value"`
}

type tupleArrayWire struct {
	Content Format `json:"content"`
	Size    uint64 `json:"size"`
}

type incompleteWire struct {
	Debug string `json:"debug"`
}

func (f Format) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case KindIncomplete:
		return tagged("Incomplete", incompleteWire{Debug: f.Debug})
	case KindTypeName:
		generics := f.Generics
		if generics == nil {
			generics = []Format{}
		}
		return tagged("TypeName", typeNameWire{Ident: f.Ident, Generics: generics})
	case KindOption, KindSeq:
		return tagged(f.Kind.String(), f.elem())
	case KindMap:
		return tagged("Map", mapWire{Key: f.key(), Value: f.value()})
	case KindTuple:
		items := f.Items
		if items == nil {
			items = []Format{}
		}
		return tagged("Tuple", items)
	case KindTupleArray:
		return tagged("TupleArray", tupleArrayWire{Content: f.elem(), Size: f.Size})
	default:
		if !f.Kind.IsPrimitive() {
			return nil, fmt.Errorf("schema: cannot encode format kind %s", f.Kind)
		}
		return json.Marshal(f.Kind.String())
	}
}

func (f *Format) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTagged(data)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}
	kind, ok := kindByName(tag)
	if !ok {
		return fmt.Errorf("format: unknown variant %q", tag)
	}
	if payload == nil {
		if !kind.IsPrimitive() {
			return fmt.Errorf("format: variant %q needs a payload", tag)
		}
		*f = Format{Kind: kind}
		return nil
	}

	switch kind {
	case KindIncomplete:
		var w incompleteWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return fmt.Errorf("format Incomplete: %w", err)
		}
		*f = MakeIncomplete(w.Debug)
	case KindTypeName:
		var w typeNameWire
		// a bare name is accepted for hand-written documents
		if s, isStr := asString(payload); isStr {
			w.Ident = s
		} else if err := json.Unmarshal(payload, &w); err != nil {
			return fmt.Errorf("format TypeName: %w", err)
		}
		*f = MakeTypeName(w.Ident, w.Generics...)
	case KindOption, KindSeq:
		var inner Format
		if err := json.Unmarshal(payload, &inner); err != nil {
			return fmt.Errorf("format %s: %w", kind, err)
		}
		*f = Format{Kind: kind, Elem: &inner}
	case KindMap:
		var w mapWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return fmt.Errorf("format Map: %w", err)
		}
		*f = MakeMap(w.Key, w.Value)
	case KindTuple:
		var items []Format
		if err := json.Unmarshal(payload, &items); err != nil {
			return fmt.Errorf("format Tuple: %w", err)
		}
		*f = MakeTuple(items...)
	case KindTupleArray:
		var w tupleArrayWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return fmt.Errorf("format TupleArray: %w", err)
		}
		*f = MakeTupleArray(w.Content, w.Size)
	default:
		return fmt.Errorf("format: variant %q takes no payload", tag)
	}
	return nil
}

// tagged encodes {"<tag>": payload}.
func tagged(tag string, payload any) ([]byte, error) {
	inner, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	key, _ := json.Marshal(tag)
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(inner)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// splitTagged decodes either a bare "Tag" string (payload nil) or a
// single-key object {"Tag": payload}.
func splitTagged(data []byte) (string, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if s, ok := asString(data); ok {
		return s, nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", nil, fmt.Errorf("expected string or single-key object: %w", err)
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("expected single-key object, got %d keys", len(obj))
	}
	for k, v := range obj {
		return k, v, nil
	}
	return "", nil, nil
}

func asString(data json.RawMessage) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", false
	}
	return s, true
}

// EncodeTagged writes {"<tag>": payload}.
func EncodeTagged(tag string, payload any) ([]byte, error) { return tagged(tag, payload) }

// DecodeTagged splits a bare "Tag" or a single-key {"Tag": payload} object.
// payload is nil for the bare form.
func DecodeTagged(data []byte) (string, json.RawMessage, error) { return splitTagged(data) }
