package schema

import (
	"encoding/json"
	"fmt"

	"github.com/colelawrence/derive-codegen/internal/source"
)

// Attrs is the normalized attribute bag of a declaration, field or variant.
// It is embedded into the named wire types, so it must not grow JSON methods.
type Attrs struct {
	Docs         *string                      `json:"rust_docs"`
	Generics     []GenericParam               `json:"rust_generics,omitempty"`
	SerdeAttrs   map[string]AttrValue         `json:"serde_attrs,omitempty"`
	SerdeFlags   map[string]source.LocationID `json:"serde_flags,omitempty"`
	CodegenAttrs map[string]AttrValue         `json:"codegen_attrs,omitempty"`
	CodegenFlags map[string]source.LocationID `json:"codegen_flags,omitempty"`
}

// DocText returns the docs or "".
func (a Attrs) DocText() string {
	if a.Docs == nil {
		return ""
	}
	return *a.Docs
}

// AttrValue is a valued attribute and where its value was written.
// Encoded as [value, location].
type AttrValue struct {
	Value    string
	Location source.LocationID
}

func (v AttrValue) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{v.Value, string(v.Location)})
}

func (v *AttrValue) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("attribute value: %w", err)
	}
	v.Value, v.Location = pair[0], source.LocationID(pair[1])
	return nil
}

// GenericParam is a declared type parameter. Encoded as [name, location].
type GenericParam struct {
	Name     string
	Location source.LocationID
}

func (g GenericParam) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{g.Name, string(g.Location)})
}

func (g *GenericParam) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("generic parameter: %w", err)
	}
	g.Name, g.Location = pair[0], source.LocationID(pair[1])
	return nil
}
