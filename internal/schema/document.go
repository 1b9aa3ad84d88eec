package schema

import (
	"encoding/json"
	"fmt"

	"github.com/colelawrence/derive-codegen/internal/source"
)

// Input is the single document sent to a generator.
type Input struct {
	Declarations []InputDeclaration    `json:"declarations"`
	Functions    []FunctionDeclaration `json:"functions"`
}

// InputDeclaration is a finished container declaration.
type InputDeclaration struct {
	ID         string            `json:"id"`
	IDLocation source.LocationID `json:"id_location"`
	Attrs
	ContainerKind ContainerFormat `json:"container_kind"`
}

// FunctionDeclaration is a finished free-standing operation.
type FunctionDeclaration struct {
	ID         string            `json:"id"`
	IDLocation source.LocationID `json:"id_location"`
	Attrs
	Function FunctionFormat `json:"function"`
}

type FunctionFormat struct {
	IsAsync    bool                `json:"is_async"`
	Self       *FunctionParameter  `json:"self_opt"`
	Params     []FunctionParameter `json:"params"`
	ReturnType Format              `json:"return_type"`
}

// MarshalJSON keeps both lists as arrays even when empty.
func (in Input) MarshalJSON() ([]byte, error) {
	type plain Input
	out := plain(in)
	if out.Declarations == nil {
		out.Declarations = []InputDeclaration{}
	}
	if out.Functions == nil {
		out.Functions = []FunctionDeclaration{}
	}
	return json.Marshal(out)
}

func (f FunctionFormat) MarshalJSON() ([]byte, error) {
	type plain FunctionFormat
	out := plain(f)
	if out.Params == nil {
		out.Params = []FunctionParameter{}
	}
	return json.Marshal(out)
}

// Output is the single document read back from a generator.
type Output struct {
	Errors   []OutputMessage `json:"errors"`
	Warnings []OutputMessage `json:"warnings"`
	Files    []OutputFile    `json:"files"`
}

// UnmarshalJSON requires all three keys; a generator that omits one broke
// the protocol.
func (o *Output) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range []string{"errors", "warnings", "files"} {
		if _, ok := raw[key]; !ok {
			return fmt.Errorf("output: missing field %q", key)
		}
	}
	type plain Output
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Output(p)
	return nil
}

type OutputMessage struct {
	Message string  `json:"message"`
	Labels  []Label `json:"labels"`
}

// Label points a message at a location. Encoded as [text, location].
type Label struct {
	Text     string
	Location source.LocationID
}

func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{l.Text, string(l.Location)})
}

func (l *Label) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("label: %w", err)
	}
	l.Text, l.Location = pair[0], source.LocationID(pair[1])
	return nil
}

type OutputFile struct {
	Path   string `json:"path"`
	Source string `json:"source"`
}
