package merge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/colelawrence/derive-codegen/internal/decl"
	"github.com/colelawrence/derive-codegen/internal/schema"
)

// Traced maps wire names to shapes observed at runtime.
type Traced map[string]schema.ContainerFormat

// Names returns the keys in sorted order.
func (t Traced) Names() []string {
	out := make([]string, 0, len(t))
	for name := range t {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ParseTraced decodes {"<name>": ContainerFormat, ...} from JSON or YAML.
func ParseTraced(data []byte, format decl.DocFormat) (Traced, error) {
	if format == decl.DocYAML {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
		data = converted
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var out Traced
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("traced registry: %w", err)
	}
	return out, nil
}

func LoadTraced(path string) (Traced, error) {
	// #nosec G304 -- path comes from the manifest or the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := ParseTraced(data, decl.FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
