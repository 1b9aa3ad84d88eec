package decl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// DocFormat names the encoding of a declaration document.
type DocFormat uint8

const (
	DocJSON DocFormat = iota
	DocYAML
)

// FormatFor picks the encoding from a file extension; anything that is not
// .yaml/.yml is read as JSON.
func FormatFor(path string) DocFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DocYAML
	default:
		return DocJSON
	}
}

// Parse decodes a list of declarations. YAML documents are converted to JSON
// first so both encodings share one decoder.
func Parse(data []byte, format DocFormat) ([]Declaration, error) {
	if format == DocYAML {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
		data = converted
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var out []Declaration
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	for i, d := range out {
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("declaration %d: %w", i, err)
		}
	}
	return out, nil
}

// Load reads and decodes a declaration document from disk.
func Load(path string) ([]Declaration, error) {
	// #nosec G304 -- path comes from the manifest or the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decls, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return decls, nil
}

func (d Declaration) validate() error {
	if d.File == "" {
		return fmt.Errorf("missing file")
	}
	if d.Item.Container == nil && d.Item.Function == nil {
		return fmt.Errorf("missing item")
	}
	if d.Name() == "" {
		return fmt.Errorf("item without identifier")
	}
	return nil
}
