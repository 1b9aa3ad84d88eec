package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrManifestExists is returned by Init when the directory already has a
// manifest.
var ErrManifestExists = errors.New("manifest already exists")

// Init writes a starter manifest into dir and returns its path. It never
// overwrites an existing manifest.
func Init(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if st, err := os.Stat(dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	} else if !st.IsDir() {
		return "", fmt.Errorf("%q is not a directory", dir)
	}

	path := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s: %w", path, ErrManifestExists)
	}
	if err := os.WriteFile(path, []byte(DefaultManifest()), 0o600); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// DefaultManifest is the starter codegen.toml.
func DefaultManifest() string {
	return `# derive-codegen project manifest

[input]
# Declaration documents produced by the extractor (JSON or YAML).
declarations = ["target/codegen/declarations.json"]
# Optional traced registry filling in Incomplete shapes.
# traced = "target/codegen/traced.yaml"
source_root = "."
jobs = 0
strict = false

[[generator]]
name = "typescript"
command = ["node", "generators/typescript.js"]
mode = "stdin"
output = "src/generated"
# tags = ["ts"]
# filter = 'kind != "function"'
# cache = true
`
}
