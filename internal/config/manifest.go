// Package config loads the codegen.toml project manifest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file FindManifest looks for.
const ManifestName = "codegen.toml"

var (
	// ErrDeclarationsMissing indicates that [input].declarations is missing.
	ErrDeclarationsMissing = errors.New("missing [input].declarations")
	// ErrNoGenerators indicates a manifest without any [[generator]] table.
	ErrNoGenerators = errors.New("no [[generator]] defined")
	// ErrUnknownGenerator is returned by Manifest.Generator.
	ErrUnknownGenerator = errors.New("unknown generator")
)

// Input is the [input] section.
type Input struct {
	Declarations    []string `toml:"declarations"`
	Traced          string   `toml:"traced"`
	SourceRoot      string   `toml:"source_root"`
	Jobs            int      `toml:"jobs"`
	Strict          bool     `toml:"strict"`
	RequireComplete bool     `toml:"require_complete"`
	MaxDiagnostics  int      `toml:"max_diagnostics"`
}

// Generator is one [[generator]] table.
type Generator struct {
	Name    string            `toml:"name"`
	Command []string          `toml:"command"`
	Mode    string            `toml:"mode"`
	Dir     string            `toml:"dir"`
	Output  string            `toml:"output"`
	Tags    []string          `toml:"tags"`
	Filter  string            `toml:"filter"`
	Env     map[string]string `toml:"env"`
	Cache   bool              `toml:"cache"`
	// Check includes the generator in `check` runs; unset means true.
	Check *bool `toml:"check"`
}

func (g Generator) Checked() bool { return g.Check == nil || *g.Check }

// Cache is the [cache] section.
type Cache struct {
	Dir string `toml:"dir"`
}

// Manifest is a decoded codegen.toml. Relative paths are already resolved
// against Dir.
type Manifest struct {
	Path       string      `toml:"-"`
	Dir        string      `toml:"-"`
	Input      Input       `toml:"input"`
	Generators []Generator `toml:"generator"`
	Cache      Cache       `toml:"cache"`

	// DotEnv holds values read from a .env file next to the manifest.
	DotEnv map[string]string `toml:"-"`
}

// FindManifest walks up from startDir to locate codegen.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes and validates a manifest.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	meta, err := toml.DecodeFile(abs, &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", abs, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", abs, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("input", "declarations") || len(m.Input.Declarations) == 0 {
		return nil, fmt.Errorf("%s: %w", abs, ErrDeclarationsMissing)
	}
	if !meta.IsDefined("generator") || len(m.Generators) == 0 {
		return nil, fmt.Errorf("%s: %w", abs, ErrNoGenerators)
	}
	m.Path = abs
	m.Dir = filepath.Dir(abs)
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	m.resolvePaths()

	env, err := loadDotEnv(m.Dir)
	if err != nil {
		return nil, err
	}
	m.DotEnv = env
	return &m, nil
}

// Discover finds and loads the manifest above startDir.
func Discover(startDir string) (*Manifest, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no %s found in %s or any parent directory", ManifestName, startDir)
	}
	return Load(path)
}

func (m *Manifest) validate() error {
	if m.Input.Jobs < 0 {
		return fmt.Errorf("[input].jobs must not be negative, got %d", m.Input.Jobs)
	}
	seen := make(map[string]bool, len(m.Generators))
	for i, g := range m.Generators {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return fmt.Errorf("generator #%d: missing name", i+1)
		}
		if seen[name] {
			return fmt.Errorf("generator %q defined twice", name)
		}
		seen[name] = true
		if len(g.Command) == 0 || strings.TrimSpace(g.Command[0]) == "" {
			return fmt.Errorf("generator %q: missing command", name)
		}
	}
	return nil
}

func (m *Manifest) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

func (m *Manifest) resolvePaths() {
	for i, p := range m.Input.Declarations {
		m.Input.Declarations[i] = m.abs(p)
	}
	m.Input.Traced = m.abs(m.Input.Traced)
	if m.Input.SourceRoot == "" {
		m.Input.SourceRoot = m.Dir
	} else {
		m.Input.SourceRoot = m.abs(m.Input.SourceRoot)
	}
	m.Cache.Dir = m.abs(m.Cache.Dir)
	for i := range m.Generators {
		g := &m.Generators[i]
		if g.Dir == "" {
			g.Dir = m.Dir
		} else {
			g.Dir = m.abs(g.Dir)
		}
	}
}

// Generator returns the generator with the given name.
func (m *Manifest) Generator(name string) (Generator, error) {
	for _, g := range m.Generators {
		if g.Name == name {
			return g, nil
		}
	}
	return Generator{}, fmt.Errorf("%w %q (have %s)", ErrUnknownGenerator, name, strings.Join(m.GeneratorNames(), ", "))
}

// GeneratorNames lists generators in manifest order.
func (m *Manifest) GeneratorNames() []string {
	out := make([]string, len(m.Generators))
	for i, g := range m.Generators {
		out[i] = g.Name
	}
	return out
}

// OutputDir is where a generator's files land: output joined to the
// generator's working directory, "." when unset.
func (g Generator) OutputDir() string {
	out := g.Output
	if out == "" {
		out = "."
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(g.Dir, out)
}

// Environment returns the extra KEY=VALUE entries for a generator process,
// sorted by key. .env values never override variables already set in the
// process environment; the generator's own env table always wins.
func (m *Manifest) Environment(g Generator) []string {
	merged := make(map[string]string, len(m.DotEnv)+len(g.Env))
	for k, v := range m.DotEnv {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		merged[k] = v
	}
	for k, v := range g.Env {
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + "=" + merged[k]
	}
	return out
}
