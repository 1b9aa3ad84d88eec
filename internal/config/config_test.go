package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

const sampleManifest = `
[input]
declarations = ["decls/a.json", "/abs/b.yaml"]
traced = "traced.yaml"
jobs = 4
strict = true

[[generator]]
name = "ts"
command = ["node", "gen.js"]
mode = "arg"
output = "out"
tags = ["ts"]
filter = 'kind == "struct"'
env = { GEN_STYLE = "camel" }
cache = true

[[generator]]
name = "py"
command = ["python3", "gen.py"]
dir = "tools"
check = false
`

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	writeFile(t, path, sampleManifest)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "decls/a.json"), "/abs/b.yaml"}, m.Input.Declarations); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}
	if m.Input.Traced != filepath.Join(dir, "traced.yaml") || m.Input.SourceRoot != dir {
		t.Errorf("input = %+v", m.Input)
	}
	if m.Input.Jobs != 4 || !m.Input.Strict {
		t.Errorf("jobs/strict = %d/%v", m.Input.Jobs, m.Input.Strict)
	}
	if diff := cmp.Diff([]string{"ts", "py"}, m.GeneratorNames()); diff != "" {
		t.Errorf("generators mismatch (-want +got):\n%s", diff)
	}

	ts, err := m.Generator("ts")
	if err != nil {
		t.Fatal(err)
	}
	if ts.Dir != dir || ts.OutputDir() != filepath.Join(dir, "out") || !ts.Cache || !ts.Checked() {
		t.Errorf("ts = %+v", ts)
	}
	py, _ := m.Generator("py")
	if py.Dir != filepath.Join(dir, "tools") || py.OutputDir() != filepath.Join(dir, "tools") || py.Checked() {
		t.Errorf("py = %+v", py)
	}
	if _, err := m.Generator("go"); !errors.Is(err, ErrUnknownGenerator) {
		t.Errorf("err = %v, want ErrUnknownGenerator", err)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no declarations", "[[generator]]\nname = \"a\"\ncommand = [\"x\"]\n", "declarations"},
		{"no generators", "[input]\ndeclarations = [\"a.json\"]\n", "generator"},
		{"unknown key", "[input]\ndeclarations = [\"a.json\"]\nbogus = 1\n[[generator]]\nname = \"a\"\ncommand = [\"x\"]\n", "unknown keys"},
		{"missing command", "[input]\ndeclarations = [\"a.json\"]\n[[generator]]\nname = \"a\"\n", "missing command"},
		{"duplicate", "[input]\ndeclarations = [\"a.json\"]\n[[generator]]\nname = \"a\"\ncommand = [\"x\"]\n[[generator]]\nname = \"a\"\ncommand = [\"y\"]\n", "twice"},
		{"bad toml", "[input\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ManifestName)
			writeFile(t, path, tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), sampleManifest)
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	path, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest = %q, %v, %v", path, ok, err)
	}
	if path != filepath.Join(root, ManifestName) {
		t.Errorf("path = %q", path)
	}
}

func TestEnvironmentPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestName), sampleManifest)
	writeFile(t, filepath.Join(dir, DotEnvName), "FROM_DOTENV=1\nALREADY_SET=dotenv\nGEN_STYLE=snake\n")
	t.Setenv("ALREADY_SET", "process")

	m, err := Load(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	ts, _ := m.Generator("ts")
	want := []string{"FROM_DOTENV=1", "GEN_STYLE=camel"}
	if diff := cmp.Diff(want, m.Environment(ts)); diff != "" {
		t.Errorf("environment mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestName), sampleManifest)
	writeFile(t, filepath.Join(dir, DotEnvName), EnvJobs+"=2\n")
	m, err := Load(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvStrict, "false")
	if err := m.ApplyEnv(); err != nil {
		t.Fatal(err)
	}
	if m.Input.Jobs != 2 || m.Input.Strict {
		t.Errorf("jobs/strict = %d/%v, want 2/false", m.Input.Jobs, m.Input.Strict)
	}

	t.Setenv(EnvJobs, "many")
	if err := m.ApplyEnv(); err == nil {
		t.Error("expected an error for a non-numeric job count")
	}
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	path, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("starter manifest does not load: %v", err)
	}
	if _, err := Init(dir); !errors.Is(err, ErrManifestExists) {
		t.Errorf("second Init err = %v, want ErrManifestExists", err)
	}
}
