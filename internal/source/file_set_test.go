package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetLoadAllDedupsAndFallsBack(t *testing.T) {
	tmp := t.TempDir()
	pkg := filepath.Join(tmp, "pkg")
	if err := os.MkdirAll(filepath.Join(pkg, "src"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pkg, "src", "lib.rs"), []byte("a\nb\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	// лежит уровнем выше базовой директории
	if err := os.WriteFile(filepath.Join(tmp, "shared.rs"), []byte("x\r\ny"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSetWithBase(pkg)
	paths := []string{"src/lib.rs", "./src/lib.rs", "shared.rs", "gone.rs", "src/lib.rs"}
	if err := fs.LoadAll(context.Background(), paths, 2); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if fs.Len() != 3 {
		t.Errorf("Len() = %d, want 3", fs.Len())
	}

	lib, ok := fs.Get("src/lib.rs")
	if !ok || lib.Missing() {
		t.Fatalf("src/lib.rs not loaded")
	}
	if lib.Lines.Lines() != 3 {
		t.Errorf("lib lines = %d, want 3", lib.Lines.Lines())
	}

	shared, ok := fs.Get("shared.rs")
	if !ok || shared.Missing() {
		t.Fatalf("shared.rs should resolve through the parent directory")
	}
	if shared.Flags&FileCRLF == 0 {
		t.Errorf("shared.rs should carry the CRLF flag")
	}

	gone, ok := fs.Get("gone.rs")
	if !ok || !gone.Missing() {
		t.Errorf("gone.rs should be recorded as missing")
	}
	if missing := fs.Missing(); len(missing) != 1 || missing[0] != "gone.rs" {
		t.Errorf("Missing() = %v", missing)
	}
}

func TestFileSetLoadIsStable(t *testing.T) {
	fs := NewFileSet()
	first := fs.Add("mem.rs", []byte("one\ntwo"))
	got, err := fs.Load("mem.rs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != first {
		t.Errorf("Load should return the already indexed entry")
	}
}

func TestLoadAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fs := NewFileSetWithBase(t.TempDir())
	if err := fs.LoadAll(ctx, []string{"a.rs", "b.rs"}, 1); err == nil {
		t.Errorf("expected context error")
	}
}
