package generator

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/colelawrence/derive-codegen/internal/schema"
)

// WrittenFile is one entry of a WriteSummary. Path is relative to the root.
type WrittenFile struct {
	Path string
	Size int
}

// WriteSummary lists what Write produced.
type WriteSummary struct {
	Root  string
	Files []WrittenFile
}

func (s *WriteSummary) Bytes() int {
	total := 0
	for _, f := range s.Files {
		total += f.Size
	}
	return total
}

func (s *WriteSummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "wrote %d file(s) to %s\n", len(s.Files), s.Root)
	for _, f := range s.Files {
		fmt.Fprintf(&sb, "  %s (%d bytes)\n", f.Path, f.Size)
	}
	return sb.String()
}

// resolve maps a generator supplied path onto root. Absolute paths and paths
// that climb out of root are rejected.
func resolve(root, p string) (string, string, error) {
	if p == "" {
		return "", "", &UnsafePathError{Path: p}
	}
	native := filepath.FromSlash(p)
	if filepath.IsAbs(native) || filepath.VolumeName(native) != "" || strings.HasPrefix(p, "/") {
		return "", "", &UnsafePathError{Path: p}
	}
	clean := filepath.Clean(native)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", "", &UnsafePathError{Path: p}
	}
	return filepath.Join(root, clean), filepath.ToSlash(clean), nil
}

// Write stores every file under root, creating parent directories and
// overwriting existing files. All paths are validated before anything is
// written.
func Write(root string, files []schema.OutputFile) (*WriteSummary, error) {
	if root == "" {
		root = "."
	}
	targets := make([]string, len(files))
	rels := make([]string, len(files))
	for i, f := range files {
		target, rel, err := resolve(root, f.Path)
		if err != nil {
			return nil, err
		}
		targets[i], rels[i] = target, rel
	}

	summary := &WriteSummary{Root: root, Files: make([]WrittenFile, 0, len(files))}
	for i, f := range files {
		if err := os.MkdirAll(filepath.Dir(targets[i]), 0o755); err != nil {
			return summary, fmt.Errorf("create directory for %s: %w", rels[i], err)
		}
		// #nosec G306 -- generated sources are meant to be readable
		if err := os.WriteFile(targets[i], []byte(f.Source), 0o644); err != nil {
			return summary, fmt.Errorf("write %s: %w", rels[i], err)
		}
		summary.Files = append(summary.Files, WrittenFile{Path: rels[i], Size: len(f.Source)})
	}
	return summary, nil
}

// Print writes each file to w behind a "// path" header line.
func Print(w io.Writer, files []schema.OutputFile) error {
	for _, f := range files {
		if _, err := fmt.Fprintf(w, "// %s\n", f.Path); err != nil {
			return err
		}
		if _, err := io.WriteString(w, f.Source); err != nil {
			return err
		}
		if f.Source != "" && !strings.HasSuffix(f.Source, "\n") {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// Drift is a generated file whose content on disk differs.
type Drift struct {
	Path    string
	Missing bool
	Diff    string
}

// CheckReport is the result of comparing generator output with disk.
type CheckReport struct {
	Root    string
	Checked int
	Drifted []Drift
}

func (c *CheckReport) Clean() bool { return len(c.Drifted) == 0 }

// Check compares files with what is already under root without touching
// the disk.
func Check(root string, files []schema.OutputFile) (*CheckReport, error) {
	if root == "" {
		root = "."
	}
	report := &CheckReport{Root: root}
	for _, f := range files {
		target, rel, err := resolve(root, f.Path)
		if err != nil {
			return nil, err
		}
		report.Checked++
		// #nosec G304 -- target is confined to root by resolve
		have, err := os.ReadFile(target)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			report.Drifted = append(report.Drifted, Drift{Path: rel, Missing: true, Diff: unifiedDiff(rel, "", f.Source)})
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", rel, err)
		case string(have) != f.Source:
			report.Drifted = append(report.Drifted, Drift{Path: rel, Diff: unifiedDiff(rel, string(have), f.Source)})
		}
	}
	return report, nil
}
