package source

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"
)

// FileSet indexes every distinct source file named by a batch of declarations.
// Entries are immutable once loaded and safe to share between goroutines.
type FileSet struct {
	mu      sync.RWMutex
	files   map[string]*File // normalized path -> file
	baseDir string           // базовая директория для относительных путей
}

// NewFileSet creates a new empty FileSet rooted at the working directory.
func NewFileSet() *FileSet {
	return NewFileSetWithBase("")
}

// NewFileSetWithBase создаёт FileSet с заданной базовой директорией.
func NewFileSetWithBase(baseDir string) *FileSet {
	return &FileSet{
		files:   make(map[string]*File),
		baseDir: baseDir,
	}
}

// BaseDir возвращает текущую базовую директорию.
func (fileSet *FileSet) BaseDir() string {
	if fileSet.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return fileSet.baseDir
}

// Add indexes in-memory content under path, replacing any earlier entry.
func (fileSet *FileSet) Add(path string, content []byte) *File {
	f := newFile(normalizePath(path), "", content)
	fileSet.mu.Lock()
	fileSet.files[f.Path] = f
	fileSet.mu.Unlock()
	return f
}

// Get returns the indexed file for path, if it was loaded.
func (fileSet *FileSet) Get(path string) (*File, bool) {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	f, ok := fileSet.files[normalizePath(path)]
	return f, ok
}

func (fileSet *FileSet) Len() int {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	return len(fileSet.files)
}

// Load reads and indexes one file. Extractors report paths relative to the
// package being compiled, so the parent of the base dir is tried as well.
// A file that cannot be found is recorded with FileMissing and no error.
func (fileSet *FileSet) Load(path string) (*File, error) {
	norm := normalizePath(path)
	if f, ok := fileSet.Get(norm); ok {
		return f, nil
	}
	f, err := fileSet.read(norm)
	if err != nil {
		return nil, err
	}
	fileSet.mu.Lock()
	if existing, ok := fileSet.files[norm]; ok {
		f = existing
	} else {
		fileSet.files[norm] = f
	}
	fileSet.mu.Unlock()
	return f, nil
}

func (fileSet *FileSet) read(norm string) (*File, error) {
	for _, candidate := range fileSet.candidates(norm) {
		// #nosec G304 -- path is provided by the declaration document
		content, err := os.ReadFile(candidate)
		if err == nil {
			return newFile(norm, candidate, content), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", candidate, err)
		}
	}
	return &File{Path: norm, Lines: NewLineIndex(nil), Flags: FileMissing}, nil
}

func (fileSet *FileSet) candidates(norm string) []string {
	if filepath.IsAbs(norm) {
		return []string{norm}
	}
	base := fileSet.BaseDir()
	return []string{
		filepath.Join(base, norm),
		filepath.Join(base, "..", norm),
	}
}

// LoadAll indexes every distinct path once, using up to jobs goroutines.
// jobs <= 0 means GOMAXPROCS.
func (fileSet *FileSet) LoadAll(ctx context.Context, paths []string, jobs int) error {
	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		norm := normalizePath(p)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		unique = append(unique, norm)
	}
	if len(unique) == 0 {
		return nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(unique)))
	for _, path := range unique {
		g.Go(func(path string) func() error {
			return func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				_, err := fileSet.Load(path)
				return err
			}
		}(path))
	}
	return g.Wait()
}

// Missing lists loaded paths that could not be found on disk.
func (fileSet *FileSet) Missing() []string {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	var out []string
	for p, f := range fileSet.files {
		if f.Missing() {
			out = append(out, p)
		}
	}
	return out
}

func newFile(norm, resolved string, content []byte) *File {
	size, err := safecast.Conv[uint32](len(content))
	if err != nil {
		panic(fmt.Errorf("file %s too large: %w", norm, err))
	}
	f := &File{
		Path:     norm,
		Resolved: resolved,
		Content:  content,
		Lines:    NewLineIndex(content),
		Hash:     sha256.Sum256(content),
		Size:     size,
	}
	if f.Lines.CRLF() {
		f.Flags |= FileCRLF
	}
	if hasBOM(content) {
		f.Flags |= FileHadBOM
	}
	return f
}
