package diagfmt

import (
	"path/filepath"
	"strings"

	"github.com/colelawrence/derive-codegen/internal/source"
)

const autoPathLimit = 40

func formatPath(path string, fs *source.FileSet, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		if filepath.IsAbs(path) || fs == nil {
			return path
		}
		return filepath.ToSlash(filepath.Join(fs.BaseDir(), path))
	case PathModeRelative:
		if !filepath.IsAbs(path) || fs == nil {
			return path
		}
		if rel, err := filepath.Rel(fs.BaseDir(), path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
		return path
	case PathModeBasename:
		return filepath.Base(path)
	default:
		if len(path) > autoPathLimit {
			return filepath.Base(path)
		}
		return path
	}
}
