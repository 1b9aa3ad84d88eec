package source

import (
	"fmt"
	"path/filepath"
	"sort"

	"fortio.org/safecast"
)

// LineIndex maps byte offsets to line/column pairs.
type LineIndex struct {
	starts []uint32 // смещения сразу после каждого '\n'
	size   uint32
	crlf   bool
}

// NewLineIndex scans text once. Only '\n' bytes split lines; '\r' just sets the
// CRLF flag.
func NewLineIndex(text []byte) *LineIndex {
	size, err := safecast.Conv[uint32](len(text))
	if err != nil {
		panic(fmt.Errorf("source too large: %w", err))
	}
	idx := &LineIndex{size: size}
	for i, b := range text {
		switch b {
		case '\n':
			next, convErr := safecast.Conv[uint32](i + 1)
			if convErr != nil {
				panic(fmt.Errorf("line start overflow: %w", convErr))
			}
			idx.starts = append(idx.starts, next)
		case '\r':
			idx.crlf = true
		}
	}
	return idx
}

func (idx *LineIndex) CRLF() bool { return idx.crlf }

func (idx *LineIndex) Size() uint32 { return idx.size }

// Lines returns the number of lines, counting the implicit first one.
func (idx *LineIndex) Lines() int { return len(idx.starts) + 1 }

// LineStart returns the offset of a 1-based line.
func (idx *LineIndex) LineStart(line uint32) (uint32, bool) {
	switch {
	case line == 0 || int(line) > idx.Lines():
		return 0, false
	case line == 1:
		return 0, true
	default:
		return idx.starts[line-2], true
	}
}

// LineCol resolves off into a 1-based line and 0-based column. Offsets past the
// end of the text clamp to the last line with column 0.
func (idx *LineIndex) LineCol(off uint32) LineCol {
	last, err := safecast.Conv[uint32](idx.Lines())
	if err != nil {
		panic(fmt.Errorf("line count overflow: %w", err))
	}
	if off > idx.size {
		return LineCol{Line: last}
	}
	// число записанных начал строк <= off
	found := sort.Search(len(idx.starts), func(i int) bool { return idx.starts[i] > off })
	var start uint32
	if found > 0 {
		start = idx.starts[found-1]
	}
	if off < start {
		panic(fmt.Sprintf("line index corrupt: offset %d precedes line start %d (line %d, starts %v)", off, start, found+1, idx.starts))
	}
	line, err := safecast.Conv[uint32](found + 1)
	if err != nil {
		panic(fmt.Errorf("line overflow: %w", err))
	}
	return LineCol{Line: line, Col: off - start}
}

// hasBOM only reports the mark; offsets keep counting it.
func hasBOM(content []byte) bool {
	return len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF
}

func normalizePath(p string) string {
	// единый вид в кроссплатформенных дифах
	return filepath.ToSlash(filepath.Clean(p))
}
