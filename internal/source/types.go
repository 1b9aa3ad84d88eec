package source

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
	// LocationID is an opaque human-readable reference to a spot in a source file.
	LocationID string
)

const (
	// FileMissing marks a path that could not be read; its index is empty.
	FileMissing FileFlags = 1 << iota
	// FileCRLF is informational only, offsets are never normalized.
	FileCRLF
	FileHadBOM
)

// File captures metadata for a single indexed source file.
type File struct {
	Path     string // путь как его сообщил экстрактор
	Resolved string // путь, с которого реально прочитали
	Content  []byte
	Lines    *LineIndex
	Hash     [32]byte
	Size     uint32
	Flags    FileFlags
}

func (f *File) Missing() bool {
	return f == nil || f.Flags&FileMissing != 0
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 0-based
}

func (lc LineCol) String() string {
	return fmt.Sprintf("%d:%d", lc.Line, lc.Col)
}

// OverrideLocation formats the id used when the line is already known.
func OverrideLocation(file string, line uint32, span Span) LocationID {
	return LocationID(fmt.Sprintf("L(%s:%d #B%d-B%d)", file, line, span.Start, span.End))
}

// IndexedLocation formats the id computed from the line index.
func IndexedLocation(file string, pos LineCol, span Span) LocationID {
	return LocationID(fmt.Sprintf("L(%s:%d:%d #B%d-B%d)", file, pos.Line, pos.Col, span.Start, span.End))
}

func (id LocationID) String() string {
	return string(id)
}

// Position is a LocationID taken apart again. Col is zero for ids written
// with a line override.
type Position struct {
	File   string
	Line   uint32
	Col    uint32
	Span   Span
	HasCol bool
}

// ParseLocation reverses OverrideLocation and IndexedLocation. Anything else
// reports false.
func ParseLocation(id LocationID) (Position, bool) {
	s := string(id)
	if !strings.HasPrefix(s, "L(") || !strings.HasSuffix(s, ")") {
		return Position{}, false
	}
	s = s[2 : len(s)-1]
	hash := strings.LastIndex(s, " #B")
	if hash < 0 {
		return Position{}, false
	}
	head, tail := s[:hash], s[hash+3:]
	var pos Position
	if _, err := fmt.Sscanf(tail, "%d-B%d", &pos.Span.Start, &pos.Span.End); err != nil {
		return Position{}, false
	}
	// file may itself contain ':' so numbers are taken from the right
	nums := make([]uint32, 0, 2)
	for len(nums) < 2 {
		colon := strings.LastIndexByte(head, ':')
		if colon < 0 {
			break
		}
		n, err := strconv.ParseUint(head[colon+1:], 10, 32)
		if err != nil {
			break
		}
		nums = append(nums, uint32(n))
		head = head[:colon]
	}
	switch len(nums) {
	case 2:
		pos.Line, pos.Col, pos.HasCol = nums[1], nums[0], true
	case 1:
		pos.Line = nums[0]
	default:
		return Position{}, false
	}
	pos.File = head
	return pos, true
}

// LineText returns a 1-based line without its terminator.
func (f *File) LineText(line uint32) (string, bool) {
	if f.Missing() || f.Lines == nil {
		return "", false
	}
	start, ok := f.Lines.LineStart(line)
	if !ok {
		return "", false
	}
	end := f.Size
	if next, ok := f.Lines.LineStart(line + 1); ok {
		end = next
	}
	text := string(f.Content[start:end])
	text = strings.TrimSuffix(text, "\n")
	return strings.TrimSuffix(text, "\r"), true
}
