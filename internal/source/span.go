package source

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Span is a byte range inside a source file.
type Span struct {
	Start uint32 // в байтах включительно
	End   uint32 // в байтах не включительно
}

// IsZero reports the (0,0) span which means "location unknown".
func (s Span) IsZero() bool {
	return s.Start == 0 && s.End == 0
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("#B%d-B%d", s.Start, s.End)
}

func (s Span) Cover(other Span) Span {
	if s.IsZero() {
		return other
	}
	if other.IsZero() {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Spanned pairs a value with the bytes it was read from.
type Spanned[T any] struct {
	Value T
	Span  Span
}

// At builds a Spanned value. Degenerate ranges are accepted as is.
func At[T any](value T, start, end uint32) Spanned[T] {
	return Spanned[T]{Value: value, Span: Span{Start: start, End: end}}
}

// Unspanned wraps a value that has no known location.
func Unspanned[T any](value T) Spanned[T] {
	return Spanned[T]{Value: value}
}

type spannedWire[T any] struct {
	Value T          `json:"$"`
	Span  *[2]uint32 `json:"_,omitempty"`
}

func (s Spanned[T]) MarshalJSON() ([]byte, error) {
	w := spannedWire[T]{Value: s.Value}
	if !s.Span.IsZero() {
		w.Span = &[2]uint32{s.Span.Start, s.Span.End}
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts the wrapped form {"$": v, "_": [s, e]} and, for
// scalar payloads, a bare value with no span.
func (s *Spanned[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		var v T
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		*s = Spanned[T]{Value: v}
		return nil
	}
	var w spannedWire[T]
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return err
	}
	s.Value = w.Value
	s.Span = Span{}
	if w.Span != nil {
		s.Span = Span{Start: w.Span[0], End: w.Span[1]}
	}
	return nil
}
