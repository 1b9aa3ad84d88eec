package source

// Locator turns spans from one declaration into LocationIDs.
type Locator struct {
	File string
	Line *uint32 // explicit line reported by the extractor
	Src  *File
}

// NewLocator binds a declaration's file and optional line to its index.
// src may be nil when the file was never loaded.
func NewLocator(file string, line *uint32, src *File) Locator {
	return Locator{File: file, Line: line, Src: src}
}

// ID formats the location of span. An explicit line wins over the index for
// every identifier in the declaration.
func (l Locator) ID(span Span) LocationID {
	if l.Line != nil {
		return OverrideLocation(l.File, *l.Line, span)
	}
	if l.Src.Missing() {
		return IndexedLocation(l.File, LineCol{}, span)
	}
	return IndexedLocation(l.File, l.Src.Lines.LineCol(span.Start), span)
}

// Of is the Spanned convenience form of ID.
func Of[T any](l Locator, v Spanned[T]) (T, LocationID) {
	return v.Value, l.ID(v.Span)
}
