// Package attr normalizes raw attribute lists into schema.Attrs and answers the
// questions the converter asks of them.
package attr

import (
	"fmt"
	"strings"

	"github.com/colelawrence/derive-codegen/internal/decl"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

// Well-known keys.
const (
	KeyRename           = "rename"
	KeyTag              = "tag"
	KeyContent          = "content"
	KeyTags             = "tags"
	FlagUntagged        = "untagged"
	FlagSkip            = "skip"
	FlagSkipSerializing = "skip_serializing"
	FlagTransparent     = "transparent"
)

// Fold collapses ordered pairs into a map. A key written more than once keeps
// its last value and that value's location.
func Fold(pairs []decl.Pair, loc source.Locator) map[string]schema.AttrValue {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]schema.AttrValue, len(pairs))
	for _, p := range pairs {
		value, id := source.Of(loc, p.Value)
		out[p.Key.Value] = schema.AttrValue{Value: value, Location: id}
	}
	return out
}

// FoldFlags is Fold for presence-only attributes.
func FoldFlags(flags []source.Spanned[string], loc source.Locator) map[string]source.LocationID {
	if len(flags) == 0 {
		return nil
	}
	out := make(map[string]source.LocationID, len(flags))
	for _, f := range flags {
		name, id := source.Of(loc, f)
		out[name] = id
	}
	return out
}

// Classify builds the full attribute bag of a named item.
func Classify[T any](n decl.Named[T], loc source.Locator) schema.Attrs {
	a := schema.Attrs{
		SerdeAttrs:   Fold(n.SerdeAttrs, loc),
		SerdeFlags:   FoldFlags(n.SerdeFlags, loc),
		CodegenAttrs: Fold(n.CodegenAttrs, loc),
		CodegenFlags: FoldFlags(n.CodegenFlags, loc),
	}
	if n.Docs != "" {
		docs := n.Docs
		a.Docs = &docs
	}
	for _, g := range n.Generics {
		name, id := source.Of(loc, g)
		a.Generics = append(a.Generics, schema.GenericParam{Name: name, Location: id})
	}
	return a
}

// Representation decides how an enum is tagged. It must see the complete
// attribute map; content without tag is ignored.
func Representation(a schema.Attrs) schema.EnumRepresentation {
	if _, ok := a.SerdeFlags[FlagUntagged]; ok {
		return schema.Untagged()
	}
	tag, hasTag := a.SerdeAttrs[KeyTag]
	if !hasTag {
		return schema.External()
	}
	if content, ok := a.SerdeAttrs[KeyContent]; ok {
		value, location := content.Value, content.Location
		return schema.Tagged(tag.Value, tag.Location, &value, &location)
	}
	return schema.Tagged(tag.Value, tag.Location, nil, nil)
}

// SerializeName is the wire key of an item: the last rename, else its id.
func SerializeName(id string, a schema.Attrs) string {
	if v, ok := a.SerdeAttrs[KeyRename]; ok && v.Value != "" {
		return v.Value
	}
	return id
}

// Skipped reports items that never reach the wire.
func Skipped(a schema.Attrs) bool {
	_, skip := a.SerdeFlags[FlagSkip]
	_, skipSer := a.SerdeFlags[FlagSkipSerializing]
	return skip || skipSer
}

func Transparent(a schema.Attrs) bool {
	_, ok := a.SerdeFlags[FlagTransparent]
	return ok
}

// Tags splits the comma separated codegen "tags" attribute.
func Tags(a schema.Attrs) []string {
	v, ok := a.CodegenAttrs[KeyTags]
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v.Value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CheckVariant rejects container-level representation attributes written on
// a single variant.
func CheckVariant(a schema.Attrs) error {
	for _, key := range []string{KeyTag, KeyContent} {
		if v, ok := a.SerdeAttrs[key]; ok {
			return &MisplacedError{Key: key, Location: v.Location}
		}
	}
	return nil
}

// MisplacedError reports an attribute that only makes sense on the enum.
type MisplacedError struct {
	Key      string
	Location source.LocationID
}

func (e *MisplacedError) Error() string {
	return fmt.Sprintf("serde attribute %q belongs on the enum, not on a variant (%s)", e.Key, e.Location)
}
