package convert

import (
	"fmt"

	"github.com/colelawrence/derive-codegen/internal/builtin"
	"github.com/colelawrence/derive-codegen/internal/decl"
	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

// typeOf converts a written type expression. at is the location of the
// identifier that owns it; synthesized built-ins report it as their origin.
func (dc *declConverter) typeOf(t decl.Type, at source.LocationID) (schema.Format, error) {
	switch t.Kind {
	case decl.TypePath:
		if len(t.Segments) == 0 {
			return dc.incomplete(at, "empty path"), nil
		}
		args := make([]schema.Format, 0, len(t.Args))
		for _, a := range t.Args {
			f, err := dc.typeOf(a, at)
			if err != nil {
				return schema.Format{}, err
			}
			args = append(args, f)
		}
		return dc.resolver.Resolve(builtin.Request{Segments: t.Segments, Args: args, Origin: at})

	case decl.TypeTuple:
		if len(t.Elems) == 0 {
			return schema.MakePrimitive(schema.KindUnit), nil
		}
		items := make([]schema.Format, 0, len(t.Elems))
		for _, e := range t.Elems {
			f, err := dc.typeOf(e, at)
			if err != nil {
				return schema.Format{}, err
			}
			items = append(items, f)
		}
		return schema.MakeTuple(items...), nil

	case decl.TypeArray, decl.TypeSlice:
		if t.Elem == nil {
			return dc.incomplete(at, t.Kind.String()+" without element"), nil
		}
		elem, err := dc.typeOf(*t.Elem, at)
		if err != nil {
			return schema.Format{}, err
		}
		return schema.MakeSeq(elem), nil

	case decl.TypeRef:
		if t.Elem == nil {
			return dc.incomplete(at, "reference without target"), nil
		}
		return dc.typeOf(*t.Elem, at)

	case decl.TypeNever:
		return schema.MakePrimitive(schema.KindNever), nil

	case decl.TypeUnknown:
		return dc.incomplete(at, t.Debug), nil

	default:
		return schema.Format{}, fmt.Errorf("unknown type kind %s", t.Kind)
	}
}

// incomplete is the local default for anything that cannot be described. It
// warns and never fails.
func (dc *declConverter) incomplete(at source.LocationID, debug string) schema.Format {
	dc.bag.Add(diag.NewWarning(diag.CnvIncompleteType, at,
		fmt.Sprintf("type %q cannot be described; emitted as Incomplete", debug)).WithSubject(dc.name))
	return schema.MakeIncomplete(debug)
}
