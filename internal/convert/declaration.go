package convert

import (
	"errors"
	"fmt"

	"github.com/colelawrence/derive-codegen/internal/attr"
	"github.com/colelawrence/derive-codegen/internal/builtin"
	"github.com/colelawrence/derive-codegen/internal/decl"
	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

// declConverter converts one declaration. Every location goes through loc so
// a line override reaches nested identifiers too.
type declConverter struct {
	name     string
	loc      source.Locator
	resolver *builtin.Resolver
	bag      *diag.Bag
}

func (dc *declConverter) report(err error) {
	var misplaced *attr.MisplacedError
	if errors.As(err, &misplaced) {
		dc.bag.Add(diag.NewError(diag.CnvMisplacedAttr, misplaced.Location, err.Error()).WithSubject(dc.name))
		return
	}
	dc.bag.Add(diag.NewError(diag.UnknownCode, "", err.Error()).WithSubject(dc.name))
}

func (dc *declConverter) declaration(n decl.Named[decl.Container]) (*schema.InputDeclaration, error) {
	id, idLoc := source.Of(dc.loc, n.ID)
	attrs := attr.Classify(n, dc.loc)
	kind, err := dc.container(n.Value, attrs, idLoc)
	if err != nil {
		return nil, err
	}
	return &schema.InputDeclaration{ID: id, IDLocation: idLoc, Attrs: attrs, ContainerKind: kind}, nil
}

func (dc *declConverter) extra(n decl.Named[decl.Container]) error {
	d, err := dc.declaration(n)
	if err != nil {
		return err
	}
	return dc.resolver.RegisterExtra(*d)
}

func (dc *declConverter) container(c decl.Container, attrs schema.Attrs, at source.LocationID) (schema.ContainerFormat, error) {
	switch c.Kind {
	case schema.ContainerUnitStruct:
		return schema.MakeUnitStruct(), nil

	case schema.ContainerNewTypeStruct:
		items, err := dc.items(c.Fields)
		if err != nil {
			return schema.ContainerFormat{}, err
		}
		if len(items) == 0 {
			dc.degraded(at, "newtype field is skipped, emitted as a unit struct")
			return schema.MakeUnitStruct(), nil
		}
		return schema.MakeNewTypeStruct(items[0]), nil

	case schema.ContainerTupleStruct:
		items, err := dc.items(c.Fields)
		if err != nil {
			return schema.ContainerFormat{}, err
		}
		switch {
		case len(items) == 0 && len(c.Fields) > 0:
			dc.degraded(at, "every tuple field is skipped, emitted as a unit struct")
			return schema.MakeUnitStruct(), nil
		case len(items) == 0:
			return schema.MakeUnitStruct(), nil
		case len(items) == 1 && attr.Transparent(attrs):
			return schema.MakeNewTypeStruct(items[0]), nil
		}
		return schema.MakeTupleStruct(items...), nil

	case schema.ContainerStruct:
		fields, err := dc.fields(c.Fields)
		if err != nil {
			return schema.ContainerFormat{}, err
		}
		return schema.MakeStruct(fields...), nil

	case schema.ContainerEnum:
		repr := attr.Representation(attrs)
		variants := make([]schema.NamedVariant, 0, len(c.Variants))
		for _, v := range c.Variants {
			nv, err := dc.variant(v)
			if err != nil {
				return schema.ContainerFormat{}, err
			}
			variants = append(variants, nv)
		}
		return schema.MakeEnum(repr, variants...), nil

	default:
		return schema.ContainerFormat{}, fmt.Errorf("unknown container kind %s", c.Kind)
	}
}

// variant converts one enum case. Cases are never dropped; skipping applies
// to their fields only.
func (dc *declConverter) variant(n decl.Named[decl.Variant]) (schema.NamedVariant, error) {
	id, idLoc := source.Of(dc.loc, n.ID)
	attrs := attr.Classify(n, dc.loc)
	if err := attr.CheckVariant(attrs); err != nil {
		return schema.NamedVariant{}, err
	}
	nv := schema.NamedVariant{ID: id, IDLocation: idLoc, Attrs: attrs}

	switch n.Value.Kind {
	case schema.VariantUnit:
		nv.VariantFormat = schema.MakeUnitVariant()
	case schema.VariantNewType:
		items, err := dc.items(n.Value.Fields)
		if err != nil {
			return schema.NamedVariant{}, err
		}
		if len(items) == 0 {
			nv.VariantFormat = schema.MakeUnitVariant()
			break
		}
		nv.VariantFormat = schema.MakeNewTypeVariant(items[0])
	case schema.VariantTuple:
		items, err := dc.items(n.Value.Fields)
		if err != nil {
			return schema.NamedVariant{}, err
		}
		nv.VariantFormat = schema.MakeTupleVariant(items...)
	case schema.VariantStruct:
		fields, err := dc.fields(n.Value.Fields)
		if err != nil {
			return schema.NamedVariant{}, err
		}
		nv.VariantFormat = schema.MakeStructVariant(fields...)
	default:
		return schema.NamedVariant{}, fmt.Errorf("variant %s: unknown kind %s", id, n.Value.Kind)
	}
	return nv, nil
}

// items converts the visible positional fields.
func (dc *declConverter) items(fields []decl.Named[decl.Type]) ([]schema.Format, error) {
	out := make([]schema.Format, 0, len(fields))
	for _, f := range fields {
		attrs := attr.Classify(f, dc.loc)
		if !visible(f, attrs) {
			continue
		}
		_, at := source.Of(dc.loc, f.ID)
		format, err := dc.typeOf(f.Value, at)
		if err != nil {
			return nil, err
		}
		out = append(out, format)
	}
	return out, nil
}

// fields converts the visible named fields.
func (dc *declConverter) fields(fields []decl.Named[decl.Type]) ([]schema.NamedField, error) {
	out := make([]schema.NamedField, 0, len(fields))
	for _, f := range fields {
		nf, ok, err := dc.field(f)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, nf)
		}
	}
	return out, nil
}

func (dc *declConverter) field(f decl.Named[decl.Type]) (schema.NamedField, bool, error) {
	attrs := attr.Classify(f, dc.loc)
	if !visible(f, attrs) {
		return schema.NamedField{}, false, nil
	}
	id, idLoc := source.Of(dc.loc, f.ID)
	format, err := dc.typeOf(f.Value, idLoc)
	if err != nil {
		return schema.NamedField{}, false, err
	}
	return schema.NamedField{ID: id, IDLocation: idLoc, Attrs: attrs, Format: format}, true, nil
}

func (dc *declConverter) function(n decl.Named[decl.Function]) (*schema.FunctionDeclaration, error) {
	id, idLoc := source.Of(dc.loc, n.ID)
	fn := schema.FunctionFormat{
		IsAsync:    n.Value.IsAsync,
		Params:     make([]schema.FunctionParameter, 0, len(n.Value.Params)),
		ReturnType: schema.MakePrimitive(schema.KindUnit),
	}
	if n.Value.Self != nil {
		self, err := dc.param(*n.Value.Self)
		if err != nil {
			return nil, err
		}
		fn.Self = &self
	}
	for _, p := range n.Value.Params {
		param, err := dc.param(p)
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, param)
	}
	if n.Value.Return != nil {
		ret, err := dc.typeOf(*n.Value.Return, idLoc)
		if err != nil {
			return nil, err
		}
		fn.ReturnType = ret
	}
	return &schema.FunctionDeclaration{ID: id, IDLocation: idLoc, Attrs: attr.Classify(n, dc.loc), Function: fn}, nil
}

// param keeps every parameter; skip flags only apply to data fields.
func (dc *declConverter) param(p decl.Named[decl.Type]) (schema.FunctionParameter, error) {
	id, idLoc := source.Of(dc.loc, p.ID)
	format, err := dc.typeOf(p.Value, idLoc)
	if err != nil {
		return schema.FunctionParameter{}, err
	}
	return schema.FunctionParameter{ID: id, IDLocation: idLoc, Attrs: attr.Classify(p, dc.loc), Format: format}, nil
}

func (dc *declConverter) degraded(at source.LocationID, msg string) {
	dc.bag.Add(diag.New(diag.SevInfo, diag.CnvDegradedContainer, at, msg).WithSubject(dc.name))
}

// visible reports whether a field reaches the wire: not skipped and not a
// zero-sized marker.
func visible(f decl.Named[decl.Type], attrs schema.Attrs) bool {
	if attr.Skipped(attrs) {
		return false
	}
	return !(f.Value.Kind == decl.TypePath && f.Value.Last() == "PhantomData")
}
