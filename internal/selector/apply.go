package selector

import (
	"github.com/colelawrence/derive-codegen/internal/schema"
)

// Apply narrows a finished Input to the selection. synthesized reports
// declarations that were produced by the converter rather than extracted;
// those are kept exactly when a kept declaration reaches them. Order is
// preserved.
func (s *Selection) Apply(in schema.Input, synthesized func(name string) bool) (schema.Input, error) {
	if synthesized == nil {
		synthesized = func(string) bool { return false }
	}
	keep := make(map[string]bool, len(in.Declarations))
	byName := make(map[string]schema.InputDeclaration)
	var queue []string

	for _, d := range in.Declarations {
		if synthesized(d.ID) {
			byName[d.ID] = d
			continue
		}
		ok, err := s.Match(DeclarationEnv(d))
		if err != nil {
			return schema.Input{}, err
		}
		if ok {
			keep[d.ID] = true
			queue = append(queue, references(d.ContainerKind)...)
		}
	}

	out := schema.Input{}
	for _, f := range in.Functions {
		ok, err := s.Match(FunctionEnv(f))
		if err != nil {
			return schema.Input{}, err
		}
		if ok {
			out.Functions = append(out.Functions, f)
			queue = append(queue, functionReferences(f.Function)...)
		}
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		d, ok := byName[name]
		if !ok || keep[name] {
			continue
		}
		keep[name] = true
		queue = append(queue, references(d.ContainerKind)...)
	}

	for _, d := range in.Declarations {
		if keep[d.ID] {
			out.Declarations = append(out.Declarations, d)
		}
	}
	return out, nil
}

func references(c schema.ContainerFormat) []string {
	var roots []*schema.Format
	switch c.Kind {
	case schema.ContainerNewTypeStruct:
		roots = append(roots, c.Inner)
	case schema.ContainerTupleStruct:
		for i := range c.Tuple {
			roots = append(roots, &c.Tuple[i])
		}
	case schema.ContainerStruct:
		roots = appendFields(roots, c.Fields)
	case schema.ContainerEnum:
		for _, v := range c.Variants {
			vf := v.VariantFormat
			roots = append(roots, vf.Inner)
			for i := range vf.Tuple {
				roots = append(roots, &vf.Tuple[i])
			}
			roots = appendFields(roots, vf.Fields)
		}
	}
	return typeNames(roots)
}

func functionReferences(f schema.FunctionFormat) []string {
	roots := []*schema.Format{&f.ReturnType}
	if f.Self != nil {
		roots = append(roots, &f.Self.Format)
	}
	return typeNames(appendFields(roots, f.Params))
}

func appendFields(roots []*schema.Format, fields []schema.NamedField) []*schema.Format {
	for i := range fields {
		roots = append(roots, &fields[i].Format)
	}
	return roots
}

func typeNames(roots []*schema.Format) []string {
	var out []string
	for _, r := range roots {
		if r == nil {
			continue
		}
		r.Walk(func(f *schema.Format) bool {
			if f.Kind == schema.KindTypeName {
				out = append(out, f.Ident)
			}
			return true
		})
	}
	return out
}
