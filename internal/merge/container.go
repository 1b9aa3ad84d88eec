package merge

import (
	"fmt"
	"strconv"

	"github.com/colelawrence/derive-codegen/internal/attr"
	"github.com/colelawrence/derive-codegen/internal/schema"
)

// MergeContainer applies ReplaceIncomplete to every position of target.
// Struct fields are matched by serialize name, enum variants by index.
func MergeContainer(target *schema.ContainerFormat, traced schema.ContainerFormat) error {
	return mergeContainer("$", target, traced)
}

func mergeContainer(path string, target *schema.ContainerFormat, traced schema.ContainerFormat) error {
	if target.Kind != traced.Kind {
		return &MismatchError{Path: path, Reason: fmt.Sprintf("declared %s, traced %s", target.Kind, traced.Kind)}
	}
	switch target.Kind {
	case schema.ContainerUnitStruct:
		return nil
	case schema.ContainerNewTypeStruct:
		return replacePtr(path+".0", target.Inner, traced.Inner)
	case schema.ContainerTupleStruct:
		return mergeItems(path, target.Tuple, traced.Tuple)
	case schema.ContainerStruct:
		return mergeFields(path, target.Fields, traced.Fields)
	case schema.ContainerEnum:
		for i := range target.Variants {
			v := &target.Variants[i]
			if i >= len(traced.Variants) {
				return &MismatchError{Path: path + "." + v.ID, Reason: fmt.Sprintf("no traced variant at index %d", i)}
			}
			if err := mergeVariant(path+"."+v.ID, &v.VariantFormat, traced.Variants[i].VariantFormat); err != nil {
				return err
			}
		}
		return nil
	default:
		return &MismatchError{Path: path, Reason: fmt.Sprintf("unknown container kind %s", target.Kind)}
	}
}

func mergeVariant(path string, target *schema.VariantFormat, traced schema.VariantFormat) error {
	if target.Kind != traced.Kind {
		return &MismatchError{Path: path, Reason: fmt.Sprintf("declared %s variant, traced %s", target.Kind, traced.Kind)}
	}
	switch target.Kind {
	case schema.VariantUnit:
		return nil
	case schema.VariantNewType:
		return replacePtr(path+".0", target.Inner, traced.Inner)
	case schema.VariantTuple:
		return mergeItems(path, target.Tuple, traced.Tuple)
	case schema.VariantStruct:
		return mergeFields(path, target.Fields, traced.Fields)
	default:
		return &MismatchError{Path: path, Reason: fmt.Sprintf("unknown variant kind %s", target.Kind)}
	}
}

func replacePtr(path string, target, traced *schema.Format) error {
	if target == nil || traced == nil {
		return &MismatchError{Path: path, Reason: "missing newtype payload"}
	}
	return replace(path, target, *traced)
}

// mergeItems zips positional members; extra members on either side are
// left untouched.
func mergeItems(path string, target, traced []schema.Format) error {
	for i := range min(len(target), len(traced)) {
		if err := replace(path+"."+strconv.Itoa(i), &target[i], traced[i]); err != nil {
			return err
		}
	}
	return nil
}

// mergeFields looks every declared field up in the traced fields, whose ids
// are wire names.
func mergeFields(path string, target, traced []schema.NamedField) error {
	byName := make(map[string]schema.Format, len(traced))
	for _, f := range traced {
		byName[f.ID] = f.Format
	}
	for i := range target {
		f := &target[i]
		name := attr.SerializeName(f.ID, f.Attrs)
		replacement, ok := byName[name]
		if !ok {
			return &MismatchError{Path: path + "." + name, Reason: "field missing from traced shape"}
		}
		if err := replace(path+"."+name, &f.Format, replacement); err != nil {
			return err
		}
	}
	return nil
}

// containerHasIncomplete reports any Incomplete left anywhere in c.
func containerHasIncomplete(c schema.ContainerFormat) bool {
	check := func(list []schema.Format) bool {
		for _, f := range list {
			if f.HasIncomplete() {
				return true
			}
		}
		return false
	}
	checkFields := func(list []schema.NamedField) bool {
		for _, f := range list {
			if f.Format.HasIncomplete() {
				return true
			}
		}
		return false
	}
	switch c.Kind {
	case schema.ContainerNewTypeStruct:
		return c.Inner != nil && c.Inner.HasIncomplete()
	case schema.ContainerTupleStruct:
		return check(c.Tuple)
	case schema.ContainerStruct:
		return checkFields(c.Fields)
	case schema.ContainerEnum:
		for _, v := range c.Variants {
			vf := v.VariantFormat
			if (vf.Inner != nil && vf.Inner.HasIncomplete()) || check(vf.Tuple) || checkFields(vf.Fields) {
				return true
			}
		}
	}
	return false
}
