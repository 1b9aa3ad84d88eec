// Package merge fills Incomplete shapes in converted declarations with
// shapes observed by tracing real values.
package merge

import (
	"fmt"
	"strconv"

	"github.com/colelawrence/derive-codegen/internal/schema"
)

// MismatchError reports a traced shape that disagrees with the declared one.
// Path locates the position, e.g. "Shape.Circle.0.radius".
type MismatchError struct {
	Path        string
	Target      schema.Format
	Replacement schema.Format
	Reason      string // set for container level mismatches
}

func (e *MismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("merge %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("merge %s: declared %s, traced %s", e.Path, e.Target, e.Replacement)
}

// ReplaceIncomplete overwrites every Incomplete position of target with the
// matching position of replacement. Terminal targets are left alone; other
// constructors must agree with the replacement and are merged member-wise.
func ReplaceIncomplete(target *schema.Format, replacement schema.Format) error {
	return replace("$", target, replacement)
}

func replace(path string, target *schema.Format, replacement schema.Format) error {
	if target.Kind == schema.KindIncomplete {
		*target = replacement.Clone()
		return nil
	}
	if target.IsTerminal() {
		return nil
	}
	mismatch := func() error {
		return &MismatchError{Path: path, Target: target.Clone(), Replacement: replacement.Clone()}
	}
	if target.Kind != replacement.Kind {
		return mismatch()
	}
	switch target.Kind {
	case schema.KindOption, schema.KindSeq:
		if target.Elem == nil || replacement.Elem == nil {
			return mismatch()
		}
		return replace(path+"."+target.Kind.String(), target.Elem, *replacement.Elem)
	case schema.KindMap:
		if target.Key == nil || target.Value == nil || replacement.Key == nil || replacement.Value == nil {
			return mismatch()
		}
		if err := replace(path+".key", target.Key, *replacement.Key); err != nil {
			return err
		}
		return replace(path+".value", target.Value, *replacement.Value)
	case schema.KindTuple:
		if len(target.Items) != len(replacement.Items) {
			return mismatch()
		}
		for i := range target.Items {
			if err := replace(path+"."+strconv.Itoa(i), &target.Items[i], replacement.Items[i]); err != nil {
				return err
			}
		}
		return nil
	case schema.KindTupleArray:
		if target.Size != replacement.Size || target.Elem == nil || replacement.Elem == nil {
			return mismatch()
		}
		return replace(path+".content", target.Elem, *replacement.Elem)
	default:
		return mismatch()
	}
}
