package merge

import (
	"context"
	"fmt"

	"github.com/colelawrence/derive-codegen/internal/attr"
	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/trace"
)

type Options struct {
	// RequireComplete turns any Incomplete left after merging into an error.
	RequireComplete bool
}

// IncompleteError lists declarations that still hold Incomplete shapes.
type IncompleteError struct {
	Names []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("declarations still incomplete after merge: %v", e.Names)
}

// Apply merges traced shapes into input, in place. Declarations are matched
// by serialize name; a declaration without a traced counterpart is kept as
// is. Mismatches are returned as *MismatchError and stop the merge.
// Informational findings go to r, which may be nil.
func Apply(ctx context.Context, input *schema.Input, traced Traced, opts Options, r diag.Reporter) error {
	if r == nil {
		r = diag.NopReporter{}
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "merge", trace.CurrentSpan(ctx).SpanID)
	merged := 0
	defer func() { span.End(fmt.Sprintf("merged=%d", merged)) }()

	used := make(map[string]bool, len(traced))
	var incomplete []string
	for i := range input.Declarations {
		d := &input.Declarations[i]
		name := attr.SerializeName(d.ID, d.Attrs)
		if t, ok := traced[name]; ok {
			used[name] = true
			if err := mergeContainer(d.ID, &d.ContainerKind, t); err != nil {
				return err
			}
			merged++
		}
		if !containerHasIncomplete(d.ContainerKind) {
			continue
		}
		incomplete = append(incomplete, d.ID)
		if !opts.RequireComplete {
			diag.ReportWarning(r, diag.MrgStillIncomplete, d.IDLocation,
				"shape still contains Incomplete positions").WithSubject(d.ID).Emit()
		}
	}
	for _, name := range traced.Names() {
		if !used[name] {
			diag.ReportWarning(r, diag.MrgUnknownTraced, "",
				fmt.Sprintf("traced shape %q matches no declaration", name)).WithSubject(name).Emit()
		}
	}
	if opts.RequireComplete && len(incomplete) > 0 {
		return &IncompleteError{Names: incomplete}
	}
	return nil
}
