// Package pipeline runs the whole flow: load declaration documents, convert
// them, merge traced shapes, then hand the result to each generator target.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/colelawrence/derive-codegen/internal/builtin"
	"github.com/colelawrence/derive-codegen/internal/convert"
	"github.com/colelawrence/derive-codegen/internal/decl"
	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/merge"
	"github.com/colelawrence/derive-codegen/internal/observ"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

// PrepareRequest configures the generator independent half of a run.
type PrepareRequest struct {
	Declarations    []string // declaration documents, JSON or YAML
	Traced          string   // optional traced registry
	Convert         convert.Options
	RequireComplete bool
	Progress        ProgressSink
}

// Prepared is a finished Input with everything learned while building it.
type Prepared struct {
	Input    schema.Input
	Bag      *diag.Bag
	Files    *source.FileSet
	Registry *builtin.Registry
	Timings  Timings
	Timer    *observ.Timer
}

// Synthesized reports whether name was produced by the converter.
func (p *Prepared) Synthesized(name string) bool {
	if p == nil || p.Registry == nil {
		return false
	}
	_, ok := p.Registry.Lookup(name)
	return ok
}

// Prepare loads, converts and merges. The returned Prepared is non-nil
// whenever diagnostics were collected, even together with an error.
func Prepare(ctx context.Context, req *PrepareRequest) (*Prepared, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return nil, fmt.Errorf("missing prepare request")
	}
	if len(req.Declarations) == 0 {
		return nil, fmt.Errorf("no declaration documents given")
	}
	limit := req.Convert.MaxDiagnostics
	if limit <= 0 {
		limit = 512
	}
	p := &Prepared{Bag: diag.NewBag(limit), Timer: observ.NewTimer()}
	reporter := diag.BagReporter{Bag: p.Bag}

	decls, err := stage(p, req.Progress, StageLoad, func() ([]decl.Declaration, error) {
		return loadDeclarations(ctx, req.Declarations, req.Convert.Jobs, reporter)
	})
	if err != nil {
		return p, err
	}

	conv, err := stage(p, req.Progress, StageConvert, func() (*convert.Result, error) {
		return convert.New(req.Convert).Convert(ctx, decls)
	})
	if conv != nil {
		p.Bag.Merge(conv.Bag)
		p.Input, p.Files, p.Registry = conv.Input, conv.Files, conv.Registry
	}
	if err != nil {
		var collision *builtin.CollisionError
		if errors.As(err, &collision) {
			reporter.Report(diag.NewError(diag.CnvBuiltinCollision, "", collision.Error()).WithSubject(collision.Name))
		}
		return p, err
	}

	if req.Traced == "" && !req.RequireComplete {
		return p, nil
	}
	_, err = stage(p, req.Progress, StageMerge, func() (struct{}, error) {
		var traced merge.Traced
		if req.Traced != "" {
			t, err := merge.LoadTraced(req.Traced)
			if err != nil {
				reporter.Report(diag.NewError(diag.IOLoadFileError, "", err.Error()).WithSubject(req.Traced))
				return struct{}{}, err
			}
			traced = t
		}
		err := merge.Apply(ctx, &p.Input, traced, merge.Options{RequireComplete: req.RequireComplete}, reporter)
		var mismatch *merge.MismatchError
		if errors.As(err, &mismatch) {
			reporter.Report(diag.NewError(diag.MrgMismatch, "", mismatch.Error()))
		}
		return struct{}{}, err
	})
	return p, err
}

func stage[T any](p *Prepared, sink ProgressSink, s Stage, fn func() (T, error)) (T, error) {
	emit(sink, Event{Stage: s, Status: StatusWorking})
	done := p.Timer.Track(string(s))
	start := time.Now()
	out, err := fn()
	elapsed := time.Since(start)
	p.Timings.Add(s, elapsed)
	if err != nil {
		done("failed")
		emit(sink, Event{Stage: s, Status: StatusError, Err: err, Elapsed: elapsed})
		return out, err
	}
	done("")
	emit(sink, Event{Stage: s, Status: StatusDone, Elapsed: elapsed})
	return out, nil
}

// loadDeclarations reads every document in parallel and concatenates them
// in argument order. Read failures are reported after all loads finish.
func loadDeclarations(ctx context.Context, paths []string, jobs int, r diag.Reporter) ([]decl.Declaration, error) {
	parts := make([][]decl.Declaration, len(paths))
	errs := make([]error, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parts[i], errs[i] = decl.Load(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		r.Report(diag.NewError(diag.IOReadDeclarations, "", err.Error()).WithSubject(paths[i]))
		if first == nil {
			first = fmt.Errorf("read declarations: %w", err)
		}
	}
	if first != nil {
		return nil, first
	}
	var out []decl.Declaration
	for _, part := range parts {
		out = append(out, part...)
	}
	return out, nil
}
