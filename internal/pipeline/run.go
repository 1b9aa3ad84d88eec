package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/colelawrence/derive-codegen/internal/config"
	"github.com/colelawrence/derive-codegen/internal/convert"
	"github.com/colelawrence/derive-codegen/internal/dcache"
	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/generator"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/selector"
	"github.com/colelawrence/derive-codegen/internal/trace"
)

// Target is one generator to run.
type Target struct {
	Name      string
	Command   generator.Command
	OutputDir string
	Tags      []string
	Filter    string
	Cache     bool
}

// Request configures a full run.
type Request struct {
	PrepareRequest
	Targets     []Target
	Destination Destination
	// Stdout receives printed files; defaults to os.Stdout.
	Stdout io.Writer
	// GeneratorStderr mirrors generator stderr while it runs.
	GeneratorStderr io.Writer
	// Cache is consulted for targets with Cache set; nil disables caching.
	Cache *dcache.Cache
}

// TargetResult is what one generator produced.
type TargetResult struct {
	Name    string
	Input   schema.Input
	Output  *schema.Output
	Cached  bool
	Written *generator.WriteSummary
	Check   *generator.CheckReport
}

// Result is everything a run produced.
type Result struct {
	*Prepared
	Targets []TargetResult
}

// Drifted reports whether a check run found out of date files.
func (r *Result) Drifted() bool {
	if r == nil {
		return false
	}
	for _, t := range r.Targets {
		if t.Check != nil && !t.Check.Clean() {
			return true
		}
	}
	return false
}

// Run prepares the Input once and runs every target in order. The first
// fatal generator failure stops the run; files of that target are not
// written.
func Run(ctx context.Context, req *Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return nil, fmt.Errorf("missing run request")
	}
	for _, t := range req.Targets {
		emit(req.Progress, Event{Target: t.Name, Stage: StageSelect, Status: StatusQueued})
	}

	prepared, err := Prepare(ctx, &req.PrepareRequest)
	res := &Result{Prepared: prepared}
	if err != nil {
		failTargets(req.Progress, req.Targets, err)
		return res, err
	}

	for i, t := range req.Targets {
		if err := ctx.Err(); err != nil {
			failTargets(req.Progress, req.Targets[i:], err)
			return res, err
		}
		tr, err := runTarget(ctx, req, prepared, t)
		res.Targets = append(res.Targets, tr)
		if err != nil {
			failTargets(req.Progress, req.Targets[i+1:], err)
			return res, fmt.Errorf("generator %s: %w", t.Name, err)
		}
	}
	return res, nil
}

func failTargets(sink ProgressSink, targets []Target, err error) {
	for _, t := range targets {
		emit(sink, Event{Target: t.Name, Stage: StageGenerate, Status: StatusError, Err: err})
	}
}

func runTarget(ctx context.Context, req *Request, p *Prepared, t Target) (TargetResult, error) {
	tr := TargetResult{Name: t.Name}
	reporter := diag.BagReporter{Bag: p.Bag}
	ctx, span := trace.Start(ctx, trace.ScopePhase, "target:"+t.Name)
	defer span.End("")

	emit(req.Progress, Event{Target: t.Name, Stage: StageSelect, Status: StatusWorking})
	sel, err := selector.New(t.Tags, t.Filter)
	if err != nil {
		reporter.Report(diag.NewError(diag.CfgBadFilter, "", err.Error()).WithSubject(t.Name))
		return tr, err
	}
	input, err := sel.Apply(p.Input, p.Synthesized)
	if err != nil {
		reporter.Report(diag.NewError(diag.CfgBadFilter, "", err.Error()).WithSubject(t.Name))
		return tr, err
	}
	tr.Input = input

	emit(req.Progress, Event{Target: t.Name, Stage: StageGenerate, Status: StatusWorking})
	done := p.Timer.Track("generate:" + t.Name)
	start := time.Now()
	out, cached, err := exchange(ctx, req, t, input, reporter)
	p.Timings.Add(StageGenerate, time.Since(start))
	if err != nil {
		done("failed")
		reportGeneratorFailure(reporter, t.Name, err)
		emit(req.Progress, Event{Target: t.Name, Stage: StageGenerate, Status: StatusError, Err: err})
		return tr, err
	}
	done(fmt.Sprintf("files=%d", len(out.Files)))
	tr.Output, tr.Cached = out, cached
	if cached {
		emit(req.Progress, Event{Target: t.Name, Stage: StageGenerate, Status: StatusCached})
	}
	generator.Report(reporter, t.Name, out)

	emit(req.Progress, Event{Target: t.Name, Stage: StageWrite, Status: StatusWorking})
	start = time.Now()
	err = deliver(req, t, out, &tr, reporter)
	p.Timings.Add(StageWrite, time.Since(start))
	if err != nil {
		var unsafe *generator.UnsafePathError
		if errors.As(err, &unsafe) {
			reporter.Report(diag.NewError(diag.GenUnsafePath, "", err.Error()).WithSubject(t.Name))
		} else {
			reporter.Report(diag.NewError(diag.IOWriteFile, "", err.Error()).WithSubject(t.Name))
		}
		emit(req.Progress, Event{Target: t.Name, Stage: StageWrite, Status: StatusError, Err: err})
		return tr, err
	}
	emit(req.Progress, Event{Target: t.Name, Stage: StageWrite, Status: StatusDone})
	return tr, nil
}

func reportGeneratorFailure(r diag.Reporter, name string, err error) {
	var perr *generator.ProcessError
	var proto *generator.ProtocolError
	switch {
	case errors.As(err, &perr):
		b := diag.ReportError(r, diag.GenProcessFailed, "", perr.Error()).WithSubject(name)
		if out := strings.TrimSpace(perr.Stdout); out != "" {
			b.WithNote("", "stdout: "+out)
		}
		b.Emit()
	case errors.As(err, &proto):
		diag.ReportError(r, diag.GenProtocol, "", proto.Error()).WithSubject(name).Emit()
	}
}

// exchange runs the generator, or answers from the cache. A failed cache
// store is a warning; the output is still used.
func exchange(ctx context.Context, req *Request, t Target, input schema.Input, r diag.Reporter) (*schema.Output, bool, error) {
	useCache := t.Cache && req.Cache != nil
	var key dcache.Digest
	if useCache {
		payload, err := json.Marshal(input)
		if err != nil {
			return nil, false, fmt.Errorf("encode input: %w", err)
		}
		key = cacheKey(t, payload)
		var hit dcache.Payload
		if ok, err := req.Cache.Get(key, &hit); err == nil && ok {
			return hit.Output(), true, nil
		}
	}

	inv := generator.NewInvocation(t.Command)
	inv.Stderr = req.GeneratorStderr
	out, err := inv.Run(ctx, input)
	if err != nil {
		return nil, false, err
	}
	if useCache && len(out.Errors) == 0 {
		if err := req.Cache.Put(key, dcache.FromOutput(t.Name, out)); err != nil {
			trace.Point(ctx, trace.ScopePhase, "cache_store_failed", err.Error())
			r.Report(diag.NewWarning(diag.IOCacheStore, "", err.Error()).WithSubject(t.Name))
		}
	}
	return out, false, nil
}

func cacheKey(t Target, input []byte) dcache.Digest {
	cmd := t.Command
	return dcache.KeyOf(
		[]byte(t.Name),
		[]byte(cmd.Name),
		[]byte(strings.Join(cmd.Args, "\x00")),
		[]byte(cmd.Mode.String()),
		[]byte(cmd.Dir),
		[]byte(strings.Join(cmd.Env, "\x00")),
		input,
	)
}

func deliver(req *Request, t Target, out *schema.Output, tr *TargetResult, r diag.Reporter) error {
	switch req.Destination {
	case DestPrint:
		w := req.Stdout
		if w == nil {
			w = os.Stdout
		}
		return generator.Print(w, out.Files)
	case DestCheck:
		report, err := generator.Check(t.OutputDir, out.Files)
		if err != nil {
			return err
		}
		tr.Check = report
		report.ReportTo(r, t.Name)
		return nil
	default:
		summary, err := generator.Write(t.OutputDir, out.Files)
		tr.Written = summary
		return err
	}
}

// TargetsFromManifest builds targets for the named generators, all of them
// when names is empty. Check runs skip generators with check = false unless
// they are named explicitly.
func TargetsFromManifest(m *config.Manifest, names []string, dest Destination) ([]Target, error) {
	var gens []config.Generator
	if len(names) == 0 {
		for _, g := range m.Generators {
			if dest == DestCheck && !g.Checked() {
				continue
			}
			gens = append(gens, g)
		}
	} else {
		for _, name := range names {
			g, err := m.Generator(name)
			if err != nil {
				return nil, err
			}
			gens = append(gens, g)
		}
	}
	targets := make([]Target, 0, len(gens))
	for _, g := range gens {
		mode, err := generator.ParseMode(g.Mode)
		if err != nil {
			return nil, fmt.Errorf("generator %s: %w", g.Name, err)
		}
		targets = append(targets, Target{
			Name: g.Name,
			Command: generator.Command{
				Name: g.Command[0],
				Args: g.Command[1:],
				Dir:  g.Dir,
				Env:  m.Environment(g),
				Mode: mode,
			},
			OutputDir: g.OutputDir(),
			Tags:      g.Tags,
			Filter:    g.Filter,
			Cache:     g.Cache,
		})
	}
	return targets, nil
}

// PrepareFromManifest maps the [input] section onto a PrepareRequest.
func PrepareFromManifest(m *config.Manifest) PrepareRequest {
	return PrepareRequest{
		Declarations: m.Input.Declarations,
		Traced:       m.Input.Traced,
		Convert: convert.Options{
			Jobs:           m.Input.Jobs,
			Strict:         m.Input.Strict,
			SourceRoot:     m.Input.SourceRoot,
			MaxDiagnostics: m.Input.MaxDiagnostics,
		},
		RequireComplete: m.Input.RequireComplete,
	}
}
