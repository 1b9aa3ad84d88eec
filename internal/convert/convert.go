package convert

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/colelawrence/derive-codegen/internal/builtin"
	"github.com/colelawrence/derive-codegen/internal/decl"
	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
	"github.com/colelawrence/derive-codegen/internal/trace"
)

// Converter holds the settings of one conversion run. It is stateless
// between calls to Convert.
type Converter struct {
	opts Options
}

func New(opts Options) *Converter {
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = defaultMaxDiagnostics
	}
	return &Converter{opts: opts}
}

// slot is the result of one declaration. Indices are unique per goroutine,
// so slots need no lock.
type slot struct {
	container *schema.InputDeclaration
	function  *schema.FunctionDeclaration
	bag       *diag.Bag
}

// Convert builds the generator input from decls. Declarations keep their
// input order; synthesized built-ins and extras follow, sorted by name.
//
// The returned error is non-nil for cancellation, unreadable source files,
// registry collisions and, with Strict, any error diagnostic. Other problems
// are reported in Result.Bag.
func (c *Converter) Convert(ctx context.Context, decls []decl.Declaration) (*Result, error) {
	tracer := trace.FromContext(ctx)
	phase := trace.Begin(tracer, trace.ScopePhase, "convert", trace.CurrentSpan(ctx).SpanID)
	defer phase.End(fmt.Sprintf("decls=%d", len(decls)))

	files, err := c.loadFiles(ctx, decls)
	if err != nil {
		return nil, err
	}

	reg := builtin.NewRegistry()
	resolver := builtin.NewResolver(reg)
	slots := make([]slot, len(decls))

	jobs := c.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if len(decls) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, len(decls)))
		for i := range decls {
			g.Go(func(i int) func() error {
				return func() error {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					return c.convertOne(gctx, &decls[i], files, resolver, &slots[i], phase.ID())
				}
			}(i))
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Bag:      diag.NewBag(c.opts.MaxDiagnostics),
		Registry: reg,
		Files:    files,
	}
	c.reportMissing(res.Bag, decls, files)
	for i := range slots {
		s := &slots[i]
		res.Bag.Merge(s.bag)
		switch {
		case s.container != nil:
			res.Input.Declarations = append(res.Input.Declarations, *s.container)
		case s.function != nil:
			res.Input.Functions = append(res.Input.Functions, *s.function)
		default:
			res.Dropped = append(res.Dropped, decls[i].Name())
		}
	}
	res.Input.Declarations = append(res.Input.Declarations, reg.Declarations()...)
	reportDuplicates(res.Bag, res.Input.Declarations)

	if c.opts.Strict && res.Bag.HasErrors() {
		return res, strictError(res.Bag)
	}
	return res, nil
}

func (c *Converter) loadFiles(ctx context.Context, decls []decl.Declaration) (*source.FileSet, error) {
	files := source.NewFileSetWithBase(c.opts.SourceRoot)
	paths := make([]string, 0, len(decls))
	for i := range decls {
		paths = append(paths, decls[i].File)
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "load_files", trace.CurrentSpan(ctx).SpanID)
	err := files.LoadAll(ctx, paths, c.opts.Jobs)
	span.End(fmt.Sprintf("files=%d", files.Len()))
	if err != nil {
		return nil, fmt.Errorf("load source files: %w", err)
	}
	return files, nil
}

func (c *Converter) convertOne(ctx context.Context, d *decl.Declaration, files *source.FileSet, resolver *builtin.Resolver, out *slot, parent uint64) error {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDecl, "convert_decl", parent)
	span.WithExtra("decl", d.Name())
	defer span.End("")

	src, _ := files.Get(d.File)
	dc := &declConverter{
		name:     d.Name(),
		loc:      source.NewLocator(d.File, d.Line, src),
		resolver: resolver,
		bag:      diag.NewBag(c.opts.MaxDiagnostics),
	}
	out.bag = dc.bag

	var (
		container *schema.InputDeclaration
		function  *schema.FunctionDeclaration
		err       error
	)
	switch {
	case d.Item.Container != nil:
		container, err = dc.declaration(*d.Item.Container)
	case d.Item.Function != nil:
		function, err = dc.function(*d.Item.Function)
	}
	if err == nil {
		for _, extra := range d.Extras {
			if err = dc.extra(extra); err != nil {
				break
			}
		}
	}

	var collision *builtin.CollisionError
	switch {
	case errors.As(err, &collision):
		return fmt.Errorf("%s: %w", d.Name(), err)
	case err != nil:
		dc.report(err)
		return nil
	}
	out.container, out.function = container, function
	return nil
}

// reportMissing warns once per source file that could not be found and that
// some declaration needs for line numbers.
func (c *Converter) reportMissing(bag *diag.Bag, decls []decl.Declaration, files *source.FileSet) {
	needed := make(map[string]bool)
	for i := range decls {
		if decls[i].Line != nil {
			continue
		}
		if f, ok := files.Get(decls[i].File); ok && f.Missing() {
			needed[f.Path] = true
		}
	}
	paths := make([]string, 0, len(needed))
	for p := range needed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, path := range paths {
		bag.Add(diag.NewWarning(diag.CnvMissingSource, "",
			fmt.Sprintf("%s not found under %s; locations fall back to 0:0", path, files.BaseDir())))
	}
}

func reportDuplicates(bag *diag.Bag, decls []schema.InputDeclaration) {
	first := make(map[string]source.LocationID, len(decls))
	for _, d := range decls {
		if loc, seen := first[d.ID]; seen {
			bag.Add(diag.NewWarning(diag.CnvDuplicateName, d.IDLocation,
				fmt.Sprintf("%q is declared more than once", d.ID)).
				WithSubject(d.ID).
				WithNote(loc, "first declared here"))
			continue
		}
		first[d.ID] = d.IDLocation
	}
}
