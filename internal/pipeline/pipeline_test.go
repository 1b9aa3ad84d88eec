package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/colelawrence/derive-codegen/internal/convert"
	"github.com/colelawrence/derive-codegen/internal/dcache"
	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/generator"
	"github.com/colelawrence/derive-codegen/internal/trace"
)

const (
	helperEnv     = "DERIVE_CODEGEN_PIPELINE_GENERATOR"
	helperCounter = "DERIVE_CODEGEN_PIPELINE_COUNTER"
)

func TestMain(m *testing.M) {
	if behavior := os.Getenv(helperEnv); behavior != "" {
		os.Exit(fakeGenerator(behavior))
	}
	os.Exit(m.Run())
}

// fakeGenerator emits one file per declaration listing its fields.
func fakeGenerator(behavior string) int {
	if path := os.Getenv(helperCounter); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = f.WriteString("x")
			_ = f.Close()
		}
	}
	if behavior == "fail" {
		fmt.Fprintln(os.Stderr, "generator exploded")
		return 1
	}
	var in struct {
		Declarations []struct {
			ID string `json:"id"`
		} `json:"declarations"`
		Functions []struct {
			ID string `json:"id"`
		} `json:"functions"`
	}
	data, _ := io.ReadAll(os.Stdin)
	if err := json.Unmarshal(data, &in); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	var names []string
	for _, d := range in.Declarations {
		names = append(names, d.ID)
	}
	for _, f := range in.Functions {
		names = append(names, "fn "+f.ID)
	}
	out := map[string]any{
		"errors":   []any{},
		"warnings": []any{},
		"files":    []map[string]string{{"path": "index.ts", "source": strings.Join(names, "\n") + "\n"}},
	}
	if behavior == "escape" {
		out["files"] = []map[string]string{{"path": "../escape.ts", "source": "x"}}
	}
	_ = json.NewEncoder(os.Stdout).Encode(out)
	return 0
}

const declarations = `[
	{"file": "src/lib.rs", "line": 1, "item": {"Container": {
		"id": "Job",
		"codegen_attrs": [[{"$": "tags"}, {"$": "ts"}]],
		"$": {"Struct": [{"id": "wait", "$": "std::time::Duration"}]}
	}}},
	{"file": "src/lib.rs", "line": 8, "item": {"Container": {
		"id": "Internal",
		"codegen_attrs": [[{"$": "tags"}, {"$": "rs"}]],
		"$": "UnitStruct"
	}}},
	{"file": "src/lib.rs", "line": 12, "item": {"Function": {
		"id": "submit",
		"codegen_attrs": [[{"$": "tags"}, {"$": "ts"}]],
		"$": {"params": [{"id": "job", "$": "Job"}]}
	}}}
]`

type fixture struct {
	dir   string
	decls string
	out   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	decls := filepath.Join(dir, "decls.json")
	if err := os.WriteFile(decls, []byte(declarations), 0o600); err != nil {
		t.Fatal(err)
	}
	return fixture{dir: dir, decls: decls, out: filepath.Join(dir, "out")}
}

func (f fixture) request(behavior string, dest Destination) *Request {
	return &Request{
		PrepareRequest: PrepareRequest{
			Declarations: []string{f.decls},
			Convert:      convert.Options{SourceRoot: f.dir},
		},
		Targets: []Target{{
			Name: "ts",
			Command: generator.Command{
				Name: os.Args[0],
				Args: []string{"-test.run=^$"},
				Env:  []string{helperEnv + "=" + behavior},
			},
			OutputDir: f.out,
			Tags:      []string{"ts"},
		}},
		Destination: dest,
	}
}

func TestRunWritesSelectedDeclarations(t *testing.T) {
	f := newFixture(t)
	res, err := Run(context.Background(), f.request("ok", DestWrite))
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, diag.FormatShort(res.Bag.Items(), true))
	}
	got, err := os.ReadFile(filepath.Join(f.out, "index.ts"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("Job\nDuration\nfn submit\n", string(got)); diff != "" {
		t.Errorf("generated file mismatch (-want +got):\n%s", diff)
	}
	if len(res.Targets) != 1 || res.Targets[0].Written == nil || len(res.Targets[0].Written.Files) != 1 {
		t.Errorf("targets = %+v", res.Targets)
	}
	if len(res.Input.Declarations) != 3 {
		t.Errorf("prepared declarations = %d, want Job, Internal and Duration", len(res.Input.Declarations))
	}
	if !res.Timings.Has(StageConvert) || !res.Timings.Has(StageGenerate) {
		t.Error("missing stage timings")
	}
}

func TestRunGeneratorFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	res, err := Run(context.Background(), f.request("fail", DestWrite))
	var perr *generator.ProcessError
	if !errors.As(err, &perr) || perr.ExitCode != 1 {
		t.Fatalf("err = %v, want *ProcessError with exit 1", err)
	}
	if _, statErr := os.Stat(f.out); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("output directory exists after a failed run: %v", statErr)
	}
	if res.Bag.Count(diag.SevError) != 1 || res.Bag.Items()[0].Code != diag.GenProcessFailed {
		t.Errorf("diagnostics:\n%s", diag.FormatShort(res.Bag.Items(), true))
	}
}

func TestRunRejectsEscapingPaths(t *testing.T) {
	f := newFixture(t)
	_, err := Run(context.Background(), f.request("escape", DestWrite))
	var uerr *generator.UnsafePathError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want *UnsafePathError", err)
	}
	if _, statErr := os.Stat(filepath.Join(f.dir, "escape.ts")); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("escaping file was written")
	}
}

func TestRunPrint(t *testing.T) {
	f := newFixture(t)
	req := f.request("ok", DestPrint)
	var buf bytes.Buffer
	req.Stdout = &buf
	if _, err := Run(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "// index.ts\nJob\n") {
		t.Errorf("printed %q", buf.String())
	}
}

func TestRunCheck(t *testing.T) {
	f := newFixture(t)
	res, err := Run(context.Background(), f.request("ok", DestCheck))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Drifted() {
		t.Error("expected drift before anything was written")
	}
	if _, err := Run(context.Background(), f.request("ok", DestWrite)); err != nil {
		t.Fatal(err)
	}
	res, err = Run(context.Background(), f.request("ok", DestCheck))
	if err != nil {
		t.Fatal(err)
	}
	if res.Drifted() {
		t.Errorf("unexpected drift: %+v", res.Targets[0].Check.Drifted)
	}
}

func TestRunUsesCache(t *testing.T) {
	f := newFixture(t)
	cache, err := dcache.Open(filepath.Join(f.dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	counter := filepath.Join(f.dir, "calls")
	run := func() *Result {
		req := f.request("ok", DestWrite)
		req.Cache = cache
		req.Targets[0].Cache = true
		req.Targets[0].Command.Env = append(req.Targets[0].Command.Env, helperCounter+"="+counter)
		res, err := Run(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		return res
	}
	first, second := run(), run()
	if first.Targets[0].Cached || !second.Targets[0].Cached {
		t.Errorf("cached = %v/%v, want false/true", first.Targets[0].Cached, second.Targets[0].Cached)
	}
	calls, _ := os.ReadFile(counter)
	if string(calls) != "x" {
		t.Errorf("generator ran %d times, want once", len(calls))
	}
}

func TestRunWarnsWhenCacheStoreFails(t *testing.T) {
	f := newFixture(t)
	cacheDir := filepath.Join(f.dir, "cache")
	cache, err := dcache.Open(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	// a regular file where the outputs directory belongs makes every store fail
	if err := os.WriteFile(filepath.Join(cacheDir, "outputs"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	req := f.request("ok", DestWrite)
	req.Cache = cache
	req.Targets[0].Cache = true
	ring := trace.NewRingTracer(64, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)

	res, err := Run(ctx, req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.out, "index.ts")); err != nil {
		t.Errorf("output not written after a failed cache store: %v", err)
	}
	var warned bool
	for _, d := range res.Bag.Items() {
		if d.Code == diag.IOCacheStore && d.Severity == diag.SevWarning {
			warned = true
		}
	}
	if !warned {
		t.Errorf("no cache store warning in:\n%s", diag.FormatShort(res.Bag.Items(), true))
	}
	var traced bool
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindPoint && ev.Name == "cache_store_failed" {
			traced = true
		}
	}
	if !traced {
		t.Error("cache_store_failed trace point missing")
	}
}

func TestRunProgressEvents(t *testing.T) {
	f := newFixture(t)
	req := f.request("ok", DestWrite)
	events := make(chan Event, 64)
	req.Progress = ChannelSink{Ch: events}
	if _, err := Run(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	close(events)
	var last Event
	for ev := range events {
		if ev.Target == "ts" {
			last = ev
		}
	}
	if last.Stage != StageWrite || last.Status != StatusDone {
		t.Errorf("last target event = %+v", last)
	}
}

func TestPrepareReportsUnreadableDocument(t *testing.T) {
	p, err := Prepare(context.Background(), &PrepareRequest{Declarations: []string{filepath.Join(t.TempDir(), "nope.json")}})
	if err == nil {
		t.Fatal("expected an error")
	}
	items := p.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.IOReadDeclarations {
		t.Errorf("diagnostics:\n%s", diag.FormatShort(items, false))
	}
}

func TestParseDestination(t *testing.T) {
	for in, want := range map[string]Destination{"": DestWrite, "print": DestPrint, "CHECK": DestCheck} {
		got, err := ParseDestination(in)
		if err != nil || got != want {
			t.Errorf("ParseDestination(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDestination("s3"); err == nil {
		t.Error("expected error")
	}
}
