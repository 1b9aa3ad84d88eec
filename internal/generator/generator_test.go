package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/schema"
)

const helperEnv = "DERIVE_CODEGEN_TEST_GENERATOR"

// TestMain lets the test binary stand in for a generator process.
func TestMain(m *testing.M) {
	if behavior := os.Getenv(helperEnv); behavior != "" {
		os.Exit(helperGenerator(behavior))
	}
	os.Exit(m.Run())
}

func helperGenerator(behavior string) int {
	switch behavior {
	case "fail":
		fmt.Fprintln(os.Stderr, "boom: cannot generate")
		return 1
	case "garbage":
		fmt.Print("this is not json")
		return 0
	case "partial":
		fmt.Print(`{"files": []}`)
		return 0
	}

	var raw []byte
	if behavior == "echo-arg" {
		raw = []byte(os.Args[len(os.Args)-1])
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		raw = data
	}
	var in struct {
		Declarations []struct {
			ID         string `json:"id"`
			IDLocation string `json:"id_location"`
		} `json:"declarations"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	out := map[string]any{"errors": []any{}, "warnings": []any{}, "files": []any{}}
	files := []map[string]string{}
	warnings := []any{}
	for _, d := range in.Declarations {
		files = append(files, map[string]string{"path": "types/" + d.ID + ".ts", "source": "export type " + d.ID + " = {}\n"})
		warnings = append(warnings, map[string]any{
			"message": "no docs for " + d.ID,
			"labels":  [][2]string{{"here", d.IDLocation}},
		})
	}
	out["files"] = files
	out["warnings"] = warnings
	if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
		return 2
	}
	return 0
}

func helperCommand(behavior string, mode Mode) Command {
	return Command{
		Name: os.Args[0],
		Args: []string{"-test.run=^$"},
		Env:  []string{helperEnv + "=" + behavior},
		Mode: mode,
	}
}

func sampleInput() schema.Input {
	return schema.Input{Declarations: []schema.InputDeclaration{
		{ID: "Point", IDLocation: "L(src/lib.rs:3:12 #B40-B45)", ContainerKind: schema.MakeStruct(
			schema.NamedField{ID: "x", Format: schema.MakePrimitive(schema.KindI32)},
		)},
	}}
}

func TestRunStdin(t *testing.T) {
	inv := NewInvocation(helperCommand("echo", ModeStdin))
	out, err := inv.Run(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []schema.OutputFile{{Path: "types/Point.ts", Source: "export type Point = {}\n"}}
	if diff := cmp.Diff(want, out.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if got := inv.State(); got != StateDone {
		t.Errorf("state = %v, want %v", got, StateDone)
	}
}

func TestRunArgMode(t *testing.T) {
	out, err := Run(context.Background(), helperCommand("echo-arg", ModeArg), sampleInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Files) != 1 || out.Files[0].Path != "types/Point.ts" {
		t.Errorf("files = %+v, want one file for Point", out.Files)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	inv := NewInvocation(helperCommand("fail", ModeStdin))
	_, err := inv.Run(context.Background(), sampleInput())
	var perr *ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ProcessError", err)
	}
	if perr.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", perr.ExitCode)
	}
	if !strings.Contains(perr.Stderr, "boom") {
		t.Errorf("stderr = %q, want it to mention boom", perr.Stderr)
	}
	if !strings.Contains(err.Error(), "boom: cannot generate") {
		t.Errorf("error text %q should carry the last stderr line", err.Error())
	}
	if got := inv.State(); got != StateFailed {
		t.Errorf("state = %v, want %v", got, StateFailed)
	}
}

func TestRunProtocolErrors(t *testing.T) {
	for _, behavior := range []string{"garbage", "partial"} {
		t.Run(behavior, func(t *testing.T) {
			_, err := Run(context.Background(), helperCommand(behavior, ModeStdin), sampleInput())
			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Fatalf("err = %v, want *ProtocolError", err)
			}
		})
	}
}

func TestRunMissingBinary(t *testing.T) {
	cmd := Command{Name: "derive-codegen-no-such-generator"}
	_, err := Run(context.Background(), cmd, sampleInput())
	var perr *ProcessError
	if !errors.As(err, &perr) || perr.ExitCode != -1 {
		t.Fatalf("err = %v, want *ProcessError without exit code", err)
	}
}

func TestInvocationSingleUse(t *testing.T) {
	inv := NewInvocation(helperCommand("echo", ModeStdin))
	if _, err := inv.Run(context.Background(), sampleInput()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := inv.Run(context.Background(), sampleInput()); !errors.Is(err, ErrReused) {
		t.Errorf("second Run err = %v, want ErrReused", err)
	}
}

func TestRunCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, helperCommand("echo", ModeStdin), sampleInput()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestReportForwardsMessages(t *testing.T) {
	out, err := Run(context.Background(), helperCommand("echo", ModeStdin), sampleInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	bag := diag.NewBag(10)
	Report(diag.BagReporter{Bag: bag}, "ts", out)
	items := bag.Items()
	if len(items) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(items))
	}
	d := items[0]
	if d.Code != diag.GenReportedWarn || d.Severity != diag.SevWarning || d.Subject != "ts" {
		t.Errorf("unexpected diagnostic %+v", d)
	}
	if d.Primary != "L(src/lib.rs:3:12 #B40-B45)" {
		t.Errorf("primary = %q", d.Primary)
	}
	if len(d.Notes) != 1 || d.Notes[0].Msg != "here" {
		t.Errorf("notes = %+v, want the label", d.Notes)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeStdin, false},
		{"stdin", ModeStdin, false},
		{"ARG", ModeArg, false},
		{"socket", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
