package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/colelawrence/derive-codegen/internal/observ"
	"github.com/colelawrence/derive-codegen/internal/pipeline"
)

func TestReadUIMode(t *testing.T) {
	tests := []struct {
		in      string
		want    uiMode
		wantErr bool
	}{
		{"", uiModeAuto, false},
		{" ON ", uiModeOn, false},
		{"off", uiModeOff, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		got, err := readUIMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("readUIMode(%q) = %q, %v", tt.in, got, err)
		}
	}
	if shouldUseTUI(uiModeOn, true) {
		t.Error("progress view enabled while printing to stdout")
	}
}

func TestExitCodes(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", usageErrorf("bad flag"))
	if code, ok := exitCodeOf(err); !ok || code != exitUsage {
		t.Errorf("exitCodeOf = %d, %v", code, ok)
	}
	if _, ok := exitCodeOf(errors.New("plain")); ok {
		t.Error("plain error has an exit code")
	}
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, versionOptions{hash: true}); err != nil {
		t.Fatal(err)
	}
	var got versionPayload
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Tool != "derive-codegen" || got.GitCommit == "" || got.BuildDate != "" {
		t.Errorf("payload = %+v", got)
	}
}

func TestRelativeTo(t *testing.T) {
	tests := []struct{ root, path, want string }{
		{"/work", "/work/gen/ts", "gen/ts"},
		{"/work", "/elsewhere/ts", "/elsewhere/ts"},
		{"", "/work/gen", "/work/gen"},
	}
	for _, tt := range tests {
		if got := relativeTo(tt.root, tt.path); got != tt.want {
			t.Errorf("relativeTo(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}
}

func TestPrintStageTimings(t *testing.T) {
	var timings pipeline.Timings
	timings.Add(pipeline.StageConvert, 2*time.Millisecond)
	var buf bytes.Buffer
	printStageTimings(&buf, timings, observ.NewTimer())
	if got := buf.String(); got != "converted 2.0 ms\n" {
		t.Errorf("output = %q", got)
	}
	if strings.Contains(buf.String(), "timings:") {
		t.Error("empty timer summary printed")
	}
}
