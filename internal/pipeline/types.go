package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Stage describes a high-level pipeline phase.
type Stage string

const (
	StageLoad     Stage = "load"
	StageConvert  Stage = "convert"
	StageMerge    Stage = "merge"
	StageSelect   Stage = "select"
	StageGenerate Stage = "generate"
	StageWrite    Stage = "write"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusCached  Status = "cached"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a generator target, or for the whole run when
// Target is empty.
type Event struct {
	Target  string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}

// Destination selects what happens to generated files.
type Destination uint8

const (
	// DestWrite stores files under each target's output directory.
	DestWrite Destination = iota
	// DestPrint writes files to Request.Stdout.
	DestPrint
	// DestCheck compares files with disk and reports drift.
	DestCheck
)

func (d Destination) String() string {
	switch d {
	case DestWrite:
		return "write"
	case DestPrint:
		return "print"
	case DestCheck:
		return "check"
	default:
		return fmt.Sprintf("Destination(%d)", d)
	}
}

func ParseDestination(s string) (Destination, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "write":
		return DestWrite, nil
	case "print", "stdout":
		return DestPrint, nil
	case "check":
		return DestCheck, nil
	default:
		return 0, fmt.Errorf("unknown destination %q (expected write|print|check)", s)
	}
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

// Add accumulates a duration for the given stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
	t.stages[stage] += dur
}

func (t Timings) Has(stage Stage) bool {
	_, ok := t.stages[stage]
	return ok
}

func (t Timings) Duration(stage Stage) time.Duration {
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
