package main

import (
	"fmt"
	"io"

	"github.com/colelawrence/derive-codegen/internal/observ"
	"github.com/colelawrence/derive-codegen/internal/pipeline"
)

var timedStages = []struct {
	stage pipeline.Stage
	label string
}{
	{pipeline.StageLoad, "loaded"},
	{pipeline.StageConvert, "converted"},
	{pipeline.StageMerge, "merged"},
	{pipeline.StageGenerate, "generated"},
	{pipeline.StageWrite, "delivered"},
}

func printStageTimings(out io.Writer, timings pipeline.Timings, timer *observ.Timer) {
	if out == nil {
		return
	}
	for _, s := range timedStages {
		if timings.Has(s.stage) {
			fmt.Fprintf(out, "%s %.1f ms\n", s.label, toMillis(timings.Duration(s.stage)))
		}
	}
	if len(timer.Report().Phases) > 0 {
		fmt.Fprint(out, timer.Summary())
	}
}
