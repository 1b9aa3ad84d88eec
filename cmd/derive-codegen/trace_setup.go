package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/colelawrence/derive-codegen/internal/trace"
)

var traceCleanup func(failed bool)

func finishTracing(failed bool) {
	if traceCleanup == nil {
		return
	}
	cleanup := traceCleanup
	traceCleanup = nil
	cleanup(failed)
}

// setupTracing reads the --trace* flags, attaches a tracer to the command
// context and opens the run span. The cleanup dumps the ring buffer to
// stderr when the run failed.
func setupTracing(cmd *cobra.Command) (func(failed bool), error) {
	flags := cmd.Root().PersistentFlags()
	output, err := flags.GetString("trace")
	if err != nil {
		return nil, err
	}
	levelValue, err := flags.GetString("trace-level")
	if err != nil {
		return nil, err
	}
	modeValue, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, err
	}
	formatValue, err := flags.GetString("trace-format")
	if err != nil {
		return nil, err
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, err
	}
	heartbeatEvery, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, err
	}

	level, err := trace.ParseLevel(levelValue)
	if err != nil {
		return nil, usageErrorf("%v", err)
	}
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func(bool) {}, nil
	}
	mode, err := trace.ParseMode(modeValue)
	if err != nil {
		return nil, usageErrorf("%v", err)
	}
	if level == trace.LevelError {
		mode = trace.ModeRing
	}
	format, err := trace.ParseFormat(formatValue)
	if err != nil {
		return nil, usageErrorf("%v", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  heartbeatEvery,
	})
	if err != nil {
		return nil, err
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	ctx, run := trace.Start(ctx, trace.ScopeRun, cmd.CommandPath())
	cmd.SetContext(ctx)
	heartbeat := trace.StartHeartbeat(tracer, heartbeatEvery)

	return func(failed bool) {
		heartbeat.Stop()
		if failed {
			run.End("failed")
		} else {
			run.End("")
		}
		if ring := trace.RingOf(tracer); ring != nil && failed {
			fmt.Fprintln(os.Stderr, "trace: last events before failure")
			if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
				fmt.Fprintf(os.Stderr, "trace: dump: %v\n", err)
			}
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: close: %v\n", err)
		}
	}, nil
}
