// Package trace records what a derive-codegen run is doing, to find slow
// generators and runs that hang.
//
//	derive-codegen generate --trace=- --trace-level=phase
//	derive-codegen generate --trace=run.ndjson --trace-level=debug
//
// Events flow to a StreamTracer (written as they happen), a RingTracer
// (kept in memory and dumped when the run fails) or both through a
// MultiTracer. Nop is used when tracing is off.
//
// Spans nest through the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePhase, "convert")
//	defer span.End("")
//
// A Heartbeat keeps emitting while the run is blocked on a generator.
package trace
