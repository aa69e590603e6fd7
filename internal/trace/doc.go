// Package trace records what decoration sessions do and how long it takes.
//
// Enable tracing via command-line flags:
//
//	aquascope render --trace=- --trace-level=detail main.rs facts.json
//
// Every event carries the document session it belongs to, set once with
// WithSession, and typed counts (records, effects, changes, lines) instead
// of free-form text.
//
// # Tracers
//
//   - Nop: tracing disabled
//   - StreamTracer: writes events as they happen
//   - RingTracer: keeps the last events; dumps one session or all of them
//   - Tee: both of the above
//
// # Levels
//
// LevelError keeps failures only. LevelPhase adds session operations (open,
// edit, reanalyze), LevelDetail adds editor dispatches, LevelDebug adds view
// rendering and reveals.
//
// # Usage
//
//	ctx = trace.WithSession(trace.WithTracer(ctx, tracer), id)
//	ctx, span := trace.Start(ctx, trace.ScopeDispatch, "facts")
//	if err != nil {
//		span.Fail(err)
//	}
//	span.Effects(1).End()
package trace
