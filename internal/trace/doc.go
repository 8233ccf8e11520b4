// Package trace provides a tracing subsystem for the ebb analyzer.
//
// The trace package enables tracking of analysis phases, per-body passes,
// and fixed-point iterations to help diagnose performance issues and hangs.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	ebb check --trace=- --trace-level=phase ./...
//
// # Architecture
//
// The package provides two tracer implementations:
//
//   - Nop: Zero-overhead no-op tracer when disabled
//   - StreamTracer: Immediate write to output (file/stderr)
//
// # Levels
//
// Tracing verbosity is controlled by levels:
//
//   - LevelOff: No tracing
//   - LevelPhase: Driver and pass boundaries
//   - LevelDetail: Per-body events
//   - LevelDebug: Everything including IR node events
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeDriver: Top-level CLI operations
//   - ScopePass: Analysis phases (load, analyze, report)
//   - ScopeBody: Per-body processing
//   - ScopeNode: IR node level (fixed-point merges, propagation)
//
// # Context Propagation
//
// Tracers are propagated through the analysis pipeline via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "analyze", parentID)
//	defer span.End("")
package trace
