package trace

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/braedencu/ps4sh/core/types"
)

// DebugLevel controls debug event recording (development only).
type DebugLevel int

const (
	DebugOff DebugLevel = iota
	DebugNodes
)

// TelemetryLevel controls telemetry collection (production-safe, zero
// overhead when off).
type TelemetryLevel int

const (
	TelemetryOff TelemetryLevel = iota
	TelemetryTiming
)

// DebugEvent is a single interpreter trace point, recorded only when
// DebugLevel != DebugOff.
type DebugEvent struct {
	Timestamp time.Time
	Event     string // "enter_interpret", "spawn", "reap", etc.
	Kind      types.Kind
	Context   string
}

// NodeTiming records how long a single top-level Interpret call took.
type NodeTiming struct {
	Kind     types.Kind
	Duration time.Duration
	Status   types.Status
}

// ExecutionResult is the optional trace/telemetry export named in
// SPEC_FULL.md §6 ("writes only when explicitly requested by the
// caller"). cmd/ps4sh writes it only when --trace-output is given.
type ExecutionResult struct {
	Status      types.Status
	Duration    time.Duration
	Timings     []NodeTiming // nil unless TelemetryTiming
	DebugEvents []DebugEvent // nil unless DebugNodes
}

// EncodeExecutionResult serializes r for the CLI's optional trace export
// (the `--trace-output` file), using the same CBOR codec as
// the subshell snapshot for a single shared dependency across both uses
// named in the DOMAIN STACK table.
func EncodeExecutionResult(r ExecutionResult) ([]byte, error) {
	data, err := cbor.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("trace: encode execution result: %w", err)
	}
	return data, nil
}

// Recorder accumulates debug events and per-node timings across a single
// top-level Interpret call, per the configured levels, and mirrors both
// onto a structured logger — internal observability only; it never
// touches the engine's own spec-mandated stderr diagnostic strings. The
// zero value with both levels Off and a nil logger records nothing and
// costs one branch per call.
type Recorder struct {
	debug     DebugLevel
	telemetry TelemetryLevel
	log       *zap.Logger
	events    []DebugEvent
	timings   []NodeTiming
}

// NewRecorder returns a Recorder configured per the caller's requested
// levels, logging through log.Named("interp") (zap.NewNop() if log is
// nil, matching the teacher's processmgr package's own "no logger
// configured" fallback).
func NewRecorder(debug DebugLevel, telemetry TelemetryLevel, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{debug: debug, telemetry: telemetry, log: log.Named("interp")}
}

// Event records a debug trace point if debug tracing is enabled.
func (r *Recorder) Event(event string, kind types.Kind, context string) {
	if r == nil || r.debug == DebugOff {
		return
	}
	ts := time.Now()
	r.events = append(r.events, DebugEvent{
		Timestamp: ts,
		Event:     event,
		Kind:      kind,
		Context:   context,
	})
	r.log.Debug(event, zap.Stringer("kind", kind), zap.String("context", context))
}

// Timing records one node's execution duration if timing telemetry is
// enabled.
func (r *Recorder) Timing(kind types.Kind, d time.Duration, status types.Status) {
	if r == nil || r.telemetry != TelemetryTiming {
		return
	}
	r.timings = append(r.timings, NodeTiming{Kind: kind, Duration: d, Status: status})
	r.log.Info("node timing", zap.Stringer("kind", kind), zap.Duration("duration", d), zap.Int("status", int(status)))
}

// Result assembles the final ExecutionResult for status and total, with
// whatever events/timings were accumulated.
func (r *Recorder) Result(status types.Status, total time.Duration) ExecutionResult {
	if r == nil {
		return ExecutionResult{Status: status, Duration: total}
	}
	return ExecutionResult{
		Status:      status,
		Duration:    total,
		Timings:     r.timings,
		DebugEvents: r.events,
	}
}
