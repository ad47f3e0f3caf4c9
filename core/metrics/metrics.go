// Package metrics defines the observability events emitted by a discharge
// session and the sink interfaces implemented under infra.
package metrics

import "time"

// SampleEvent mirrors one telemetry sample for observability sinks. It
// carries the commanded setpoint alongside the measured values so dashboards
// can show tracking error.
type SampleEvent struct {
	SessionID string
	Model     string
	Time      time.Time
	Elapsed   time.Duration
	Setpoint  float64
	Voltage   float64
	Current   float64
	Power     float64
}

// SampleSink records sample events. Implementations must tolerate being
// called from a single goroutine at the session's sampling cadence.
type SampleSink interface {
	RecordSample(ev SampleEvent) error
}

// NopSink ignores all events.
type NopSink struct{}

func (NopSink) RecordSample(SampleEvent) error { return nil }
