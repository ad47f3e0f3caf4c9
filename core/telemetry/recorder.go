// Package telemetry defines the persistent sink for measurement records.
package telemetry

import "github.com/UWCubeSat/hs2-egse/core/model"

// Recorder owns the lifecycle of a telemetry sink. Start initializes the
// sink and writes its header; Append durably commits one record before
// returning, never batching or reordering across calls.
type Recorder interface {
	Start() error
	Append(rec model.MeasurementRecord) error
	Close() error
	// Path reports the sink location for the operator.
	Path() string
}

// NopRecorder discards all records. Used in tests.
type NopRecorder struct{}

func (NopRecorder) Start() error                         { return nil }
func (NopRecorder) Append(model.MeasurementRecord) error { return nil }
func (NopRecorder) Close() error                         { return nil }
func (NopRecorder) Path() string                         { return "" }
