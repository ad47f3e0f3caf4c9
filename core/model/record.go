package model

import "time"

// MeasurementRecord is one telemetry sample captured during a discharge
// session. Records are immutable and appended to the log sink in creation
// order; the sequence is the time series.
type MeasurementRecord struct {
	Elapsed time.Duration // since session start
	Voltage float64       // volts
	Current float64       // amperes
	Power   float64       // watts
}
