package metrics

import (
	"errors"

	coremetrics "github.com/UWCubeSat/hs2-egse/core/metrics"
)

// MultiSink fans samples out to several sinks. All sinks are attempted;
// errors are joined.
type MultiSink struct {
	sinks []coremetrics.SampleSink
}

// NewMultiSink creates a MultiSink over the given sinks.
func NewMultiSink(sinks ...coremetrics.SampleSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// RecordSample forwards the event to every sink.
func (m *MultiSink) RecordSample(ev coremetrics.SampleEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordSample(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
