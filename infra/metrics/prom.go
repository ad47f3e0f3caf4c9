package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/UWCubeSat/hs2-egse/core/metrics"
)

// PromSink exposes live discharge telemetry as Prometheus metrics.
type PromSink struct {
	voltage  prometheus.Gauge
	current  prometheus.Gauge
	power    prometheus.Gauge
	setpoint prometheus.Gauge
	samples  prometheus.Counter
}

// NewPromSink registers discharge metrics on the provided registerer. If reg
// is nil, the default registerer is used. Already registered collectors are
// reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		voltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discharge_voltage_volts",
			Help: "Last measured battery voltage",
		}),
		current: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discharge_current_amps",
			Help: "Last measured load current",
		}),
		power: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discharge_power_watts",
			Help: "Last measured discharge power",
		}),
		setpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discharge_setpoint_amps",
			Help: "Current commanded by the schedule",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "discharge_samples_total",
			Help: "Total number of telemetry samples captured",
		}),
	}
	if err := registerGauge(reg, &s.voltage); err != nil {
		return nil, err
	}
	if err := registerGauge(reg, &s.current); err != nil {
		return nil, err
	}
	if err := registerGauge(reg, &s.power); err != nil {
		return nil, err
	}
	if err := registerGauge(reg, &s.setpoint); err != nil {
		return nil, err
	}
	if err := reg.Register(s.samples); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			s.samples = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	return s, nil
}

func registerGauge(reg prometheus.Registerer, g *prometheus.Gauge) error {
	if err := reg.Register(*g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*g = are.ExistingCollector.(prometheus.Gauge)
			return nil
		}
		return err
	}
	return nil
}

// RecordSample updates the gauges with the latest measurement.
func (s *PromSink) RecordSample(ev coremetrics.SampleEvent) error {
	s.voltage.Set(ev.Voltage)
	s.current.Set(ev.Current)
	s.power.Set(ev.Power)
	s.setpoint.Set(ev.Setpoint)
	s.samples.Inc()
	return nil
}
