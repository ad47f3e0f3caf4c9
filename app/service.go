// Package app wires a discharge session from configuration: device
// transport, schedule, telemetry sink and observability fan-out.
package app

import (
	"context"
	"fmt"

	"github.com/UWCubeSat/hs2-egse/config"
	"github.com/UWCubeSat/hs2-egse/core/load"
	coremetrics "github.com/UWCubeSat/hs2-egse/core/metrics"
	"github.com/UWCubeSat/hs2-egse/core/schedule"
	"github.com/UWCubeSat/hs2-egse/core/session"
	"github.com/UWCubeSat/hs2-egse/core/telemetry"
	"github.com/UWCubeSat/hs2-egse/infra/csvlog"
	"github.com/UWCubeSat/hs2-egse/infra/kel"
	"github.com/UWCubeSat/hs2-egse/infra/logger"
	"github.com/UWCubeSat/hs2-egse/infra/metrics"
	"github.com/UWCubeSat/hs2-egse/infra/mqtt"
	"github.com/UWCubeSat/hs2-egse/internal/eventbus"
	"github.com/UWCubeSat/hs2-egse/simulator"
)

// Options carries the command line arguments of one run.
type Options struct {
	Port         string
	SchedulePath string
	LogPath      string
	Simulate     bool
}

// Service orchestrates one discharge session.
type Service struct {
	sess *session.Session
	rec  telemetry.Recorder
	bus  *eventbus.Bus
	sink coremetrics.SampleSink
	pub  *mqtt.Publisher
	log  logger.Logger

	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration and run options.
func New(cfg *config.Config, opts Options) (*Service, error) {
	logg := logger.New("service")

	sched, err := schedule.LoadFile(opts.SchedulePath)
	if err != nil {
		return nil, err
	}
	logg.Infof("loaded %d schedule points from %s", sched.Len(), opts.SchedulePath)
	for _, p := range sched.Points() {
		logg.Infof("  t=%gs -> %gA", p.Offset.Seconds(), p.Setpoint)
	}

	rec := csvlog.New(opts.LogPath)
	bus := eventbus.New()

	var connector load.Connector
	if opts.Simulate {
		connector = simulator.NewConnector(simulator.NewLoad(simulator.DefaultBattery()))
	} else {
		serialCfg := cfg.Serial
		serialCfg.Port = opts.Port
		connector = kel.NewConnector(serialCfg)
	}

	sess := session.New(connector, sched, rec, session.Config{
		SamplingInterval: cfg.Session.SamplingInterval(),
		MaxLogFailures:   cfg.Session.MaxLogFailures,
	}, logger.New("session"), bus)

	svc := &Service{
		sess:        sess,
		rec:         rec,
		bus:         bus,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}

	var sinks []coremetrics.SampleSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewPublisher(cfg.MQTT, sess.ID())
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.pub = pub
		sinks = append(sinks, pub)
	}
	switch len(sinks) {
	case 0:
		svc.sink = coremetrics.NopSink{}
	case 1:
		svc.sink = sinks[0]
	default:
		svc.sink = metrics.NewMultiSink(sinks...)
	}
	return svc, nil
}

// Run executes the session until it completes or ctx is cancelled. Sample
// events are forwarded to the observability sinks off the control loop.
func (s *Service) Run(ctx context.Context) error {
	sub := s.bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub {
			switch e := ev.(type) {
			case coremetrics.SampleEvent:
				if err := s.sink.RecordSample(e); err != nil {
					s.log.Warnf("metrics sink: %v", err)
				}
			case session.StateChange:
				s.log.Debugf("session %s: %s -> %s", e.SessionID, e.From, e.To)
			}
		}
	}()
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	err := s.sess.Run(ctx)
	s.bus.Unsubscribe(sub)
	<-done
	return err
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.pub != nil {
		if err := s.pub.Close(); err != nil {
			s.log.Errorf("mqtt close: %v", err)
		}
	}
	return s.rec.Close()
}
