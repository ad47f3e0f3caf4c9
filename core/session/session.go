// Package session runs a battery discharge session: it drives the electronic
// load through the schedule on a tight loop, samples telemetry on an
// independent cadence, and guarantees the load is de-energized on every exit
// path.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/UWCubeSat/hs2-egse/core/load"
	"github.com/UWCubeSat/hs2-egse/core/logger"
	"github.com/UWCubeSat/hs2-egse/core/metrics"
	"github.com/UWCubeSat/hs2-egse/core/model"
	"github.com/UWCubeSat/hs2-egse/core/schedule"
	"github.com/UWCubeSat/hs2-egse/core/telemetry"
	"github.com/UWCubeSat/hs2-egse/internal/eventbus"
)

// Config holds loop tuning parameters.
type Config struct {
	// SamplingInterval is the period between telemetry captures. The
	// setpoint is re-commanded on every tick regardless.
	SamplingInterval time.Duration
	// MaxLogFailures escalates persistent sink failures to loop-fatal after
	// this many consecutive Append errors.
	MaxLogFailures int
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.SamplingInterval <= 0 {
		c.SamplingInterval = time.Second
	}
	if c.MaxLogFailures <= 0 {
		c.MaxLogFailures = 10
	}
}

// Session owns one discharge run against one device. A Session is single
// use: Run may be called exactly once.
type Session struct {
	id        string
	connector load.Connector
	sched     *schedule.Schedule
	rec       telemetry.Recorder
	cfg       Config
	log       logger.Logger
	bus       eventbus.EventBus

	now func() time.Time

	mu           sync.Mutex
	state        State
	dev          load.Connection
	shutdownDone bool
}

// New creates a Session. bus may be nil when no observers are wired.
func New(connector load.Connector, sched *schedule.Schedule, rec telemetry.Recorder, cfg Config, log logger.Logger, bus eventbus.EventBus) *Session {
	cfg.SetDefaults()
	return &Session{
		id:        uuid.NewString(),
		connector: connector,
		sched:     sched,
		rec:       rec,
		cfg:       cfg,
		log:       log,
		bus:       bus,
		now:       time.Now,
		state:     StateConnecting,
	}
}

// ID returns the session identifier used to tag telemetry events.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	if s.bus != nil && from != to {
		s.bus.Publish(StateChange{SessionID: s.id, From: from, To: to})
	}
}

// Run connects to the device, executes the control loop until ctx is
// cancelled or a device fault occurs, then unconditionally de-energizes the
// load and releases the handle. A user interrupt is not an error; Run
// returns nil for it after cleanup.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return fmt.Errorf("session already ran (state %s)", s.state)
	}
	s.mu.Unlock()

	dev, err := s.connector.Connect(ctx)
	if err != nil {
		// Device never acquired: no energization happened, nothing to undo.
		s.setState(StateClosed)
		return err
	}
	s.mu.Lock()
	s.dev = dev
	s.mu.Unlock()
	s.log.Infof("connected to %s", dev.Model())

	defer func() {
		if cerr := dev.Close(); cerr != nil {
			s.log.Errorf("close device: %v", cerr)
		}
		s.setState(StateClosed)
		if path := s.rec.Path(); path != "" {
			s.log.Infof("telemetry logged to %s", path)
		}
	}()
	defer s.Shutdown()

	if err := dev.SetCurrent(0); err != nil {
		return err
	}
	if err := dev.EnableInput(); err != nil {
		return err
	}
	if err := s.rec.Start(); err != nil {
		return fmt.Errorf("initialize telemetry sink: %w", err)
	}

	s.setState(StateRunning)
	s.log.Infof("discharge started, session %s, %d schedule points, sampling every %s",
		s.id, s.sched.Len(), s.cfg.SamplingInterval)

	err = s.loop(ctx)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		s.log.Infof("stopped by operator")
		return nil
	}
	return err
}

// loop is the real-time core. It re-commands the schedule setpoint on every
// tick and samples telemetry each time the sample deadline passes. The next
// deadline is scheduled from the current time, so a slow tick skips the
// missed sample instead of burst-catching-up.
func (s *Session) loop(ctx context.Context) error {
	start := s.now()
	next := start
	logFailures := 0

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		now := s.now()
		elapsed := now.Sub(start)

		target := s.sched.CurrentAt(elapsed)
		if err := s.dev.SetCurrent(target); err != nil {
			return err
		}

		if !now.Before(next) {
			next = now.Add(s.cfg.SamplingInterval)
			rec, err := s.sample(elapsed)
			if err != nil {
				return err
			}
			if err := s.rec.Append(rec); err != nil {
				logFailures++
				s.log.Errorf("telemetry append (%d consecutive): %v", logFailures, err)
				if logFailures >= s.cfg.MaxLogFailures {
					return fmt.Errorf("telemetry sink failing persistently: %w", err)
				}
			} else {
				logFailures = 0
			}
			s.log.Infof("[%7.1fs] V=%6.3fV  I=%6.3fA  P=%7.3fW",
				elapsed.Seconds(), rec.Voltage, rec.Current, rec.Power)
			if s.bus != nil {
				s.bus.Publish(metrics.SampleEvent{
					SessionID: s.id,
					Model:     s.dev.Model(),
					Time:      now,
					Elapsed:   elapsed,
					Setpoint:  target,
					Voltage:   rec.Voltage,
					Current:   rec.Current,
					Power:     rec.Power,
				})
			}
		}

		wait := next.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Session) sample(elapsed time.Duration) (model.MeasurementRecord, error) {
	v, err := s.dev.MeasuredVoltage()
	if err != nil {
		return model.MeasurementRecord{}, err
	}
	i, err := s.dev.MeasuredCurrent()
	if err != nil {
		return model.MeasurementRecord{}, err
	}
	p, err := s.dev.MeasuredPower()
	if err != nil {
		return model.MeasurementRecord{}, err
	}
	return model.MeasurementRecord{Elapsed: elapsed, Voltage: v, Current: i, Power: p}, nil
}

// Shutdown de-energizes the load: current to zero, then input off, in that
// order. Both steps are attempted even if the first fails; secondary
// failures are logged, not raised, since the error that triggered shutdown
// is already on its way to the operator. Shutdown is idempotent; a second
// call observes the device already safe and issues no commands.
func (s *Session) Shutdown() {
	s.mu.Lock()
	dev := s.dev
	done := s.shutdownDone
	s.shutdownDone = true
	s.mu.Unlock()
	if dev == nil || done {
		return
	}
	s.setState(StateShuttingDown)
	s.log.Infof("turning off load")
	if err := dev.SetCurrent(0); err != nil {
		s.log.Errorf("zero current during shutdown: %v", err)
	}
	if err := dev.DisableInput(); err != nil {
		s.log.Errorf("disable input during shutdown: %v", err)
	}
}
