package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UWCubeSat/hs2-egse/core/load"
	"github.com/UWCubeSat/hs2-egse/core/metrics"
	"github.com/UWCubeSat/hs2-egse/core/model"
	"github.com/UWCubeSat/hs2-egse/core/schedule"
	"github.com/UWCubeSat/hs2-egse/infra/logger"
	"github.com/UWCubeSat/hs2-egse/internal/eventbus"
)

type mockDevice struct {
	mu           sync.Mutex
	setpoints    []float64
	enableCalls  int
	disableCalls int
	voltage      float64
	readErr      error
	commandErr   error
}

func (d *mockDevice) SetCurrent(a float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.commandErr != nil {
		return d.commandErr
	}
	d.setpoints = append(d.setpoints, a)
	return nil
}

func (d *mockDevice) EnableInput() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enableCalls++
	return nil
}

func (d *mockDevice) DisableInput() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disableCalls++
	return nil
}

func (d *mockDevice) MeasuredVoltage() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readErr != nil {
		return 0, d.readErr
	}
	return d.voltage, nil
}

func (d *mockDevice) MeasuredCurrent() (float64, error) { return 1.0, nil }
func (d *mockDevice) MeasuredPower() (float64, error)   { return 3.7, nil }
func (d *mockDevice) Model() string                     { return "MOCK LOAD" }
func (d *mockDevice) Close() error                      { return nil }

func (d *mockDevice) commanded() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]float64, len(d.setpoints))
	copy(out, d.setpoints)
	return out
}

func (d *mockDevice) disabled() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disableCalls
}

type mockConnector struct {
	dev *mockDevice
	err error
}

func (c *mockConnector) Connect(context.Context) (load.Connection, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.dev, nil
}

type memRecorder struct {
	mu        sync.Mutex
	recs      []model.MeasurementRecord
	appendErr error
	started   bool
}

func (r *memRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

func (r *memRecorder) Append(rec model.MeasurementRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.recs = append(r.recs, rec)
	return nil
}

func (r *memRecorder) Close() error { return nil }
func (r *memRecorder) Path() string { return "mem" }

func (r *memRecorder) records() []model.MeasurementRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.MeasurementRecord, len(r.recs))
	copy(out, r.recs)
	return out
}

func flatSchedule(t *testing.T, amps float64) *schedule.Schedule {
	t.Helper()
	s, err := schedule.New([]schedule.Point{{Offset: 0, Setpoint: amps}})
	require.NoError(t, err)
	return s
}

func TestNoEnergizationOnConnectFailure(t *testing.T) {
	dev := &mockDevice{}
	conn := &mockConnector{dev: dev, err: &load.ConnectError{Port: "/dev/ttyACM0", Err: errors.New("no such device")}}
	s := New(conn, flatSchedule(t, 1), &memRecorder{}, Config{}, logger.NopLogger{}, nil)

	err := s.Run(context.Background())
	require.Error(t, err)
	var ce *load.ConnectError
	assert.True(t, errors.As(err, &ce))
	assert.Empty(t, dev.commanded())
	assert.Equal(t, 0, dev.enableCalls)
	assert.Equal(t, StateClosed, s.State())
}

func TestInterruptStopsAndDisarms(t *testing.T) {
	dev := &mockDevice{voltage: 3.9}
	rec := &memRecorder{}
	s := New(&mockConnector{dev: dev}, flatSchedule(t, 1.5), rec,
		Config{SamplingInterval: 5 * time.Millisecond}, logger.NopLogger{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	err := s.Run(ctx)
	assert.NoError(t, err, "operator interrupt is not an error")
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 1, dev.disabled())

	cmds := dev.commanded()
	require.NotEmpty(t, cmds)
	assert.Equal(t, 0.0, cmds[0], "initial setpoint is zero before the input is enabled")
	assert.Equal(t, 0.0, cmds[len(cmds)-1], "shutdown zeroes the setpoint")
	assert.Contains(t, cmds, 1.5, "schedule setpoint was commanded")

	recs := rec.records()
	require.NotEmpty(t, recs)
	for i := 1; i < len(recs); i++ {
		assert.Greater(t, recs[i].Elapsed, recs[i-1].Elapsed, "elapsed must be strictly increasing")
	}
}

func TestShutdownIdempotent(t *testing.T) {
	dev := &mockDevice{voltage: 3.9}
	s := New(&mockConnector{dev: dev}, flatSchedule(t, 1), &memRecorder{},
		Config{SamplingInterval: 5 * time.Millisecond}, logger.NopLogger{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	require.Equal(t, 1, dev.disabled())
	before := len(dev.commanded())

	s.Shutdown()
	s.Shutdown()
	assert.Equal(t, 1, dev.disabled(), "second shutdown observes device already safe")
	assert.Equal(t, before, len(dev.commanded()))
}

func TestReadFaultTriggersShutdown(t *testing.T) {
	dev := &mockDevice{readErr: &load.ReadError{Quantity: "voltage", Err: errors.New("timeout")}}
	s := New(&mockConnector{dev: dev}, flatSchedule(t, 1), &memRecorder{},
		Config{SamplingInterval: time.Millisecond}, logger.NopLogger{}, nil)

	err := s.Run(context.Background())
	require.Error(t, err)
	var re *load.ReadError
	assert.True(t, errors.As(err, &re))
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 1, dev.disabled(), "fault path still de-energizes the load")
}

func TestPersistentAppendFailureEscalates(t *testing.T) {
	dev := &mockDevice{voltage: 3.9}
	rec := &memRecorder{appendErr: errors.New("disk full")}
	s := New(&mockConnector{dev: dev}, flatSchedule(t, 1), rec,
		Config{SamplingInterval: time.Millisecond, MaxLogFailures: 3}, logger.NopLogger{}, nil)

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "telemetry sink failing persistently"), "got %v", err)
	assert.Equal(t, 1, dev.disabled())
}

func TestSessionSingleUse(t *testing.T) {
	dev := &mockDevice{voltage: 3.9}
	s := New(&mockConnector{dev: dev}, flatSchedule(t, 1), &memRecorder{},
		Config{SamplingInterval: 5 * time.Millisecond}, logger.NopLogger{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.Error(t, s.Run(context.Background()))
}

func TestSampleEventsPublished(t *testing.T) {
	dev := &mockDevice{voltage: 4.1}
	bus := eventbus.New()
	sub := bus.Subscribe()
	s := New(&mockConnector{dev: dev}, flatSchedule(t, 2), &memRecorder{},
		Config{SamplingInterval: 5 * time.Millisecond}, logger.NopLogger{}, bus)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	bus.Close()

	var samples []metrics.SampleEvent
	var states []StateChange
	for ev := range sub {
		switch e := ev.(type) {
		case metrics.SampleEvent:
			samples = append(samples, e)
		case StateChange:
			states = append(states, e)
		}
	}
	require.NotEmpty(t, samples)
	assert.Equal(t, s.ID(), samples[0].SessionID)
	assert.Equal(t, 2.0, samples[0].Setpoint)
	assert.Equal(t, 4.1, samples[0].Voltage)

	require.NotEmpty(t, states)
	assert.Equal(t, StateRunning, states[0].To)
	assert.Equal(t, StateClosed, states[len(states)-1].To)
}
