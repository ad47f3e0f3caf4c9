// Package simulator provides an in-process electronic load backed by a
// battery model, for rehearsal runs and tests without bench hardware.
package simulator

import (
	"context"
	"fmt"
	"sync"
	"time"

	coreload "github.com/UWCubeSat/hs2-egse/core/load"
)

// Load implements load.Connection against a Battery. Between observations it
// integrates the commanded current into the battery state.
type Load struct {
	mu       sync.Mutex
	bat      *Battery
	setpoint float64
	inputOn  bool
	closed   bool
	last     time.Time
	now      func() time.Time
}

// NewLoad creates a simulated load draining the given battery.
func NewLoad(bat *Battery) *Load {
	return &Load{bat: bat, now: time.Now}
}

// step advances the battery model to the present.
func (l *Load) step() {
	now := l.now()
	if !l.last.IsZero() && l.inputOn {
		l.bat.Drain(l.setpoint, now.Sub(l.last))
	}
	l.last = now
}

// drawnCurrent is the current actually flowing: zero when the input is off
// or the battery is exhausted.
func (l *Load) drawnCurrent() float64 {
	if !l.inputOn || l.bat.StateOfCharge() <= 0 {
		return 0
	}
	return l.setpoint
}

func (l *Load) SetCurrent(amps float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return &coreload.CommandError{Op: "set current", Err: fmt.Errorf("simulated load closed")}
	}
	if amps < 0 {
		return &coreload.CommandError{Op: "set current", Err: fmt.Errorf("negative setpoint %v", amps)}
	}
	l.step()
	l.setpoint = amps
	return nil
}

func (l *Load) EnableInput() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.step()
	l.inputOn = true
	return nil
}

func (l *Load) DisableInput() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.step()
	l.inputOn = false
	return nil
}

func (l *Load) MeasuredVoltage() (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.step()
	return l.bat.TerminalVolts(l.drawnCurrent()), nil
}

func (l *Load) MeasuredCurrent() (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.step()
	return l.drawnCurrent(), nil
}

func (l *Load) MeasuredPower() (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.step()
	i := l.drawnCurrent()
	return l.bat.TerminalVolts(i) * i, nil
}

// InputOn reports whether the load input is enabled.
func (l *Load) InputOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inputOn
}

// Setpoint reports the last commanded current.
func (l *Load) Setpoint() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setpoint
}

func (l *Load) Model() string { return "SIMULATED KEL103" }

func (l *Load) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Connector hands out a simulated load, satisfying load.Connector.
type Connector struct {
	Load *Load
}

// NewConnector wraps a simulated load for session wiring.
func NewConnector(l *Load) *Connector { return &Connector{Load: l} }

func (c *Connector) Connect(ctx context.Context) (coreload.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, &coreload.ConnectError{Port: "simulator", Err: err}
	}
	return c.Load, nil
}
