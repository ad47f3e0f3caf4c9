// Package kel drives a Korad KEL-series programmable electronic load over
// its SCPI-style serial protocol.
package kel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/UWCubeSat/hs2-egse/core/load"
)

// Config describes the serial transport.
type Config struct {
	Port      string `json:"port"`
	Baud      int    `json:"baud"`
	TimeoutMS int    `json:"timeout_ms"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Baud == 0 {
		c.Baud = 115200
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 2000
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("serial port is required")
	}
	return nil
}

// Connector acquires a KEL device over serial. The dial hook is replaced in
// tests.
type Connector struct {
	cfg  Config
	dial func(device string, baud int, timeout time.Duration) (io.ReadWriteCloser, error)
}

// NewConnector creates a Connector for the given transport config.
func NewConnector(cfg Config) *Connector {
	cfg.SetDefaults()
	return &Connector{cfg: cfg, dial: openSerial}
}

// Connect opens the serial port and identifies the instrument. The returned
// Connection owns the transport and releases it on Close.
func (c *Connector) Connect(ctx context.Context) (load.Connection, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, &load.ConnectError{Port: c.cfg.Port, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &load.ConnectError{Port: c.cfg.Port, Err: err}
	}
	rw, err := c.dial(c.cfg.Port, c.cfg.Baud, time.Duration(c.cfg.TimeoutMS)*time.Millisecond)
	if err != nil {
		return nil, &load.ConnectError{Port: c.cfg.Port, Err: err}
	}
	dev := newDevice(rw)
	model, err := dev.query("*IDN?")
	if err != nil {
		rw.Close() //nolint:errcheck
		return nil, &load.ConnectError{Port: c.cfg.Port, Err: fmt.Errorf("identify: %w", err)}
	}
	dev.model = model
	return dev, nil
}

// device speaks the KEL line protocol: commands and queries are
// newline-terminated, query replies carry a unit suffix (e.g. "12.345V").
type device struct {
	mu    sync.Mutex
	rw    io.ReadWriteCloser
	r     *bufio.Reader
	model string
}

func newDevice(rw io.ReadWriteCloser) *device {
	return &device{rw: rw, r: bufio.NewReader(rw)}
}

func (d *device) send(cmd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.rw.Write([]byte(cmd + "\n"))
	return err
}

func (d *device) query(cmd string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.rw.Write([]byte(cmd + "\n")); err != nil {
		return "", err
	}
	line, err := d.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (d *device) SetCurrent(amps float64) error {
	if amps < 0 {
		return &load.CommandError{Op: "set current", Err: fmt.Errorf("negative setpoint %v", amps)}
	}
	if err := d.send(fmt.Sprintf(":CURR %.3fA", amps)); err != nil {
		return &load.CommandError{Op: "set current", Err: err}
	}
	return nil
}

func (d *device) EnableInput() error {
	if err := d.send(":INP 1"); err != nil {
		return &load.CommandError{Op: "enable input", Err: err}
	}
	return nil
}

func (d *device) DisableInput() error {
	if err := d.send(":INP 0"); err != nil {
		return &load.CommandError{Op: "disable input", Err: err}
	}
	return nil
}

func (d *device) MeasuredVoltage() (float64, error) {
	return d.measure("voltage", ":MEAS:VOLT?", "V")
}

func (d *device) MeasuredCurrent() (float64, error) {
	return d.measure("current", ":MEAS:CURR?", "A")
}

func (d *device) MeasuredPower() (float64, error) {
	return d.measure("power", ":MEAS:POW?", "W")
}

func (d *device) measure(quantity, cmd, unit string) (float64, error) {
	reply, err := d.query(cmd)
	if err != nil {
		return 0, &load.ReadError{Quantity: quantity, Err: err}
	}
	val, err := parseMeasurement(reply, unit)
	if err != nil {
		return 0, &load.ReadError{Quantity: quantity, Err: err}
	}
	return val, nil
}

func parseMeasurement(reply, unit string) (float64, error) {
	s := strings.TrimSpace(reply)
	s = strings.TrimSuffix(s, unit)
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed reply %q: %w", reply, err)
	}
	return val, nil
}

func (d *device) Model() string { return d.model }

func (d *device) Close() error { return d.rw.Close() }
