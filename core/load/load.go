// Package load defines the capability surface of a programmable electronic
// load. Concrete transports (serial hardware, simulator) live under infra
// and simulator.
package load

import "context"

// Device exposes the commands and measurements the control loop needs.
type Device interface {
	// SetCurrent commands the constant-current setpoint in amperes.
	SetCurrent(amps float64) error
	// EnableInput turns the load input on so it draws current.
	EnableInput() error
	// DisableInput turns the load input off.
	DisableInput() error
	MeasuredVoltage() (float64, error)
	MeasuredCurrent() (float64, error)
	MeasuredPower() (float64, error)
}

// Connection is an acquired device handle. Close releases the underlying
// transport and must be safe to call after a fault.
type Connection interface {
	Device
	// Model identifies the connected instrument.
	Model() string
	Close() error
}

// Connector performs the scoped acquisition of a device handle.
type Connector interface {
	Connect(ctx context.Context) (Connection, error)
}
