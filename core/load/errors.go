package load

import "fmt"

// ConnectError indicates the device handle could not be acquired.
type ConnectError struct {
	Port string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect electronic load on %s: %v", e.Port, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// CommandError indicates a device command failed during a session.
type CommandError struct {
	Op  string
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("device command %s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ReadError indicates a measurement could not be read from the device.
type ReadError struct {
	Quantity string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Quantity, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
