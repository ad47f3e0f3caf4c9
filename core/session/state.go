package session

// State tracks the session lifecycle. Transitions run strictly forward:
// Connecting -> Running -> ShuttingDown -> Closed, with Connecting -> Closed
// on a failed acquisition.
type State int

const (
	StateConnecting State = iota
	StateRunning
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// StateChange is published on the event bus for each lifecycle transition.
type StateChange struct {
	SessionID string
	From      State
	To        State
}
