package wirechat

// ConnectionState represents the current state of the WebSocket connection.
type ConnectionState int

const (
	// StateDisconnected means the client is not connected, either because
	// Connect was never called or because the connection dropped.
	StateDisconnected ConnectionState = iota

	// StateConnecting means the client is dialing and sending hello.
	StateConnecting

	// StateConnected means the client is connected and ready.
	StateConnected

	// StateError means the last Connect attempt failed.
	StateError

	// StateClosed means the client has been explicitly closed by the user.
	StateClosed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CanConnect reports whether Connect may be called in this state.
func (s ConnectionState) CanConnect() bool {
	return s != StateConnecting && s != StateConnected
}

// StateEvent represents a state change event.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error // Optional error that caused the state change
}
