package connect

// State is the connection lifecycle state. It is owned exclusively by the
// Manager; every other component reports events and never mutates it.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateServiceFound
	StateResolved
	StateConnecting
	StateConnected
	StateReconnecting
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateServiceFound:
		return "service_found"
	case StateResolved:
		return "resolved"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
