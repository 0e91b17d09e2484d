package voice

// ListenerState is the lifecycle of one recognition listener.
type ListenerState int

const (
	// StateIdle means the listener is off and holds no session.
	StateIdle ListenerState = iota
	// StateActive means the listener holds a running session.
	StateActive
	// StateSuspended means the listener wants to run but the arbiter is holding it back,
	// or a delayed start is pending.
	StateSuspended
)

func (s ListenerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}
