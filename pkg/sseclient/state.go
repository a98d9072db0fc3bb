package sseclient

// State is the single authoritative connection state of a Client.
//
// Exactly one state holds at any instant. Closed, Failed and Cancelled are
// terminal for a given connection attempt; a subsequent Connect call starts
// a fresh attempt from Connecting.
type State int32

const (
	// StateIdle is the initial state before any connection attempt.
	StateIdle State = iota

	// StateConnecting means a streaming call has been issued but the
	// stream has not opened yet.
	StateConnecting

	// StateConnected means the stream is open and events may arrive.
	StateConnected

	// StateClosed means the stream ended normally.
	StateClosed

	// StateFailed means the attempt ended with a transport error.
	StateFailed

	// StateCancelled means the attempt was torn down locally.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further event or state callbacks will fire
// for the current connection attempt.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed || s == StateCancelled
}
