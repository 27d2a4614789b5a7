package xmppclient

// State is a node in the §4.2 client state machine:
// Idle → Connecting → Authenticating → Bound → Online → Offline.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAuthenticating
	StateBound
	StateOnline
	StateOffline
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateBound:
		return "bound"
	case StateOnline:
		return "online"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}
