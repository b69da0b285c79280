package health

// State is the deck's reachability as last observed. Transitions happen
// only through explicit check outcomes.
type State int

const (
	StateUnknown State = iota
	StateConnecting
	StateConnected
	StateDegraded
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDegraded:
		return "Degraded"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Reachable reports whether the deck is worth polling at the fast cadence.
func (s State) Reachable() bool {
	return s == StateConnected || s == StateDegraded
}
