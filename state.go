package serialstream

import "fmt"

// State is the connection state of a Stream
type State int32

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateClosing
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// canTransition reports whether the state machine allows from -> to.
// Errored is only entered when releasing an open device fails, and behaves
// like Closed for a later Open.
func canTransition(from, to State) bool {
	switch from {
	case StateClosed, StateErrored:
		return to == StateOpening
	case StateOpening:
		return to == StateOpen || to == StateClosed || to == StateErrored
	case StateOpen:
		return to == StateClosing || to == StateErrored
	case StateClosing:
		return to == StateClosed || to == StateErrored
	}
	return false
}
