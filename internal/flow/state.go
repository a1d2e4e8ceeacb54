// Package flow implements the payment flow driver: a UI-bound state machine
// that consumes decoded initiation outcomes and external user actions and
// produces the next required action (show the method list, request more
// details, redirect out, finish).
//
// A driver instance handles a single logical flow. All calls into a driver
// must happen on one control sequence; the driver rejects concurrent
// submissions with an InvalidStateError instead of queueing them.
package flow

import "fmt"

// State identifies the driver's position in the checkout flow.
type State int

const (
	StateIdle State = iota
	StateSessionRequested
	StateMethodSelectionPending
	StateDetailsPending
	StateAwaitingResult
	StateRedirecting
	StateFinished
)

// String returns the state name for logs and errors.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSessionRequested:
		return "SessionRequested"
	case StateMethodSelectionPending:
		return "MethodSelectionPending"
	case StateDetailsPending:
		return "DetailsPending"
	case StateAwaitingResult:
		return "AwaitingResult"
	case StateRedirecting:
		return "Redirecting"
	case StateFinished:
		return "Finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateFinished }

// legalTransitions defines the allowed state transitions of a checkout flow.
// Each key is a "from" state, the value the set of valid "to" states.
// StateFinished is terminal and has no outgoing transitions. Every
// non-terminal state may transition to StateFinished (cancellation or a
// terminal outcome).
var legalTransitions = map[State]map[State]bool{
	StateIdle: {
		StateSessionRequested: true,
		StateFinished:         true,
	},
	StateSessionRequested: {
		StateMethodSelectionPending: true,
		StateAwaitingResult:         true, // preselected method submitted directly
		StateFinished:               true,
	},
	StateMethodSelectionPending: {
		StateDetailsPending: true,
		StateAwaitingResult: true,
		StateFinished:       true,
	},
	StateDetailsPending: {
		StateAwaitingResult: true,
		StateFinished:       true,
	},
	StateAwaitingResult: {
		StateDetailsPending: true,
		StateRedirecting:    true,
		StateFinished:       true,
	},
	StateRedirecting: {
		StateAwaitingResult: true,
		StateFinished:       true,
	},
	StateFinished: {},
}

// InvalidStateError reports an operation invoked outside its required driver
// state. These are programmer errors (misuse of the API), reported loudly
// rather than silently swallowed.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("flow: INVALID_STATE: %s is not allowed in state %s", e.Op, e.State)
}

// validTransition reports whether moving from one state to another is legal.
func validTransition(from, to State) bool {
	return legalTransitions[from][to]
}
