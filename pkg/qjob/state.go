package qjob

import "fmt"

// State tracks the lifecycle of a job handle. The state machine is what
// enforces the single-flight invariant: a handle may never carry two
// in-flight requests, so Submitted can only be entered from Configured or
// Resolved.
type State string

const (
	StateConfigured State = "configured" // built, nothing sent
	StateSubmitted  State = "submitted"  // one request in flight
	StateResolved   State = "resolved"   // response consumed or drained
)

// validTransitions maps from-state to allowed to-states
var validTransitions = map[State]map[State]bool{
	StateConfigured: {
		StateSubmitted: true, // Configured → Submitted (first send)
	},
	StateSubmitted: {
		StateResolved: true, // Submitted → Resolved (result read or drained)
	},
	StateResolved: {
		StateSubmitted: true, // Resolved → Submitted (parameter upgrade)
	},
}

// ValidateTransition checks whether a lifecycle transition is allowed
func ValidateTransition(from, to State) error {
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("unknown job state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid job transition from %s to %s", from, to)
	}
	return nil
}
