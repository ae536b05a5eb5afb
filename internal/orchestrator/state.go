package orchestrator

import "slices"

// State is a node of the saga state machine.
type State string

const (
	StateInit      State = "INIT"
	StateRead      State = "READ"
	StateTransform State = "TRANSFORM"
	StateWrite     State = "WRITE"
	StateDone      State = "DONE"
	StateFailed    State = "FAILED"
)

var transitions = map[State][]State{
	StateInit:      {StateRead},
	StateRead:      {StateTransform, StateFailed},
	StateTransform: {StateWrite, StateFailed},
	StateWrite:     {StateDone, StateFailed},
}

// CanTransition reports whether next directly follows s.
func (s State) CanTransition(next State) bool {
	return slices.Contains(transitions[s], next)
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
