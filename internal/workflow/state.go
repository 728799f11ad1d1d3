package workflow

import "github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"

// State represents a request state in the approval lifecycle
type State string

const (
	StatePending    State = models.StatusPending
	StateInProgress State = models.StatusInProgress
	StateApproved   State = models.StatusApproved
	StateRejected   State = models.StatusRejected
)

var validStates = map[State]bool{
	StatePending:    true,
	StateInProgress: true,
	StateApproved:   true,
	StateRejected:   true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a valid request state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
