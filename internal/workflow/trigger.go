package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// TriggerApprove records an approval at the current step; the machine
	// lands on InProgress or Approved depending on whether steps remain.
	TriggerApprove Trigger = "APPROVE"

	// TriggerReject terminates the request immediately.
	TriggerReject Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
