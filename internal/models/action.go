package models

import "time"

// Action is one immutable, timestamped decision record against a request.
// Actions are only ever appended; together they form the audit ledger from
// which the request's final status can be reconstructed.
type Action struct {
	ID                int64     `json:"id"`
	RequestID         int64     `json:"request_id"`
	StepID            int64     `json:"step_id"` // step that was current when the action was taken
	ActionByUserID    *int64    `json:"action_by_user_id,omitempty"` // nil for system-generated actions
	ActionDate        time.Time `json:"action_date"`
	ActionType        string    `json:"action_type"`
	DelegatedToUserID *int64    `json:"delegated_to_user_id,omitempty"`
	Comments          string    `json:"comments,omitempty"`
	AttachmentPath    string    `json:"attachment_path,omitempty"`
}

// Action type constants
const (
	ActionApproved  = "Approved"
	ActionRejected  = "Rejected"
	ActionClarify   = "Clarify"
	ActionDelegate  = "Delegate"
	ActionEscalated = "Escalated"
)

// ValidActionType reports whether t is a recognised action type for the
// approver-facing Act operation. Escalated is system-generated only.
func ValidActionType(t string) bool {
	switch t {
	case ActionApproved, ActionRejected, ActionClarify, ActionDelegate:
		return true
	}
	return false
}
