package models

import "time"

// Request is one in-flight (or completed) approval case for a specific
// document instance. CurrentStepID always points at a step of the owning
// workflow, including after the request reaches a terminal status.
type Request struct {
	ID                int64      `json:"id"`
	WorkflowID        int64      `json:"workflow_id"`
	DocumentType      string     `json:"document_type"`
	DocumentID        int64      `json:"document_id"`
	DocumentNumber    string     `json:"document_number"`
	RequestedByUserID int64      `json:"requested_by_user_id"`
	RequestedDate     time.Time  `json:"requested_date"`
	CurrentStepID     int64      `json:"current_step_id"`
	Status            string     `json:"status"`
	TotalAmount       float64    `json:"total_amount"`
	Priority          string     `json:"priority,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	CompletedDate     *time.Time `json:"completed_date,omitempty"`
	Version           int64      `json:"-"` // optimistic concurrency counter
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Request status constants
const (
	StatusPending    = "Pending"
	StatusInProgress = "InProgress"
	StatusApproved   = "Approved"
	StatusRejected   = "Rejected"
)

// IsTerminal reports whether the request has reached a final status.
func (r *Request) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}

// Priority constants
const (
	PriorityLow    = "Low"
	PriorityNormal = "Normal"
	PriorityHigh   = "High"
)
