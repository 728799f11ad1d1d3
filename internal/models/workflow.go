package models

import "time"

// Workflow is a named, ordered template of approval steps bound to one
// document type. Its code is the stable external key document modules use.
type Workflow struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	DocumentType string    `json:"document_type"` // PurchaseOrder, PaymentVoucher, Supplier, GoodsReceipt, ...
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Step is one stage in a workflow requiring approval from a role or a
// specific user. step_number is unique within the workflow and defines the
// canonical order; gaps are allowed.
type Step struct {
	ID             int64    `json:"id"`
	WorkflowID     int64    `json:"workflow_id"`
	StepNumber     int      `json:"step_number"`
	ApproverType   string   `json:"approver_type"` // ROLE or USER
	ApproverRoleID *int64   `json:"approver_role_id,omitempty"`
	ApproverUserID *int64   `json:"approver_user_id,omitempty"`
	MinAmount      *float64 `json:"min_amount,omitempty"`
	MaxAmount      *float64 `json:"max_amount,omitempty"`
	IsRequired     bool     `json:"is_required"`
	CanSkip        bool     `json:"can_skip"`
	EscalationDays int      `json:"escalation_days"` // 0 = never escalates
	EscalateToStep *int64   `json:"escalate_to_step,omitempty"`
	IsActive       bool     `json:"is_active"`
}

// Approver type constants
const (
	ApproverTypeRole = "ROLE"
	ApproverTypeUser = "USER"
)

// ApproverMatches reports whether the given user may act on this step,
// either through their role or as the specifically named approver.
func (s *Step) ApproverMatches(u *User) bool {
	switch s.ApproverType {
	case ApproverTypeRole:
		return s.ApproverRoleID != nil && *s.ApproverRoleID == u.RoleID
	case ApproverTypeUser:
		return s.ApproverUserID != nil && *s.ApproverUserID == u.ID
	}
	return false
}
