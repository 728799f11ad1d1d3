package models

import "time"

// ApprovalLimit is a reference rule bounding which role may authorise which
// amount or percentage range for an activity type. Amount and percentage
// ranges are mutually exclusive by convention: percentage fields are used for
// activity types like SALES_DISCOUNT, amount fields for everything else.
// A nil upper bound means no cap.
type ApprovalLimit struct {
	ID               int64     `json:"id"`
	ActivityType     string    `json:"activity_type"` // PO, Payment, SALES_DISCOUNT, ...
	RoleID           int64     `json:"role_id"`
	MinAmount        *float64  `json:"min_amount,omitempty"`
	MaxAmount        *float64  `json:"max_amount,omitempty"`
	MinPercentage    *float64  `json:"min_percentage,omitempty"`
	MaxPercentage    *float64  `json:"max_percentage,omitempty"`
	RequiresReviewBy *int64    `json:"requires_review_by,omitempty"` // second role that must also review
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CoversAmount reports whether the limit's amount range contains amount.
func (l *ApprovalLimit) CoversAmount(amount float64) bool {
	if l.MinAmount != nil && amount < *l.MinAmount {
		return false
	}
	if l.MaxAmount != nil && amount > *l.MaxAmount {
		return false
	}
	return l.MinAmount != nil || l.MaxAmount != nil
}

// CoversPercentage reports whether the limit's percentage range contains pct.
func (l *ApprovalLimit) CoversPercentage(pct float64) bool {
	if l.MinPercentage != nil && pct < *l.MinPercentage {
		return false
	}
	if l.MaxPercentage != nil && pct > *l.MaxPercentage {
		return false
	}
	return l.MinPercentage != nil || l.MaxPercentage != nil
}

// LimitUpdate carries the field-merge payload for updating a limit.
// Nil fields are left untouched.
type LimitUpdate struct {
	MinAmount        *float64 `json:"min_amount,omitempty"`
	MaxAmount        *float64 `json:"max_amount,omitempty"`
	MinPercentage    *float64 `json:"min_percentage,omitempty"`
	MaxPercentage    *float64 `json:"max_percentage,omitempty"`
	RequiresReviewBy *int64   `json:"requires_review_by,omitempty"`
	IsActive         *bool    `json:"is_active,omitempty"`
}
