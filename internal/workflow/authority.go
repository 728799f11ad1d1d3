package workflow

import (
	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/repository"
	"go.uber.org/zap"
)

// AuthorityValidator answers "may this role authorise this amount (or
// percentage) for this activity type" against the approval limit table.
// It is a policy separate from step routing: the engine never consults it
// when applying actions; document modules call it before or alongside Act.
type AuthorityValidator struct {
	limits *repository.LimitRepository
	logger *zap.Logger
}

// NewAuthorityValidator creates a new authority validator
func NewAuthorityValidator(limits *repository.LimitRepository, logger *zap.Logger) *AuthorityValidator {
	return &AuthorityValidator{
		limits: limits,
		logger: logger,
	}
}

// CanApproveAmount reports whether the role holds an active limit covering
// the amount for the activity type. The matched limit is returned so the
// caller can honor its RequiresReviewBy role.
func (v *AuthorityValidator) CanApproveAmount(activityType string, roleID int64, amount float64) (bool, *models.ApprovalLimit, error) {
	limits, err := v.limits.FindByActivityType(activityType, true)
	if err != nil {
		return false, nil, err
	}

	for _, limit := range limits {
		if limit.RoleID == roleID && limit.CoversAmount(amount) {
			return true, limit, nil
		}
	}

	v.logger.Debug("No approval limit covers amount",
		zap.String("activity_type", activityType),
		zap.Int64("role_id", roleID),
		zap.Float64("amount", amount))

	return false, nil, nil
}

// CanApprovePercentage reports whether the role holds an active limit
// covering the percentage for the activity type.
func (v *AuthorityValidator) CanApprovePercentage(activityType string, roleID int64, pct float64) (bool, *models.ApprovalLimit, error) {
	limits, err := v.limits.FindByActivityType(activityType, true)
	if err != nil {
		return false, nil, err
	}

	for _, limit := range limits {
		if limit.RoleID == roleID && limit.CoversPercentage(pct) {
			return true, limit, nil
		}
	}

	return false, nil, nil
}
