package repository

import (
	"database/sql"
	"fmt"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"
	"go.uber.org/zap"
)

// LimitRepository handles approval limit reference data. Limits bound which
// role may authorise which amount or percentage range per activity type;
// they are advisory and independently editable from workflows.
type LimitRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLimitRepository creates a new limit repository
func NewLimitRepository(db *sql.DB, logger *zap.Logger) *LimitRepository {
	return &LimitRepository{
		db:     db,
		logger: logger,
	}
}

const limitColumns = `id, activity_type, role_id, min_amount, max_amount,
	min_percentage, max_percentage, requires_review_by, is_active, created_at, updated_at`

// Create creates a new approval limit
func (r *LimitRepository) Create(tx *sql.Tx, limit *models.ApprovalLimit) error {
	query := `
		INSERT INTO approval_limits (
			activity_type, role_id, min_amount, max_amount,
			min_percentage, max_percentage, requires_review_by, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := []interface{}{
		limit.ActivityType,
		limit.RoleID,
		limit.MinAmount,
		limit.MaxAmount,
		limit.MinPercentage,
		limit.MaxPercentage,
		limit.RequiresReviewBy,
		limit.IsActive,
	}

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to create limit",
			zap.String("activity_type", limit.ActivityType),
			zap.Int64("role_id", limit.RoleID),
			zap.Error(err))
		return fmt.Errorf("failed to create limit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	limit.ID = id
	return nil
}

// GetByID retrieves a limit by ID. Returns nil when not found.
func (r *LimitRepository) GetByID(id int64) (*models.ApprovalLimit, error) {
	query := fmt.Sprintf(`SELECT %s FROM approval_limits WHERE id = ?`, limitColumns)

	limit, err := scanLimit(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get limit by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get limit: %w", err)
	}

	return limit, nil
}

// FindByActivityType retrieves limits for an activity type. When
// activityType is empty all limits are returned.
func (r *LimitRepository) FindByActivityType(activityType string, activeOnly bool) ([]*models.ApprovalLimit, error) {
	query := fmt.Sprintf(`SELECT %s FROM approval_limits WHERE 1=1`, limitColumns)
	var args []interface{}

	if activityType != "" {
		query += ` AND activity_type = ?`
		args = append(args, activityType)
	}
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY activity_type ASC, role_id ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to find limits", zap.String("activity_type", activityType), zap.Error(err))
		return nil, fmt.Errorf("failed to find limits: %w", err)
	}
	defer rows.Close()

	return collectLimits(rows)
}

// FindByRole retrieves all limits granted to a role
func (r *LimitRepository) FindByRole(roleID int64) ([]*models.ApprovalLimit, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM approval_limits
		WHERE role_id = ?
		ORDER BY activity_type ASC
	`, limitColumns)

	rows, err := r.db.Query(query, roleID)
	if err != nil {
		r.logger.Error("Failed to find limits by role", zap.Int64("role_id", roleID), zap.Error(err))
		return nil, fmt.Errorf("failed to find limits: %w", err)
	}
	defer rows.Close()

	return collectLimits(rows)
}

// Update merges the non-nil fields of upd into the stored limit and returns
// the updated row. Returns nil when the limit does not exist.
func (r *LimitRepository) Update(id int64, upd *models.LimitUpdate) (*models.ApprovalLimit, error) {
	query := `
		UPDATE approval_limits
		SET min_amount         = COALESCE(?, min_amount),
			max_amount         = COALESCE(?, max_amount),
			min_percentage     = COALESCE(?, min_percentage),
			max_percentage     = COALESCE(?, max_percentage),
			requires_review_by = COALESCE(?, requires_review_by),
			is_active          = COALESCE(?, is_active),
			updated_at         = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		upd.MinAmount,
		upd.MaxAmount,
		upd.MinPercentage,
		upd.MaxPercentage,
		upd.RequiresReviewBy,
		upd.IsActive,
		id,
	)
	if err != nil {
		r.logger.Error("Failed to update limit", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update limit: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetByID(id)
}

func scanLimit(row rowScanner) (*models.ApprovalLimit, error) {
	var limit models.ApprovalLimit
	var minAmount, maxAmount, minPct, maxPct sql.NullFloat64
	var reviewBy sql.NullInt64

	err := row.Scan(
		&limit.ID,
		&limit.ActivityType,
		&limit.RoleID,
		&minAmount,
		&maxAmount,
		&minPct,
		&maxPct,
		&reviewBy,
		&limit.IsActive,
		&limit.CreatedAt,
		&limit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if minAmount.Valid {
		limit.MinAmount = &minAmount.Float64
	}
	if maxAmount.Valid {
		limit.MaxAmount = &maxAmount.Float64
	}
	if minPct.Valid {
		limit.MinPercentage = &minPct.Float64
	}
	if maxPct.Valid {
		limit.MaxPercentage = &maxPct.Float64
	}
	if reviewBy.Valid {
		limit.RequiresReviewBy = &reviewBy.Int64
	}

	return &limit, nil
}

func collectLimits(rows *sql.Rows) ([]*models.ApprovalLimit, error) {
	var limits []*models.ApprovalLimit
	for rows.Next() {
		limit, err := scanLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan limit: %w", err)
		}
		limits = append(limits, limit)
	}
	return limits, rows.Err()
}
