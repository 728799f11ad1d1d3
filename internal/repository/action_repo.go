package repository

import (
	"database/sql"
	"fmt"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"
	"go.uber.org/zap"
)

// ActionRepository handles the append-only action ledger. Rows are never
// updated or deleted once written; this type deliberately exposes no
// mutation beyond Append.
type ActionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActionRepository creates a new action repository
func NewActionRepository(db *sql.DB, logger *zap.Logger) *ActionRepository {
	return &ActionRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes a new action record
func (r *ActionRepository) Append(tx *sql.Tx, action *models.Action) error {
	query := `
		INSERT INTO approval_actions (
			request_id, step_id, action_by_user_id, action_date,
			action_type, delegated_to_user_id, comments, attachment_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := []interface{}{
		action.RequestID,
		action.StepID,
		action.ActionByUserID,
		action.ActionDate,
		action.ActionType,
		action.DelegatedToUserID,
		action.Comments,
		action.AttachmentPath,
	}

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to append action",
			zap.Int64("request_id", action.RequestID),
			zap.String("action_type", action.ActionType),
			zap.Error(err))
		return fmt.Errorf("failed to append action: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	action.ID = id
	return nil
}

// ListByRequestID retrieves all actions for a request in the order they
// were taken.
func (r *ActionRepository) ListByRequestID(requestID int64) ([]*models.Action, error) {
	query := `
		SELECT id, request_id, step_id, action_by_user_id, action_date,
			action_type, delegated_to_user_id, comments, attachment_path
		FROM approval_actions
		WHERE request_id = ?
		ORDER BY action_date ASC, id ASC
	`

	rows, err := r.db.Query(query, requestID)
	if err != nil {
		r.logger.Error("Failed to list actions", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var actions []*models.Action
	for rows.Next() {
		var action models.Action
		var actionBy, delegatedTo sql.NullInt64

		err := rows.Scan(
			&action.ID,
			&action.RequestID,
			&action.StepID,
			&actionBy,
			&action.ActionDate,
			&action.ActionType,
			&delegatedTo,
			&action.Comments,
			&action.AttachmentPath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}

		if actionBy.Valid {
			action.ActionByUserID = &actionBy.Int64
		}
		if delegatedTo.Valid {
			action.DelegatedToUserID = &delegatedTo.Int64
		}

		actions = append(actions, &action)
	}

	return actions, rows.Err()
}
