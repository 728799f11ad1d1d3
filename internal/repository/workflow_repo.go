package repository

import (
	"database/sql"
	"fmt"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"
	"go.uber.org/zap"
)

// WorkflowRepository handles workflow definition database operations.
// Workflows and their steps are read-mostly reference data; the engine
// only ever reads them.
type WorkflowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sql.DB, logger *zap.Logger) *WorkflowRepository {
	return &WorkflowRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new workflow definition
func (r *WorkflowRepository) Create(tx *sql.Tx, wf *models.Workflow) error {
	query := `
		INSERT INTO workflows (code, name, document_type, active)
		VALUES (?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, wf.Code, wf.Name, wf.DocumentType, wf.Active)
	} else {
		result, err = r.db.Exec(query, wf.Code, wf.Name, wf.DocumentType, wf.Active)
	}

	if err != nil {
		r.logger.Error("Failed to create workflow", zap.String("code", wf.Code), zap.Error(err))
		return fmt.Errorf("failed to create workflow: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	wf.ID = id
	return nil
}

// CreateStep creates a new step under a workflow
func (r *WorkflowRepository) CreateStep(tx *sql.Tx, step *models.Step) error {
	query := `
		INSERT INTO workflow_steps (
			workflow_id, step_number, approver_type, approver_role_id,
			approver_user_id, min_amount, max_amount, is_required, can_skip,
			escalation_days, escalate_to_step, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	args := []interface{}{
		step.WorkflowID,
		step.StepNumber,
		step.ApproverType,
		step.ApproverRoleID,
		step.ApproverUserID,
		step.MinAmount,
		step.MaxAmount,
		step.IsRequired,
		step.CanSkip,
		step.EscalationDays,
		step.EscalateToStep,
		step.IsActive,
	}

	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to create step",
			zap.Int64("workflow_id", step.WorkflowID),
			zap.Int("step_number", step.StepNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create step: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	step.ID = id
	return nil
}

// GetByCode retrieves a workflow by its external code. Returns nil when no
// workflow with that code exists.
func (r *WorkflowRepository) GetByCode(code string) (*models.Workflow, error) {
	query := `
		SELECT id, code, name, document_type, active, created_at, updated_at
		FROM workflows
		WHERE code = ?
	`

	var wf models.Workflow
	err := r.db.QueryRow(query, code).Scan(
		&wf.ID,
		&wf.Code,
		&wf.Name,
		&wf.DocumentType,
		&wf.Active,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow by code", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return &wf, nil
}

// GetByID retrieves a workflow by ID. Returns nil when not found.
func (r *WorkflowRepository) GetByID(id int64) (*models.Workflow, error) {
	query := `
		SELECT id, code, name, document_type, active, created_at, updated_at
		FROM workflows
		WHERE id = ?
	`

	var wf models.Workflow
	err := r.db.QueryRow(query, id).Scan(
		&wf.ID,
		&wf.Code,
		&wf.Name,
		&wf.DocumentType,
		&wf.Active,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return &wf, nil
}

// GetStepsOrdered retrieves the active steps of a workflow in canonical
// approval order (ascending step_number).
func (r *WorkflowRepository) GetStepsOrdered(workflowID int64) ([]*models.Step, error) {
	query := `
		SELECT id, workflow_id, step_number, approver_type, approver_role_id,
			approver_user_id, min_amount, max_amount, is_required, can_skip,
			escalation_days, escalate_to_step, is_active
		FROM workflow_steps
		WHERE workflow_id = ? AND is_active = 1
		ORDER BY step_number ASC
	`

	rows, err := r.db.Query(query, workflowID)
	if err != nil {
		r.logger.Error("Failed to get workflow steps", zap.Int64("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	defer rows.Close()

	var steps []*models.Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}

	return steps, rows.Err()
}

// GetStepByID retrieves a single step by ID. Returns nil when not found.
func (r *WorkflowRepository) GetStepByID(id int64) (*models.Step, error) {
	query := `
		SELECT id, workflow_id, step_number, approver_type, approver_role_id,
			approver_user_id, min_amount, max_amount, is_required, can_skip,
			escalation_days, escalate_to_step, is_active
		FROM workflow_steps
		WHERE id = ?
	`

	step, err := scanStep(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get step by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get step: %w", err)
	}

	return step, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStep(row rowScanner) (*models.Step, error) {
	var step models.Step
	var roleID, userID, escalateTo sql.NullInt64
	var minAmount, maxAmount sql.NullFloat64

	err := row.Scan(
		&step.ID,
		&step.WorkflowID,
		&step.StepNumber,
		&step.ApproverType,
		&roleID,
		&userID,
		&minAmount,
		&maxAmount,
		&step.IsRequired,
		&step.CanSkip,
		&step.EscalationDays,
		&escalateTo,
		&step.IsActive,
	)
	if err != nil {
		return nil, err
	}

	if roleID.Valid {
		step.ApproverRoleID = &roleID.Int64
	}
	if userID.Valid {
		step.ApproverUserID = &userID.Int64
	}
	if minAmount.Valid {
		step.MinAmount = &minAmount.Float64
	}
	if maxAmount.Valid {
		step.MaxAmount = &maxAmount.Float64
	}
	if escalateTo.Valid {
		step.EscalateToStep = &escalateTo.Int64
	}

	return &step, nil
}
