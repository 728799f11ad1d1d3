package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"
	"go.uber.org/zap"
)

// RequestRepository handles approval request database operations
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `id, workflow_id, document_type, document_id, document_number,
	requested_by_user_id, requested_date, current_step_id, status, total_amount,
	priority, due_date, notes, completed_date, version, created_at, updated_at`

// Create creates a new approval request
func (r *RequestRepository) Create(tx *sql.Tx, req *models.Request) error {
	query := `
		INSERT INTO approval_requests (
			workflow_id, document_type, document_id, document_number,
			requested_by_user_id, requested_date, current_step_id, status,
			total_amount, priority, due_date, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := []interface{}{
		req.WorkflowID,
		req.DocumentType,
		req.DocumentID,
		req.DocumentNumber,
		req.RequestedByUserID,
		req.RequestedDate,
		req.CurrentStepID,
		req.Status,
		req.TotalAmount,
		req.Priority,
		req.DueDate,
		req.Notes,
	}

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to create request",
			zap.String("document_number", req.DocumentNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByID retrieves an approval request by ID. Returns nil when not found.
func (r *RequestRepository) GetByID(id int64) (*models.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM approval_requests WHERE id = ?`, requestColumns)

	req, err := scanRequest(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	return req, nil
}

// GetByIDTx retrieves a request inside an open transaction, so that the
// caller sees a state consistent with its subsequent writes.
func (r *RequestRepository) GetByIDTx(tx *sql.Tx, id int64) (*models.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM approval_requests WHERE id = ?`, requestColumns)

	req, err := scanRequest(tx.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	return req, nil
}

// ListByStatus retrieves all requests in any of the given statuses,
// oldest first.
func (r *RequestRepository) ListByStatus(statuses ...string) ([]*models.Request, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(statuses)-1) + "?"
	query := fmt.Sprintf(`
		SELECT %s FROM approval_requests
		WHERE status IN (%s)
		ORDER BY requested_date ASC
	`, requestColumns, placeholders)

	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests by status", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// UpdateOnAction persists the outcome of an action against a request using
// an optimistic version check. Returns false when the stored version no
// longer matches, meaning a concurrent writer got there first.
func (r *RequestRepository) UpdateOnAction(tx *sql.Tx, req *models.Request) (bool, error) {
	query := `
		UPDATE approval_requests
		SET current_step_id = ?, status = ?, completed_date = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	args := []interface{}{
		req.CurrentStepID,
		req.Status,
		req.CompletedDate,
		req.ID,
		req.Version,
	}

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to update request", zap.Int64("id", req.ID), zap.Error(err))
		return false, fmt.Errorf("failed to update request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	req.Version++
	return true, nil
}

// OverdueRequest pairs an open request with the moment it last saw activity.
type OverdueRequest struct {
	Request   *models.Request
	IdleSince time.Time
}

// ListOverdue finds open requests that have sat at a step configured for
// escalation longer than that step's escalation_days, as of the given time.
// Idle time counts from the last logged action, or from submission when no
// action has been taken yet.
func (r *RequestRepository) ListOverdue(asOf time.Time, limit int) ([]*OverdueRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s, COALESCE(
			(SELECT MAX(a.action_date) FROM approval_actions a WHERE a.request_id = approval_requests.id),
			requested_date
		) AS idle_since
		FROM approval_requests
		JOIN workflow_steps s ON s.id = approval_requests.current_step_id
		WHERE approval_requests.status IN ('Pending', 'InProgress')
		  AND s.escalation_days > 0
		  AND julianday(?) - julianday(COALESCE(
			(SELECT MAX(a.action_date) FROM approval_actions a WHERE a.request_id = approval_requests.id),
			requested_date
		  )) >= s.escalation_days
		ORDER BY requested_date ASC
		LIMIT ?
	`, qualifiedRequestColumns())

	rows, err := r.db.Query(query, asOf, limit)
	if err != nil {
		r.logger.Error("Failed to list overdue requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list overdue requests: %w", err)
	}
	defer rows.Close()

	var overdue []*OverdueRequest
	for rows.Next() {
		var req models.Request
		var dueDate, completedDate sql.NullTime
		var idleSinceRaw string

		err := rows.Scan(
			&req.ID,
			&req.WorkflowID,
			&req.DocumentType,
			&req.DocumentID,
			&req.DocumentNumber,
			&req.RequestedByUserID,
			&req.RequestedDate,
			&req.CurrentStepID,
			&req.Status,
			&req.TotalAmount,
			&req.Priority,
			&dueDate,
			&req.Notes,
			&completedDate,
			&req.Version,
			&req.CreatedAt,
			&req.UpdatedAt,
			&idleSinceRaw,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overdue request: %w", err)
		}

		// idle_since is a computed column, so the driver returns it as
		// text rather than converting it to time.Time.
		idleSince, err := parseSQLiteTimestamp(idleSinceRaw)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overdue request: %w", err)
		}

		if dueDate.Valid {
			req.DueDate = &dueDate.Time
		}
		if completedDate.Valid {
			req.CompletedDate = &completedDate.Time
		}

		overdue = append(overdue, &OverdueRequest{Request: &req, IdleSince: idleSince})
	}

	return overdue, rows.Err()
}

// parseSQLiteTimestamp parses a timestamp string in any of the layouts
// go-sqlite3 uses when storing time.Time values.
func parseSQLiteTimestamp(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format %q", s)
}

func qualifiedRequestColumns() string {
	cols := strings.Split(requestColumns, ",")
	for i, c := range cols {
		cols[i] = "approval_requests." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var req models.Request
	var dueDate, completedDate sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.WorkflowID,
		&req.DocumentType,
		&req.DocumentID,
		&req.DocumentNumber,
		&req.RequestedByUserID,
		&req.RequestedDate,
		&req.CurrentStepID,
		&req.Status,
		&req.TotalAmount,
		&req.Priority,
		&dueDate,
		&req.Notes,
		&completedDate,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		req.DueDate = &dueDate.Time
	}
	if completedDate.Valid {
		req.CompletedDate = &completedDate.Time
	}

	return &req, nil
}

func collectRequests(rows *sql.Rows) ([]*models.Request, error) {
	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
