package repository

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/pkg/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "repo.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	return db
}

var seedSeq atomic.Int64

// seedRequest creates the minimal reference rows a request needs and
// returns the created request pinned at the workflow's single step.
func seedRequest(t *testing.T, db *database.DB, requestedDate time.Time, escalationDays int) (*models.Request, *models.Step) {
	t.Helper()

	logger := zap.NewNop()
	users := NewUserRepository(db.DB, logger)
	workflows := NewWorkflowRepository(db.DB, logger)
	requests := NewRequestRepository(db.DB, logger)

	seq := seedSeq.Add(1)
	role := &models.Role{Name: fmt.Sprintf("Approver-%d", seq)}
	require.NoError(t, users.CreateRole(nil, role))
	user := &models.User{Name: fmt.Sprintf("requester-%d", seq), RoleID: role.ID}
	require.NoError(t, users.CreateUser(nil, user))

	wf := &models.Workflow{Code: fmt.Sprintf("WF-%d", seq), Name: "wf", DocumentType: "PurchaseOrder", Active: true}
	require.NoError(t, workflows.Create(nil, wf))

	step := &models.Step{
		WorkflowID:     wf.ID,
		StepNumber:     1,
		ApproverType:   models.ApproverTypeRole,
		ApproverRoleID: &role.ID,
		IsRequired:     true,
		IsActive:       true,
		EscalationDays: escalationDays,
	}
	require.NoError(t, workflows.CreateStep(nil, step))

	req := &models.Request{
		WorkflowID:        wf.ID,
		DocumentType:      "PurchaseOrder",
		DocumentID:        1,
		DocumentNumber:    "PO-1",
		RequestedByUserID: user.ID,
		RequestedDate:     requestedDate,
		CurrentStepID:     step.ID,
		Status:            models.StatusPending,
		Priority:          models.PriorityNormal,
	}
	require.NoError(t, requests.Create(nil, req))

	return req, step
}
