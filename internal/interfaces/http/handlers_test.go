package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/repository"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/workflow"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/pkg/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiEnv struct {
	router    *gin.Engine
	limits    *repository.LimitRepository
	workflows *repository.WorkflowRepository
	users     *repository.UserRepository

	workflowCode string
	firstStepID  int64
	requester    int64
	approver     int64
	approverRole int64
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "api.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../../migrations"))

	workflowRepo := repository.NewWorkflowRepository(db.DB, logger)
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	actionRepo := repository.NewActionRepository(db.DB, logger)
	limitRepo := repository.NewLimitRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)

	engine := workflow.NewEngine(db, workflowRepo, requestRepo, actionRepo, userRepo,
		workflow.Options{IncludeInProgressPending: true}, logger)
	authority := workflow.NewAuthorityValidator(limitRepo, logger)

	handlers := NewHandlers(engine, authority, workflowRepo, limitRepo, logger)
	router := NewRouter(handlers, logger)

	requesterRole := &models.Role{Name: "Requester"}
	require.NoError(t, userRepo.CreateRole(nil, requesterRole))
	approverRole := &models.Role{Name: "Supervisor"}
	require.NoError(t, userRepo.CreateRole(nil, approverRole))

	requester := &models.User{Name: "requester", RoleID: requesterRole.ID}
	require.NoError(t, userRepo.CreateUser(nil, requester))
	approver := &models.User{Name: "supervisor", RoleID: approverRole.ID}
	require.NoError(t, userRepo.CreateUser(nil, approver))

	wf := &models.Workflow{Code: "PO_APPROVAL", Name: "Purchase orders", DocumentType: "PurchaseOrder", Active: true}
	require.NoError(t, workflowRepo.Create(nil, wf))
	step := &models.Step{
		WorkflowID:     wf.ID,
		StepNumber:     1,
		ApproverType:   models.ApproverTypeRole,
		ApproverRoleID: &approverRole.ID,
		IsRequired:     true,
		IsActive:       true,
	}
	require.NoError(t, workflowRepo.CreateStep(nil, step))

	return &apiEnv{
		router:       router,
		limits:       limitRepo,
		workflows:    workflowRepo,
		users:        userRepo,
		workflowCode: wf.Code,
		firstStepID:  step.ID,
		requester:    requester.ID,
		approver:     approver.ID,
		approverRole: approverRole.ID,
	}
}

func (env *apiEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func (env *apiEnv) initiate(t *testing.T, amount float64) int64 {
	t.Helper()

	w, resp := env.do(t, http.MethodPost, "/api/v1/requests", InitiateRequest{
		WorkflowCode:   env.workflowCode,
		DocumentType:   "PurchaseOrder",
		DocumentID:     9,
		DocumentNumber: "PO-9",
		RequesterID:    env.requester,
		Amount:         amount,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var created models.Request
	require.NoError(t, json.Unmarshal(data, &created))
	return created.ID
}

func TestHealthEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	w, resp := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestInitiateEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	id := env.initiate(t, 1200)
	assert.Greater(t, id, int64(0))

	w, resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/requests/%d", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestInitiateEndpointErrors(t *testing.T) {
	env := newAPIEnv(t)

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", bytes.NewBufferString("not json"))
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown workflow", func(t *testing.T) {
		w, resp := env.do(t, http.MethodPost, "/api/v1/requests", InitiateRequest{
			WorkflowCode:   "NOPE",
			DocumentType:   "PurchaseOrder",
			DocumentID:     1,
			DocumentNumber: "PO-1",
			RequesterID:    env.requester,
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	})
}

func TestActEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	id := env.initiate(t, 1200)

	w, resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/requests/%d/actions", id), ActRequest{
		ActorUserID: env.approver,
		ActionType:  models.ActionApproved,
		StepID:      env.firstStepID,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	// The single-step workflow is now finalized.
	w, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/requests/%d/actions", id), ActRequest{
		ActorUserID: env.approver,
		ActionType:  models.ActionApproved,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/requests/%d/actions", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestActEndpointErrorMapping(t *testing.T) {
	env := newAPIEnv(t)
	id := env.initiate(t, 1200)

	tests := []struct {
		name       string
		path       string
		body       ActRequest
		wantStatus int
	}{
		{
			name:       "unsupported action type",
			path:       fmt.Sprintf("/api/v1/requests/%d/actions", id),
			body:       ActRequest{ActorUserID: env.approver, ActionType: "Nonsense"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown request",
			path:       "/api/v1/requests/99999/actions",
			body:       ActRequest{ActorUserID: env.approver, ActionType: models.ActionApproved},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "non numeric id",
			path:       "/api/v1/requests/abc/actions",
			body:       ActRequest{ActorUserID: env.approver, ActionType: models.ActionApproved},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestStaleStepConflictEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	// Second step so the first approval does not finalize the request.
	wf, err := env.workflows.GetByCode(env.workflowCode)
	require.NoError(t, err)
	require.NoError(t, env.workflows.CreateStep(nil, &models.Step{
		WorkflowID:     wf.ID,
		StepNumber:     2,
		ApproverType:   models.ApproverTypeRole,
		ApproverRoleID: &env.approverRole,
		IsRequired:     true,
		IsActive:       true,
	}))

	id := env.initiate(t, 1200)

	w, _ := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/requests/%d/actions", id), ActRequest{
		ActorUserID: env.approver,
		ActionType:  models.ActionApproved,
		StepID:      env.firstStepID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/requests/%d/actions", id), ActRequest{
		ActorUserID: env.approver,
		ActionType:  models.ActionApproved,
		StepID:      env.firstStepID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPendingForUserEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	id := env.initiate(t, 1200)

	w, resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/pending", env.approver), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var pending []models.Request
	require.NoError(t, json.Unmarshal(data, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)

	w, _ = env.do(t, http.MethodGet, "/api/v1/users/99999/pending", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkflowEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	w, resp := env.do(t, http.MethodGet, "/api/v1/workflows/"+env.workflowCode, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, _ = env.do(t, http.MethodGet, "/api/v1/workflows/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLimitEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	max := 10000.0
	min := 0.0
	limit := &models.ApprovalLimit{
		ActivityType: "PO",
		RoleID:       env.approverRole,
		MinAmount:    &min,
		MaxAmount:    &max,
		IsActive:     true,
	}
	require.NoError(t, env.limits.Create(nil, limit))

	w, resp := env.do(t, http.MethodGet, "/api/v1/limits?activity_type=PO", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	newMax := 25000.0
	w, resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/limits/%d", limit.ID), models.LimitUpdate{
		MaxAmount: &newMax,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var updated models.ApprovalLimit
	require.NoError(t, json.Unmarshal(data, &updated))
	assert.Equal(t, newMax, *updated.MaxAmount)

	w, _ = env.do(t, http.MethodPut, "/api/v1/limits/99999", models.LimitUpdate{MaxAmount: &newMax})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthorityCheckEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	max := 10000.0
	min := 0.0
	require.NoError(t, env.limits.Create(nil, &models.ApprovalLimit{
		ActivityType: "PO",
		RoleID:       env.approverRole,
		MinAmount:    &min,
		MaxAmount:    &max,
		IsActive:     true,
	}))

	path := fmt.Sprintf("/api/v1/authority/check?activity_type=PO&role_id=%d&amount=5000", env.approverRole)
	w, resp := env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var check AuthorityResponse
	require.NoError(t, json.Unmarshal(data, &check))
	assert.True(t, check.Allowed)

	path = fmt.Sprintf("/api/v1/authority/check?activity_type=PO&role_id=%d&amount=50000", env.approverRole)
	_, resp = env.do(t, http.MethodGet, path, nil)
	data, err = json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &check))
	assert.False(t, check.Allowed)

	w, _ = env.do(t, http.MethodGet, "/api/v1/authority/check?activity_type=PO&role_id=x&amount=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
