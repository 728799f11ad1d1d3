package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/repository"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine       *workflow.Engine
	authority    *workflow.AuthorityValidator
	workflowRepo *repository.WorkflowRepository
	limitRepo    *repository.LimitRepository
	logger       *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine *workflow.Engine,
	authority *workflow.AuthorityValidator,
	workflowRepo *repository.WorkflowRepository,
	limitRepo *repository.LimitRepository,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		engine:       engine,
		authority:    authority,
		workflowRepo: workflowRepo,
		limitRepo:    limitRepo,
		logger:       logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// InitiateRequest represents the body for starting an approval case
type InitiateRequest struct {
	WorkflowCode   string     `json:"workflow_code" binding:"required"`
	DocumentType   string     `json:"document_type" binding:"required"`
	DocumentID     int64      `json:"document_id" binding:"required"`
	DocumentNumber string     `json:"document_number" binding:"required"`
	RequesterID    int64      `json:"requester_id" binding:"required"`
	Amount         float64    `json:"amount"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"due_date"`
	Notes          string     `json:"notes"`
}

// ActRequest represents the body for acting on a request
type ActRequest struct {
	ActorUserID       int64  `json:"actor_user_id" binding:"required"`
	ActionType        string `json:"action_type" binding:"required"`
	Comments          string `json:"comments"`
	DelegatedToUserID *int64 `json:"delegated_to_user_id"`
	AttachmentPath    string `json:"attachment_path"`
	StepID            int64  `json:"step_id"`
}

// WorkflowResponse represents a workflow with its ordered steps
type WorkflowResponse struct {
	Workflow *models.Workflow `json:"workflow"`
	Steps    []*models.Step   `json:"steps"`
}

// AuthorityResponse represents an authority check result
type AuthorityResponse struct {
	Allowed          bool   `json:"allowed"`
	MatchedLimitID   *int64 `json:"matched_limit_id,omitempty"`
	RequiresReviewBy *int64 `json:"requires_review_by,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":  "healthy",
			"service": "approval-engine",
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// InitiateApproval handles POST /api/v1/requests
func (h *Handlers) InitiateApproval(c *gin.Context) {
	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	created, err := h.engine.Initiate(c.Request.Context(), workflow.InitiateCommand{
		WorkflowCode:   req.WorkflowCode,
		DocumentType:   req.DocumentType,
		DocumentID:     req.DocumentID,
		DocumentNumber: req.DocumentNumber,
		RequesterID:    req.RequesterID,
		Amount:         req.Amount,
		Priority:       req.Priority,
		DueDate:        req.DueDate,
		Notes:          req.Notes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: created})
}

// GetRequest handles GET /api/v1/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}

	req, err := h.engine.GetRequest(id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// Act handles POST /api/v1/requests/:id/actions
func (h *Handlers) Act(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}

	var req ActRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	err := h.engine.Act(c.Request.Context(), workflow.ActCommand{
		RequestID:         id,
		ActorUserID:       req.ActorUserID,
		ActionType:        req.ActionType,
		Comments:          req.Comments,
		DelegatedToUserID: req.DelegatedToUserID,
		AttachmentPath:    req.AttachmentPath,
		StepID:            req.StepID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// GetHistory handles GET /api/v1/requests/:id/actions
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}

	actions, err := h.engine.History(id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: actions})
}

// PendingForUser handles GET /api/v1/users/:id/pending
func (h *Handlers) PendingForUser(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}

	requests, err := h.engine.PendingForUser(id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// GetWorkflow handles GET /api/v1/workflows/:code
func (h *Handlers) GetWorkflow(c *gin.Context) {
	code := c.Param("code")

	wf, err := h.workflowRepo.GetByCode(code)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if wf == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "workflow " + code + " does not exist"})
		return
	}

	steps, err := h.workflowRepo.GetStepsOrdered(wf.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: WorkflowResponse{Workflow: wf, Steps: steps}})
}

// GetLimits handles GET /api/v1/limits
func (h *Handlers) GetLimits(c *gin.Context) {
	activityType := c.Query("activity_type")
	activeOnly := c.DefaultQuery("active_only", "true") == "true"

	limits, err := h.limitRepo.FindByActivityType(activityType, activeOnly)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: limits})
}

// UpdateLimit handles PUT /api/v1/limits/:id
func (h *Handlers) UpdateLimit(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}

	var upd models.LimitUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	limit, err := h.limitRepo.Update(id, &upd)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if limit == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "limit " + strconv.FormatInt(id, 10) + " does not exist"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: limit})
}

// CheckAuthority handles GET /api/v1/authority/check
func (h *Handlers) CheckAuthority(c *gin.Context) {
	activityType := c.Query("activity_type")
	roleID, err := strconv.ParseInt(c.Query("role_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid role_id"})
		return
	}
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid amount"})
		return
	}

	allowed, limit, err := h.authority.CanApproveAmount(activityType, roleID, amount)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := AuthorityResponse{Allowed: allowed}
	if limit != nil {
		resp.MatchedLimitID = &limit.ID
		resp.RequiresReviewBy = limit.RequiresReviewBy
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}

func (h *Handlers) paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

// writeError maps engine errors to HTTP status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, workflow.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrInvalidState):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrInvalidInput):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}
