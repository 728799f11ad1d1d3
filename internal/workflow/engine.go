package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/repository"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/pkg/database"
	"go.uber.org/zap"
)

// Clock abstracts time for the engine so tests and the escalation scanner
// can drive it deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// UserDirectory resolves user IDs against the identity system. Returns nil
// (no error) when the user is unknown.
type UserDirectory interface {
	GetByID(id int64) (*models.User, error)
}

// Options tunes engine behaviour.
type Options struct {
	// IncludeInProgressPending widens PendingForUser to requests that have
	// already received an approval and moved to InProgress. Without it a
	// multi-step workflow is invisible to approvers after step one.
	IncludeInProgressPending bool

	// Clock defaults to the system clock when nil.
	Clock Clock
}

// Engine orchestrates the approval workflow: it initiates requests, resolves
// who may act, applies actions and advances or terminates the state machine.
// Every state-changing call appends exactly one action atomically with the
// request mutation.
type Engine struct {
	db                *database.DB
	workflowRepo      *repository.WorkflowRepository
	requestRepo       *repository.RequestRepository
	actionRepo        *repository.ActionRepository
	users             UserDirectory
	clock             Clock
	locks             *requestLocks
	includeInProgress bool
	logger            *zap.Logger
}

// NewEngine creates a new approval engine
func NewEngine(
	db *database.DB,
	workflowRepo *repository.WorkflowRepository,
	requestRepo *repository.RequestRepository,
	actionRepo *repository.ActionRepository,
	users UserDirectory,
	opts Options,
	logger *zap.Logger,
) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}

	return &Engine{
		db:                db,
		workflowRepo:      workflowRepo,
		requestRepo:       requestRepo,
		actionRepo:        actionRepo,
		users:             users,
		clock:             clock,
		locks:             newRequestLocks(),
		includeInProgress: opts.IncludeInProgressPending,
		logger:            logger,
	}
}

// InitiateCommand carries the inputs for starting a new approval case.
type InitiateCommand struct {
	WorkflowCode   string
	DocumentType   string
	DocumentID     int64
	DocumentNumber string
	RequesterID    int64
	Amount         float64
	Priority       string
	DueDate        *time.Time
	Notes          string
}

// Initiate starts a new approval request for a document, pinned to the
// workflow's first step. Two identical calls create two independent
// requests; deduplication is the caller's concern.
func (e *Engine) Initiate(ctx context.Context, cmd InitiateCommand) (*models.Request, error) {
	wf, err := e.workflowRepo.GetByCode(cmd.WorkflowCode)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, notFound("workflow", cmd.WorkflowCode)
	}
	if !wf.Active {
		return nil, fmt.Errorf("%w: workflow %s is not active", ErrInvalidState, cmd.WorkflowCode)
	}

	requester, err := e.users.GetByID(cmd.RequesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, notFound("user", cmd.RequesterID)
	}

	steps, err := e.workflowRepo.GetStepsOrdered(wf.ID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: workflow %s has no steps configured", ErrInvalidState, cmd.WorkflowCode)
	}

	priority := cmd.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	req := &models.Request{
		WorkflowID:        wf.ID,
		DocumentType:      cmd.DocumentType,
		DocumentID:        cmd.DocumentID,
		DocumentNumber:    cmd.DocumentNumber,
		RequestedByUserID: requester.ID,
		RequestedDate:     e.clock.Now(),
		CurrentStepID:     steps[0].ID,
		Status:            models.StatusPending,
		TotalAmount:       cmd.Amount,
		Priority:          priority,
		DueDate:           cmd.DueDate,
		Notes:             cmd.Notes,
	}

	err = e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return e.requestRepo.Create(tx, req)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Approval request initiated",
		zap.Int64("request_id", req.ID),
		zap.String("workflow_code", wf.Code),
		zap.String("document_number", req.DocumentNumber),
		zap.Int64("requested_by", requester.ID),
		zap.Float64("amount", req.TotalAmount))

	return req, nil
}

// PendingForUser returns the open requests whose current step the given
// user may act on, matched by role or by direct assignment. Results may be
// stale under concurrency; Act re-validates before applying.
func (e *Engine) PendingForUser(userID int64) ([]*models.Request, error) {
	user, err := e.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user", userID)
	}

	statuses := []string{models.StatusPending}
	if e.includeInProgress {
		statuses = append(statuses, models.StatusInProgress)
	}

	requests, err := e.requestRepo.ListByStatus(statuses...)
	if err != nil {
		return nil, err
	}

	stepCache := make(map[int64]*models.Step)
	var pending []*models.Request

	for _, req := range requests {
		step, ok := stepCache[req.CurrentStepID]
		if !ok {
			step, err = e.workflowRepo.GetStepByID(req.CurrentStepID)
			if err != nil {
				return nil, err
			}
			if step == nil {
				return nil, notFound("step", req.CurrentStepID)
			}
			stepCache[req.CurrentStepID] = step
		}

		if step.ApproverMatches(user) {
			pending = append(pending, req)
		}
	}

	return pending, nil
}

// ActCommand carries one approver decision against a request. StepID, when
// set, is the step the actor believes is current; a mismatch with the live
// request fails with a conflict instead of silently acting on a later step.
type ActCommand struct {
	RequestID         int64
	ActorUserID       int64
	ActionType        string
	Comments          string
	DelegatedToUserID *int64
	AttachmentPath    string
	StepID            int64
}

// Act appends an action to the request's ledger and transitions its state.
// Approved advances to the next step or finalizes; Rejected terminates
// immediately; Clarify and Delegate are recorded without a transition.
// The action append and request mutation commit atomically, serialized per
// request ID.
func (e *Engine) Act(ctx context.Context, cmd ActCommand) error {
	if !models.ValidActionType(cmd.ActionType) {
		return fmt.Errorf("%w: unsupported action type %q", ErrInvalidInput, cmd.ActionType)
	}

	actor, err := e.users.GetByID(cmd.ActorUserID)
	if err != nil {
		return err
	}
	if actor == nil {
		return notFound("user", cmd.ActorUserID)
	}

	if cmd.ActionType == models.ActionDelegate {
		if cmd.DelegatedToUserID == nil {
			return fmt.Errorf("%w: delegate requires a target user", ErrInvalidInput)
		}
		target, err := e.users.GetByID(*cmd.DelegatedToUserID)
		if err != nil {
			return err
		}
		if target == nil {
			return notFound("user", *cmd.DelegatedToUserID)
		}
	}

	e.locks.Lock(cmd.RequestID)
	defer e.locks.Unlock(cmd.RequestID)

	var fromStatus, toStatus string

	err = e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		req, err := e.requestRepo.GetByIDTx(tx, cmd.RequestID)
		if err != nil {
			return err
		}
		if req == nil {
			return notFound("request", cmd.RequestID)
		}
		if req.IsTerminal() {
			return fmt.Errorf("%w: request %d already finalized as %s", ErrInvalidState, req.ID, req.Status)
		}
		if cmd.StepID != 0 && cmd.StepID != req.CurrentStepID {
			return fmt.Errorf("%w: request %d moved past step %d", ErrConflict, req.ID, cmd.StepID)
		}

		now := e.clock.Now()
		actorID := actor.ID
		action := &models.Action{
			RequestID:         req.ID,
			StepID:            req.CurrentStepID,
			ActionByUserID:    &actorID,
			ActionDate:        now,
			ActionType:        cmd.ActionType,
			DelegatedToUserID: cmd.DelegatedToUserID,
			Comments:          cmd.Comments,
			AttachmentPath:    cmd.AttachmentPath,
		}
		if err := e.actionRepo.Append(tx, action); err != nil {
			return err
		}

		fromStatus = req.Status
		if err := e.transition(ctx, req, cmd.ActionType, now); err != nil {
			return err
		}
		toStatus = req.Status

		updated, err := e.requestRepo.UpdateOnAction(tx, req)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: request %d was modified concurrently", ErrConflict, req.ID)
		}

		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("Action applied",
		zap.Int64("request_id", cmd.RequestID),
		zap.Int64("actor", actor.ID),
		zap.String("action_type", cmd.ActionType),
		zap.String("from_status", fromStatus),
		zap.String("to_status", toStatus))

	return nil
}

// transition applies the state change for an action type to the loaded
// request. Steps are matched by ID, not array position, so reordering a
// workflow's inactive steps cannot misroute a live request.
func (e *Engine) transition(ctx context.Context, req *models.Request, actionType string, now time.Time) error {
	switch actionType {
	case models.ActionApproved:
		steps, err := e.workflowRepo.GetStepsOrdered(req.WorkflowID)
		if err != nil {
			return err
		}

		index := -1
		for i, s := range steps {
			if s.ID == req.CurrentStepID {
				index = i
				break
			}
		}
		if index == -1 {
			return fmt.Errorf("%w: current step %d is not an active step of workflow %d",
				ErrInvalidState, req.CurrentStepID, req.WorkflowID)
		}

		hasNext := index+1 < len(steps)
		machine := newStatusMachine(State(req.Status), func(context.Context) bool { return hasNext })
		if err := machine.Fire(ctx, TriggerApprove); err != nil {
			return err
		}

		req.Status = machine.State().String()
		if hasNext {
			req.CurrentStepID = steps[index+1].ID
		} else {
			req.CompletedDate = &now
		}

	case models.ActionRejected:
		machine := newStatusMachine(State(req.Status), nil)
		if err := machine.Fire(ctx, TriggerReject); err != nil {
			return err
		}

		// The request is terminal; the current step stays where the
		// rejection happened for the audit trail.
		req.Status = machine.State().String()
		req.CompletedDate = &now

	case models.ActionClarify, models.ActionDelegate:
		// Recorded in the ledger only; no routing change is defined for
		// these actions.
	}

	return nil
}

// GetRequest retrieves a request by ID
func (e *Engine) GetRequest(id int64) (*models.Request, error) {
	req, err := e.requestRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, notFound("request", id)
	}
	return req, nil
}

// History returns the full action ledger for a request, oldest first
func (e *Engine) History(requestID int64) ([]*models.Action, error) {
	req, err := e.requestRepo.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, notFound("request", requestID)
	}
	return e.actionRepo.ListByRequestID(requestID)
}

// Escalate reroutes an overdue request from its current step to that step's
// configured escalation target, recording a system-generated action. Status
// is unchanged; only the routing moves.
func (e *Engine) Escalate(ctx context.Context, requestID int64) error {
	e.locks.Lock(requestID)
	defer e.locks.Unlock(requestID)

	var fromStep, toStep int64

	err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		req, err := e.requestRepo.GetByIDTx(tx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return notFound("request", requestID)
		}
		if req.IsTerminal() {
			return fmt.Errorf("%w: request %d already finalized as %s", ErrInvalidState, req.ID, req.Status)
		}

		step, err := e.workflowRepo.GetStepByID(req.CurrentStepID)
		if err != nil {
			return err
		}
		if step == nil {
			return notFound("step", req.CurrentStepID)
		}
		if step.EscalateToStep == nil {
			return fmt.Errorf("%w: step %d has no escalation target", ErrInvalidState, step.ID)
		}

		target, err := e.workflowRepo.GetStepByID(*step.EscalateToStep)
		if err != nil {
			return err
		}
		if target == nil {
			return notFound("step", *step.EscalateToStep)
		}
		if target.WorkflowID != req.WorkflowID {
			return fmt.Errorf("%w: escalation target step %d belongs to a different workflow",
				ErrInvalidState, target.ID)
		}

		now := e.clock.Now()
		action := &models.Action{
			RequestID:  req.ID,
			StepID:     req.CurrentStepID,
			ActionDate: now,
			ActionType: models.ActionEscalated,
			Comments:   fmt.Sprintf("escalated from step %d to step %d", step.StepNumber, target.StepNumber),
		}
		if err := e.actionRepo.Append(tx, action); err != nil {
			return err
		}

		fromStep = req.CurrentStepID
		toStep = target.ID
		req.CurrentStepID = target.ID

		updated, err := e.requestRepo.UpdateOnAction(tx, req)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: request %d was modified concurrently", ErrConflict, req.ID)
		}

		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("Request escalated",
		zap.Int64("request_id", requestID),
		zap.Int64("from_step", fromStep),
		zap.Int64("to_step", toStep))

	return nil
}
