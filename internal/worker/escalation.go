package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/repository"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/workflow"
	"github.com/hako/durafmt"
	"go.uber.org/zap"
)

// EscalationScanner periodically finds requests that have sat at a step
// longer than the step's escalation window and reroutes them through the
// engine. Steps without an escalation target are only logged as overdue.
type EscalationScanner struct {
	requestRepo  *repository.RequestRepository
	workflowRepo *repository.WorkflowRepository
	engine       *workflow.Engine
	clock        workflow.Clock
	logger       *zap.Logger

	scanInterval time.Duration
	batchSize    int

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewEscalationScanner creates a new escalation scanner
func NewEscalationScanner(
	requestRepo *repository.RequestRepository,
	workflowRepo *repository.WorkflowRepository,
	engine *workflow.Engine,
	clock workflow.Clock,
	scanInterval time.Duration,
	batchSize int,
	logger *zap.Logger,
) *EscalationScanner {
	return &EscalationScanner{
		requestRepo:  requestRepo,
		workflowRepo: workflowRepo,
		engine:       engine,
		clock:        clock,
		logger:       logger,
		scanInterval: scanInterval,
		batchSize:    batchSize,
	}
}

// Start starts the escalation scanner
func (s *EscalationScanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("escalation scanner is already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.isRunning = true

	s.logger.Info("EscalationScanner started",
		zap.Duration("scan_interval", s.scanInterval),
		zap.Int("batch_size", s.batchSize))

	go s.scanLoop()

	return nil
}

// Stop stops the escalation scanner
func (s *EscalationScanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.isRunning = false
	if s.cancel != nil {
		s.cancel()
	}

	s.logger.Info("EscalationScanner stopped")
}

// Name returns the worker name for identification
func (s *EscalationScanner) Name() string {
	return "EscalationScanner"
}

func (s *EscalationScanner) scanLoop() {
	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	// Scan immediately on start
	s.ScanOnce(s.ctx)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug("Scan loop context cancelled")
			return

		case <-ticker.C:
			s.ScanOnce(s.ctx)
		}
	}
}

// ScanOnce runs a single escalation pass. Exported so tests and operational
// tooling can drive a scan without the ticker loop.
func (s *EscalationScanner) ScanOnce(ctx context.Context) {
	now := s.clock.Now()

	overdue, err := s.requestRepo.ListOverdue(now, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to scan for overdue requests", zap.Error(err))
		return
	}

	if len(overdue) == 0 {
		return
	}

	escalated := 0
	for _, item := range overdue {
		req := item.Request
		idle := now.Sub(item.IdleSince)
		idleHuman := durafmt.Parse(idle.Truncate(time.Minute)).LimitFirstN(2).String()

		step, err := s.workflowRepo.GetStepByID(req.CurrentStepID)
		if err != nil {
			s.logger.Error("Failed to load step for overdue request",
				zap.Int64("request_id", req.ID),
				zap.Error(err))
			continue
		}
		if step == nil || step.EscalateToStep == nil {
			s.logger.Warn("Request overdue with no escalation target",
				zap.Int64("request_id", req.ID),
				zap.String("document_number", req.DocumentNumber),
				zap.String("idle_for", idleHuman))
			continue
		}

		if err := s.engine.Escalate(ctx, req.ID); err != nil {
			s.logger.Error("Failed to escalate request",
				zap.Int64("request_id", req.ID),
				zap.Error(err))
			continue
		}

		s.logger.Info("Escalated overdue request",
			zap.Int64("request_id", req.ID),
			zap.String("document_number", req.DocumentNumber),
			zap.String("idle_for", idleHuman))
		escalated++
	}

	s.logger.Info("Escalation scan completed",
		zap.Int("overdue", len(overdue)),
		zap.Int("escalated", escalated))
}
