// Package worker hosts the background jobs of the service. The overdue
// scanner walks active requests on a cron schedule and flags the ones that
// sat on a step past its estimated duration.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/civicdesk/caseflow/internal/application/dispatcher"
	"github.com/civicdesk/caseflow/internal/application/port"
	"github.com/civicdesk/caseflow/internal/domain/entity"
	"github.com/civicdesk/caseflow/internal/domain/event"
)

// OverdueScanner periodically checks active requests against their current
// step's estimated duration and emits step.overdue events for breaches.
type OverdueScanner struct {
	requests    port.RequestRepository
	definitions port.DefinitionRegistry
	dispatcher  dispatcher.Dispatcher
	logger      *zap.Logger

	schedule string
	cron     *cron.Cron

	mu        sync.Mutex
	isRunning bool
	// notified remembers the step a request was last flagged on so a
	// breach is reported once per step, not once per scan.
	notified map[int64]string
}

// NewOverdueScanner creates an overdue scanner. schedule is a standard cron
// expression, e.g. "*/15 * * * *".
func NewOverdueScanner(
	requests port.RequestRepository,
	definitions port.DefinitionRegistry,
	d dispatcher.Dispatcher,
	schedule string,
	logger *zap.Logger,
) *OverdueScanner {
	return &OverdueScanner{
		requests:    requests,
		definitions: definitions,
		dispatcher:  d,
		logger:      logger,
		schedule:    schedule,
		notified:    make(map[int64]string),
	}
}

// Start schedules the scan job.
func (s *OverdueScanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("overdue scanner is already running")
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() { s.Scan(ctx) }); err != nil {
		return fmt.Errorf("schedule overdue scan: %w", err)
	}
	s.cron.Start()
	s.isRunning = true

	s.logger.Info("OverdueScanner started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the schedule and waits for a scan in flight. The wait happens
// outside the lock so the scan can still reach the notified map.
func (s *OverdueScanner) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	c := s.cron
	s.isRunning = false
	s.mu.Unlock()

	<-c.Stop().Done()

	s.logger.Info("OverdueScanner stopped")
}

// Name returns the worker name for identification
func (s *OverdueScanner) Name() string {
	return "OverdueScanner"
}

// Scan runs one pass over the active requests. Exposed for the scheduler
// and for on-demand runs.
func (s *OverdueScanner) Scan(ctx context.Context) {
	active, err := s.requests.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list active requests", zap.Error(err))
		return
	}

	now := time.Now()
	flagged := 0
	for _, req := range active {
		step := s.stepOf(req)
		if step == nil || step.EstimatedDuration == 0 {
			continue
		}

		age := now.Sub(req.UpdatedAt)
		if age <= step.EstimatedDuration.Std() {
			continue
		}
		if s.alreadyNotified(req.ID, step.ID) {
			continue
		}

		s.logger.Info("request overdue on step",
			zap.Int64("request_id", req.ID),
			zap.String("step_id", step.ID),
			zap.Duration("age", age),
			zap.Duration("estimate", step.EstimatedDuration.Std()))

		if s.dispatcher != nil {
			s.dispatcher.DispatchAsync(ctx, event.New(event.TypeStepOverdue, req.ID, req.Reference, map[string]interface{}{
				"step_id":   step.ID,
				"office_id": req.AssignedToOfficeID,
				"age":       age.String(),
			}))
		}
		s.markNotified(req.ID, step.ID)
		flagged++
	}

	if flagged > 0 {
		s.logger.Info("overdue scan completed",
			zap.Int("active", len(active)),
			zap.Int("flagged", flagged))
	}
}

func (s *OverdueScanner) stepOf(req *entity.ServiceRequest) *entity.WorkflowStep {
	def, err := s.definitions.GetByID(req.WorkflowDefinitionID)
	if err != nil {
		s.logger.Warn("request bound to unknown workflow",
			zap.Int64("request_id", req.ID),
			zap.String("workflow_id", req.WorkflowDefinitionID))
		return nil
	}
	return def.Step(req.CurrentStepID)
}

func (s *OverdueScanner) alreadyNotified(requestID int64, stepID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notified[requestID] == stepID
}

func (s *OverdueScanner) markNotified(requestID int64, stepID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified[requestID] = stepID
}
