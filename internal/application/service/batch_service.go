package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

// BatchRequest selects the tickets for a run. Empty TicketIDs means every eligible ticket.
type BatchRequest struct {
	Trigger   string
	TicketIDs []int64
	Limit     int
}

// BatchSettings bounds every run
type BatchSettings struct {
	Team    string
	Limit   int
	Timeout time.Duration
}

// BatchService drives the ticket processor over eligible tickets and records each run
type BatchService struct {
	tickets   port.TicketRepository
	runs      port.BatchRunRepository
	stages    *StageService
	processor *TicketProcessor
	notifier  port.Notifier
	settings  BatchSettings
	logger    Logger
	now       func() time.Time
}

// NewBatchService creates a new BatchService. notifier may be nil.
func NewBatchService(
	tickets port.TicketRepository,
	runs port.BatchRunRepository,
	stages *StageService,
	processor *TicketProcessor,
	notifier port.Notifier,
	settings BatchSettings,
	logger Logger,
) *BatchService {
	return &BatchService{
		tickets:   tickets,
		runs:      runs,
		stages:    stages,
		processor: processor,
		notifier:  notifier,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessAll processes every ticket in NEW_INVOICES and reports whether the batch ran
func (s *BatchService) ProcessAll(ctx context.Context) bool {
	_, err := s.Run(ctx, BatchRequest{Trigger: entity.RunTriggerSchedule})
	return err == nil
}

// ProcessTickets processes exactly the given tickets and reports whether the batch ran
func (s *BatchService) ProcessTickets(ctx context.Context, ids []int64) bool {
	_, err := s.Run(ctx, BatchRequest{Trigger: entity.RunTriggerManual, TicketIDs: ids})
	return err == nil
}

// Run executes one batch. Ticket failures are recorded on the run and never abort it;
// only missing stages or an unreadable ticket queue fail the batch.
func (s *BatchService) Run(ctx context.Context, req BatchRequest) (*entity.BatchRun, error) {
	started := s.now()
	run := &entity.BatchRun{
		ID:        uuid.NewString(),
		Trigger:   req.Trigger,
		StartedAt: started,
	}

	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Error("Failed to record batch run", "run_id", run.ID, "error", err)
	}

	if err := s.stages.Check(ctx); err != nil {
		s.logger.Error("Batch aborted: stage configuration invalid", "run_id", run.ID, "error", err)
		return run, s.finish(ctx, run, err)
	}

	tickets, err := s.selectTickets(ctx, req)
	if err != nil {
		s.logger.Error("Batch aborted: failed to select tickets", "run_id", run.ID, "error", err)
		return run, s.finish(ctx, run, err)
	}

	s.logger.Info("Batch started", "run_id", run.ID, "trigger", run.Trigger, "tickets", len(tickets))

	var deadline time.Time
	if s.settings.Timeout > 0 {
		deadline = started.Add(s.settings.Timeout)
	}

	for i, ticket := range tickets {
		if err := ctx.Err(); err != nil {
			s.logger.Info("Batch interrupted", "run_id", run.ID, "processed", i, "remaining", len(tickets)-i)
			break
		}
		if !deadline.IsZero() && s.now().After(deadline) {
			s.logger.Info("Batch time budget exhausted", "run_id", run.ID, "processed", i, "remaining", len(tickets)-i)
			break
		}

		run.Record(s.processOne(ctx, run.ID, ticket))
	}

	return run, s.finish(ctx, run, nil)
}

func (s *BatchService) selectTickets(ctx context.Context, req BatchRequest) ([]*entity.Ticket, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.settings.Limit
	}

	if len(req.TicketIDs) == 0 {
		return s.tickets.List(ctx, entity.TicketFilter{
			Stage: entity.StageNewInvoices,
			Team:  s.settings.Team,
			Limit: limit,
		})
	}

	tickets := make([]*entity.Ticket, 0, len(req.TicketIDs))
	for _, id := range req.TicketIDs {
		if limit > 0 && len(tickets) >= limit {
			break
		}
		t, err := s.tickets.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get ticket %d: %w", id, err)
		}
		if t == nil {
			s.logger.Info("Requested ticket not found", "ticket_id", id)
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// processOne shields the batch from a failing ticket
func (s *BatchService) processOne(ctx context.Context, runID string, ticket *entity.Ticket) (line entity.BatchRunTicket) {
	line = entity.BatchRunTicket{RunID: runID, TicketID: ticket.ID, TicketName: ticket.Name}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while processing ticket", "run_id", runID, "ticket_id", ticket.ID, "panic", r)
			line.Error = fmt.Sprintf("unexpected error: %v", r)
		}
	}()

	outcome, err := s.processor.Process(ctx, ticket)
	if err != nil {
		s.logger.Error("Failed to process ticket", "run_id", runID, "ticket_id", ticket.ID, "error", err)
		line.Error = err.Error()
		s.processor.annotate(ctx, ticket.ID, fmt.Sprintf("Error processing ticket: %v", err))
		return line
	}

	if outcome.Skipped {
		line.Reason = outcome.Reason
		return line
	}

	line.Stage = outcome.Stage
	line.PONumber = ticket.PONumber
	line.InvoiceID = ticket.InvoiceID
	if outcome.Decisive != nil {
		line.Reason = outcome.Decisive.Reason
	}
	return line
}

func (s *BatchService) finish(ctx context.Context, run *entity.BatchRun, runErr error) error {
	ctx = context.WithoutCancel(ctx)
	finished := s.now()
	run.FinishedAt = &finished
	run.Success = runErr == nil
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := s.runs.Finish(ctx, run); err != nil {
		s.logger.Error("Failed to store batch run", "run_id", run.ID, "error", err)
	}

	s.logger.Info("Batch finished",
		"run_id", run.ID,
		"success", run.Success,
		"tickets", run.TicketCount,
		"linked", run.Linked,
		"duplicates", run.Duplicates,
		"failed", run.Failed,
		"duration", finished.Sub(run.StartedAt).String())

	if s.notifier != nil && (run.TicketCount > 0 || runErr != nil) {
		if err := s.notifier.NotifyBatch(ctx, run); err != nil {
			s.logger.Error("Failed to send batch notification", "run_id", run.ID, "error", err)
		}
	}

	return runErr
}

// IsConfigurationError reports whether a batch failed because of missing stages
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrStagesMissing)
}
