package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/internal/domain/workflow"
)

var (
	// ErrTicketNotFound is returned for unknown ticket IDs
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrEmptyIntake is returned when an intake request carries no name
	ErrEmptyIntake = errors.New("ticket name is required")
)

// IntakeFile is a file uploaded with a new ticket
type IntakeFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// TicketIntake describes a ticket to open in NEW_INVOICES.
// With a Message, files are attached to that thread message; otherwise to the ticket.
type TicketIntake struct {
	Name    string
	Team    string
	Author  string
	Message string
	Files   []IntakeFile
}

// TicketDetail is a ticket with its thread and attachment metadata
type TicketDetail struct {
	Ticket      *entity.Ticket          `json:"ticket"`
	Thread      []*entity.ThreadMessage `json:"thread"`
	Attachments []*entity.Attachment    `json:"attachments"`
}

// TicketService opens, inspects and reopens tickets
type TicketService struct {
	tickets     port.TicketRepository
	threads     port.ThreadRepository
	attachments port.AttachmentRepository
	tx          port.TransactionManager
	author      string
	logger      Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(
	tickets port.TicketRepository,
	threads port.ThreadRepository,
	attachments port.AttachmentRepository,
	tx port.TransactionManager,
	author string,
	logger Logger,
) *TicketService {
	return &TicketService{
		tickets:     tickets,
		threads:     threads,
		attachments: attachments,
		tx:          tx,
		author:      author,
		logger:      logger,
	}
}

// Open creates a ticket in NEW_INVOICES with its files
func (s *TicketService) Open(ctx context.Context, in TicketIntake) (*entity.Ticket, error) {
	if in.Name == "" {
		return nil, ErrEmptyIntake
	}

	now := time.Now()
	ticket := &entity.Ticket{
		Name:      in.Name,
		Team:      in.Team,
		Stage:     entity.StageNewInvoices,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}

		ticketID := ticket.ID
		var messageID *int64
		if in.Message != "" {
			msg := &entity.ThreadMessage{
				TicketID:  ticket.ID,
				Author:    in.Author,
				Body:      in.Message,
				Kind:      entity.MessageKindComment,
				CreatedAt: now,
			}
			if err := s.threads.Append(ctx, msg); err != nil {
				return fmt.Errorf("failed to add message: %w", err)
			}
			messageID = &msg.ID
		}

		for _, f := range in.Files {
			att := &entity.Attachment{
				Name:      f.Name,
				MimeType:  f.MimeType,
				Size:      int64(len(f.Data)),
				Data:      f.Data,
				CreatedAt: now,
			}
			if messageID != nil {
				att.MessageID = messageID
			} else {
				att.TicketID = &ticketID
			}
			if err := s.attachments.Create(ctx, att); err != nil {
				return fmt.Errorf("failed to store attachment %s: %w", f.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to open ticket", "name", in.Name, "error", err)
		return nil, err
	}

	s.logger.Info("Ticket opened", "ticket_id", ticket.ID, "files", len(in.Files))
	return ticket, nil
}

// Get returns the ticket with its thread and every attachment
func (s *TicketService) Get(ctx context.Context, id int64) (*TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}

	thread, err := s.threads.ListByTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	atts, err := s.attachments.ListByTicket(ctx, id, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	for _, msg := range thread {
		msgAtts, err := s.attachments.ListByMessage(ctx, msg.ID, "")
		if err != nil {
			return nil, fmt.Errorf("failed to get message attachments: %w", err)
		}
		atts = append(atts, msgAtts...)
	}

	return &TicketDetail{Ticket: ticket, Thread: thread, Attachments: atts}, nil
}

// Reopen moves a ticket from an outcome stage back to NEW_INVOICES
func (s *TicketService) Reopen(ctx context.Context, id int64) (*entity.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}

	from := workflow.State(ticket.Stage)
	if !from.IsValid() {
		return nil, fmt.Errorf("%w: unknown stage %s", workflow.ErrInvalidTransition, ticket.Stage)
	}

	machine := workflow.NewTicketMachine(from)
	if err := machine.Fire(ctx, workflow.TriggerReopen); err != nil {
		return nil, err
	}

	update := entity.TicketUpdate{Stage: machine.State().String()}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.tickets.Apply(ctx, id, update); err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}
		return s.threads.Append(ctx, &entity.ThreadMessage{
			TicketID:  id,
			Author:    s.author,
			Body:      fmt.Sprintf("Ticket moved from '%s' back to '%s' for reprocessing", stageLabel(ticket.Stage), stageLabel(update.Stage)),
			Kind:      entity.MessageKindNote,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	ticket.Stage = update.Stage
	s.logger.Info("Ticket reopened", "ticket_id", id, "from", string(from))
	return ticket, nil
}
