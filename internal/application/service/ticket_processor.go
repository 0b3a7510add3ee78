package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/internal/domain/workflow"
	"github.com/garyjia/ap-invoice-intake/internal/invoice"
)

// Logger defines logging interface
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// TicketOutcome is the result of one processing pass over a ticket
type TicketOutcome struct {
	TicketID int64
	Stage    string
	Trigger  workflow.Trigger
	Results  []entity.AttachmentResult
	Decisive *entity.AttachmentResult
	Update   entity.TicketUpdate
	Skipped  bool
	Reason   string
}

// TicketProcessor runs the extraction, resolution and creation chain for a ticket and moves it
// to exactly one outcome stage
type TicketProcessor struct {
	tickets     port.TicketRepository
	threads     port.ThreadRepository
	attachments port.AttachmentRepository
	extractor   port.TextExtractor
	engine      *invoice.Engine
	resolver    *POResolver
	creator     *InvoiceCreator
	tx          port.TransactionManager
	author      string
	logger      Logger
}

// NewTicketProcessor creates a new TicketProcessor
func NewTicketProcessor(
	tickets port.TicketRepository,
	threads port.ThreadRepository,
	attachments port.AttachmentRepository,
	extractor port.TextExtractor,
	engine *invoice.Engine,
	resolver *POResolver,
	creator *InvoiceCreator,
	tx port.TransactionManager,
	author string,
	logger Logger,
) *TicketProcessor {
	return &TicketProcessor{
		tickets:     tickets,
		threads:     threads,
		attachments: attachments,
		extractor:   extractor,
		engine:      engine,
		resolver:    resolver,
		creator:     creator,
		tx:          tx,
		author:      author,
		logger:      logger,
	}
}

// Process handles a ticket in NEW_INVOICES. Tickets in any other stage are skipped.
// Attachment-level failures become results and annotations; an error is returned only when
// the ticket itself could not be read or written.
func (p *TicketProcessor) Process(ctx context.Context, ticket *entity.Ticket) (*TicketOutcome, error) {
	outcome := &TicketOutcome{TicketID: ticket.ID}

	if workflow.State(ticket.Stage) != workflow.StateNewInvoices {
		outcome.Skipped = true
		outcome.Reason = fmt.Sprintf("ticket is in stage %s", ticket.Stage)
		return outcome, nil
	}
	machine := workflow.NewTicketMachine(workflow.StateNewInvoices)

	pdfs, err := p.gatherPDFs(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	if len(pdfs) == 0 {
		outcome.Trigger = workflow.TriggerNoPDF
	} else {
		for _, att := range pdfs {
			result := p.processAttachment(ctx, ticket, att)
			outcome.Results = append(outcome.Results, result)
			if result.StopsProcessing() {
				break
			}
		}

		outcome.Trigger, err = workflow.Decide(outcome.Results)
		if err != nil {
			return nil, fmt.Errorf("failed to decide outcome: %w", err)
		}
		outcome.Decisive = workflow.Deciding(outcome.Results, outcome.Trigger)
	}

	if err := machine.Fire(ctx, outcome.Trigger); err != nil {
		return nil, fmt.Errorf("failed to transition ticket %d: %w", ticket.ID, err)
	}

	outcome.Stage = machine.State().String()
	outcome.Update = buildUpdate(outcome.Stage, outcome.Decisive)
	note := transitionNote(machine.State(), len(pdfs), outcome.Decisive)

	err = p.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := p.tickets.Apply(ctx, ticket.ID, outcome.Update); err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}
		if err := p.threads.Append(ctx, p.note(ticket.ID, note)); err != nil {
			return fmt.Errorf("failed to annotate transition: %w", err)
		}
		return nil
	})
	if err != nil {
		p.logger.Error("Failed to apply ticket transition", "ticket_id", ticket.ID, "stage", outcome.Stage, "error", err)
		return nil, err
	}

	applyUpdate(ticket, outcome.Update)

	p.logger.Info("Ticket processed",
		"ticket_id", ticket.ID,
		"stage", outcome.Stage,
		"pdfs", len(pdfs),
		"attachments_processed", len(outcome.Results))

	return outcome, nil
}

// gatherPDFs returns the ticket's own PDFs followed by the PDFs of each thread message
func (p *TicketProcessor) gatherPDFs(ctx context.Context, ticketID int64) ([]*entity.Attachment, error) {
	pdfs, err := p.attachments.ListByTicket(ctx, ticketID, entity.MimeTypePDF)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket attachments: %w", err)
	}

	messages, err := p.threads.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket thread: %w", err)
	}

	for _, msg := range messages {
		atts, err := p.attachments.ListByMessage(ctx, msg.ID, entity.MimeTypePDF)
		if err != nil {
			return nil, fmt.Errorf("failed to list message attachments: %w", err)
		}
		pdfs = append(pdfs, atts...)
	}

	return pdfs, nil
}

// processAttachment never panics or returns an error; every failure is a result
func (p *TicketProcessor) processAttachment(ctx context.Context, ticket *entity.Ticket, att *entity.Attachment) (result entity.AttachmentResult) {
	result = entity.AttachmentResult{AttachmentID: att.ID, AttachmentName: att.Name}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Panic while processing attachment", "ticket_id", ticket.ID, "attachment_id", att.ID, "panic", r)
			result.Kind = entity.ResultError
			result.Reason = fmt.Sprintf("unexpected error: %v", r)
			p.annotate(ctx, ticket.ID, attachmentErrorNote(att, result.Reason))
		}
	}()

	data, err := p.attachments.GetData(ctx, att.ID)
	if err != nil {
		result.Kind = entity.ResultError
		result.Reason = fmt.Sprintf("could not read attachment: %v", err)
		p.annotate(ctx, ticket.ID, attachmentErrorNote(att, result.Reason))
		return result
	}

	text := p.extractor.Extract(ctx, data)
	if text == "" {
		result.Kind = entity.ResultNoValidPO
		result.Reason = "no extractable text"
		p.annotate(ctx, ticket.ID, noTextNote(att))
		return result
	}

	po := p.engine.ExtractPO(text)
	if !po.Found {
		result.Kind = entity.ResultNoValidPO
		result.Reason = "no valid PO candidate"
		p.annotate(ctx, ticket.ID, noPONote(att, po))
		return result
	}

	if err := invoice.CheckResolvable(po.PONumber); err != nil {
		result.Kind = entity.ResultNoValidPO
		result.Reason = fmt.Sprintf("PO candidate %s: %v", po.PONumber, err)
		p.annotate(ctx, ticket.ID, noPONote(att, po))
		return result
	}

	fields := p.engine.ExtractFields(text, po.PONumber)
	result.PONumber = po.PONumber
	result.Special = po.Special
	result.Data = fields
	p.annotate(ctx, ticket.ID, extractionNote(att, po, fields))

	res, err := p.resolver.Resolve(ctx, po.PONumber)
	if err != nil {
		result.Kind = entity.ResultError
		result.Reason = err.Error()
		p.annotate(ctx, ticket.ID, attachmentErrorNote(att, result.Reason))
		return result
	}
	if !res.Found {
		result.Kind = entity.ResultPOInexistent
		result.Reason = fmt.Sprintf("no purchase order matches %s", res.Cleaned)
		p.annotate(ctx, ticket.ID, poInexistentNote(att, res))
		return result
	}

	// The resolved order's reference is canonical from here on.
	fields.PONumber = res.Order.Reference
	result.PONumber = res.Order.Reference

	created, err := p.creator.CreateOrLink(ctx, res.Order, fields)
	if err != nil {
		result.Kind = entity.ResultCreationFailed
		result.Reason = err.Error()
		p.logger.Error("Failed to create invoice", "ticket_id", ticket.ID, "attachment_id", att.ID, "error", err)
		p.annotate(ctx, ticket.ID, creationFailedNote(att, result.PONumber, err))
		return result
	}

	result.Record = created.Record
	if created.Created {
		result.Kind = entity.ResultInvoiceLinked
		return result
	}

	result.Kind = entity.ResultDuplicateFound
	result.Warnings = created.Warnings()
	if len(result.Warnings) > 0 {
		p.annotate(ctx, ticket.ID, duplicateWarningNote(att, result.Warnings))
	}
	return result
}

// annotate appends a note to the ticket thread; failures are logged only
func (p *TicketProcessor) annotate(ctx context.Context, ticketID int64, body string) {
	if err := p.threads.Append(ctx, p.note(ticketID, body)); err != nil {
		p.logger.Error("Failed to annotate ticket", "ticket_id", ticketID, "error", err)
	}
}

func (p *TicketProcessor) note(ticketID int64, body string) *entity.ThreadMessage {
	return &entity.ThreadMessage{
		TicketID:  ticketID,
		Author:    p.author,
		Body:      body,
		Kind:      entity.MessageKindNote,
		CreatedAt: time.Now(),
	}
}

// buildUpdate returns the ticket writes for an outcome stage
func buildUpdate(stage string, decisive *entity.AttachmentResult) entity.TicketUpdate {
	update := entity.TicketUpdate{Stage: stage}
	if decisive == nil {
		return update
	}

	switch stage {
	case entity.StageInvoiceLinked, entity.StageDuplicateFound:
		po := decisive.PONumber
		update.PONumber = &po
		if decisive.Record != nil {
			id := decisive.Record.ID
			update.InvoiceID = &id
		}
		if decisive.Data != nil {
			cuit, total, iva := decisive.Data.CUIT, decisive.Data.TotalAmount, decisive.Data.IVAAmount
			update.CUIT = &cuit
			update.TotalAmount = &total
			update.IVAAmount = &iva
		}
	case entity.StagePOInexistent:
		po := decisive.PONumber
		update.PONumber = &po
	}

	return update
}

func applyUpdate(ticket *entity.Ticket, u entity.TicketUpdate) {
	ticket.Stage = u.Stage
	if u.InvoiceID != nil {
		ticket.InvoiceID = u.InvoiceID
	}
	if u.PONumber != nil {
		ticket.PONumber = *u.PONumber
	}
	if u.CUIT != nil {
		ticket.CUIT = *u.CUIT
	}
	if u.TotalAmount != nil {
		ticket.TotalAmount = *u.TotalAmount
	}
	if u.IVAAmount != nil {
		ticket.IVAAmount = *u.IVAAmount
	}
}
