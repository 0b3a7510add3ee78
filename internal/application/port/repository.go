package port

import (
	"context"

	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

// TicketRepository defines persistence operations for Ticket
type TicketRepository interface {
	Create(ctx context.Context, ticket *entity.Ticket) error
	GetByID(ctx context.Context, id int64) (*entity.Ticket, error)

	// List returns tickets matching the filter ordered by ID
	List(ctx context.Context, filter entity.TicketFilter) ([]*entity.Ticket, error)

	// Apply writes the stage and any non-nil result field
	Apply(ctx context.Context, id int64, update entity.TicketUpdate) error
}

// ThreadRepository defines persistence operations for ticket activity threads.
// Messages are append-only.
type ThreadRepository interface {
	Append(ctx context.Context, msg *entity.ThreadMessage) error
	ListByTicket(ctx context.Context, ticketID int64) ([]*entity.ThreadMessage, error)
}

// AttachmentRepository defines persistence operations for Attachment.
// List methods return metadata only; payloads are read with GetData.
type AttachmentRepository interface {
	Create(ctx context.Context, att *entity.Attachment) error
	ListByTicket(ctx context.Context, ticketID int64, mimeType string) ([]*entity.Attachment, error)
	ListByMessage(ctx context.Context, messageID int64, mimeType string) ([]*entity.Attachment, error)
	GetData(ctx context.Context, id int64) ([]byte, error)
}

// PurchaseOrderRepository looks up purchase orders. Returned orders carry their partner and lines.
type PurchaseOrderRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error)

	// FindByReferences matches any reference exactly, ignoring case
	FindByReferences(ctx context.Context, refs []string) ([]*entity.PurchaseOrder, error)

	// FindByReferenceContaining matches references containing any fragment, ignoring case
	FindByReferenceContaining(ctx context.Context, fragments []string) ([]*entity.PurchaseOrder, error)
}

// PartnerRepository defines lookups for vendors
type PartnerRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Partner, error)
	FindByVAT(ctx context.Context, vat string) (*entity.Partner, error)
}

// AccountingRecordRepository defines persistence operations for AccountingRecord
type AccountingRecordRepository interface {
	// Create inserts the record and its lines
	Create(ctx context.Context, record *entity.AccountingRecord) error
	GetByID(ctx context.Context, id int64) (*entity.AccountingRecord, error)

	// ListActive returns every non-cancelled record of the move type
	ListActive(ctx context.Context, moveType string) ([]*entity.AccountingRecord, error)

	// FindByVATAndTotal returns the first non-cancelled record of the move type for the vendor VAT and exact total
	FindByVATAndTotal(ctx context.Context, moveType, vat string, total float64) (*entity.AccountingRecord, error)
}

// ReferenceRepository defines lookups over the chart of accounts, taxes, document types and analytic accounts
type ReferenceRepository interface {
	GetAccountByCode(ctx context.Context, code string) (*entity.Account, error)
	FindAccountByType(ctx context.Context, accountType string) (*entity.Account, error)
	GetTaxByCode(ctx context.Context, code string) (*entity.Tax, error)
	FindPurchaseTaxByRate(ctx context.Context, rate float64) (*entity.Tax, error)

	// FindDocumentType returns the first document type whose code equals, or whose name contains, a fragment
	FindDocumentType(ctx context.Context, fragments []string) (*entity.DocumentType, error)

	GetAnalyticAccountByCode(ctx context.Context, code string) (*entity.AnalyticAccount, error)
	GetDefaultAnalyticAccount(ctx context.Context) (*entity.AnalyticAccount, error)
}

// StageRepository defines persistence operations for helpdesk stages
type StageRepository interface {
	List(ctx context.Context) ([]*entity.Stage, error)
	Create(ctx context.Context, stage *entity.Stage) error
}

// BatchRunRepository defines persistence operations for BatchRun
type BatchRunRepository interface {
	Create(ctx context.Context, run *entity.BatchRun) error

	// Finish stores the final counters and the per-ticket lines
	Finish(ctx context.Context, run *entity.BatchRun) error

	// GetByID returns the run with its ticket lines
	GetByID(ctx context.Context, id string) (*entity.BatchRun, error)
	List(ctx context.Context, limit int) ([]*entity.BatchRun, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
