package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const ticketColumns = `id, name, team, stage, invoice_id, po_number, cuit, total_amount, iva_amount, created_at, updated_at`

// TicketRepository implements port.TicketRepository
type TicketRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sqlite.DB, logger *zap.Logger) port.TicketRepository {
	return &TicketRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a ticket
func (r *TicketRepository) Create(ctx context.Context, ticket *entity.Ticket) error {
	query := `
		INSERT INTO tickets (name, team, stage, invoice_id, po_number, cuit, total_amount, iva_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	if ticket.UpdatedAt.IsZero() {
		ticket.UpdatedAt = ticket.CreatedAt
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		ticket.Name,
		ticket.Team,
		ticket.Stage,
		nullableInt64(ticket.InvoiceID),
		ticket.PONumber,
		ticket.CUIT,
		ticket.TotalAmount,
		ticket.IVAAmount,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ticket", zap.String("name", ticket.Name), zap.Error(err))
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	ticket.ID = id
	return nil
}

// GetByID retrieves a ticket by ID
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`

	ticket, err := scanTicket(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get ticket by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

// List returns tickets in a stage, optionally restricted to a team, oldest first
func (r *TicketRepository) List(ctx context.Context, filter entity.TicketFilter) ([]*entity.Ticket, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Stage != "" {
		where = append(where, "stage = ?")
		args = append(args, filter.Stage)
	}
	if filter.Team != "" {
		where = append(where, "team = ?")
		args = append(args, filter.Team)
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list tickets", zap.String("stage", filter.Stage), zap.Error(err))
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*entity.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// Apply writes the stage and every non-nil field of the update
func (r *TicketRepository) Apply(ctx context.Context, id int64, update entity.TicketUpdate) error {
	sets := []string{"stage = ?", "updated_at = ?"}
	args := []interface{}{update.Stage, time.Now()}

	if update.InvoiceID != nil {
		sets = append(sets, "invoice_id = ?")
		args = append(args, *update.InvoiceID)
	}
	if update.PONumber != nil {
		sets = append(sets, "po_number = ?")
		args = append(args, *update.PONumber)
	}
	if update.CUIT != nil {
		sets = append(sets, "cuit = ?")
		args = append(args, *update.CUIT)
	}
	if update.TotalAmount != nil {
		sets = append(sets, "total_amount = ?")
		args = append(args, *update.TotalAmount)
	}
	if update.IVAAmount != nil {
		sets = append(sets, "iva_amount = ?")
		args = append(args, *update.IVAAmount)
	}

	query := `UPDATE tickets SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update ticket",
			zap.Int64("id", id),
			zap.String("stage", update.Stage),
			zap.Error(err))
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ticket %d not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (*entity.Ticket, error) {
	var (
		t         entity.Ticket
		team      sql.NullString
		invoiceID sql.NullInt64
		poNumber  sql.NullString
		cuit      sql.NullString
	)

	err := row.Scan(
		&t.ID,
		&t.Name,
		&team,
		&t.Stage,
		&invoiceID,
		&poNumber,
		&cuit,
		&t.TotalAmount,
		&t.IVAAmount,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Team = team.String
	t.InvoiceID = int64Ptr(invoiceID)
	t.PONumber = poNumber.String
	t.CUIT = cuit.String
	return &t, nil
}

// Verify interface compliance
var _ port.TicketRepository = (*TicketRepository)(nil)
