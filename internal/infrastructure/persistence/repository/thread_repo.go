package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ThreadRepository implements port.ThreadRepository
type ThreadRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(db *sqlite.DB, logger *zap.Logger) port.ThreadRepository {
	return &ThreadRepository{
		db:     db,
		logger: logger,
	}
}

// Append adds a message to a ticket thread
func (r *ThreadRepository) Append(ctx context.Context, msg *entity.ThreadMessage) error {
	query := `
		INSERT INTO thread_messages (ticket_id, author, body, kind, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.Kind == "" {
		msg.Kind = entity.MessageKindComment
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		msg.TicketID,
		msg.Author,
		msg.Body,
		msg.Kind,
		msg.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append thread message", zap.Int64("ticket_id", msg.TicketID), zap.Error(err))
		return fmt.Errorf("failed to append thread message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// ListByTicket returns a ticket's thread in posting order
func (r *ThreadRepository) ListByTicket(ctx context.Context, ticketID int64) ([]*entity.ThreadMessage, error) {
	query := `
		SELECT id, ticket_id, author, body, kind, created_at
		FROM thread_messages
		WHERE ticket_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, ticketID)
	if err != nil {
		r.logger.Error("Failed to list thread", zap.Int64("ticket_id", ticketID), zap.Error(err))
		return nil, fmt.Errorf("failed to list thread: %w", err)
	}
	defer rows.Close()

	var messages []*entity.ThreadMessage
	for rows.Next() {
		var (
			msg    entity.ThreadMessage
			author sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.TicketID, &author, &msg.Body, &msg.Kind, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan thread message: %w", err)
		}
		msg.Author = author.String
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// Verify interface compliance
var _ port.ThreadRepository = (*ThreadRepository)(nil)
