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

// AttachmentRepository implements port.AttachmentRepository
type AttachmentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *sqlite.DB, logger *zap.Logger) port.AttachmentRepository {
	return &AttachmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores an attachment with its payload
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.Attachment) error {
	query := `
		INSERT INTO attachments (ticket_id, message_id, name, mime_type, size, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now()
	}
	if att.Size == 0 {
		att.Size = int64(len(att.Data))
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		nullableInt64(att.TicketID),
		nullableInt64(att.MessageID),
		att.Name,
		att.MimeType,
		att.Size,
		att.Data,
		att.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create attachment", zap.String("name", att.Name), zap.Error(err))
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	att.ID = id
	return nil
}

// ListByTicket returns attachment metadata owned by the ticket; an empty mimeType matches all
func (r *AttachmentRepository) ListByTicket(ctx context.Context, ticketID int64, mimeType string) ([]*entity.Attachment, error) {
	return r.list(ctx, "ticket_id", ticketID, mimeType)
}

// ListByMessage returns attachment metadata owned by a thread message; an empty mimeType matches all
func (r *AttachmentRepository) ListByMessage(ctx context.Context, messageID int64, mimeType string) ([]*entity.Attachment, error) {
	return r.list(ctx, "message_id", messageID, mimeType)
}

func (r *AttachmentRepository) list(ctx context.Context, owner string, ownerID int64, mimeType string) ([]*entity.Attachment, error) {
	query := `
		SELECT id, ticket_id, message_id, name, mime_type, size, created_at
		FROM attachments
		WHERE ` + owner + ` = ? AND (? = '' OR mime_type = ?)
		ORDER BY id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, ownerID, mimeType, mimeType)
	if err != nil {
		r.logger.Error("Failed to list attachments",
			zap.String("owner", owner),
			zap.Int64("owner_id", ownerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var atts []*entity.Attachment
	for rows.Next() {
		var (
			att       entity.Attachment
			ticketID  sql.NullInt64
			messageID sql.NullInt64
		)
		if err := rows.Scan(&att.ID, &ticketID, &messageID, &att.Name, &att.MimeType, &att.Size, &att.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		att.TicketID = int64Ptr(ticketID)
		att.MessageID = int64Ptr(messageID)
		atts = append(atts, &att)
	}
	return atts, rows.Err()
}

// GetData returns an attachment's payload, or nil when the attachment does not exist
func (r *AttachmentRepository) GetData(ctx context.Context, id int64) ([]byte, error) {
	var data []byte
	err := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT data FROM attachments WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to read attachment data", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to read attachment data: %w", err)
	}
	return data, nil
}

// Verify interface compliance
var _ port.AttachmentRepository = (*AttachmentRepository)(nil)
