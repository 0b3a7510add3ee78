package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const batchRunColumns = `id, trigger_source, success, error, ticket_count, linked, duplicates, no_pdf,
	no_valid_po, po_inexistent, creation_failed, failed, skipped, started_at, finished_at`

// defaultRunListLimit caps List when no limit is given
const defaultRunListLimit = 50

// BatchRunRepository implements port.BatchRunRepository
type BatchRunRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewBatchRunRepository creates a new batch run repository
func NewBatchRunRepository(db *sqlite.DB, logger *zap.Logger) port.BatchRunRepository {
	return &BatchRunRepository{
		db:     db,
		logger: logger,
	}
}

// Create records the start of a run
func (r *BatchRunRepository) Create(ctx context.Context, run *entity.BatchRun) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx,
		`INSERT INTO batch_runs (id, trigger_source, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Trigger, run.StartedAt)
	if err != nil {
		r.logger.Error("Failed to create batch run", zap.String("run_id", run.ID), zap.Error(err))
		return fmt.Errorf("failed to create batch run: %w", err)
	}
	return nil
}

// Finish stores the counters and replaces the run's ticket lines. A run never created is inserted.
func (r *BatchRunRepository) Finish(ctx context.Context, run *entity.BatchRun) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		exec := r.db.Executor(ctx)

		_, err := exec.ExecContext(ctx, `
			INSERT INTO batch_runs (`+batchRunColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				success = excluded.success,
				error = excluded.error,
				ticket_count = excluded.ticket_count,
				linked = excluded.linked,
				duplicates = excluded.duplicates,
				no_pdf = excluded.no_pdf,
				no_valid_po = excluded.no_valid_po,
				po_inexistent = excluded.po_inexistent,
				creation_failed = excluded.creation_failed,
				failed = excluded.failed,
				skipped = excluded.skipped,
				finished_at = excluded.finished_at
		`,
			run.ID, run.Trigger, run.Success, run.Error, run.TicketCount, run.Linked, run.Duplicates, run.NoPDF,
			run.NoValidPO, run.POInexistent, run.CreationFailed, run.Failed, run.Skipped, run.StartedAt, run.FinishedAt,
		)
		if err != nil {
			r.logger.Error("Failed to finish batch run", zap.String("run_id", run.ID), zap.Error(err))
			return fmt.Errorf("failed to finish batch run: %w", err)
		}

		if _, err := exec.ExecContext(ctx, `DELETE FROM batch_run_tickets WHERE run_id = ?`, run.ID); err != nil {
			return fmt.Errorf("failed to clear batch run tickets: %w", err)
		}

		for i, t := range run.Tickets {
			_, err := exec.ExecContext(ctx, `
				INSERT INTO batch_run_tickets (run_id, position, ticket_id, ticket_name, stage, po_number, invoice_id, reason, error)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, run.ID, i, t.TicketID, t.TicketName, t.Stage, t.PONumber, nullableInt64(t.InvoiceID), t.Reason, t.Error)
			if err != nil {
				r.logger.Error("Failed to store batch run ticket",
					zap.String("run_id", run.ID),
					zap.Int64("ticket_id", t.TicketID),
					zap.Error(err))
				return fmt.Errorf("failed to store batch run ticket: %w", err)
			}
		}
		return nil
	})
}

// GetByID returns a run with its ticket lines in processing order
func (r *BatchRunRepository) GetByID(ctx context.Context, id string) (*entity.BatchRun, error) {
	run, err := scanRun(r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT `+batchRunColumns+` FROM batch_runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get batch run", zap.String("run_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get batch run: %w", err)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT run_id, ticket_id, ticket_name, stage, po_number, invoice_id, reason, error
		FROM batch_run_tickets
		WHERE run_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch run tickets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t                                   entity.BatchRunTicket
			name, stage, po, reason, errMessage sql.NullString
			invoiceID                           sql.NullInt64
		)
		if err := rows.Scan(&t.RunID, &t.TicketID, &name, &stage, &po, &invoiceID, &reason, &errMessage); err != nil {
			return nil, fmt.Errorf("failed to scan batch run ticket: %w", err)
		}
		t.TicketName = name.String
		t.Stage = stage.String
		t.PONumber = po.String
		t.InvoiceID = int64Ptr(invoiceID)
		t.Reason = reason.String
		t.Error = errMessage.String
		run.Tickets = append(run.Tickets, t)
	}
	return run, rows.Err()
}

// List returns the most recent runs without ticket lines
func (r *BatchRunRepository) List(ctx context.Context, limit int) ([]*entity.BatchRun, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT `+batchRunColumns+` FROM batch_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		r.logger.Error("Failed to list batch runs", zap.Error(err))
		return nil, fmt.Errorf("failed to list batch runs: %w", err)
	}
	defer rows.Close()

	var runs []*entity.BatchRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*entity.BatchRun, error) {
	var (
		run        entity.BatchRun
		errMessage sql.NullString
		finishedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.Trigger,
		&run.Success,
		&errMessage,
		&run.TicketCount,
		&run.Linked,
		&run.Duplicates,
		&run.NoPDF,
		&run.NoValidPO,
		&run.POInexistent,
		&run.CreationFailed,
		&run.Failed,
		&run.Skipped,
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Error = errMessage.String
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}

// Verify interface compliance
var _ port.BatchRunRepository = (*BatchRunRepository)(nil)
