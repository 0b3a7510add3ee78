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

const recordColumns = `id, move_type, state, partner_id, partner_vat, reference, invoice_date,
	document_type_id, document_number, purchase_order_id, amount_total, created_at`

// amountTolerance treats totals equal to the cent as the same amount
const amountTolerance = 0.005

// AccountingRecordRepository implements port.AccountingRecordRepository
type AccountingRecordRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAccountingRecordRepository creates a new accounting record repository
func NewAccountingRecordRepository(db *sqlite.DB, logger *zap.Logger) port.AccountingRecordRepository {
	return &AccountingRecordRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the record and its lines atomically
func (r *AccountingRecordRepository) Create(ctx context.Context, record *entity.AccountingRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO accounting_records (
				move_type, state, partner_id, partner_vat, reference, invoice_date,
				document_type_id, document_number, purchase_order_id, amount_total, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		result, err := r.db.Executor(ctx).ExecContext(ctx, query,
			record.MoveType,
			record.State,
			record.PartnerID,
			record.PartnerVAT,
			record.Reference,
			record.InvoiceDate,
			nullableInt64(record.DocumentTypeID),
			record.DocumentNumber,
			nullableInt64(record.PurchaseOrderID),
			record.AmountTotal,
			record.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create accounting record",
				zap.String("reference", record.Reference),
				zap.Error(err))
			return fmt.Errorf("failed to create accounting record: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		record.ID = id

		for i := range record.Lines {
			if err := r.createLine(ctx, id, &record.Lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AccountingRecordRepository) createLine(ctx context.Context, recordID int64, line *entity.AccountingLine) error {
	dist, err := line.Distribution.Encode()
	if err != nil {
		return err
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO accounting_lines (record_id, product_id, quantity, price_unit, tax_id, account_id, distribution)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		recordID,
		nullableInt64(line.ProductID),
		line.Quantity,
		line.PriceUnit,
		line.TaxID,
		line.AccountID,
		dist,
	)
	if err != nil {
		r.logger.Error("Failed to create accounting line", zap.Int64("record_id", recordID), zap.Error(err))
		return fmt.Errorf("failed to create accounting line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	line.ID = id
	line.RecordID = recordID
	return nil
}

// GetByID retrieves a record with its lines
func (r *AccountingRecordRepository) GetByID(ctx context.Context, id int64) (*entity.AccountingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM accounting_records WHERE id = ?`

	record, err := scanRecord(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get accounting record", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get accounting record: %w", err)
	}

	record.Lines, err = r.lines(ctx, id)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListActive returns every non-cancelled record of the move type, without lines
func (r *AccountingRecordRepository) ListActive(ctx context.Context, moveType string) ([]*entity.AccountingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM accounting_records WHERE move_type = ? AND state != ? ORDER BY id ASC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, moveType, entity.RecordStateCancel)
	if err != nil {
		r.logger.Error("Failed to list accounting records", zap.String("move_type", moveType), zap.Error(err))
		return nil, fmt.Errorf("failed to list accounting records: %w", err)
	}
	defer rows.Close()

	var records []*entity.AccountingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan accounting record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindByVATAndTotal returns the oldest non-cancelled record for the vendor VAT and total.
// Totals are stored as floats, so "equal" means within amountTolerance (half a cent):
// 12100.004 matches 12100 while 12100.02 does not.
func (r *AccountingRecordRepository) FindByVATAndTotal(ctx context.Context, moveType, vat string, total float64) (*entity.AccountingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM accounting_records
		WHERE move_type = ? AND state != ? AND partner_vat = ? AND ABS(amount_total - ?) < ?
		ORDER BY id ASC LIMIT 1`

	record, err := scanRecord(r.db.Executor(ctx).QueryRowContext(ctx, query,
		moveType, entity.RecordStateCancel, vat, total, amountTolerance))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find accounting record by vat and total",
			zap.String("vat", vat),
			zap.Float64("total", total),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find accounting record: %w", err)
	}
	return record, nil
}

func (r *AccountingRecordRepository) lines(ctx context.Context, recordID int64) ([]entity.AccountingLine, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT id, record_id, product_id, quantity, price_unit, tax_id, account_id, distribution
		FROM accounting_lines
		WHERE record_id = ?
		ORDER BY id ASC
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounting lines: %w", err)
	}
	defer rows.Close()

	var lines []entity.AccountingLine
	for rows.Next() {
		var (
			line      entity.AccountingLine
			productID sql.NullInt64
			taxID     sql.NullInt64
			accountID sql.NullInt64
			dist      sql.NullString
		)
		if err := rows.Scan(&line.ID, &line.RecordID, &productID, &line.Quantity, &line.PriceUnit, &taxID, &accountID, &dist); err != nil {
			return nil, fmt.Errorf("failed to scan accounting line: %w", err)
		}
		line.ProductID = int64Ptr(productID)
		line.TaxID = taxID.Int64
		line.AccountID = accountID.Int64
		if line.Distribution, err = entity.DecodeDistribution(dist.String); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanRecord(row rowScanner) (*entity.AccountingRecord, error) {
	var (
		rec         entity.AccountingRecord
		vat         sql.NullString
		reference   sql.NullString
		invoiceDate sql.NullTime
		docTypeID   sql.NullInt64
		docNumber   sql.NullString
		orderID     sql.NullInt64
	)

	err := row.Scan(
		&rec.ID,
		&rec.MoveType,
		&rec.State,
		&rec.PartnerID,
		&vat,
		&reference,
		&invoiceDate,
		&docTypeID,
		&docNumber,
		&orderID,
		&rec.AmountTotal,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.PartnerVAT = vat.String
	rec.Reference = reference.String
	if invoiceDate.Valid {
		rec.InvoiceDate = invoiceDate.Time
	}
	rec.DocumentTypeID = int64Ptr(docTypeID)
	rec.DocumentNumber = docNumber.String
	rec.PurchaseOrderID = int64Ptr(orderID)
	return &rec, nil
}

// Verify interface compliance
var _ port.AccountingRecordRepository = (*AccountingRecordRepository)(nil)
