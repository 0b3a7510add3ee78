package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const purchaseOrderSelect = `
	SELECT po.id, po.reference, po.partner_id, po.state, po.created_at, p.id, p.name, p.vat
	FROM purchase_orders po
	LEFT JOIN partners p ON p.id = po.partner_id
`

// PurchaseOrderRepository implements port.PurchaseOrderRepository
type PurchaseOrderRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPurchaseOrderRepository creates a new purchase order repository
func NewPurchaseOrderRepository(db *sqlite.DB, logger *zap.Logger) port.PurchaseOrderRepository {
	return &PurchaseOrderRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a purchase order with its vendor and lines
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	orders, err := r.query(ctx, purchaseOrderSelect+` WHERE po.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return orders[0], nil
}

// FindByReferences returns orders whose reference equals any of refs, ignoring case
func (r *PurchaseOrderRepository) FindByReferences(ctx context.Context, refs []string) ([]*entity.PurchaseOrder, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	query := purchaseOrderSelect + ` WHERE UPPER(po.reference) IN (` + placeholders(len(refs)) + `) ORDER BY po.id ASC`
	return r.query(ctx, query, upperAll(refs)...)
}

// FindByReferenceContaining returns orders whose reference contains any fragment, ignoring case
func (r *PurchaseOrderRepository) FindByReferenceContaining(ctx context.Context, fragments []string) ([]*entity.PurchaseOrder, error) {
	if len(fragments) == 0 {
		return nil, nil
	}
	conds := make([]string, len(fragments))
	for i := range fragments {
		conds[i] = "instr(UPPER(po.reference), ?) > 0"
	}
	query := purchaseOrderSelect + ` WHERE ` + strings.Join(conds, " OR ") + ` ORDER BY po.id ASC`
	return r.query(ctx, query, upperAll(fragments)...)
}

func (r *PurchaseOrderRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.PurchaseOrder, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query purchase orders", zap.Error(err))
		return nil, fmt.Errorf("failed to query purchase orders: %w", err)
	}

	var orders []*entity.PurchaseOrder
	for rows.Next() {
		var (
			po          entity.PurchaseOrder
			partnerID   sql.NullInt64
			joinedID    sql.NullInt64
			partnerName sql.NullString
			partnerVAT  sql.NullString
		)
		if err := rows.Scan(&po.ID, &po.Reference, &partnerID, &po.State, &po.CreatedAt, &joinedID, &partnerName, &partnerVAT); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		po.PartnerID = int64Ptr(partnerID)
		if joinedID.Valid {
			po.Partner = &entity.Partner{ID: joinedID.Int64, Name: partnerName.String, VAT: partnerVAT.String}
		}
		orders = append(orders, &po)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate purchase orders: %w", err)
	}

	// lines are loaded after the order cursor is closed so a single pooled connection is enough
	for _, po := range orders {
		lines, err := r.lines(ctx, po.ID)
		if err != nil {
			return nil, err
		}
		po.Lines = lines
	}
	return orders, nil
}

func (r *PurchaseOrderRepository) lines(ctx context.Context, orderID int64) ([]entity.OrderLine, error) {
	query := `
		SELECT l.id, l.order_id, l.product_id, COALESCE(pr.name, l.description, ''), l.distribution
		FROM purchase_order_lines l
		LEFT JOIN products pr ON pr.id = l.product_id
		WHERE l.order_id = ?
		ORDER BY l.id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to load purchase order lines", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to load purchase order lines: %w", err)
	}
	defer rows.Close()

	var lines []entity.OrderLine
	for rows.Next() {
		var (
			line      entity.OrderLine
			productID sql.NullInt64
			dist      sql.NullString
		)
		if err := rows.Scan(&line.ID, &line.OrderID, &productID, &line.ProductName, &dist); err != nil {
			return nil, fmt.Errorf("failed to scan purchase order line: %w", err)
		}
		line.ProductID = int64Ptr(productID)
		line.Distribution, err = entity.DecodeDistribution(dist.String)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Verify interface compliance
var _ port.PurchaseOrderRepository = (*PurchaseOrderRepository)(nil)
