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

// PartnerRepository implements port.PartnerRepository
type PartnerRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPartnerRepository creates a new partner repository
func NewPartnerRepository(db *sqlite.DB, logger *zap.Logger) port.PartnerRepository {
	return &PartnerRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a vendor by ID
func (r *PartnerRepository) GetByID(ctx context.Context, id int64) (*entity.Partner, error) {
	return r.get(ctx, `SELECT id, name, vat FROM partners WHERE id = ?`, id)
}

// FindByVAT returns the first vendor with the given tax ID
func (r *PartnerRepository) FindByVAT(ctx context.Context, vat string) (*entity.Partner, error) {
	return r.get(ctx, `SELECT id, name, vat FROM partners WHERE vat = ? ORDER BY id ASC LIMIT 1`, vat)
}

func (r *PartnerRepository) get(ctx context.Context, query string, arg interface{}) (*entity.Partner, error) {
	var (
		p   entity.Partner
		vat sql.NullString
	)
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, arg).Scan(&p.ID, &p.Name, &vat)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get partner", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	p.VAT = vat.String
	return &p, nil
}

// Verify interface compliance
var _ port.PartnerRepository = (*PartnerRepository)(nil)
