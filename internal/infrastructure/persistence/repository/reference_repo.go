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

// ReferenceRepository implements port.ReferenceRepository
type ReferenceRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewReferenceRepository creates a new reference data repository
func NewReferenceRepository(db *sqlite.DB, logger *zap.Logger) port.ReferenceRepository {
	return &ReferenceRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ReferenceRepository) account(ctx context.Context, where string, arg interface{}) (*entity.Account, error) {
	var a entity.Account
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT id, code, name, account_type FROM accounts WHERE `+where+` ORDER BY code ASC LIMIT 1`, arg).
		Scan(&a.ID, &a.Code, &a.Name, &a.AccountType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get account", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// GetAccountByCode returns the account with the exact code
func (r *ReferenceRepository) GetAccountByCode(ctx context.Context, code string) (*entity.Account, error) {
	return r.account(ctx, "code = ?", code)
}

// FindAccountByType returns the lowest-coded account of the type
func (r *ReferenceRepository) FindAccountByType(ctx context.Context, accountType string) (*entity.Account, error) {
	return r.account(ctx, "account_type = ?", accountType)
}

func (r *ReferenceRepository) tax(ctx context.Context, where string, args ...interface{}) (*entity.Tax, error) {
	var t entity.Tax
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT id, code, name, rate, type_tax_use FROM taxes WHERE `+where+` ORDER BY id ASC LIMIT 1`, args...).
		Scan(&t.ID, &t.Code, &t.Name, &t.Rate, &t.TypeTaxUse)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get tax", zap.Error(err))
		return nil, fmt.Errorf("failed to get tax: %w", err)
	}
	return &t, nil
}

// GetTaxByCode returns the tax with the exact code
func (r *ReferenceRepository) GetTaxByCode(ctx context.Context, code string) (*entity.Tax, error) {
	return r.tax(ctx, "code = ?", code)
}

// FindPurchaseTaxByRate returns the first purchase tax with the rate
func (r *ReferenceRepository) FindPurchaseTaxByRate(ctx context.Context, rate float64) (*entity.Tax, error) {
	return r.tax(ctx, "type_tax_use = 'purchase' AND ABS(rate - ?) < 0.0001", rate)
}

// FindDocumentType returns the first document type whose code equals, or whose name contains, a fragment.
// Fragments are tried in order.
func (r *ReferenceRepository) FindDocumentType(ctx context.Context, fragments []string) (*entity.DocumentType, error) {
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}

		var dt entity.DocumentType
		err := r.db.Executor(ctx).QueryRowContext(ctx, `
			SELECT id, code, name FROM document_types
			WHERE code = ? OR instr(UPPER(name), ?) > 0
			ORDER BY CASE WHEN code = ? THEN 0 ELSE 1 END, id ASC
			LIMIT 1
		`, f, strings.ToUpper(f), f).Scan(&dt.ID, &dt.Code, &dt.Name)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			r.logger.Error("Failed to find document type", zap.String("fragment", f), zap.Error(err))
			return nil, fmt.Errorf("failed to find document type: %w", err)
		}
		return &dt, nil
	}
	return nil, nil
}

func (r *ReferenceRepository) analytic(ctx context.Context, where string, args ...interface{}) (*entity.AnalyticAccount, error) {
	var (
		a         entity.AnalyticAccount
		isDefault int
	)
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT id, code, name, is_default FROM analytic_accounts WHERE `+where+` ORDER BY id ASC LIMIT 1`, args...).
		Scan(&a.ID, &a.Code, &a.Name, &isDefault)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get analytic account", zap.Error(err))
		return nil, fmt.Errorf("failed to get analytic account: %w", err)
	}
	a.IsDefault = isDefault != 0
	return &a, nil
}

// GetAnalyticAccountByCode returns the analytic account with the exact code
func (r *ReferenceRepository) GetAnalyticAccountByCode(ctx context.Context, code string) (*entity.AnalyticAccount, error) {
	return r.analytic(ctx, "code = ?", code)
}

// GetDefaultAnalyticAccount returns the analytic account flagged as default
func (r *ReferenceRepository) GetDefaultAnalyticAccount(ctx context.Context) (*entity.AnalyticAccount, error) {
	return r.analytic(ctx, "is_default = 1")
}

// Verify interface compliance
var _ port.ReferenceRepository = (*ReferenceRepository)(nil)
