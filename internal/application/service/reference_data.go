package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

var (
	// ErrNoExpenseAccount is returned when neither the configured code nor any expense-type account exists
	ErrNoExpenseAccount = errors.New("no expense account configured")

	// ErrNoPurchaseVAT is returned when no purchase tax matches the configured code or rate
	ErrNoPurchaseVAT = errors.New("no purchase VAT tax configured")

	// ErrNoDistribution is returned when no default analytic account exists
	ErrNoDistribution = errors.New("no default cost allocation available")
)

// ReferenceSettings holds the lookup keys and fallbacks for accounting reference data
type ReferenceSettings struct {
	ExpenseAccountCode  string
	ExpenseAccountType  string
	VATTaxCode          string
	VATRate             float64
	DefaultAnalyticCode string

	// DocumentTypes maps an extracted document type to code or name fragments of the document type table
	DocumentTypes map[string][]string
}

// referenceDataProvider resolves reference records once and caches them for the process lifetime
type referenceDataProvider struct {
	repo     port.ReferenceRepository
	settings ReferenceSettings
	logger   Logger

	mu           sync.Mutex
	account      *entity.Account
	tax          *entity.Tax
	distribution entity.Distribution
	docTypes     map[string]*entity.DocumentType
}

// NewReferenceDataProvider creates a new ReferenceDataProvider
func NewReferenceDataProvider(repo port.ReferenceRepository, settings ReferenceSettings, logger Logger) port.ReferenceDataProvider {
	return &referenceDataProvider{
		repo:     repo,
		settings: settings,
		logger:   logger,
		docTypes: make(map[string]*entity.DocumentType),
	}
}

func (p *referenceDataProvider) ExpenseAccount(ctx context.Context) (*entity.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.account != nil {
		return p.account, nil
	}

	acc, err := p.repo.GetAccountByCode(ctx, p.settings.ExpenseAccountCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense account: %w", err)
	}
	if acc == nil {
		p.logger.Info("Expense account not found by code, falling back to account type",
			"code", p.settings.ExpenseAccountCode,
			"account_type", p.settings.ExpenseAccountType)

		acc, err = p.repo.FindAccountByType(ctx, p.settings.ExpenseAccountType)
		if err != nil {
			return nil, fmt.Errorf("failed to find expense account by type: %w", err)
		}
	}
	if acc == nil {
		return nil, ErrNoExpenseAccount
	}

	p.account = acc
	return acc, nil
}

func (p *referenceDataProvider) PurchaseVAT(ctx context.Context) (*entity.Tax, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tax != nil {
		return p.tax, nil
	}

	tax, err := p.repo.GetTaxByCode(ctx, p.settings.VATTaxCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase tax: %w", err)
	}
	if tax == nil {
		p.logger.Info("Purchase tax not found by code, falling back to rate",
			"code", p.settings.VATTaxCode,
			"rate", p.settings.VATRate)

		tax, err = p.repo.FindPurchaseTaxByRate(ctx, p.settings.VATRate)
		if err != nil {
			return nil, fmt.Errorf("failed to find purchase tax by rate: %w", err)
		}
	}
	if tax == nil {
		return nil, ErrNoPurchaseVAT
	}

	p.tax = tax
	return tax, nil
}

func (p *referenceDataProvider) DocumentType(ctx context.Context, code string) (*entity.DocumentType, error) {
	if code == "" {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if dt, ok := p.docTypes[code]; ok {
		return dt, nil
	}

	fragments := p.settings.DocumentTypes[code]
	if len(fragments) == 0 {
		return nil, nil
	}

	dt, err := p.repo.FindDocumentType(ctx, fragments)
	if err != nil {
		return nil, fmt.Errorf("failed to find document type %s: %w", code, err)
	}

	p.docTypes[code] = dt
	return dt, nil
}

func (p *referenceDataProvider) DefaultDistribution(ctx context.Context) (entity.Distribution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.distribution != nil {
		return p.distribution, nil
	}

	var (
		acc *entity.AnalyticAccount
		err error
	)
	if p.settings.DefaultAnalyticCode != "" {
		acc, err = p.repo.GetAnalyticAccountByCode(ctx, p.settings.DefaultAnalyticCode)
		if err != nil {
			return nil, fmt.Errorf("failed to get analytic account: %w", err)
		}
	}
	if acc == nil {
		acc, err = p.repo.GetDefaultAnalyticAccount(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get default analytic account: %w", err)
		}
	}
	if acc == nil {
		return nil, ErrNoDistribution
	}

	p.distribution = entity.Distribution{acc.ID: 100}
	return p.distribution, nil
}
