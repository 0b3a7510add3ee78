// Package invoice extracts purchase-order references and fiscal fields from
// vendor invoice text using tiered pattern matching.
package invoice

import (
	"strings"
	"time"

	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Engine runs PO candidate tiers and field extractors over document text
type Engine struct {
	matchers []Matcher
	vatRate  decimal.Decimal
	now      func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithMatchers replaces the tier matchers. Matchers run in slice order, grouped by tier.
func WithMatchers(matchers ...Matcher) Option {
	return func(e *Engine) {
		e.matchers = matchers
	}
}

// WithVATRate sets the rate used to estimate missing tax amounts
func WithVATRate(rate decimal.Decimal) Option {
	return func(e *Engine) {
		e.vatRate = rate
	}
}

// WithClock sets the processing-date source used when an invoice has no date
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an extraction engine with the default tiers
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		matchers: DefaultMatchers(),
		vatRate:  DefaultVATRate,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MatchSpecial looks for the "pedido de compra ... #P<digits>" phrase
func MatchSpecial(text string) (Candidate, bool) {
	m := specialPattern.FindStringSubmatch(text)
	if len(m) < 2 || len(m[1]) < MinPODigits {
		return Candidate{}, false
	}
	return Candidate{
		Value:  "P" + m[1],
		Raw:    strings.TrimSpace(m[0]),
		Tier:   TierSpecial,
		Source: "pedido-de-compra",
	}, true
}

// ExtractPO returns the first validated PO candidate by tier priority, with every
// candidate examined along the way. The special phrase short-circuits all tiers.
func (e *Engine) ExtractPO(text string) POExtraction {
	if c, ok := MatchSpecial(text); ok {
		return POExtraction{
			PONumber:   c.Value,
			Found:      true,
			Special:    true,
			Tier:       TierSpecial,
			Candidates: []Candidate{c},
		}
	}

	result := POExtraction{Candidates: []Candidate{}}
	if strings.TrimSpace(text) == "" {
		return result
	}

	for _, tier := range e.tiers() {
		var winner *Candidate
		for _, m := range e.matchers {
			if m.Tier() != tier {
				continue
			}
			for _, c := range m.Match(text) {
				if !c.Rejected {
					if err := Validate(c.Value); err != nil {
						c.Rejected = true
						c.Reason = err.Error()
					}
				}
				result.Candidates = append(result.Candidates, c)
				if !c.Rejected && winner == nil {
					accepted := c
					winner = &accepted
				}
			}
		}
		if winner != nil {
			result.PONumber = winner.Value
			result.Found = true
			result.Tier = tier
			return result
		}
	}

	return result
}

// Extract builds InvoiceData from document text. PO fields are left empty when no
// candidate validates; the caller decides how to route that.
func (e *Engine) Extract(text string) *entity.InvoiceData {
	po := e.ExtractPO(text)
	return e.ExtractFields(text, po.PONumber)
}

// ExtractFields extracts every non-PO field and attaches the given PO number
func (e *Engine) ExtractFields(text, poNumber string) *entity.InvoiceData {
	date, defaulted := ExtractDate(text, e.now())

	data := &entity.InvoiceData{
		PONumber:      poNumber,
		CUIT:          ExtractCUIT(text),
		InvoiceNumber: ExtractInvoiceNumber(text),
		InvoiceDate:   date,
		DateDefaulted: defaulted,
		DocumentType:  ExtractDocumentType(text),
		TotalAmount:   ExtractTotal(text),
		IVAAmount:     ExtractIVA(text),
	}

	if data.IVAAmount == 0 && data.TotalAmount > 0 {
		data.IVAAmount, data.BaseAmount = BackfillTax(data.TotalAmount, e.vatRate)
		data.IVAEstimated = true
		return data
	}

	data.BaseAmount = BaseAmount(data.TotalAmount, data.IVAAmount)
	return data
}

// tiers returns the distinct matcher tiers in ascending order
func (e *Engine) tiers() []Tier {
	seen := make(map[Tier]bool)
	var out []Tier
	for _, t := range []Tier{TierPrimary, TierSecondary, TierTertiary} {
		for _, m := range e.matchers {
			if m.Tier() == t && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
