package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultVATRate is the Argentine general VAT rate assumed when an invoice shows no tax line
var DefaultVATRate = decimal.NewFromFloat(0.21)

// NormalizeAmount parses a locale-formatted amount ("1.234,56", "$ 999", "12.100").
// Thousands separators are dropped and a decimal comma becomes a dot. When that fails
// every non-digit is stripped; input without digits yields 0.
func NormalizeAmount(raw string) float64 {
	s := strings.NewReplacer("$", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(raw))
	s = strings.Trim(s, ".,")

	if d, ok := parseLocaleAmount(s); ok {
		f, _ := d.Float64()
		return f
	}

	digits := DigitsOnly(raw)
	if digits == "" {
		return 0
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

func parseLocaleAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// BackfillTax estimates the VAT contained in a tax-inclusive total: tax = total - total/(1+rate).
// Both results are rounded to cents and always add up to total.
func BackfillTax(total float64, rate decimal.Decimal) (tax, base float64) {
	t := decimal.NewFromFloat(total)
	net := t.Div(decimal.NewFromInt(1).Add(rate))
	vat := t.Sub(net).Round(2)

	tax, _ = vat.Float64()
	base, _ = t.Sub(vat).Float64()
	return tax, base
}

// BaseAmount returns total - tax rounded to cents
func BaseAmount(total, tax float64) float64 {
	b, _ := decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(tax)).Round(2).Float64()
	return b
}
