package invoice

import (
	"regexp"
	"strings"
	"time"

	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

var (
	cuitPattern          = regexp.MustCompile(`(?i)\bC\.?\s?U\.?\s?I\.?\s?T\b\.?[^\d\n]{0,15}(\d{2}-\d{8}-\d)\b`)
	invoiceNumberPattern = regexp.MustCompile(`(?i)\b(?:FACTURA|FACT|FC)\b\.?[^\d\n]{0,25}?(\d{4,5}-\d{8})\b`)
	labelledDatePattern  = regexp.MustCompile(`(?i)\bFECHA\b(?:\s+DE\s+EMISI[OÓ]N)?[^\d\n]{0,10}(\d{2}[/-]\d{2}[/-]\d{4})\b`)
	datePattern          = regexp.MustCompile(`\b(\d{2}[/-]\d{2}[/-]\d{4})\b`)
	totalPattern         = regexp.MustCompile(`\b(?:Total|TOTAL)\b([^$\d\n]{0,25})\$\s?(\d[\d.,]*)`)
	ivaPattern           = regexp.MustCompile(`(?:\bIVA\b|\bI\.V\.A\.?)[^$\n]{0,25}\$\s?(\d[\d.,]*)`)
)

// documentTypeChecks is evaluated in order against accent-folded, upper-cased text
var documentTypeChecks = []struct {
	docType string
	re      *regexp.Regexp
}{
	{entity.DocTypeFacturaA, regexp.MustCompile(`\bFACTURA\s+A\b`)},
	{entity.DocTypeFacturaB, regexp.MustCompile(`\bFACTURA\s+B\b`)},
	{entity.DocTypeFacturaC, regexp.MustCompile(`\bFACTURA\s+C\b`)},
	{entity.DocTypeNotaDebitoA, regexp.MustCompile(`\bNOTA\s+DE\s+DEBITO\s+A\b`)},
	{entity.DocTypeNotaDebitoB, regexp.MustCompile(`\bNOTA\s+DE\s+DEBITO\s+B\b`)},
	{entity.DocTypeNotaDebitoC, regexp.MustCompile(`\bNOTA\s+DE\s+DEBITO\s+C\b`)},
}

// ExtractCUIT returns the first NN-NNNNNNNN-N tax ID following a CUIT label
func ExtractCUIT(text string) string {
	return firstGroup(cuitPattern, text)
}

// ExtractInvoiceNumber returns the first NNNNN-NNNNNNNN number following a FACTURA-family label
func ExtractInvoiceNumber(text string) string {
	return firstGroup(invoiceNumberPattern, text)
}

// ExtractDate returns the invoice date; labelled dates win over standalone ones.
// The second result is true when nothing parseable was found and now was used.
func ExtractDate(text string, now time.Time) (time.Time, bool) {
	raw := firstGroup(labelledDatePattern, text)
	if raw == "" {
		raw = firstGroup(datePattern, text)
	}
	if raw == "" {
		return dateOnly(now), true
	}

	d, err := time.Parse("02/01/2006", strings.ReplaceAll(raw, "-", "/"))
	if err != nil {
		return dateOnly(now), true
	}
	return d, false
}

// ExtractDocumentType returns the first matching fiscal document type, or ""
func ExtractDocumentType(text string) string {
	folded := Fold(text)
	for _, check := range documentTypeChecks {
		if check.re.MatchString(folded) {
			return check.docType
		}
	}
	return ""
}

// ExtractTotal returns the invoice total; lines that label a tax total are skipped
func ExtractTotal(text string) float64 {
	for _, m := range totalPattern.FindAllStringSubmatch(text, -1) {
		gap := strings.ToUpper(m[1])
		if strings.Contains(gap, "IVA") || strings.Contains(gap, "I.V.A") {
			continue
		}
		return NormalizeAmount(m[2])
	}
	return 0
}

// ExtractIVA returns the VAT amount, or 0 when no tax line is present
func ExtractIVA(text string) float64 {
	raw := firstGroup(ivaPattern, text)
	if raw == "" {
		return 0
	}
	return NormalizeAmount(raw)
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func dateOnly(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
