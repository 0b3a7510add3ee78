package invoice

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// MinPODigits is the minimum number of digits a PO reference must carry
const MinPODigits = 4

var (
	// ErrTooShort is returned for candidates with fewer than MinPODigits digits or characters
	ErrTooShort = errors.New("candidate too short")

	// ErrFalsePositive is returned for candidates equal to a known document keyword
	ErrFalsePositive = errors.New("candidate is a known false positive")

	// ErrDisallowedNumber is returned for bare month-like numbers (1 to 12)
	ErrDisallowedNumber = errors.New("candidate is a disallowed short number")
)

var falsePositiveKeywords = map[string]bool{
	"FACTURA":     true,
	"CUIT":        true,
	"ORIGINAL":    true,
	"DUPLICADO":   true,
	"TRIPLICADO":  true,
	"IRAM":        true,
	"IVA":         true,
	"TOTAL":       true,
	"SUBTOTAL":    true,
	"FECHA":       true,
	"CODIGO":      true,
	"PRODUCTO":    true,
	"ITEM":        true,
	"REMITO":      true,
	"PAGINA":      true,
	"RESPONSABLE": true,
	"INSCRIPTO":   true,
}

// Validate rejects malformed or implausible PO candidates
func Validate(candidate string) error {
	c := strings.ToUpper(strings.TrimSpace(candidate))

	if falsePositiveKeywords[c] {
		return ErrFalsePositive
	}

	if isDisallowedNumber(c) {
		return ErrDisallowedNumber
	}

	if CountDigits(c) < MinPODigits {
		return ErrTooShort
	}

	return nil
}

// CheckResolvable is the length and digit check applied right before resolution.
// Candidates from the special phrase reach resolution without tier validation.
func CheckResolvable(candidate string) error {
	c := strings.TrimSpace(candidate)
	if len(c) < MinPODigits || CountDigits(c) < MinPODigits {
		return ErrTooShort
	}
	return nil
}

// CountDigits returns the number of decimal digits in s
func CountDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// DigitsOnly returns s with every non-digit removed
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDisallowedNumber(c string) bool {
	if c == "" || DigitsOnly(c) != c {
		return false
	}
	n, err := strconv.Atoi(c)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 12
}
