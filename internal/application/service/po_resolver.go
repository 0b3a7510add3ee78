package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/internal/invoice"
)

// padWidth is the width bare PO numbers are zero-padded to
const padWidth = 5

// Resolution tiers
const (
	ResolveTierNone     = 0
	ResolveTierExact    = 1
	ResolveTierDigits   = 2
	ResolveTierExtended = 3
)

// Resolution is the result of looking a PO candidate up in the registry.
// Original and Cleaned are kept for the operator when nothing matched.
type Resolution struct {
	Found    bool
	Order    *entity.PurchaseOrder
	Tier     int
	Original string
	Cleaned  string
	Variants []string
}

// LookupVariants returns the de-duplicated reference forms a candidate may be stored under
func LookupVariants(candidate string) []string {
	raw := strings.TrimSpace(candidate)
	noHash := strings.TrimPrefix(raw, "#")
	bare := stripPOPrefix(noHash)

	out := []string{raw, noHash, bare}

	if bare != "" && invoice.DigitsOnly(bare) == bare {
		numbers := []string{bare}
		if len(bare) < padWidth {
			padded := strings.Repeat("0", padWidth-len(bare)) + bare
			out = append(out, padded)
			numbers = append(numbers, padded)
		}
		for _, n := range numbers {
			out = append(out, "P"+n, "#P"+n, "PO"+n, "#PO"+n)
		}
	}

	return dedupe(out)
}

// stripPOPrefix removes a leading P, PO or OC and any separator after it
func stripPOPrefix(s string) string {
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"PO", "OC", "P"} {
		if strings.HasPrefix(upper, prefix) {
			rest := strings.TrimLeft(s[len(prefix):], " -#")
			if rest != "" && invoice.DigitsOnly(rest) == rest {
				return rest
			}
		}
	}
	return s
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// POResolver maps PO candidates to purchase orders with progressively looser matching
type POResolver struct {
	orders port.PurchaseOrderRepository
	logger Logger
}

// NewPOResolver creates a new POResolver
func NewPOResolver(orders port.PurchaseOrderRepository, logger Logger) *POResolver {
	return &POResolver{
		orders: orders,
		logger: logger,
	}
}

// Resolve looks the candidate up by exact variant, then by digits, then by prefixed digits.
// A miss is not an error: the returned Resolution has Found=false.
func (r *POResolver) Resolve(ctx context.Context, candidate string) (*Resolution, error) {
	variants := LookupVariants(candidate)
	digits := invoice.DigitsOnly(candidate)

	res := &Resolution{
		Original: candidate,
		Cleaned:  stripPOPrefix(strings.TrimPrefix(strings.TrimSpace(candidate), "#")),
		Variants: variants,
	}

	orders, err := r.orders.FindByReferences(ctx, variants)
	if err != nil {
		return nil, fmt.Errorf("failed to look up purchase order by reference: %w", err)
	}
	if r.pick(res, orders, ResolveTierExact) {
		return res, nil
	}

	if len(digits) < invoice.MinPODigits {
		return res, nil
	}

	orders, err = r.orders.FindByReferenceContaining(ctx, []string{digits})
	if err != nil {
		return nil, fmt.Errorf("failed to look up purchase order by digits: %w", err)
	}
	if r.pick(res, orders, ResolveTierDigits) {
		return res, nil
	}

	orders, err = r.orders.FindByReferenceContaining(ctx, extendedFragments(digits))
	if err != nil {
		return nil, fmt.Errorf("failed to look up purchase order by prefixed digits: %w", err)
	}
	r.pick(res, orders, ResolveTierExtended)

	return res, nil
}

// extendedFragments adds P and PO forms of the digits, with and without leading zeros
func extendedFragments(digits string) []string {
	fragments := []string{digits, "P" + digits, "PO" + digits}
	if trimmed := strings.TrimLeft(digits, "0"); trimmed != digits && len(trimmed) >= invoice.MinPODigits {
		fragments = append(fragments, trimmed, "P"+trimmed, "PO"+trimmed)
	}
	return fragments
}

func (r *POResolver) pick(res *Resolution, orders []*entity.PurchaseOrder, tier int) bool {
	if len(orders) == 0 {
		return false
	}
	if len(orders) > 1 {
		r.logger.Info("Ambiguous purchase order match, using first",
			"candidate", res.Original,
			"tier", tier,
			"matches", len(orders))
	}
	res.Found = true
	res.Order = orders[0]
	res.Tier = tier
	return true
}
