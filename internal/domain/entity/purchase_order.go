package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Partner is a vendor
type Partner struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	VAT  string `json:"vat,omitempty"`
}

// Distribution maps analytic (cost-center) account IDs to percentage shares
type Distribution map[int64]float64

// IsEmpty returns true if the distribution allocates nothing
func (d Distribution) IsEmpty() bool {
	return len(d) == 0
}

// Encode serialises the distribution for storage
func (d Distribution) Encode() (string, error) {
	if d.IsEmpty() {
		return "", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to encode distribution: %w", err)
	}
	return string(b), nil
}

// DecodeDistribution parses a stored distribution; empty input yields nil
func DecodeDistribution(raw string) (Distribution, error) {
	if raw == "" {
		return nil, nil
	}
	var d Distribution
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("failed to decode distribution: %w", err)
	}
	return d, nil
}

// PurchaseOrder is a confirmed procurement document a vendor invoice must reference
type PurchaseOrder struct {
	ID        int64       `json:"id"`
	Reference string      `json:"reference"`
	PartnerID *int64      `json:"partner_id,omitempty"`
	Partner   *Partner    `json:"partner,omitempty"`
	State     string      `json:"state"`
	Lines     []OrderLine `json:"lines,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderLine is a purchase order line
type OrderLine struct {
	ID           int64        `json:"id"`
	OrderID      int64        `json:"order_id"`
	ProductID    *int64       `json:"product_id,omitempty"`
	ProductName  string       `json:"product_name,omitempty"`
	Distribution Distribution `json:"distribution,omitempty"`
}

// FirstDistribution returns the first non-empty line distribution, or nil
func (po *PurchaseOrder) FirstDistribution() Distribution {
	for _, line := range po.Lines {
		if !line.Distribution.IsEmpty() {
			return line.Distribution
		}
	}
	return nil
}

// FirstProductID returns the product of the first order line, if any
func (po *PurchaseOrder) FirstProductID() *int64 {
	if len(po.Lines) == 0 {
		return nil
	}
	return po.Lines[0].ProductID
}
