package invoice

import "fmt"

// Tier orders PO candidate strategies; lower tiers win
type Tier int

const (
	// TierSpecial is the unambiguous "pedido de compra ... #P<digits>" phrase
	TierSpecial Tier = iota
	// TierPrimary matches P, PO, OC, #P and #PO immediately followed by digits
	TierPrimary
	// TierSecondary matches tokens near PO-ish labels
	TierSecondary
	// TierTertiary matches any standalone P<digits> outside catalog context
	TierTertiary
)

func (t Tier) String() string {
	switch t {
	case TierSpecial:
		return "special"
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Candidate is a possible purchase-order reference found in document text
type Candidate struct {
	Value    string `json:"value"`
	Raw      string `json:"raw"`
	Tier     Tier   `json:"tier"`
	Source   string `json:"source"`
	Rejected bool   `json:"rejected"`
	Reason   string `json:"reason,omitempty"`
}

// POExtraction is the result of PO candidate extraction over one document
type POExtraction struct {
	PONumber   string      `json:"po_number"`
	Found      bool        `json:"found"`
	Special    bool        `json:"special"`
	Tier       Tier        `json:"tier"`
	Candidates []Candidate `json:"candidates"`
}
