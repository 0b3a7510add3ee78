package workflow

// Trigger represents an event that moves a ticket between stages
type Trigger string

const (
	TriggerNoPDF          Trigger = "NO_PDF_FOUND"
	TriggerNoValidPO      Trigger = "NO_VALID_PO"
	TriggerPOInexistent   Trigger = "PO_NOT_FOUND"
	TriggerLinkInvoice    Trigger = "LINK_INVOICE"
	TriggerDuplicate      Trigger = "DUPLICATE_DETECTED"
	TriggerCreationFailed Trigger = "CREATION_FAILED"
	TriggerReopen         Trigger = "REOPEN"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
