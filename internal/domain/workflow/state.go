package workflow

import "github.com/garyjia/ap-invoice-intake/internal/domain/entity"

// State is a ticket stage as seen by the intake state machine
type State string

const (
	StateNewInvoices    State = entity.StageNewInvoices
	StateNoPDF          State = entity.StageNoPDF
	StateNoValidPO      State = entity.StageNoValidPO
	StatePOInexistent   State = entity.StagePOInexistent
	StateInvoiceLinked  State = entity.StageInvoiceLinked
	StateDuplicateFound State = entity.StageDuplicateFound
	StateCreationFailed State = entity.StageCreationFailed
)

var validStates = map[State]bool{
	StateNewInvoices:    true,
	StateNoPDF:          true,
	StateNoValidPO:      true,
	StatePOInexistent:   true,
	StateInvoiceLinked:  true,
	StateDuplicateFound: true,
	StateCreationFailed: true,
}

// Outcome states end a processing pass. A ticket only leaves them when reopened.
var terminalStates = map[State]bool{
	StateNoPDF:          true,
	StateNoValidPO:      true,
	StatePOInexistent:   true,
	StateInvoiceLinked:  true,
	StateDuplicateFound: true,
	StateCreationFailed: true,
}

// IsTerminal returns true if the state ends the current processing pass
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known ticket stage
func (s State) IsValid() bool {
	return validStates[s]
}
