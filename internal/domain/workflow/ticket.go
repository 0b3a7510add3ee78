package workflow

// outcomeTriggers maps every pass outcome to the trigger that reaches it
var outcomeTriggers = map[Trigger]State{
	TriggerNoPDF:          StateNoPDF,
	TriggerNoValidPO:      StateNoValidPO,
	TriggerPOInexistent:   StatePOInexistent,
	TriggerLinkInvoice:    StateInvoiceLinked,
	TriggerDuplicate:      StateDuplicateFound,
	TriggerCreationFailed: StateCreationFailed,
}

// NewTicketBuilder returns a builder configured with the intake stage graph:
// NEW_INVOICES fans out to the outcome stages, and every outcome can be reopened.
func NewTicketBuilder() StateMachineBuilder {
	b := NewBuilder()

	cfg := b.Configure(StateNewInvoices)
	for trigger, to := range outcomeTriggers {
		cfg.Permit(trigger, to)
	}

	for _, to := range outcomeTriggers {
		b.Configure(to).Permit(TriggerReopen, StateNewInvoices)
	}

	return b
}

// NewTicketMachine builds a machine for a ticket currently in the given stage
func NewTicketMachine(stage State) StateMachine {
	return NewTicketBuilder().Build(stage)
}
