package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted from the current stage
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every guard of a permitted trigger rejects it
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrNoResults is returned when an outcome is requested for a ticket with no processed attachments
	ErrNoResults = errors.New("no attachment results")
)
