package workflow

import "github.com/garyjia/ap-invoice-intake/internal/domain/entity"

// precedence orders attachment result kinds from strongest to weakest.
// The first kind present among a ticket's results decides its outcome.
var precedence = []struct {
	kind    entity.ResultKind
	trigger Trigger
}{
	{entity.ResultInvoiceLinked, TriggerLinkInvoice},
	{entity.ResultDuplicateFound, TriggerDuplicate},
	{entity.ResultCreationFailed, TriggerCreationFailed},
	{entity.ResultPOInexistent, TriggerPOInexistent},
	{entity.ResultNoValidPO, TriggerNoValidPO},
}

// Decide picks the trigger for a ticket from its attachment results.
// Results that are only errors fall back to NO_VALID_PO.
func Decide(results []entity.AttachmentResult) (Trigger, error) {
	if len(results) == 0 {
		return "", ErrNoResults
	}

	present := make(map[entity.ResultKind]bool, len(results))
	for _, r := range results {
		present[r.Kind] = true
	}

	for _, p := range precedence {
		if present[p.kind] {
			return p.trigger, nil
		}
	}

	return TriggerNoValidPO, nil
}

// Deciding returns the first result matching the decided trigger, if any
func Deciding(results []entity.AttachmentResult, trigger Trigger) *entity.AttachmentResult {
	for _, p := range precedence {
		if p.trigger != trigger {
			continue
		}
		for i := range results {
			if results[i].Kind == p.kind {
				return &results[i]
			}
		}
	}
	return nil
}
