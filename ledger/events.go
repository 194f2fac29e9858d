package ledger

import "github.com/google/uuid"

// EntryAppendedEvent is the audit payload recorded whenever another module
// appends to the ledger on the household's behalf.
type EntryAppendedEvent struct {
	EntryID     uuid.UUID `json:"entry_id"`
	HouseholdID uuid.UUID `json:"household_id"`
	Type        Type      `json:"type"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Date        string    `json:"date"`
}

func (e Entry) AppendedEvent() EntryAppendedEvent {
	return EntryAppendedEvent{
		EntryID:     e.ID,
		HouseholdID: e.HouseholdID,
		Type:        e.Type,
		AmountCents: e.Amount,
		Category:    e.Category,
		Date:        e.Date,
	}
}
