package xitique

import (
	"github.com/Jubilio/mwanga/ledger"
	"github.com/google/uuid"
)

// Audit event types.
const (
	EventCreated          = "xitique.created"
	EventDeleted          = "xitique.deleted"
	EventContributionPaid = "xitique.contribution_paid"
	EventPayoutReceived   = "xitique.payout_received"
)

type CreatedEvent struct {
	CircleID          uuid.UUID `json:"circle_id"`
	Name              string    `json:"name"`
	MonthlyAmount     int64     `json:"monthly_amount_cents"`
	TotalParticipants int       `json:"total_participants"`
	StartDate         string    `json:"start_date"`
	YourPosition      int       `json:"your_position"`
}

type DeletedEvent struct {
	CircleID uuid.UUID `json:"circle_id"`
}

// SettledEvent records a contribution paid or a payout received, together
// with the ledger entry that mirrors it.
type SettledEvent struct {
	CircleID uuid.UUID                 `json:"circle_id"`
	RecordID uuid.UUID                 `json:"record_id"`
	Ledger   ledger.EntryAppendedEvent `json:"ledger"`
}
