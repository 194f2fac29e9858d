// Package ledger is the household's append-only record of dated income and
// expense entries.
package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	Income  Type = "income"
	Expense Type = "expense"
)

// DateLayout is the calendar-day format entries are dated with.
const DateLayout = "2006-01-02"

type Entry struct {
	ID          uuid.UUID `json:"id"`
	HouseholdID uuid.UUID `json:"household_id"`
	Date        string    `json:"date"`
	Type        Type      `json:"type"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"` // Amount in cents
	Category    string    `json:"category"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	ErrInvalidType      = errors.New("type must be income or expense")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrEmptyDescription = errors.New("description can't be empty")
	ErrEmptyCategory    = errors.New("category can't be empty")
	ErrInvalidDate      = errors.New("date must be formatted as YYYY-MM-DD")
	ErrMissingHousehold = errors.New("household is required")
)

func NewEntry(householdID uuid.UUID, typ Type, amount int64, category, date, description, note string) (Entry, error) {
	if householdID == uuid.Nil {
		return Entry{}, ErrMissingHousehold
	}

	if typ != Income && typ != Expense {
		return Entry{}, ErrInvalidType
	}

	if amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}

	if strings.TrimSpace(category) == "" {
		return Entry{}, ErrEmptyCategory
	}

	if strings.TrimSpace(description) == "" {
		return Entry{}, ErrEmptyDescription
	}

	if _, err := time.Parse(DateLayout, date); err != nil {
		return Entry{}, ErrInvalidDate
	}

	return Entry{
		ID:          uuid.New(),
		HouseholdID: householdID,
		Date:        date,
		Type:        typ,
		Description: description,
		Amount:      amount,
		Category:    category,
		Note:        note,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
