package xitique

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/Jubilio/mwanga/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinParticipants = 2
	// MaxParticipants bounds the size of the creation transaction; 240
	// monthly cycles is a twenty year circle.
	MaxParticipants = 240

	// maxYear is the last year a Month can be written and read back as YYYY-MM.
	maxYear = 9999
)

var (
	ErrEmptyName           = errors.New("name can't be empty")
	ErrTooFewParticipants  = errors.New("a circle needs at least 2 participants")
	ErrTooManyParticipants = errors.New("a circle can't have more than 240 participants")
	ErrPositionNotPositive = errors.New("position must be at least 1")
	ErrPayoutOverflow      = errors.New("monthly amount times participants is too large")
	ErrScheduleOutOfRange  = errors.New("the last cycle would fall after 9999-12")
)

// CreateInput is what a household provides to open a circle.
type CreateInput struct {
	Name              string          `json:"name"`
	MonthlyAmount     decimal.Decimal `json:"monthlyAmount"`
	TotalParticipants int             `json:"totalParticipants"`
	StartDate         string          `json:"startDate"`
	YourPosition      int             `json:"yourPosition"`
}

// newCircle validates the input, reporting the first offending field.
func newCircle(householdID uuid.UUID, in CreateInput, id uuid.UUID, now time.Time) (Circle, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Circle{}, invalid("name", ErrEmptyName)
	}

	cents, err := money.ToCents(in.MonthlyAmount)
	if err != nil {
		return Circle{}, invalid("monthlyAmount", err)
	}

	if in.TotalParticipants < MinParticipants {
		return Circle{}, invalid("totalParticipants", ErrTooFewParticipants)
	}
	if in.TotalParticipants > MaxParticipants {
		return Circle{}, invalid("totalParticipants", ErrTooManyParticipants)
	}

	if in.YourPosition < 1 {
		return Circle{}, invalid("yourPosition", ErrPositionNotPositive)
	}
	if in.YourPosition > in.TotalParticipants {
		return Circle{}, invalid("yourPosition", ErrInvalidPosition)
	}

	start, err := ParseMonth(strings.TrimSpace(in.StartDate))
	if err != nil {
		return Circle{}, invalid("startDate", err)
	}
	if start.AddMonths(in.TotalParticipants-1).Year > maxYear {
		return Circle{}, invalid("startDate", ErrScheduleOutOfRange)
	}

	if cents > math.MaxInt64/int64(in.TotalParticipants) {
		return Circle{}, invalid("monthlyAmount", ErrPayoutOverflow)
	}

	return Circle{
		ID:                id,
		HouseholdID:       householdID,
		Name:              name,
		MonthlyAmount:     money.Cents(cents),
		TotalParticipants: in.TotalParticipants,
		StartDate:         start,
		YourPosition:      in.YourPosition,
		Status:            StatusActive,
		CreatedAt:         now,
	}, nil
}

// slot is everything generated for one month of the circle.
type slot struct {
	cycle        Cycle
	contribution Contribution
	receipt      *Receipt
}

// schedule lays out the circle month by month: cycle i is due i-1 months
// after the start and pays out to position i. The household contributes to
// every cycle and receives only on the cycle matching its position.
func schedule(c Circle, newID func() uuid.UUID) []slot {
	slots := make([]slot, 0, c.TotalParticipants)
	for i := 1; i <= c.TotalParticipants; i++ {
		cycle := Cycle{
			ID:               newID(),
			CircleID:         c.ID,
			CycleNumber:      i,
			DueDate:          c.StartDate.AddMonths(i - 1),
			ReceiverPosition: i,
			Status:           StatusPending,
		}
		s := slot{
			cycle: cycle,
			contribution: Contribution{
				ID:          newID(),
				CircleID:    c.ID,
				CycleID:     cycle.ID,
				CycleNumber: i,
				Amount:      c.MonthlyAmount,
			},
		}
		if i == c.YourPosition {
			s.receipt = &Receipt{
				ID:            newID(),
				CircleID:      c.ID,
				CycleID:       cycle.ID,
				CycleNumber:   i,
				TotalReceived: c.TotalPayout(),
			}
		}
		slots = append(slots, s)
	}
	return slots
}
