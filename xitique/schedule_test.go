package xitique

import (
	"errors"
	"testing"
	"time"

	"github.com/Jubilio/mwanga/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func validInput() CreateInput {
	return CreateInput{
		Name:              "Familia",
		MonthlyAmount:     decimal.NewFromInt(1000),
		TotalParticipants: 3,
		StartDate:         "2026-03",
		YourPosition:      2,
	}
}

func TestNewCircleValidation(t *testing.T) {
	household := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c, err := newCircle(household, validInput(), uuid.New(), now)
	if err != nil {
		t.Fatalf("newCircle: %v", err)
	}
	if c.MonthlyAmount != 100000 || c.StartDate.String() != "2026-03" || c.Status != StatusActive {
		t.Errorf("unexpected circle: %+v", c)
	}

	tests := []struct {
		name   string
		mutate func(*CreateInput)
		field  string
		want   error
	}{
		{"empty name", func(in *CreateInput) { in.Name = "  " }, "name", ErrEmptyName},
		{"zero amount", func(in *CreateInput) { in.MonthlyAmount = decimal.Zero }, "monthlyAmount", money.ErrNotPositive},
		{"negative amount", func(in *CreateInput) { in.MonthlyAmount = decimal.NewFromInt(-5) }, "monthlyAmount", money.ErrNotPositive},
		{"sub-cent amount", func(in *CreateInput) { in.MonthlyAmount = decimal.RequireFromString("10.005") }, "monthlyAmount", money.ErrTooPrecise},
		{"one participant", func(in *CreateInput) { in.TotalParticipants = 1; in.YourPosition = 1 }, "totalParticipants", ErrTooFewParticipants},
		{"too many participants", func(in *CreateInput) { in.TotalParticipants = MaxParticipants + 1 }, "totalParticipants", ErrTooManyParticipants},
		{"position zero", func(in *CreateInput) { in.YourPosition = 0 }, "yourPosition", ErrPositionNotPositive},
		{"position past end", func(in *CreateInput) { in.YourPosition = 4 }, "yourPosition", ErrInvalidPosition},
		{"bad start", func(in *CreateInput) { in.StartDate = "March" }, "startDate", ErrInvalidMonth},
		{"schedule past year 9999", func(in *CreateInput) { in.StartDate = "9999-12" }, "startDate", ErrScheduleOutOfRange},
		{"payout overflow", func(in *CreateInput) {
			in.MonthlyAmount = decimal.New(1, 15)
			in.TotalParticipants = 200
		}, "monthlyAmount", ErrPayoutOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := newCircle(household, in, uuid.New(), now)

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestScheduleShape(t *testing.T) {
	for participants := MinParticipants; participants <= 24; participants++ {
		for position := 1; position <= participants; position++ {
			in := validInput()
			in.TotalParticipants = participants
			in.YourPosition = position
			in.StartDate = "2026-11-15"
			c, err := newCircle(uuid.New(), in, uuid.New(), time.Now())
			if err != nil {
				t.Fatalf("newCircle(%d, %d): %v", participants, position, err)
			}

			slots := schedule(c, uuid.New)
			if len(slots) != participants {
				t.Fatalf("got %d slots, want %d", len(slots), participants)
			}
			receipts := 0
			for i, s := range slots {
				n := i + 1
				if s.cycle.CycleNumber != n || s.cycle.ReceiverPosition != n {
					t.Fatalf("slot %d numbered %d/%d", n, s.cycle.CycleNumber, s.cycle.ReceiverPosition)
				}
				if want := c.StartDate.AddMonths(n - 1); s.cycle.DueDate != want {
					t.Fatalf("cycle %d due %s, want %s", n, s.cycle.DueDate, want)
				}
				if s.contribution.CycleID != s.cycle.ID || s.contribution.Amount != c.MonthlyAmount || s.contribution.Paid {
					t.Fatalf("cycle %d contribution = %+v", n, s.contribution)
				}
				if s.receipt != nil {
					receipts++
					if n != position {
						t.Fatalf("receipt on cycle %d, want %d", n, position)
					}
					if s.receipt.TotalReceived != c.MonthlyAmount*money.Cents(participants) {
						t.Fatalf("receipt total = %d", s.receipt.TotalReceived)
					}
				}
			}
			if receipts != 1 {
				t.Fatalf("got %d receipts, want 1", receipts)
			}
		}
	}
}

func TestScheduleYearRollover(t *testing.T) {
	in := validInput()
	in.StartDate = "2026-11"
	c, err := newCircle(uuid.New(), in, uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("newCircle: %v", err)
	}
	slots := schedule(c, uuid.New)
	if got := slots[2].cycle.DueDate.String(); got != "2027-01" {
		t.Fatalf("cycle 3 due %s, want 2027-01", got)
	}
}
