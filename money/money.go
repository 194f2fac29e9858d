// Package money converts between the decimal amounts exchanged over HTTP and
// the integer cents persisted in the database.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotPositive = errors.New("amount must be positive")
	ErrTooPrecise  = errors.New("amount can't have more than two decimal places")
	ErrOutOfRange  = errors.New("amount is out of range")
)

var (
	hundred         = decimal.NewFromInt(100)
	maxCentsDecimal = decimal.NewFromInt(maxCents)
)

const maxCents = 1<<63 - 1

// ToCents converts a positive decimal amount with at most two decimal places
// into cents.
func ToCents(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, ErrNotPositive
	}
	cents := d.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, ErrTooPrecise
	}
	if cents.GreaterThan(maxCentsDecimal) {
		return 0, ErrOutOfRange
	}
	return cents.IntPart(), nil
}

// FromCents is the inverse of ToCents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Cents is an amount stored as integer cents and exchanged as a decimal
// number in JSON.
type Cents int64

func (c Cents) Decimal() decimal.Decimal {
	return FromCents(int64(c))
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.Decimal().String()), nil
}

func (c *Cents) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	cents, err := ToCents(d)
	if err != nil {
		return err
	}
	*c = Cents(cents)
	return nil
}
