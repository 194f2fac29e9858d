// Package xitique implements rotating savings circles ("xitiques"): a group
// where every participant pays a fixed amount each month and one participant
// collects the pooled total per month.
//
// A circle owns a fixed schedule of cycles generated at creation time. The
// household models only its own side of the circle: one contribution per
// cycle and a single receipt on the cycle matching its position. Settling a
// contribution or receipt is a one-shot transition that is always recorded in
// the household ledger within the same transaction.
package xitique

import (
	"errors"
	"fmt"
	"time"

	"github.com/Jubilio/mwanga/money"
	"github.com/google/uuid"
)

// Category tags every ledger entry produced by a circle.
const Category = "Xitique"

type Status string

const (
	StatusActive  Status = "active"
	StatusPending Status = "pending"
)

type Circle struct {
	ID                uuid.UUID   `json:"id"`
	HouseholdID       uuid.UUID   `json:"householdId"`
	Name              string      `json:"name"`
	MonthlyAmount     money.Cents `json:"monthlyAmount"`
	TotalParticipants int         `json:"totalParticipants"`
	StartDate         Month       `json:"startDate"`
	YourPosition      int         `json:"yourPosition"`
	Status            Status      `json:"status"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// TotalPayout is what the receiver of a cycle collects.
func (c Circle) TotalPayout() money.Cents {
	return c.MonthlyAmount * money.Cents(c.TotalParticipants)
}

type Cycle struct {
	ID               uuid.UUID `json:"id"`
	CircleID         uuid.UUID `json:"circleId"`
	CycleNumber      int       `json:"cycleNumber"`
	DueDate          Month     `json:"dueDate"`
	ReceiverPosition int       `json:"receiverPosition"`
	Status           Status    `json:"status"`
}

type Contribution struct {
	ID          uuid.UUID   `json:"id"`
	CircleID    uuid.UUID   `json:"circleId"`
	CycleID     uuid.UUID   `json:"cycleId"`
	CycleNumber int         `json:"cycleNumber"`
	Amount      money.Cents `json:"amount"`
	Paid        bool        `json:"paid"`
	PaymentDate *string     `json:"paymentDate"`
}

type Receipt struct {
	ID            uuid.UUID   `json:"id"`
	CircleID      uuid.UUID   `json:"circleId"`
	CycleID       uuid.UUID   `json:"cycleId"`
	CycleNumber   int         `json:"cycleNumber"`
	TotalReceived money.Cents `json:"totalReceived"`
	ReceivedDate  *string     `json:"receivedDate"`
}

// CircleView is a circle with everything it owns, ready for display.
type CircleView struct {
	Circle
	Cycles        []Cycle        `json:"cycles"`
	Contributions []Contribution `json:"contributions"`
	Receipt       *Receipt       `json:"receipt"`
}

var (
	// ErrAccessDenied covers both foreign and missing records so callers
	// can't probe for ids belonging to other households.
	ErrAccessDenied    = errors.New("access denied or not found")
	ErrConflict        = errors.New("already settled")
	ErrInvalidPosition = errors.New("position can't be greater than the number of participants")
)

type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// StorageError reports a failed database operation. The whole operation has
// been rolled back when it is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageError wraps infrastructure failures and lets domain errors through.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var se *StorageError
	if errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrConflict) || errors.As(err, &ve) || errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
