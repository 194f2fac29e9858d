package xitique

import (
	"context"
	"fmt"
	"time"

	"github.com/Jubilio/mwanga/database"
	"github.com/Jubilio/mwanga/eventlogger"
	"github.com/Jubilio/mwanga/ledger"
	"github.com/google/uuid"
)

// Ledger appends entries through the transaction it was bound to.
type Ledger interface {
	Append(ctx context.Context, entry ledger.Entry) (uuid.UUID, error)
}

type Option func(*Service)

// WithAuditor sends audit events to a. Events are emitted after commit.
func WithAuditor(a eventlogger.Auditor) Option {
	return func(s *Service) {
		s.audit = a
	}
}

// WithLedger replaces the ledger bound to each settlement transaction.
func WithLedger(bind func(database.Querier) Ledger) Option {
	return func(s *Service) {
		s.bindLedger = bind
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service runs every circle operation as one transaction on db. Every
// operation is scoped to the caller's household.
type Service struct {
	db         *database.DB
	audit      eventlogger.Auditor
	bindLedger func(database.Querier) Ledger
	now        func() time.Time
	newID      func() uuid.UUID
}

func NewService(db *database.DB, opts ...Option) *Service {
	s := &Service{
		db:    db,
		audit: eventlogger.Discard,
		bindLedger: func(q database.Querier) Ledger {
			return ledger.NewRepository(q)
		},
		now:   time.Now,
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a circle and generates its whole schedule. Either the circle
// and all its cycles, contributions and receipt exist afterwards or nothing
// does. No ledger entries are written.
func (s *Service) Create(ctx context.Context, householdID uuid.UUID, in CreateInput) (*Circle, error) {
	circle, err := newCircle(householdID, in, s.newID(), s.now().UTC())
	if err != nil {
		return nil, err
	}
	slots := schedule(circle, s.newID)

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := newRepository(tx)
		if err := repo.insertCircle(ctx, circle); err != nil {
			return err
		}
		for _, slot := range slots {
			if err := repo.insertSlot(ctx, slot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageError("creating circle", err)
	}

	s.audit.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventCreated),
		eventlogger.WithHousehold(householdID),
		eventlogger.WithData(CreatedEvent{
			CircleID:          circle.ID,
			Name:              circle.Name,
			MonthlyAmount:     int64(circle.MonthlyAmount),
			TotalParticipants: circle.TotalParticipants,
			StartDate:         circle.StartDate.String(),
			YourPosition:      circle.YourPosition,
		}),
	))

	return &circle, nil
}

// Pay settles the household's contribution and books the matching expense.
func (s *Service) Pay(ctx context.Context, householdID, contributionID uuid.UUID, date string) error {
	day, err := parseDay(date)
	if err != nil {
		return invalid("date", err)
	}

	var event SettledEvent
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := newRepository(tx)
		c, err := repo.contributionForHousehold(ctx, householdID, contributionID)
		if err != nil {
			return err
		}
		if c.Settled {
			return fmt.Errorf("contribution %s: %w", c.ID, ErrConflict)
		}
		ok, err := repo.markContributionPaid(ctx, c.ID, day)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("contribution %s: %w", c.ID, ErrConflict)
		}

		entry, err := ledger.NewEntry(householdID, ledger.Expense, int64(c.Amount), Category, day,
			"Xitique contribution: "+c.CircleName, "Automatic payment via Xitique")
		if err != nil {
			return err
		}
		if _, err := s.bindLedger(tx).Append(ctx, entry); err != nil {
			return err
		}

		event = SettledEvent{CircleID: c.CircleID, RecordID: c.ID, Ledger: entry.AppendedEvent()}
		return nil
	})
	if err != nil {
		return storageError("paying contribution", err)
	}

	s.audit.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventContributionPaid),
		eventlogger.WithHousehold(householdID),
		eventlogger.WithData(event),
	))
	return nil
}

// Receive settles the household's payout and books the matching income.
func (s *Service) Receive(ctx context.Context, householdID, receiptID uuid.UUID, date string) error {
	day, err := parseDay(date)
	if err != nil {
		return invalid("date", err)
	}

	var event SettledEvent
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := newRepository(tx)
		r, err := repo.receiptForHousehold(ctx, householdID, receiptID)
		if err != nil {
			return err
		}
		if r.Settled {
			return fmt.Errorf("receipt %s: %w", r.ID, ErrConflict)
		}
		ok, err := repo.markReceiptReceived(ctx, r.ID, day)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("receipt %s: %w", r.ID, ErrConflict)
		}

		entry, err := ledger.NewEntry(householdID, ledger.Income, int64(r.Amount), Category, day,
			"Xitique payout: "+r.CircleName, "Automatic receipt via Xitique")
		if err != nil {
			return err
		}
		if _, err := s.bindLedger(tx).Append(ctx, entry); err != nil {
			return err
		}

		event = SettledEvent{CircleID: r.CircleID, RecordID: r.ID, Ledger: entry.AppendedEvent()}
		return nil
	})
	if err != nil {
		return storageError("receiving payout", err)
	}

	s.audit.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventPayoutReceived),
		eventlogger.WithHousehold(householdID),
		eventlogger.WithData(event),
	))
	return nil
}

// Delete removes the circle and everything it owns when it belongs to the
// household, and does nothing otherwise. Ledger history is kept.
func (s *Service) Delete(ctx context.Context, householdID, circleID uuid.UUID) error {
	var deleted bool
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		deleted, err = newRepository(tx).deleteCircle(ctx, householdID, circleID)
		return err
	})
	if err != nil {
		return storageError("deleting circle", err)
	}

	if deleted {
		s.audit.Log(eventlogger.NewEvent(
			eventlogger.WithType(EventDeleted),
			eventlogger.WithHousehold(householdID),
			eventlogger.WithData(DeletedEvent{CircleID: circleID}),
		))
	}
	return nil
}

// List returns the household's circles newest first.
func (s *Service) List(ctx context.Context, householdID uuid.UUID) ([]CircleView, error) {
	var views []CircleView
	err := s.db.WithReadTx(ctx, func(tx *database.Tx) error {
		var err error
		views, err = newRepository(tx).views(ctx, householdID, nil)
		return err
	})
	if err != nil {
		return nil, storageError("listing circles", err)
	}
	return views, nil
}

// Get returns one circle of the household.
func (s *Service) Get(ctx context.Context, householdID, circleID uuid.UUID) (*CircleView, error) {
	var views []CircleView
	err := s.db.WithReadTx(ctx, func(tx *database.Tx) error {
		repo := newRepository(tx)
		if _, err := repo.circleForHousehold(ctx, householdID, circleID); err != nil {
			return err
		}
		var err error
		views, err = repo.views(ctx, householdID, &circleID)
		return err
	})
	if err != nil {
		return nil, storageError("reading circle", err)
	}
	if len(views) != 1 {
		return nil, ErrAccessDenied
	}
	return &views[0], nil
}
