package xitique

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Jubilio/mwanga/database"
	"github.com/Jubilio/mwanga/money"
	"github.com/google/uuid"
)

// repository is bound to the transaction of a single operation.
type repository struct {
	db database.Querier
}

func newRepository(db database.Querier) *repository {
	return &repository{db: db}
}

func (r *repository) insertCircle(ctx context.Context, c Circle) error {
	query := `INSERT INTO xitiques (id, household_id, name, monthly_amount_cents, total_participants, start_date, your_position, status, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(query),
		c.ID,
		c.HouseholdID,
		c.Name,
		int64(c.MonthlyAmount),
		c.TotalParticipants,
		c.StartDate,
		c.YourPosition,
		string(c.Status),
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting circle: %w", err)
	}
	return nil
}

func (r *repository) insertSlot(ctx context.Context, s slot) error {
	query := `INSERT INTO xitique_cycles (id, xitique_id, cycle_number, due_date, receiver_position, status) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		s.cycle.ID, s.cycle.CircleID, s.cycle.CycleNumber, s.cycle.DueDate, s.cycle.ReceiverPosition, string(s.cycle.Status))
	if err != nil {
		return fmt.Errorf("inserting cycle %d: %w", s.cycle.CycleNumber, err)
	}

	query = `INSERT INTO xitique_contributions (id, xitique_id, cycle_id, amount_cents, paid) VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, r.db.Rebind(query),
		s.contribution.ID, s.contribution.CircleID, s.contribution.CycleID, int64(s.contribution.Amount), false)
	if err != nil {
		return fmt.Errorf("inserting contribution for cycle %d: %w", s.cycle.CycleNumber, err)
	}

	if s.receipt == nil {
		return nil
	}
	query = `INSERT INTO xitique_receipts (id, xitique_id, cycle_id, total_received_cents) VALUES (?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, r.db.Rebind(query),
		s.receipt.ID, s.receipt.CircleID, s.receipt.CycleID, int64(s.receipt.TotalReceived))
	if err != nil {
		return fmt.Errorf("inserting receipt for cycle %d: %w", s.cycle.CycleNumber, err)
	}
	return nil
}

// deleteCircle removes the circle only when it belongs to the household;
// cycles, contributions and receipts go with it through the cascade.
func (r *repository) deleteCircle(ctx context.Context, householdID, circleID uuid.UUID) (bool, error) {
	query := `DELETE FROM xitiques WHERE id = ? AND household_id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), circleID, householdID)
	if err != nil {
		return false, fmt.Errorf("deleting circle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting circle: %w", err)
	}
	return n > 0, nil
}

// settlement is a contribution or receipt resolved through its circle.
type settlement struct {
	ID         uuid.UUID
	CircleID   uuid.UUID
	CircleName string
	Amount     money.Cents
	Settled    bool
}

func (r *repository) circleForHousehold(ctx context.Context, householdID, circleID uuid.UUID) (*Circle, error) {
	query := `SELECT x.id, x.household_id, x.name, x.monthly_amount_cents, x.total_participants, x.start_date, x.your_position, x.status, x.created_at
              FROM xitiques x
              WHERE x.id = ? AND x.household_id = ?`
	var c Circle
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), circleID, householdID).Scan(
		&c.ID, &c.HouseholdID, &c.Name, &c.MonthlyAmount, &c.TotalParticipants, &c.StartDate, &c.YourPosition, &c.Status, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, fmt.Errorf("resolving circle: %w", err)
	}
	return &c, nil
}

func (r *repository) contributionForHousehold(ctx context.Context, householdID, contributionID uuid.UUID) (*settlement, error) {
	query := `SELECT c.id, c.xitique_id, x.name, c.amount_cents, c.paid
              FROM xitique_contributions c
              JOIN xitiques x ON c.xitique_id = x.id
              WHERE c.id = ? AND x.household_id = ?`
	var s settlement
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), contributionID, householdID).Scan(
		&s.ID, &s.CircleID, &s.CircleName, &s.Amount, &s.Settled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, fmt.Errorf("resolving contribution: %w", err)
	}
	return &s, nil
}

func (r *repository) receiptForHousehold(ctx context.Context, householdID, receiptID uuid.UUID) (*settlement, error) {
	query := `SELECT r.id, r.xitique_id, x.name, r.total_received_cents, r.received_date IS NOT NULL
              FROM xitique_receipts r
              JOIN xitiques x ON r.xitique_id = x.id
              WHERE r.id = ? AND x.household_id = ?`
	var s settlement
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), receiptID, householdID).Scan(
		&s.ID, &s.CircleID, &s.CircleName, &s.Amount, &s.Settled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, fmt.Errorf("resolving receipt: %w", err)
	}
	return &s, nil
}

// markContributionPaid flips paid from false to true. It reports false when
// another request got there first.
func (r *repository) markContributionPaid(ctx context.Context, contributionID uuid.UUID, date string) (bool, error) {
	query := `UPDATE xitique_contributions SET paid = ?, payment_date = ? WHERE id = ? AND paid = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), true, date, contributionID, false)
	if err != nil {
		return false, fmt.Errorf("marking contribution paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking contribution paid: %w", err)
	}
	return n == 1, nil
}

// markReceiptReceived sets received_date once. It reports false when the
// receipt was already received.
func (r *repository) markReceiptReceived(ctx context.Context, receiptID uuid.UUID, date string) (bool, error) {
	query := `UPDATE xitique_receipts SET received_date = ? WHERE id = ? AND received_date IS NULL`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), date, receiptID)
	if err != nil {
		return false, fmt.Errorf("marking receipt received: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking receipt received: %w", err)
	}
	return n == 1, nil
}

// views loads the household's circles with their children using one query
// per table. When circleID is set only that circle is loaded.
func (r *repository) views(ctx context.Context, householdID uuid.UUID, circleID *uuid.UUID) ([]CircleView, error) {
	scope := "x.household_id = ?"
	args := []any{householdID}
	if circleID != nil {
		scope += " AND x.id = ?"
		args = append(args, *circleID)
	}

	circles, err := r.circles(ctx, scope, args)
	if err != nil {
		return nil, err
	}
	views := make([]CircleView, len(circles))
	byID := make(map[uuid.UUID]*CircleView, len(circles))
	for i, c := range circles {
		views[i] = CircleView{Circle: c, Cycles: []Cycle{}, Contributions: []Contribution{}}
		byID[c.ID] = &views[i]
	}
	if len(views) == 0 {
		return views, nil
	}

	cycles, err := r.cycles(ctx, scope, args)
	if err != nil {
		return nil, err
	}
	for _, cy := range cycles {
		if v, ok := byID[cy.CircleID]; ok {
			v.Cycles = append(v.Cycles, cy)
		}
	}

	contributions, err := r.contributions(ctx, scope, args)
	if err != nil {
		return nil, err
	}
	for _, c := range contributions {
		if v, ok := byID[c.CircleID]; ok {
			v.Contributions = append(v.Contributions, c)
		}
	}

	receipts, err := r.receipts(ctx, scope, args)
	if err != nil {
		return nil, err
	}
	for i := range receipts {
		if v, ok := byID[receipts[i].CircleID]; ok {
			v.Receipt = &receipts[i]
		}
	}

	return views, nil
}

func (r *repository) circles(ctx context.Context, scope string, args []any) ([]Circle, error) {
	query := `SELECT x.id, x.household_id, x.name, x.monthly_amount_cents, x.total_participants, x.start_date, x.your_position, x.status, x.created_at
              FROM xitiques x
              WHERE ` + scope + `
              ORDER BY x.created_at DESC, x.id`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying circles: %w", err)
	}
	defer rows.Close()

	var circles []Circle
	for rows.Next() {
		var c Circle
		err := rows.Scan(&c.ID, &c.HouseholdID, &c.Name, &c.MonthlyAmount, &c.TotalParticipants, &c.StartDate, &c.YourPosition, &c.Status, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning circle: %w", err)
		}
		circles = append(circles, c)
	}
	return circles, rows.Err()
}

func (r *repository) cycles(ctx context.Context, scope string, args []any) ([]Cycle, error) {
	query := `SELECT cy.id, cy.xitique_id, cy.cycle_number, cy.due_date, cy.receiver_position, cy.status
              FROM xitique_cycles cy
              JOIN xitiques x ON cy.xitique_id = x.id
              WHERE ` + scope + `
              ORDER BY cy.xitique_id, cy.cycle_number`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		var cy Cycle
		if err := rows.Scan(&cy.ID, &cy.CircleID, &cy.CycleNumber, &cy.DueDate, &cy.ReceiverPosition, &cy.Status); err != nil {
			return nil, fmt.Errorf("scanning cycle: %w", err)
		}
		cycles = append(cycles, cy)
	}
	return cycles, rows.Err()
}

func (r *repository) contributions(ctx context.Context, scope string, args []any) ([]Contribution, error) {
	query := `SELECT c.id, c.xitique_id, c.cycle_id, cy.cycle_number, c.amount_cents, c.paid, c.payment_date
              FROM xitique_contributions c
              JOIN xitique_cycles cy ON c.cycle_id = cy.id
              JOIN xitiques x ON c.xitique_id = x.id
              WHERE ` + scope + `
              ORDER BY c.xitique_id, cy.cycle_number`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying contributions: %w", err)
	}
	defer rows.Close()

	var contributions []Contribution
	for rows.Next() {
		var c Contribution
		var paymentDate sql.NullString
		if err := rows.Scan(&c.ID, &c.CircleID, &c.CycleID, &c.CycleNumber, &c.Amount, &c.Paid, &paymentDate); err != nil {
			return nil, fmt.Errorf("scanning contribution: %w", err)
		}
		if paymentDate.Valid {
			c.PaymentDate = &paymentDate.String
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

func (r *repository) receipts(ctx context.Context, scope string, args []any) ([]Receipt, error) {
	query := `SELECT r.id, r.xitique_id, r.cycle_id, cy.cycle_number, r.total_received_cents, r.received_date
              FROM xitique_receipts r
              JOIN xitique_cycles cy ON r.cycle_id = cy.id
              JOIN xitiques x ON r.xitique_id = x.id
              WHERE ` + scope + `
              ORDER BY r.xitique_id`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying receipts: %w", err)
	}
	defer rows.Close()

	var receipts []Receipt
	for rows.Next() {
		var rc Receipt
		var receivedDate sql.NullString
		if err := rows.Scan(&rc.ID, &rc.CircleID, &rc.CycleID, &rc.CycleNumber, &rc.TotalReceived, &receivedDate); err != nil {
			return nil, fmt.Errorf("scanning receipt: %w", err)
		}
		if receivedDate.Valid {
			rc.ReceivedDate = &receivedDate.String
		}
		receipts = append(receipts, rc)
	}
	return receipts, rows.Err()
}
