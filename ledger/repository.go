package ledger

import (
	"context"
	"fmt"

	"github.com/Jubilio/mwanga/database"
	"github.com/google/uuid"
)

type repository struct {
	db database.Querier
}

// NewRepository binds the ledger to a connection or to the transaction of
// the operation appending to it.
func NewRepository(db database.Querier) *repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, entry Entry) (uuid.UUID, error) {
	query := `INSERT INTO transactions (id, household_id, date, type, description, amount_cents, category, note, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(query),
		entry.ID,
		entry.HouseholdID,
		entry.Date,
		string(entry.Type),
		entry.Description,
		entry.Amount,
		entry.Category,
		entry.Note,
		entry.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting ledger entry: %w", err)
	}

	return entry.ID, nil
}

func (r *repository) List(ctx context.Context, householdID uuid.UUID, limit int) ([]Entry, error) {
	query := `SELECT id, household_id, date, type, description, amount_cents, category, note, created_at
              FROM transactions
              WHERE household_id = ?
              ORDER BY date DESC, created_at DESC
              LIMIT ?`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), householdID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		err := rows.Scan(
			&entry.ID,
			&entry.HouseholdID,
			&entry.Date,
			&entry.Type,
			&entry.Description,
			&entry.Amount,
			&entry.Category,
			&entry.Note,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
