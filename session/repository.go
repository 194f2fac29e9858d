package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/Jubilio/mwanga/database"
	"github.com/google/uuid"
)

type repository struct {
	db  database.Querier
	now func() time.Time
}

func NewRepository(db database.Querier) *repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) Create(ctx context.Context, userID, householdID uuid.UUID) (*Session, error) {
	token, err := generateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}

	now := r.now().UTC()
	session := &Session{
		ID:          uuid.New(),
		UserID:      userID,
		HouseholdID: householdID,
		Token:       token,
		ExpiresAt:   now.Add(sessionDuration),
		CreatedAt:   now,
	}

	query := `
        INSERT INTO sessions (id, user_id, token, expires_at, created_at)
        VALUES (?, ?, ?, ?, ?)
    `

	_, err = r.db.ExecContext(ctx, r.db.Rebind(query),
		session.ID,
		session.UserID,
		session.Token,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	return session, nil
}

// GetByToken retrieves a session and the household of its user, rejecting
// expired ones.
func (r *repository) GetByToken(ctx context.Context, token string) (*Session, error) {
	var session Session

	query := `
        SELECT s.id, s.user_id, u.household_id, s.token, s.expires_at, s.created_at
        FROM sessions s
        JOIN users u ON u.id = s.user_id
        WHERE s.token = ?
    `

	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), token).Scan(
		&session.ID,
		&session.UserID,
		&session.HouseholdID,
		&session.Token,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if r.now().After(session.ExpiresAt) {
		return nil, ErrExpiredSession
	}

	return &session, nil
}

// Delete removes a session (logout)
func (r *repository) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM sessions WHERE token = ?`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), token)
	return err
}

func generateSecureToken() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
