package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Jubilio/mwanga/database"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailExists   = errors.New("email already exists")
	ErrInvalidEmail  = errors.New("invalid email format")
	ErrBlankPassword = errors.New("password can't be blank")
)

type repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *repository {
	return &repository{db: db}
}

// Register creates the user together with the household it owns. A user
// always belongs to exactly one household.
func (r *repository) Register(ctx context.Context, householdName, name, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	if password == "" {
		return nil, ErrBlankPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	if strings.TrimSpace(householdName) == "" {
		householdName = email
	}
	household := Household{ID: uuid.New(), Name: householdName, CreatedAt: now}
	user := &User{
		ID:           uuid.New(),
		HouseholdID:  household.ID,
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
	}

	// The unique index on email is the only duplicate check, so concurrent
	// registrations of one address can't both succeed.
	err = r.db.WithTx(ctx, func(tx *database.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO households (id, name, created_at) VALUES (?, ?, ?)`),
			household.ID, household.Name, household.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting household: %w", err)
		}

		query := `INSERT INTO users (id, household_id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`
		_, err = tx.ExecContext(ctx, tx.Rebind(query), user.ID, user.HouseholdID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
		if database.IsUniqueViolation(err) {
			return ErrEmailExists
		}
		if err != nil {
			return fmt.Errorf("inserting user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, household_id, COALESCE(name, ''), email, password_hash, created_at FROM users WHERE email = ?`
	return r.getOne(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT id, household_id, COALESCE(name, ''), email, password_hash, created_at FROM users WHERE id = ?`
	return r.getOne(ctx, query, id)
}

func (r *repository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), arg).Scan(
		&user.ID,
		&user.HouseholdID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &user, nil
}

func (r *repository) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
