package user

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Jubilio/mwanga/database/dbtest"
)

func TestRegisterCreatesHousehold(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewRepository(db)

	registered, err := repo.Register(ctx, "Casa Mwanga", "Ana", " Ana@Example.com ", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if registered.Email != "ana@example.com" {
		t.Errorf("email = %q, want normalized", registered.Email)
	}
	if n := dbtest.Count(t, db, "households", "id = ?", registered.HouseholdID); n != 1 {
		t.Fatalf("households = %d, want 1", n)
	}

	found, err := repo.GetByEmail(ctx, "ANA@example.com")
	if err != nil || found == nil {
		t.Fatalf("GetByEmail = %v, %v", found, err)
	}
	if found.ID != registered.ID || found.HouseholdID != registered.HouseholdID {
		t.Errorf("found = %+v", found)
	}
	if err := repo.VerifyPassword(found.PasswordHash, "secret"); err != nil {
		t.Errorf("VerifyPassword: %v", err)
	}
	if err := repo.VerifyPassword(found.PasswordHash, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}

	byID, err := repo.GetByID(ctx, registered.ID)
	if err != nil || byID == nil || byID.Name != "Ana" {
		t.Fatalf("GetByID = %+v, %v", byID, err)
	}
}

func TestRegisterRejects(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewRepository(db)

	if _, err := repo.Register(ctx, "", "", "ana@example.com", "secret"); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"duplicate", "ana@example.com", "secret", ErrEmailExists},
		{"bad email", "not-an-email", "secret", ErrInvalidEmail},
		{"blank password", "joao@example.com", "", ErrBlankPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Register(ctx, "", "", tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Register() = %v, want %v", err, tt.want)
			}
		})
	}
	if n := dbtest.Count(t, db, "households", ""); n != 1 {
		t.Fatalf("households = %d, failed registrations must not leave rows", n)
	}
}

func TestRegisterConcurrentDuplicates(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db)

	const callers = 6
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Register(context.Background(), "", "", "ana@example.com", "secret")
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrEmailExists):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("%d registrations succeeded, want 1", created)
	}
	if n := dbtest.Count(t, db, "households", ""); n != 1 {
		t.Fatalf("households = %d, want 1", n)
	}
}

func TestGetByEmailMissing(t *testing.T) {
	repo := NewRepository(dbtest.New(t))
	got, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if err != nil || got != nil {
		t.Fatalf("GetByEmail = %v, %v; want nil, nil", got, err)
	}
}
