package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Jubilio/mwanga/respond"
	"github.com/Jubilio/mwanga/session"
	"github.com/google/uuid"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is who is calling and which household the call is scoped to.
type Identity struct {
	UserID      uuid.UUID
	HouseholdID uuid.UUID
}

// AuthMiddleware resolves the session token, taken from the session cookie
// or an "Authorization: Bearer" header, into an Identity on the context.
// Requests without a valid session pass through unauthenticated.
func AuthMiddleware(sessionRepo session.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessionRepo.GetByToken(r.Context(), token)
			if err != nil {
				slog.Info("invalid/expired session", "error", err)
				if fromCookie {
					http.SetCookie(w, &http.Cookie{
						Name:   session.CookieName,
						Value:  "",
						Path:   "/",
						MaxAge: -1,
					})
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: sess.UserID, HouseholdID: sess.HouseholdID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token), false
		}
	}
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		return cookie.Value, true
	}
	return "", false
}

// RequireAuth rejects requests that carry no household identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthenticated(r.Context()) {
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// GetHouseholdID extracts the caller's household from context
func GetHouseholdID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := GetIdentity(ctx)
	return id.HouseholdID, ok
}

// IsAuthenticated checks if user is authenticated
func IsAuthenticated(ctx context.Context) bool {
	_, ok := GetIdentity(ctx)
	return ok
}
