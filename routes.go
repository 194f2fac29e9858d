package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Jubilio/mwanga/eventlogger"
	"github.com/Jubilio/mwanga/ledger"
	"github.com/Jubilio/mwanga/middleware"
	"github.com/Jubilio/mwanga/respond"
	"github.com/Jubilio/mwanga/session"
	"github.com/Jubilio/mwanga/user"
	"github.com/Jubilio/mwanga/xitique"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultEntryLimit = 100
	maxEntryLimit     = 500
	maxBodyBytes      = 1 << 20
)

type ledgerLister interface {
	List(ctx context.Context, householdID uuid.UUID, limit int) ([]ledger.Entry, error)
}

type app struct {
	users         user.Repository
	sessions      session.Repository
	circles       *xitique.Service
	ledger        ledgerLister
	audit         eventlogger.Auditor
	secureCookies bool
}

type credentials struct {
	HouseholdName string `json:"householdName"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
}

type settleRequest struct {
	Date string `json:"date"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func newRouter(a app) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.AuthMiddleware(a.sessions))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	router.Post("/user/register", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req credentials
		if !decode(w, r, &req) {
			return
		}

		registered, err := a.users.Register(ctx, req.HouseholdName, req.Name, req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, user.ErrEmailExists):
				respond.FieldError(w, http.StatusConflict, "email", err.Error())
			case errors.Is(err, user.ErrInvalidEmail):
				respond.FieldError(w, http.StatusBadRequest, "email", err.Error())
			case errors.Is(err, user.ErrBlankPassword):
				respond.FieldError(w, http.StatusBadRequest, "password", err.Error())
			default:
				slog.Error("failed to register user", "error", err)
				respond.Error(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		sess, ok := a.startSession(w, r, registered)
		if !ok {
			return
		}

		a.audit.Log(eventlogger.NewEvent(
			eventlogger.WithType("user.registered"),
			eventlogger.WithUser(registered.ID),
			eventlogger.WithHousehold(registered.HouseholdID),
			eventlogger.WithMetadata(requestMetadata(r)),
			eventlogger.WithData(map[string]string{
				"email":      registered.Email,
				"session_id": sess.ID.String(),
			}),
		))

		respond.JSON(w, http.StatusCreated, tokenResponse{Token: sess.Token})
	})

	router.Post("/user/login", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req credentials
		if !decode(w, r, &req) {
			return
		}

		found, err := a.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			slog.Error("failed to fetch user", "error", err)
			respond.Error(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if found == nil || a.users.VerifyPassword(found.PasswordHash, req.Password) != nil {
			respond.Error(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		sess, ok := a.startSession(w, r, found)
		if !ok {
			return
		}

		a.audit.Log(eventlogger.NewEvent(
			eventlogger.WithType("user.logged_in"),
			eventlogger.WithUser(found.ID),
			eventlogger.WithHousehold(found.HouseholdID),
			eventlogger.WithMetadata(requestMetadata(r)),
			eventlogger.WithData(map[string]string{
				"email":      found.Email,
				"session_id": sess.ID.String(),
			}),
		))

		respond.JSON(w, http.StatusOK, tokenResponse{Token: sess.Token})
	})

	// Protected routes - require a household
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Post("/user/logout", func(w http.ResponseWriter, r *http.Request) {
			if token := requestToken(r); token != "" {
				if err := a.sessions.Delete(r.Context(), token); err != nil {
					slog.Error("failed to delete session", "error", err)
				}
			}

			http.SetCookie(w, &http.Cookie{
				Name:   session.CookieName,
				Value:  "",
				Path:   "/",
				MaxAge: -1,
			})
			respond.OK(w)
		})

		r.Post("/circles", func(w http.ResponseWriter, r *http.Request) {
			householdID, _ := middleware.GetHouseholdID(r.Context())
			var in xitique.CreateInput
			if !decode(w, r, &in) {
				return
			}

			circle, err := a.circles.Create(r.Context(), householdID, in)
			if err != nil {
				circleError(w, err)
				return
			}
			respond.JSON(w, http.StatusCreated, circle)
		})

		r.Get("/circles", func(w http.ResponseWriter, r *http.Request) {
			householdID, _ := middleware.GetHouseholdID(r.Context())
			views, err := a.circles.List(r.Context(), householdID)
			if err != nil {
				circleError(w, err)
				return
			}
			respond.JSON(w, http.StatusOK, views)
		})

		r.Get("/circles/{id}", func(w http.ResponseWriter, r *http.Request) {
			householdID, _ := middleware.GetHouseholdID(r.Context())
			circleID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				circleError(w, xitique.ErrAccessDenied)
				return
			}

			view, err := a.circles.Get(r.Context(), householdID, circleID)
			if err != nil {
				circleError(w, err)
				return
			}
			respond.JSON(w, http.StatusOK, view)
		})

		r.Delete("/circles/{id}", func(w http.ResponseWriter, r *http.Request) {
			householdID, _ := middleware.GetHouseholdID(r.Context())
			// Nothing can match a malformed id, so there is nothing to delete.
			circleID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				respond.OK(w)
				return
			}

			if err := a.circles.Delete(r.Context(), householdID, circleID); err != nil {
				circleError(w, err)
				return
			}
			respond.OK(w)
		})

		r.Post("/circles/contributions/{contributionId}/pay", func(w http.ResponseWriter, r *http.Request) {
			householdID, _ := middleware.GetHouseholdID(r.Context())
			var req settleRequest
			if !decode(w, r, &req) {
				return
			}
			contributionID, err := uuid.Parse(chi.URLParam(r, "contributionId"))
			if err != nil {
				circleError(w, xitique.ErrAccessDenied)
				return
			}

			if err := a.circles.Pay(r.Context(), householdID, contributionID, req.Date); err != nil {
				circleError(w, err)
				return
			}
			respond.OK(w)
		})

		r.Post("/circles/receipts/{receiptId}/receive", func(w http.ResponseWriter, r *http.Request) {
			householdID, _ := middleware.GetHouseholdID(r.Context())
			var req settleRequest
			if !decode(w, r, &req) {
				return
			}
			receiptID, err := uuid.Parse(chi.URLParam(r, "receiptId"))
			if err != nil {
				circleError(w, xitique.ErrAccessDenied)
				return
			}

			if err := a.circles.Receive(r.Context(), householdID, receiptID, req.Date); err != nil {
				circleError(w, err)
				return
			}
			respond.OK(w)
		})

		r.Get("/transactions", func(w http.ResponseWriter, r *http.Request) {
			householdID, _ := middleware.GetHouseholdID(r.Context())
			limit := defaultEntryLimit
			if raw := r.URL.Query().Get("limit"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 1 || n > maxEntryLimit {
					respond.FieldError(w, http.StatusBadRequest, "limit", "limit must be between 1 and 500")
					return
				}
				limit = n
			}

			entries, err := a.ledger.List(r.Context(), householdID, limit)
			if err != nil {
				slog.Error("failed to list transactions", "error", err)
				respond.Error(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if entries == nil {
				entries = []ledger.Entry{}
			}
			respond.JSON(w, http.StatusOK, entries)
		})
	})

	return router
}

func (a app) startSession(w http.ResponseWriter, r *http.Request, u *user.User) (*session.Session, bool) {
	sess, err := a.sessions.Create(r.Context(), u.ID, u.HouseholdID)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, true
}

const metadataRequestID = "request_id"

func requestMetadata(r *http.Request) map[string]string {
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		return nil
	}
	return map[string]string{metadataRequestID: id}
}

func requestToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// circleError maps the xitique error taxonomy onto HTTP statuses.
func circleError(w http.ResponseWriter, err error) {
	var ve *xitique.ValidationError
	switch {
	case errors.As(err, &ve):
		respond.FieldError(w, http.StatusBadRequest, ve.Field, ve.Error())
	case errors.Is(err, xitique.ErrAccessDenied):
		respond.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, xitique.ErrConflict):
		respond.Error(w, http.StatusConflict, err.Error())
	default:
		slog.Error("circle operation failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
