// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, anti-forgery checks and request context handling.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/bkconstruct/internal/logging"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for user data.
const (
	ContextKeyUser ContextKey = "user"
)

// UserLoader resolves a user with roles and permissions.
type UserLoader interface {
	UserByID(ctx context.Context, id int64) (*model.User, error)
}

// ActivityTracker refreshes the last activity of a tracked session.
type ActivityTracker interface {
	Touch(ctx context.Context, token string) error
}

// Auth creates middleware that requires authentication.
// It checks for a valid user session and redirects to login if not authenticated.
func Auth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sm.GetInt64(r.Context(), session.KeyUserID) == 0 {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guest redirects signed-in users away from the login page.
func Guest(sm *scs.SessionManager, home string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sm.GetInt64(r.Context(), session.KeyUserID) != 0 {
				http.Redirect(w, r, home, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadUser creates middleware that loads the current user into the request context.
// This should be used after Auth middleware. A session whose user can no longer
// be loaded is destroyed.
func LoadUser(sm *scs.SessionManager, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), session.KeyUserID)
			if userID == 0 || GetUser(r) != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.UserByID(r.Context(), userID)
			if err != nil {
				// User not found or error - clear session and redirect to login
				slog.WarnContext(r.Context(), "failed to load session user", "user_id", userID, "error", err)
				_ = sm.Destroy(r.Context())
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalLoadUser loads the user when a session exists and never redirects.
// Use this for public routes where the user context is useful but optional.
func OptionalLoadUser(sm *scs.SessionManager, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), session.KeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}
			user, err := users.UserByID(r.Context(), userID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, user)
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *model.User {
	user, _ := r.Context().Value(ContextKeyUser).(*model.User)
	return user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// RequirePermission halts with 403 unless the user holds any of permissions.
func RequirePermission(permissions ...string) func(http.Handler) http.Handler {
	return require("permission", permissions, func(u *model.User) bool { return u.Can(permissions...) })
}

func require(kind string, names []string, allowed func(*model.User) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				if wantsJSON(r) {
					writeError(w, http.StatusUnauthorized, "Unauthenticated.")
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			if !allowed(user) {
				slog.WarnContext(r.Context(), "access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", user.ID,
					"user_roles", user.Roles(),
					"required_"+kind, names,
					"remote_addr", r.RemoteAddr,
				)
				writeError(w, http.StatusForbidden, "This action is unauthorized.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// activityInterval throttles session activity writes.
const activityInterval = time.Minute

// TrackActivity refreshes the tracked session's last activity at most once a minute.
func TrackActivity(sm *scs.SessionManager, tracker ActivityTracker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if sm.GetInt64(ctx, session.KeyUserID) != 0 {
				now := time.Now()
				last := time.Unix(sm.GetInt64(ctx, session.KeyLastSeenAt), 0)
				if now.Sub(last) >= activityInterval {
					if token := sm.Token(ctx); token != "" {
						if err := tracker.Touch(ctx, token); err != nil {
							slog.WarnContext(ctx, "failed to touch session", "error", err)
						}
					}
					sm.Put(ctx, session.KeyLastSeenAt, now.Unix())
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestPath stores the request path in the context for log enrichment.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(logging.WithPath(r.Context(), r.URL.Path)))
	})
}

func wantsJSON(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		r.Header.Get("Accept") == "application/json"
}

// writeError writes a JSON message body with status.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
