// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/bkconstruct/internal/middleware"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/render"
	"github.com/olegiv/bkconstruct/internal/service"
	"github.com/olegiv/bkconstruct/internal/session"
)

// sessionKeyNewToken holds a freshly created API token until the next page view.
const sessionKeyNewToken = "new_api_token"

// AccountHandler handles the account security page: sessions, password,
// email address and API tokens.
type AccountHandler struct {
	access         *service.AccessService
	tracker        *session.Tracker
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(access *service.AccessService, tracker *session.Tracker, renderer *render.Renderer, sm *scs.SessionManager) *AccountHandler {
	return &AccountHandler{
		access:         access,
		tracker:        tracker,
		renderer:       renderer,
		sessionManager: sm,
	}
}

// apiTokenView is an API token as listed on the security page.
type apiTokenView struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// authLogView is an audit entry as listed on the security page.
type authLogView struct {
	Event     string    `json:"event"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// SecurityPage holds the props of the account security page.
type SecurityPage struct {
	Sessions      []session.Info `json:"sessions"`
	Tokens        []apiTokenView `json:"tokens"`
	AuthLogs      []authLogView  `json:"auth_logs"`
	EmailVerified bool           `json:"email_verified"`
	NewToken      string         `json:"new_token,omitempty"`
}

// Security renders the account security page.
func (h *AccountHandler) Security(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetUser(r)

	sessions, err := h.access.ListSessions(ctx, user.ID, h.sessionManager.Token(ctx))
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to list sessions", "user_id", user.ID, "error", err)
		return
	}
	tokens, err := h.access.ListAPITokens(ctx, user.ID)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to list api tokens", "user_id", user.ID, "error", err)
		return
	}
	logs, err := h.access.RecentAuthLogs(ctx, user.ID)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to list auth logs", "user_id", user.ID, "error", err)
		return
	}

	page := SecurityPage{
		Sessions:      sessions,
		Tokens:        make([]apiTokenView, 0, len(tokens)),
		AuthLogs:      make([]authLogView, 0, len(logs)),
		EmailVerified: user.EmailVerified(),
		NewToken:      h.sessionManager.PopString(ctx, sessionKeyNewToken),
	}
	for _, t := range tokens {
		v := apiTokenView{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
		if t.LastUsedAt.Valid {
			v.LastUsedAt = &t.LastUsedAt.Time
		}
		page.Tokens = append(page.Tokens, v)
	}
	for _, l := range logs {
		page.AuthLogs = append(page.AuthLogs, authLogView{
			Event:     l.Event,
			IPAddress: l.IPAddress,
			UserAgent: l.UserAgent,
			CreatedAt: l.CreatedAt,
		})
	}

	renderPage(w, r, h.renderer, componentSecurity, page)
}

// RevokeSession logs out one of the user's other browser sessions.
func (h *AccountHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetUser(r)

	err := h.access.RevokeSession(ctx, user.ID, chi.URLParam(r, "session"), h.sessionManager.Token(ctx))
	switch {
	case errors.Is(err, model.ErrCurrentSession):
		flashError(w, r, h.renderer, redirectSecurity, "You cannot revoke your current session. Use logout instead.")
	case errors.Is(err, model.ErrSessionNotFound), errors.Is(err, model.ErrNotFound):
		flashError(w, r, h.renderer, redirectSecurity, "Session not found.")
	case err != nil:
		slog.Error("failed to revoke session", "user_id", user.ID, "error", err)
		flashError(w, r, h.renderer, redirectSecurity, "Failed to revoke session.")
	default:
		slog.Info("session revoked", "user_id", user.ID)
		flashSuccess(w, r, h.renderer, redirectSecurity, "Session revoked.")
	}
}

// LogoutOthers ends every other session of the user after re-checking
// the password.
func (h *AccountHandler) LogoutOthers(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, redirectSecurity, "Invalid form data")
		return
	}
	ctx := r.Context()
	user := middleware.GetUser(r)

	n, err := h.access.LogoutOthers(ctx, user, r.FormValue("password"), h.sessionManager.Token(ctx))
	if handleMutationError(w, r, h.renderer, redirectSecurity, err, nil, "failed to log out other sessions", "user_id", user.ID) {
		return
	}

	slog.Info("other sessions logged out", "user_id", user.ID, "count", n)
	flashSuccess(w, r, h.renderer, redirectSecurity, fmt.Sprintf("Logged out %d other session(s).", n))
}

// UpdatePassword changes the password. The current session survives with a
// renewed token; every other session and API token is dropped.
func (h *AccountHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, redirectSecurity, "Invalid form data")
		return
	}
	ctx := r.Context()
	user := middleware.GetUser(r)
	oldToken := h.sessionManager.Token(ctx)

	err := h.access.UpdatePassword(ctx, user, service.PasswordChange{
		Current:      r.FormValue("current_password"),
		New:          r.FormValue("password"),
		Confirmation: r.FormValue("password_confirmation"),
	}, oldToken)
	if handleMutationError(w, r, h.renderer, redirectSecurity, err, nil, "failed to update password", "user_id", user.ID) {
		return
	}

	if err := h.sessionManager.RenewToken(ctx); err != nil {
		slog.Error("failed to renew session token", "user_id", user.ID, "error", err)
	} else if err := h.tracker.Rekey(ctx, oldToken, h.sessionManager.Token(ctx)); err != nil {
		slog.Error("failed to rekey tracked session", "user_id", user.ID, "error", err)
	}
	session.RotateFormToken(ctx, h.sessionManager)

	slog.Info("password changed", "user_id", user.ID)
	flashSuccess(w, r, h.renderer, redirectSecurity, "Password updated.")
}

// UpdateEmail changes the email address and sends a verification link.
func (h *AccountHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, redirectSecurity, "Invalid form data")
		return
	}
	user := middleware.GetUser(r)

	err := h.access.UpdateEmail(r.Context(), user, service.EmailChange{
		Current: r.FormValue("current_password"),
		Email:   formValue(r, "email"),
	})
	if errors.Is(err, model.ErrEmailUnchanged) {
		flashInfo(w, r, h.renderer, redirectSecurity, "That is already your email address.")
		return
	}
	if handleMutationError(w, r, h.renderer, redirectSecurity, err, oldInput(r, "email"), "failed to update email", "user_id", user.ID) {
		return
	}

	slog.Info("email changed", "user_id", user.ID)
	flashSuccess(w, r, h.renderer, redirectSecurity, "Email updated. Check your inbox for a verification link.")
}

// ResendVerification sends a new verification link for the current address.
func (h *AccountHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user.EmailVerified() {
		flashInfo(w, r, h.renderer, redirectSecurity, "Your email address is already verified.")
		return
	}
	h.access.SendVerification(user)
	flashInfo(w, r, h.renderer, redirectSecurity, "A new verification link has been sent to your email address.")
}

// CreateToken issues a personal API token. The plaintext is shown once.
func (h *AccountHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, redirectSecurity, "Invalid form data")
		return
	}
	ctx := r.Context()
	user := middleware.GetUser(r)

	tok, err := h.access.CreateAPIToken(ctx, user.ID, r.FormValue("name"))
	if handleMutationError(w, r, h.renderer, redirectSecurity, err, oldInput(r, "name"), "failed to create api token", "user_id", user.ID) {
		return
	}

	h.sessionManager.Put(ctx, sessionKeyNewToken, tok.Plain)
	slog.Info("api token created", "user_id", user.ID, "token_id", tok.Token.ID)
	flashSuccess(w, r, h.renderer, redirectSecurity, "API token created. Copy it now, it will not be shown again.")
}

// DeleteToken deletes one of the user's API tokens.
func (h *AccountHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}
	user := middleware.GetUser(r)

	err := h.access.DeleteAPIToken(r.Context(), user.ID, id)
	if handleMutationError(w, r, h.renderer, redirectSecurity, err, nil, "failed to delete api token", "user_id", user.ID, "token_id", id) {
		return
	}

	slog.Info("api token deleted", "user_id", user.ID, "token_id", id)
	flashSuccess(w, r, h.renderer, redirectSecurity, "API token deleted.")
}
