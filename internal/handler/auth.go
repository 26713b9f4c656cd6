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

	"github.com/olegiv/bkconstruct/internal/middleware"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/rbac"
	"github.com/olegiv/bkconstruct/internal/render"
	"github.com/olegiv/bkconstruct/internal/service"
	"github.com/olegiv/bkconstruct/internal/session"
)

// AuthHandler handles authentication routes.
type AuthHandler struct {
	access         *service.AccessService
	audit          *service.AuditLog
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(access *service.AccessService, audit *service.AuditLog, renderer *render.Renderer, sm *scs.SessionManager) *AuthHandler {
	return &AuthHandler{
		access:         access,
		audit:          audit,
		renderer:       renderer,
		sessionManager: sm,
	}
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, componentLogin, map[string]any{
		"status": r.URL.Query().Get("status"),
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, redirectLogin, "Invalid form data")
		return
	}

	ctx := r.Context()
	ip := middleware.ClientIP(r)
	ua := r.UserAgent()
	old := oldInput(r, "email")

	res, err := h.access.Authenticate(ctx, service.Credentials{
		Email:     formValue(r, "email"),
		Password:  r.FormValue("password"),
		IP:        ip,
		UserAgent: ua,
	})
	if res != nil {
		if recErr := h.audit.Record(ctx, res.Event); recErr != nil {
			slog.Error("failed to record auth event", "type", res.Event.Type, "error", recErr)
		}
	}
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTooManyAttempts):
			slog.Warn("login locked out", "email", old["email"], "ip", ip)
			msg := fmt.Sprintf("Too many login attempts. Please try again in %s.", formatDuration(service.FailedLoginWindow))
			validationRedirect(w, r, h.renderer, redirectLogin, model.NewValidationError("email", msg), old)
		case errors.Is(err, model.ErrInvalidCredentials):
			slog.Info("failed login attempt", "email", old["email"], "ip", ip)
			validationRedirect(w, r, h.renderer, redirectLogin, model.NewValidationError("email", "These credentials do not match our records."), old)
		default:
			slog.Error("login failed", "error", err)
			flashError(w, r, h.renderer, redirectLogin, "Something went wrong. Please try again.")
		}
		return
	}

	user := res.User

	// Renew session token to prevent session fixation
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		slog.Error("failed to renew session token", "error", err)
		flashError(w, r, h.renderer, redirectLogin, "Something went wrong. Please try again.")
		return
	}
	h.sessionManager.Put(ctx, session.KeyUserID, user.ID)
	session.RotateFormToken(ctx, h.sessionManager)

	if err := h.access.RecordLogin(ctx, user, h.sessionManager.Token(ctx), ip, ua); err != nil {
		slog.Error("failed to record login", "user_id", user.ID, "error", err)
	}

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email, "ip", ip)

	home := RouteRoot
	if service.Authorize(user, rbac.AccessAdmin) {
		home = redirectAdmin
	}
	flashSuccess(w, r, h.renderer, home, "Welcome back, "+user.Name+"!")
}

// Logout handles user logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if user := middleware.GetUser(r); user != nil {
		ev := h.access.Logout(ctx, user, h.sessionManager.Token(ctx), middleware.ClientIP(r), r.UserAgent())
		if err := h.audit.Record(ctx, ev); err != nil {
			slog.Error("failed to record auth event", "type", ev.Type, "error", err)
		}
		slog.Info("user logged out", "user_id", user.ID)
	}

	if err := h.sessionManager.Destroy(ctx); err != nil {
		slog.Error("failed to destroy session", "error", err)
	}

	flashSuccess(w, r, h.renderer, redirectLogin, "You have been logged out successfully")
}

// VerifyEmail handles the signed link sent after an email change.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	target := redirectLogin
	if middleware.GetUser(r) != nil {
		target = redirectSecurity
	}

	id, err := h.access.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		slog.Info("email verification rejected", "error", err)
		flashError(w, r, h.renderer, target, "This verification link is invalid or has expired.")
		return
	}

	slog.Info("email verified", "user_id", id)
	flashSuccess(w, r, h.renderer, target, "Your email address has been verified.")
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		secs := int(d.Seconds())
		if secs <= 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	mins := int(d.Minutes())
	if mins == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}
