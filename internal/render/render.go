// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render writes page payloads for the front-end application.
// Every page is a JSON document naming the component to mount, its props
// and the shared state (authenticated user, flash, validation errors, form token).
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/session"
)

// Flash types.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
	FlashWarning = "warning"
)

// Renderer builds and writes page payloads.
type Renderer struct {
	sessionManager *scs.SessionManager
	appName        string
	isDev          bool
}

// Config holds renderer configuration.
type Config struct {
	SessionManager *scs.SessionManager
	AppName        string
	IsDev          bool
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	if cfg.AppName == "" {
		cfg.AppName = "BK Construct"
	}
	return &Renderer{
		sessionManager: cfg.SessionManager,
		appName:        cfg.AppName,
		isDev:          cfg.IsDev,
	}
}

// AuthState describes the signed-in user.
type AuthState struct {
	User        *model.User `json:"user"`
	Roles       []string    `json:"roles"`
	Permissions []string    `json:"permissions"`
	Verified    bool        `json:"email_verified"`
	Admin       bool        `json:"is_admin"`
}

// Flash is a one-shot status message.
type Flash struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Shared is the state attached to every page.
type Shared struct {
	AppName     string            `json:"app_name"`
	Auth        *AuthState        `json:"auth"`
	Flash       *Flash            `json:"flash,omitempty"`
	Errors      map[string]string `json:"errors"`
	Old         map[string]string `json:"old,omitempty"`
	CSRFToken   string            `json:"csrf_token,omitempty"`
	CurrentYear int               `json:"current_year"`
}

// Page is the document written for every page view.
type Page struct {
	Component string `json:"component"`
	Props     any    `json:"props"`
	URL       string `json:"url"`
	Shared    Shared `json:"shared"`
}

// Render writes component with props and the shared state for req.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, user *model.User, component string, props any) error {
	return r.RenderStatus(w, req, http.StatusOK, user, component, props)
}

// RenderStatus is Render with an explicit status code.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, user *model.User, component string, props any) error {
	page := Page{
		Component: component,
		Props:     props,
		URL:       req.URL.RequestURI(),
		Shared:    r.shared(req, user),
	}
	return writeJSON(w, status, page)
}

func (r *Renderer) shared(req *http.Request, user *model.User) Shared {
	s := Shared{
		AppName:     r.appName,
		Errors:      map[string]string{},
		CurrentYear: time.Now().Year(),
	}

	if user != nil {
		s.Auth = &AuthState{
			User:        user,
			Roles:       user.Roles(),
			Permissions: user.Permissions(),
			Verified:    user.EmailVerified(),
			Admin:       user.IsAdmin(),
		}
	}

	if r.sessionManager == nil {
		return s
	}

	ctx := req.Context()
	if msg := r.sessionManager.PopString(ctx, session.KeyFlash); msg != "" {
		typ := r.sessionManager.PopString(ctx, session.KeyFlashType)
		if typ == "" {
			typ = FlashInfo
		}
		s.Flash = &Flash{Message: msg, Type: typ}
	}
	popJSON(ctx, r.sessionManager, session.KeyErrors, &s.Errors)
	popJSON(ctx, r.sessionManager, session.KeyOldInput, &s.Old)
	s.CSRFToken = session.FormToken(ctx, r.sessionManager)

	return s
}

// SetFlash sets a flash message in the session.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager != nil {
		r.sessionManager.Put(req.Context(), session.KeyFlash, message)
		r.sessionManager.Put(req.Context(), session.KeyFlashType, flashType)
	}
}

// SetErrors stores field errors and the submitted input for the next page.
func (r *Renderer) SetErrors(req *http.Request, fields map[string]string, old map[string]string) {
	if r.sessionManager == nil {
		return
	}
	putJSON(req.Context(), r.sessionManager, session.KeyErrors, fields)
	if len(old) > 0 {
		putJSON(req.Context(), r.sessionManager, session.KeyOldInput, old)
	}
}

// JSON writes v as a JSON response.
func (r *Renderer) JSON(w http.ResponseWriter, status int, v any) error {
	return writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	// Encode to a buffer first so a failure does not leave a partial body.
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Vary", "Cookie")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Values are stored as JSON strings so the session codec needs no type registration.
func putJSON(ctx context.Context, sm *scs.SessionManager, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Warn("failed to encode session value", "key", key, "error", err)
		return
	}
	sm.Put(ctx, key, string(b))
}

func popJSON(ctx context.Context, sm *scs.SessionManager, key string, dst any) {
	raw := sm.PopString(ctx, key)
	if raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		slog.Warn("failed to decode session value", "key", key, "error", err)
	}
}
