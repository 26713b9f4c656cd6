// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the cookie session manager and keeps the
// per-user session index used for listing and revoking logins.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session data keys.
const (
	KeyUserID     = "user_id"
	KeyFlash      = "flash"
	KeyFlashType  = "flash_type"
	KeyErrors     = "errors"
	KeyOldInput   = "old"
	KeyLastSeenAt = "last_seen_at"
	KeyFormToken  = "_token"
)

// DefaultLifetime is the absolute lifetime of a session.
const DefaultLifetime = 24 * time.Hour

// New creates a session manager backed by the SQLite sessions table.
func New(db *sql.DB, isDev bool, lifetime time.Duration) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)

	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	sm.Lifetime = lifetime
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Secure = !isDev
	if !isDev {
		// __Host- cookies must be Secure, host-only and scoped to "/".
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}
