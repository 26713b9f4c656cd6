// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including users, content entities, leads and their JSON column types.
package model

import (
	"database/sql"
	"slices"
	"time"
)

// Role names seeded by default.
const (
	RoleAdmin       = "admin"
	RoleProjectLead = "project_lead"
	RoleClient      = "client"
)

// Guard scopes.
const (
	GuardWeb = "web"
	GuardAPI = "api"
)

// User represents a back-office or client portal account.
//
// Roles, permissions and tokens are always present (possibly empty) once
// the user has been loaded through the store.
type User struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	PasswordHash    string       `json:"-"` // Never expose in JSON
	EmailVerifiedAt sql.NullTime `json:"-"`
	LastLoginAt     sql.NullTime `json:"-"`
	LastLoginIP     string       `json:"-"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`

	roles       []string
	permissions []string
	tokens      []APIToken
}

// Roles returns the role names assigned to the user.
func (u *User) Roles() []string {
	if u.roles == nil {
		return []string{}
	}
	return u.roles
}

// Permissions returns the distinct permission names carried by the user's roles.
func (u *User) Permissions() []string {
	if u.permissions == nil {
		return []string{}
	}
	return u.permissions
}

// Tokens returns the user's API tokens.
func (u *User) Tokens() []APIToken {
	if u.tokens == nil {
		return []APIToken{}
	}
	return u.tokens
}

// SetAccess replaces the user's roles and permissions.
func (u *User) SetAccess(roles, permissions []string) {
	u.roles = slices.Clone(roles)
	u.permissions = slices.Clone(permissions)
}

// SetTokens replaces the user's API tokens.
func (u *User) SetTokens(tokens []APIToken) {
	u.tokens = slices.Clone(tokens)
}

// HasRole reports whether the user holds any of the given roles.
func (u *User) HasRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(u.roles, r) {
			return true
		}
	}
	return false
}

// Can reports whether any of the user's roles carries any of the given permissions.
func (u *User) Can(permissions ...string) bool {
	for _, p := range permissions {
		if slices.Contains(u.permissions, p) {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// EmailVerified reports whether the current email address has been confirmed.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt.Valid
}

// APIToken is a personal access token. Only the SHA-256 hash is stored.
type APIToken struct {
	ID         int64        `json:"id"`
	UserID     int64        `json:"-"`
	Name       string       `json:"name"`
	TokenHash  string       `json:"-"` // Never expose hash in JSON
	LastUsedAt sql.NullTime `json:"-"`
	CreatedAt  time.Time    `json:"created_at"`
}

// UserSession tracks an authenticated browser session keyed by its session token.
type UserSession struct {
	ID           string
	UserID       int64
	IPAddress    string
	UserAgent    string
	LastActivity time.Time
	CreatedAt    time.Time
}

// Authentication audit events.
const (
	AuthEventLoginSuccess = "login_success"
	AuthEventLoginFailed  = "login_failed"
	AuthEventLogout       = "logout"
)

// AuthLog is an append-only authentication audit record.
type AuthLog struct {
	ID        int64
	UserID    sql.NullInt64
	Email     string
	Event     string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}
