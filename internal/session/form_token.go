// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"github.com/alexedwards/scs/v2"
)

// FormToken returns the anti-forgery token bound to the session, creating it
// on first use. Mutating requests must echo it back.
func FormToken(ctx context.Context, sm *scs.SessionManager) string {
	if tok := sm.GetString(ctx, KeyFormToken); tok != "" {
		return tok
	}
	return RotateFormToken(ctx, sm)
}

// RotateFormToken replaces the session's anti-forgery token.
func RotateFormToken(ctx context.Context, sm *scs.SessionManager) string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("session: crypto/rand failed: " + err.Error())
	}
	tok := base64.RawURLEncoding.EncodeToString(b)
	sm.Put(ctx, KeyFormToken, tok)
	return tok
}

// ValidFormToken reports whether candidate matches the session token.
func ValidFormToken(ctx context.Context, sm *scs.SessionManager, candidate string) bool {
	tok := sm.GetString(ctx, KeyFormToken)
	if tok == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tok), []byte(candidate)) == 1
}
