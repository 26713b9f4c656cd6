// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/mileusna/useragent"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/store"
)

// Info is a tracked session as shown on the account security page.
// ID is the public id of the session, never its token.
type Info struct {
	ID           string    `json:"id"`
	IPAddress    string    `json:"ip_address"`
	Browser      string    `json:"browser"`
	OS           string    `json:"os"`
	Device       string    `json:"device"`
	LastActivity time.Time `json:"last_activity"`
	IsCurrent    bool      `json:"is_current"`
}

// PublicID returns the id under which a session is listed and revoked.
// The token itself is the cookie value and never leaves the server.
func PublicID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Tracker indexes live sessions by user. Each row is keyed by the session
// token, so deleting a row together with its store entry logs that browser out.
type Tracker struct {
	queries  *store.Queries
	store    scs.Store
	lifetime time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewTracker returns a Tracker deleting revoked sessions from st.
func NewTracker(queries *store.Queries, st scs.Store, lifetime time.Duration, logger *slog.Logger) *Tracker {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{queries: queries, store: st, lifetime: lifetime, logger: logger, now: time.Now}
}

// Start records a freshly authenticated session.
func (t *Tracker) Start(ctx context.Context, token string, userID int64, ip, userAgent string) error {
	if token == "" {
		return errors.New("empty session token")
	}
	return t.queries.UpsertUserSession(ctx, store.UpsertUserSessionParams{
		ID:        token,
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		At:        t.now(),
	})
}

// Touch refreshes the last activity of a session.
func (t *Tracker) Touch(ctx context.Context, token string) error {
	return t.queries.TouchUserSession(ctx, token, t.now())
}

// Rekey moves a tracked session to the token issued by a renewal.
func (t *Tracker) Rekey(ctx context.Context, oldToken, newToken string) error {
	if oldToken == newToken {
		return nil
	}
	if err := t.queries.RekeyUserSession(ctx, oldToken, newToken, t.now()); err != nil {
		return fmt.Errorf("rekeying session: %w", err)
	}
	return nil
}

// End forgets a session after logout. The cookie session itself is destroyed by the caller.
func (t *Tracker) End(ctx context.Context, token string) error {
	return t.queries.DeleteSessionByID(ctx, token)
}

// List returns the sessions of a user, most recent activity first.
func (t *Tracker) List(ctx context.Context, userID int64, current string) ([]Info, error) {
	rows, err := t.queries.ListUserSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	out := make([]Info, 0, len(rows))
	for _, r := range rows {
		out = append(out, describe(r, current))
	}
	return out, nil
}

// Revoke logs out the session of a user listed under publicID. The caller's
// own session, identified by its token, is refused.
func (t *Tracker) Revoke(ctx context.Context, userID int64, publicID, current string) error {
	if current != "" && publicID == PublicID(current) {
		return model.ErrCurrentSession
	}
	token, err := t.resolve(ctx, userID, publicID)
	if err != nil {
		return err
	}
	if err := t.destroy(token); err != nil {
		return err
	}
	if err := t.queries.DeleteUserSession(ctx, userID, token); err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	return nil
}

// resolve maps a public id back to the token of one of the user's sessions.
func (t *Tracker) resolve(ctx context.Context, userID int64, publicID string) (string, error) {
	rows, err := t.queries.ListUserSessions(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("listing sessions: %w", err)
	}
	for _, r := range rows {
		if PublicID(r.ID) == publicID {
			return r.ID, nil
		}
	}
	return "", model.ErrSessionNotFound
}

// RevokeOthers logs out every session of a user except current.
func (t *Tracker) RevokeOthers(ctx context.Context, userID int64, current string) (int, error) {
	ids, err := t.queries.OtherUserSessionIDs(ctx, userID, current)
	if err != nil {
		return 0, fmt.Errorf("listing other sessions: %w", err)
	}
	for _, id := range ids {
		if err := t.destroy(id); err != nil {
			return 0, err
		}
	}
	if _, err := t.queries.DeleteOtherUserSessions(ctx, userID, current); err != nil {
		return 0, fmt.Errorf("deleting other sessions: %w", err)
	}
	return len(ids), nil
}

// Sweep removes tracking rows whose session expired or vanished.
func (t *Tracker) Sweep(ctx context.Context) (int64, error) {
	n, err := t.queries.DeleteStaleUserSessions(ctx, t.now().Add(-t.lifetime))
	if err != nil {
		return 0, fmt.Errorf("sweeping sessions: %w", err)
	}
	if n > 0 {
		t.logger.Info("swept stale sessions", "count", n)
	}
	return n, nil
}

func (t *Tracker) destroy(token string) error {
	if err := t.store.Delete(token); err != nil {
		return fmt.Errorf("deleting session data: %w", err)
	}
	return nil
}

func describe(s model.UserSession, current string) Info {
	ua := useragent.Parse(s.UserAgent)

	device := "Desktop"
	switch {
	case ua.Bot:
		device = "Bot"
	case ua.Tablet:
		device = "Tablet"
	case ua.Mobile:
		device = "Mobile"
	case ua.Device != "":
		device = ua.Device
	}

	browser := ua.Name
	if browser == "" {
		browser = "Unknown"
	} else if ua.Version != "" {
		browser += " " + ua.Version
	}
	osName := ua.OS
	if osName == "" {
		osName = "Unknown"
	}

	return Info{
		ID:           PublicID(s.ID),
		IPAddress:    s.IPAddress,
		Browser:      browser,
		OS:           osName,
		Device:       device,
		LastActivity: s.LastActivity,
		IsCurrent:    s.ID == current,
	}
}
