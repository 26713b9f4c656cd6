// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/bkconstruct/internal/model"
)

const userSessionColumns = `id, user_id, ip_address, user_agent, last_activity, created_at`

func scanUserSession(row interface{ Scan(...any) error }) (model.UserSession, error) {
	var s model.UserSession
	err := row.Scan(&s.ID, &s.UserID, &s.IPAddress, &s.UserAgent, &s.LastActivity, &s.CreatedAt)
	return s, err
}

// UpsertUserSessionParams describes a tracked session.
type UpsertUserSessionParams struct {
	ID        string
	UserID    int64
	IPAddress string
	UserAgent string
	At        time.Time
}

// UpsertUserSession creates or refreshes a tracked session.
func (q *Queries) UpsertUserSession(ctx context.Context, arg UpsertUserSessionParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO user_sessions (id, user_id, ip_address, user_agent, last_activity, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			ip_address = excluded.ip_address,
			user_agent = excluded.user_agent,
			last_activity = excluded.last_activity`,
		arg.ID, arg.UserID, arg.IPAddress, arg.UserAgent, utc(arg.At), utc(arg.At))
	return err
}

// TouchUserSession updates last_activity of a tracked session.
func (q *Queries) TouchUserSession(ctx context.Context, id string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, `UPDATE user_sessions SET last_activity = ? WHERE id = ?`, utc(at), id)
	return err
}

// ListUserSessions returns a user's sessions, most recent activity first.
func (q *Queries) ListUserSessions(ctx context.Context, userID int64) ([]model.UserSession, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+userSessionColumns+` FROM user_sessions
		WHERE user_id = ?
		ORDER BY last_activity DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sessions := []model.UserSession{}
	for rows.Next() {
		s, err := scanUserSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// RekeyUserSession moves a tracked session to a new token.
func (q *Queries) RekeyUserSession(ctx context.Context, oldID, newID string, at time.Time) error {
	return affected(q.db.ExecContext(ctx,
		`UPDATE user_sessions SET id = ?, last_activity = ? WHERE id = ?`, newID, utc(at), oldID))
}

// DeleteUserSession deletes a tracked session of a user.
func (q *Queries) DeleteUserSession(ctx context.Context, userID int64, id string) error {
	return affected(q.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = ? AND user_id = ?`, id, userID))
}

// DeleteSessionByID deletes a tracked session regardless of owner.
func (q *Queries) DeleteSessionByID(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = ?`, id)
	return err
}

// OtherUserSessionIDs lists the ids of a user's sessions except keep.
func (q *Queries) OtherUserSessionIDs(ctx context.Context, userID int64, keep string) ([]string, error) {
	return q.strings(ctx, `SELECT id FROM user_sessions WHERE user_id = ? AND id <> ?`, userID, keep)
}

// DeleteOtherUserSessions deletes every tracked session of a user except keep.
func (q *Queries) DeleteOtherUserSessions(ctx context.Context, userID int64, keep string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = ? AND id <> ?`, userID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteStaleUserSessions removes tracked sessions idle since before cutoff
// or whose backing session data no longer exists.
func (q *Queries) DeleteStaleUserSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM user_sessions
		WHERE last_activity < ?
		   OR id NOT IN (SELECT token FROM sessions WHERE julianday('now') < expiry)`, utc(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateAuthLogParams describes an audit entry.
type CreateAuthLogParams struct {
	UserID    sql.NullInt64
	Email     string
	Event     string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// CreateAuthLog appends an authentication audit entry.
func (q *Queries) CreateAuthLog(ctx context.Context, arg CreateAuthLogParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO auth_logs (user_id, email, event, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.UserID, arg.Email, arg.Event, arg.IPAddress, arg.UserAgent, utc(arg.CreatedAt))
	return err
}

// ListAuthLogs returns the latest audit entries of a user.
func (q *Queries) ListAuthLogs(ctx context.Context, userID int64, limit int64) ([]model.AuthLog, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, email, event, ip_address, user_agent, created_at
		FROM auth_logs WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	logs := []model.AuthLog{}
	for rows.Next() {
		var l model.AuthLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Email, &l.Event, &l.IPAddress, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// CountRecentFailedLogins counts failed logins for email since a time.
func (q *Queries) CountRecentFailedLogins(ctx context.Context, email string, since time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM auth_logs
		WHERE email = ? AND event = ? AND created_at >= ?`,
		email, model.AuthEventLoginFailed, utc(since)).Scan(&n)
	return n, err
}
