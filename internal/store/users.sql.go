// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/bkconstruct/internal/model"
)

const userColumns = `id, name, email, password_hash, email_verified_at, last_login_at, last_login_ip, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.EmailVerifiedAt,
		&u.LastLoginAt, &u.LastLoginIP, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUserParams holds the columns of a new user.
type CreateUserParams struct {
	Name            string
	Email           string
	PasswordHash    string
	EmailVerifiedAt sql.NullTime
	CreatedAt       time.Time
}

// CreateUser inserts a user and returns it.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	id, err := insertID(q.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, email_verified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.Email, arg.PasswordHash, nullUTC(arg.EmailVerifiedAt), utc(arg.CreatedAt), utc(arg.CreatedAt)))
	if err != nil {
		return model.User{}, err
	}
	return q.GetUserByID(ctx, id)
}

// GetUserByID returns a user by id.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	return u, notFound(err)
}

// GetUserByEmail returns a user by email address.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	return u, notFound(err)
}

// EmailTaken reports whether another user already owns email.
func (q *Queries) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?`, email, exceptID).Scan(&n)
	return n > 0, err
}

// ListUsers returns all users ordered by name.
func (q *Queries) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserPassword stores a new password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, hash string, now time.Time) error {
	return affected(q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, utc(now), id))
}

// UpdateUserEmail changes the email address and marks it unverified.
func (q *Queries) UpdateUserEmail(ctx context.Context, id int64, email string, now time.Time) error {
	return affected(q.db.ExecContext(ctx,
		`UPDATE users SET email = ?, email_verified_at = NULL, updated_at = ? WHERE id = ?`, email, utc(now), id))
}

// MarkEmailVerified sets email_verified_at when the stored email still matches.
func (q *Queries) MarkEmailVerified(ctx context.Context, id int64, email string, now time.Time) error {
	return affected(q.db.ExecContext(ctx,
		`UPDATE users SET email_verified_at = ?, updated_at = ? WHERE id = ? AND email = ?`,
		utc(now), utc(now), id, email))
}

// UpdateLastLogin records the time and address of a successful login.
func (q *Queries) UpdateLastLogin(ctx context.Context, id int64, ip string, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, last_login_ip = ? WHERE id = ?`, utc(at), ip, id)
	return err
}

// CountUsers returns the number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// UpsertRole creates a role if missing and returns its id.
func (q *Queries) UpsertRole(ctx context.Context, name, guard string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO roles (name, guard_name) VALUES (?, ?)
		ON CONFLICT (name, guard_name) DO UPDATE SET name = excluded.name
		RETURNING id`, name, guard).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting role %s: %w", name, err)
	}
	return id, nil
}

// UpsertPermission creates a permission if missing and returns its id.
func (q *Queries) UpsertPermission(ctx context.Context, name, guard string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO permissions (name, guard_name) VALUES (?, ?)
		ON CONFLICT (name, guard_name) DO UPDATE SET name = excluded.name
		RETURNING id`, name, guard).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting permission %s: %w", name, err)
	}
	return id, nil
}

// GrantPermission attaches a permission to a role.
func (q *Queries) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO role_permissions (role_id, permission_id) VALUES (?, ?)`, roleID, permissionID)
	return err
}

// AssignRole gives a user the named role of the given guard.
func (q *Queries) AssignRole(ctx context.Context, userID int64, role, guard string) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_roles (user_id, role_id)
		SELECT ?, id FROM roles WHERE name = ? AND guard_name = ?`, userID, role, guard)
	if err != nil {
		return fmt.Errorf("assigning role %s: %w", role, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := q.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM roles WHERE name = ? AND guard_name = ?`, role, guard).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("role %q: %w", role, model.ErrNotFound)
		}
	}
	return nil
}

// RevokeRoles removes every role of a user.
func (q *Queries) RevokeRoles(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ?`, userID)
	return err
}

// ListRoleNames returns the names of all roles of a guard.
func (q *Queries) ListRoleNames(ctx context.Context, guard string) ([]string, error) {
	return q.strings(ctx, `SELECT name FROM roles WHERE guard_name = ? ORDER BY name`, guard)
}

// UserRoleNames returns the role names held by a user.
func (q *Queries) UserRoleNames(ctx context.Context, userID int64) ([]string, error) {
	return q.strings(ctx, `
		SELECT r.name FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.name`, userID)
}

// UserPermissionNames returns the distinct permission names carried by a user's roles.
func (q *Queries) UserPermissionNames(ctx context.Context, userID int64) ([]string, error) {
	return q.strings(ctx, `
		SELECT DISTINCT p.name FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = ?
		ORDER BY p.name`, userID)
}

// RolePermissionNames returns the permission names granted to a role.
func (q *Queries) RolePermissionNames(ctx context.Context, role, guard string) ([]string, error) {
	return q.strings(ctx, `
		SELECT p.name FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN roles r ON r.id = rp.role_id
		WHERE r.name = ? AND r.guard_name = ?
		ORDER BY p.name`, role, guard)
}

func (q *Queries) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const apiTokenColumns = `id, user_id, name, token_hash, last_used_at, created_at`

func scanAPIToken(row interface{ Scan(...any) error }) (model.APIToken, error) {
	var t model.APIToken
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.LastUsedAt, &t.CreatedAt)
	return t, err
}

// CreateAPIToken stores a hashed personal access token.
func (q *Queries) CreateAPIToken(ctx context.Context, userID int64, name, hash string, now time.Time) (model.APIToken, error) {
	id, err := insertID(q.db.ExecContext(ctx,
		`INSERT INTO api_tokens (user_id, name, token_hash, created_at) VALUES (?, ?, ?, ?)`,
		userID, name, hash, utc(now)))
	if err != nil {
		return model.APIToken{}, err
	}
	return q.getAPIToken(ctx, id)
}

// ListAPITokens returns a user's tokens, newest first.
func (q *Queries) ListAPITokens(ctx context.Context, userID int64) ([]model.APIToken, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+apiTokenColumns+` FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tokens := []model.APIToken{}
	for rows.Next() {
		t, err := scanAPIToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// GetAPITokenByHash looks a token up by its hash.
func (q *Queries) GetAPITokenByHash(ctx context.Context, hash string) (model.APIToken, error) {
	t, err := scanAPIToken(q.db.QueryRowContext(ctx,
		`SELECT `+apiTokenColumns+` FROM api_tokens WHERE token_hash = ?`, hash))
	return t, notFound(err)
}

// TouchAPIToken records token usage.
func (q *Queries) TouchAPIToken(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = ? WHERE id = ?`, utc(at), id)
	return err
}

// DeleteAPIToken deletes one of a user's tokens.
func (q *Queries) DeleteAPIToken(ctx context.Context, userID, id int64) error {
	return affected(q.db.ExecContext(ctx, `DELETE FROM api_tokens WHERE id = ? AND user_id = ?`, id, userID))
}

// DeleteUserAPITokens deletes every token of a user.
func (q *Queries) DeleteUserAPITokens(ctx context.Context, userID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM api_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) getAPIToken(ctx context.Context, id int64) (model.APIToken, error) {
	t, err := scanAPIToken(q.db.QueryRowContext(ctx, `SELECT `+apiTokenColumns+` FROM api_tokens WHERE id = ?`, id))
	return t, notFound(err)
}
