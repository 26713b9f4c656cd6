// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/bkconstruct/internal/auth"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/rbac"
)

// Default admin credentials
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme1234"
	DefaultAdminName     = "Administrator"
)

// SeedAccess creates the roles and permissions of m and links them.
// It is safe to run repeatedly.
func SeedAccess(ctx context.Context, db *sql.DB, m *rbac.Matrix) error {
	return RunInTx(ctx, db, func(q *Queries) error {
		permIDs := make(map[string]int64, len(m.Permissions))
		for _, name := range m.Permissions {
			id, err := q.UpsertPermission(ctx, name, m.Guard)
			if err != nil {
				return err
			}
			permIDs[name] = id
		}

		for _, role := range m.RoleNames() {
			roleID, err := q.UpsertRole(ctx, role, m.Guard)
			if err != nil {
				return err
			}
			for _, perm := range m.PermissionsOf(role) {
				if err := q.GrantPermission(ctx, roleID, permIDs[perm]); err != nil {
					return fmt.Errorf("granting %s to %s: %w", perm, role, err)
				}
			}
		}
		return nil
	})
}

// Seed creates the role matrix and the default admin user.
func Seed(ctx context.Context, db *sql.DB) error {
	m, err := rbac.Default()
	if err != nil {
		return err
	}
	if err := SeedAccess(ctx, db, m); err != nil {
		return fmt.Errorf("seeding roles: %w", err)
	}

	queries := New(db)

	_, err = queries.GetUserByEmail(ctx, DefaultAdminEmail)
	if err == nil {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	user, err := CreateUserWithRole(ctx, db, DefaultAdminName, DefaultAdminEmail, DefaultAdminPassword, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created default admin user",
		"id", user.ID,
		"email", user.Email,
		"password", DefaultAdminPassword,
	)

	return nil
}

// CreateUserWithRole hashes password and creates a verified user holding role.
func CreateUserWithRole(ctx context.Context, db *sql.DB, name, email, password, role string) (model.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}

	var user model.User
	err = RunInTx(ctx, db, func(q *Queries) error {
		now := time.Now()
		user, err = q.CreateUser(ctx, CreateUserParams{
			Name:            name,
			Email:           email,
			PasswordHash:    hash,
			EmailVerifiedAt: sql.NullTime{Time: now, Valid: true},
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		return q.AssignRole(ctx, user.ID, role, model.GuardWeb)
	})
	return user, err
}
