// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/olegiv/bkconstruct/internal/auth"
	"github.com/olegiv/bkconstruct/internal/config"
	"github.com/olegiv/bkconstruct/internal/logging"
	"github.com/olegiv/bkconstruct/internal/metrics"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/rbac"
	"github.com/olegiv/bkconstruct/internal/store"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bkconstruct",
		Short:         "BK Construct site and back office",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// Load .env files if present (development)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations",
			RunE: func(*cobra.Command, []string) error {
				_, db, err := bootstrap()
				if err != nil {
					return err
				}
				defer closeDB(db)
				return store.MigrationStatus(db)
			},
		},
		newSeedCmd(),
		newUserCmd(),
		newRolesCmd(),
		newJobsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(*cobra.Command, []string) {
				_, _ = fmt.Printf("bkconstruct %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
			},
		},
	)
	return root
}

func newSeedCmd() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the role matrix and the default admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			ctx := cmd.Context()
			if err := store.Seed(ctx, db); err != nil {
				return fmt.Errorf("seeding database: %w", err)
			}
			if demo {
				if err := store.SeedDemo(ctx, db); err != nil {
					return fmt.Errorf("seeding demo content: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "also create demo accounts and content")
	return cmd
}

func newUserCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage back-office accounts",
	}

	var name, email, password, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a verified user holding one role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := rbac.Default()
			if err != nil {
				return err
			}
			if _, ok := m.Roles[role]; !ok {
				return fmt.Errorf("unknown role %q (known: %v)", role, m.RoleNames())
			}
			if len(password) < auth.MinPasswordLength {
				return fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
			}

			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			ctx := cmd.Context()
			if err := store.SeedAccess(ctx, db, m); err != nil {
				return fmt.Errorf("seeding roles: %w", err)
			}
			u, err := store.CreateUserWithRole(ctx, db, name, email, password, role)
			if err != nil {
				return fmt.Errorf("creating user: %w", err)
			}
			slog.Info("user created", "id", u.ID, "email", u.Email, "role", role)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&password, "password", "", "initial password")
	create.Flags().StringVar(&role, "role", model.RoleProjectLead, "role name")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	user.AddCommand(create, newUserListCmd(), newUserSetRoleCmd())
	return user
}

// bootstrap loads the configuration, installs the logger and opens the
// migrated database.
func bootstrap() (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(logging.New(os.Stdout, logging.ParseLevel(cfg.LogLevel), logging.CounterFunc(metrics.CountLog)))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing database: %w", err)
	}

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")
	return cfg, db, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Error("error closing database connection", "error", err)
	}
}
