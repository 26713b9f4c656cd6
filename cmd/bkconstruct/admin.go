// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/session"
	"github.com/olegiv/bkconstruct/internal/store"
)

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List back-office accounts with their roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			ctx := cmd.Context()
			q := store.New(db)
			users, err := q.ListUsers(ctx)
			if err != nil {
				return fmt.Errorf("listing users: %w", err)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLES\tVERIFIED\tLAST LOGIN")
			for _, u := range users {
				roles, err := q.UserRoleNames(ctx, u.ID)
				if err != nil {
					return fmt.Errorf("roles of user %d: %w", u.ID, err)
				}
				lastLogin := "never"
				if u.LastLoginAt.Valid {
					lastLogin = humanize.Time(u.LastLoginAt.Time)
				}
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n",
					u.ID, u.Name, u.Email, strings.Join(roles, ","), u.EmailVerifiedAt.Valid, lastLogin)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			n, err := q.CountUsers(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Printf("%d user(s)\n", n)
			return nil
		},
	}
}

func newUserSetRoleCmd() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Replace the roles of a user with a single role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			ctx := cmd.Context()
			known, err := store.New(db).ListRoleNames(ctx, model.GuardWeb)
			if err != nil {
				return fmt.Errorf("listing roles: %w", err)
			}
			if !slices.Contains(known, role) {
				return fmt.Errorf("unknown role %q (known: %v)", role, known)
			}

			err = store.RunInTx(ctx, db, func(q *store.Queries) error {
				u, err := q.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
				if err != nil {
					return fmt.Errorf("user %q: %w", email, err)
				}
				if err := q.RevokeRoles(ctx, u.ID); err != nil {
					return err
				}
				return q.AssignRole(ctx, u.ID, role, model.GuardWeb)
			})
			if err != nil {
				return err
			}
			slog.Info("user role updated", "email", email, "role", role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&role, "role", "", "role name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "Print the stored roles and their permissions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			ctx := cmd.Context()
			q := store.New(db)
			roles, err := q.ListRoleNames(ctx, model.GuardWeb)
			if err != nil {
				return fmt.Errorf("listing roles: %w", err)
			}
			for _, role := range roles {
				perms, err := q.RolePermissionNames(ctx, role, model.GuardWeb)
				if err != nil {
					return fmt.Errorf("permissions of %s: %w", role, err)
				}
				_, _ = fmt.Printf("%s (%d)\n", role, len(perms))
				for _, p := range perms {
					_, _ = fmt.Printf("  %s\n", p)
				}
			}
			return nil
		},
	}
}

func newJobsCmd() *cobra.Command {
	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect or run the maintenance jobs",
	}

	jobs.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the scheduled jobs",
			RunE: func(*cobra.Command, []string) error {
				cfg, db, err := bootstrap()
				if err != nil {
					return err
				}
				defer closeDB(db)

				sm := session.New(db, cfg.IsDevelopment(), cfg.SessionLifetime)
				tracker := session.NewTracker(store.New(db), sm.Store, cfg.SessionLifetime, slog.Default())
				sched, err := newScheduler(cfg, tracker, slog.Default())
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "NAME\tSCHEDULE\tDESCRIPTION")
				for _, j := range sched.Jobs() {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", j.Name, j.Schedule, j.Description)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "run <name>",
			Short: "Run one job now",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, db, err := bootstrap()
				if err != nil {
					return err
				}
				defer closeDB(db)

				sm := session.New(db, cfg.IsDevelopment(), cfg.SessionLifetime)
				tracker := session.NewTracker(store.New(db), sm.Store, cfg.SessionLifetime, slog.Default())
				sched, err := newScheduler(cfg, tracker, slog.Default())
				if err != nil {
					return err
				}

				start := time.Now()
				if err := sched.Trigger(cmd.Context(), args[0]); err != nil {
					return err
				}
				slog.Info("job finished", "name", args[0], "duration", time.Since(start))
				return nil
			},
		},
	)
	return jobs
}
