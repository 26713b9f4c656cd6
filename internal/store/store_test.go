// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/olegiv/bkconstruct/internal/model"
)

// testDB creates a temporary migrated test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "bkconstruct-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
		_ = os.Remove(dbPath + "-wal")
		_ = os.Remove(dbPath + "-shm")
	}

	return db, cleanup
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	q := New(db)
	for _, table := range []string{"users", "sessions", "user_sessions", "projects", "quotes", "contact_messages"} {
		ok, err := q.HasTable(context.Background(), table)
		if err != nil {
			t.Fatalf("HasTable(%s): %v", table, err)
		}
		if !ok {
			t.Errorf("table %s missing", table)
		}
	}
	if ok, _ := q.HasTable(context.Background(), "nope"); ok {
		t.Error("HasTable(nope) = true")
	}
}

func TestSeedCreatesRolesAndAdmin(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := Seed(ctx, db); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	q := New(db)
	admin, err := q.GetUserByEmail(ctx, DefaultAdminEmail)
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if !admin.EmailVerifiedAt.Valid {
		t.Error("seeded admin should be verified")
	}

	roles, err := q.UserRoleNames(ctx, admin.ID)
	if err != nil {
		t.Fatalf("UserRoleNames: %v", err)
	}
	if len(roles) != 1 || roles[0] != model.RoleAdmin {
		t.Errorf("roles = %v", roles)
	}

	perms, err := q.UserPermissionNames(ctx, admin.ID)
	if err != nil {
		t.Fatalf("UserPermissionNames: %v", err)
	}
	if len(perms) != 17 {
		t.Errorf("admin has %d permissions, want 17", len(perms))
	}

	clientPerms, err := q.RolePermissionNames(ctx, model.RoleClient, model.GuardWeb)
	if err != nil {
		t.Fatalf("RolePermissionNames: %v", err)
	}
	if len(clientPerms) != 2 {
		t.Errorf("client permissions = %v", clientPerms)
	}

	n, _ := q.CountUsers(ctx)
	if n != 1 {
		t.Errorf("CountUsers = %d, want 1", n)
	}
}

func TestAssignUnknownRole(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	u, err := q.CreateUser(ctx, CreateUserParams{Name: "A", Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err = q.AssignRole(ctx, u.ID, "ghost", model.GuardWeb)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("AssignRole(ghost) = %v, want ErrNotFound", err)
	}
}

func TestReplaceUserRole(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := Seed(ctx, db); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	q := New(db)

	names, err := q.ListRoleNames(ctx, model.GuardWeb)
	if err != nil {
		t.Fatalf("ListRoleNames: %v", err)
	}
	if len(names) != 3 || names[0] != model.RoleAdmin {
		t.Errorf("role names = %v", names)
	}

	u, err := q.CreateUser(ctx, CreateUserParams{Name: "Lead", Email: "lead@example.com", PasswordHash: "x", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := q.AssignRole(ctx, u.ID, model.RoleProjectLead, model.GuardWeb); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if err := q.RevokeRoles(ctx, u.ID); err != nil {
		t.Fatalf("RevokeRoles: %v", err)
	}
	if err := q.AssignRole(ctx, u.ID, model.RoleClient, model.GuardWeb); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	roles, _ := q.UserRoleNames(ctx, u.ID)
	if len(roles) != 1 || roles[0] != model.RoleClient {
		t.Errorf("roles = %v, want [client]", roles)
	}

	users, err := q.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("ListUsers returned %d users, want 2", len(users))
	}
}

func TestUserEmailQueries(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	now := time.Now()
	a, err := q.CreateUser(ctx, CreateUserParams{Name: "A", Email: "a@example.com", PasswordHash: "x", CreatedAt: now})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := q.CreateUser(ctx, CreateUserParams{Name: "B", Email: "b@example.com", PasswordHash: "x", CreatedAt: now}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	_, err = q.CreateUser(ctx, CreateUserParams{Name: "dup", Email: "a@example.com", PasswordHash: "x", CreatedAt: now})
	if !IsUniqueViolation(err, "users.email") {
		t.Errorf("duplicate email error = %v", err)
	}

	taken, err := q.EmailTaken(ctx, "b@example.com", a.ID)
	if err != nil || !taken {
		t.Errorf("EmailTaken(b) = %v, %v", taken, err)
	}
	taken, _ = q.EmailTaken(ctx, "a@example.com", a.ID)
	if taken {
		t.Error("own email must not count as taken")
	}

	if err := q.UpdateUserEmail(ctx, a.ID, "new@example.com", now); err != nil {
		t.Fatalf("UpdateUserEmail: %v", err)
	}
	if err := q.MarkEmailVerified(ctx, a.ID, "a@example.com", now); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("MarkEmailVerified with stale email = %v", err)
	}
	if err := q.MarkEmailVerified(ctx, a.ID, "new@example.com", now); err != nil {
		t.Fatalf("MarkEmailVerified: %v", err)
	}
	got, _ := q.GetUserByID(ctx, a.ID)
	if !got.EmailVerifiedAt.Valid || got.Email != "new@example.com" {
		t.Errorf("user after verify = %+v", got)
	}

	if _, err := q.GetUserByID(ctx, 999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetUserByID(999) = %v", err)
	}
}

func TestProjectSlugUniqueAndMedia(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	now := time.Now()
	p, err := q.CreateProject(ctx, model.Project{
		Title: "Pont", Slug: "pont", Status: model.StatusDraft, CreatedAt: now, UpdatedAt: now,
		Media: model.MediaList{
			{Type: model.MediaTypeImage, Kind: model.MediaKindUpload, Path: "projects/media/a.jpg", Mime: "image/jpeg", Size: 10},
			{Type: model.MediaTypeVideo, Kind: model.MediaKindURL, URL: "https://youtu.be/x"},
		},
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if len(p.Media) != 2 || p.Media[1].URL != "https://youtu.be/x" {
		t.Errorf("media round trip = %+v", p.Media)
	}

	_, err = q.CreateProject(ctx, model.Project{Title: "Pont", Slug: "pont", Status: model.StatusDraft, CreatedAt: now, UpdatedAt: now})
	if !IsUniqueViolation(err, "projects.slug") {
		t.Errorf("duplicate slug error = %v", err)
	}

	taken, err := q.SlugTaken(ctx, "projects", "pont", 0)
	if err != nil || !taken {
		t.Errorf("SlugTaken = %v, %v", taken, err)
	}
	taken, _ = q.SlugTaken(ctx, "projects", "pont", p.ID)
	if taken {
		t.Error("slug of the same row must not count as taken")
	}
	if _, err := q.SlugTaken(ctx, "users", "x", 0); err == nil {
		t.Error("SlugTaken(users) expected error")
	}

	p.Status = model.StatusPublished
	p.UpdatedAt = now.Add(time.Minute)
	if _, err := q.UpdateProject(ctx, p); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if n, _ := q.CountProjects(ctx, model.StatusPublished); n != 1 {
		t.Errorf("published count = %d", n)
	}

	if err := q.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if err := q.DeleteProject(ctx, p.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second DeleteProject = %v", err)
	}
}

func TestMarkLeadReadOnce(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	quote, err := q.CreateQuote(ctx, model.Quote{
		Name: "Jean Dupont", Email: "jean@example.com", Status: model.LeadStatusNew, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}
	if quote.ReadAt.Valid || quote.Status != model.LeadStatusNew {
		t.Fatalf("new quote = %+v", quote)
	}

	first := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	changed, err := q.MarkLeadRead(ctx, TableQuotes, quote.ID, first)
	if err != nil || !changed {
		t.Fatalf("MarkLeadRead first = %v, %v", changed, err)
	}
	changed, err = q.MarkLeadRead(ctx, TableQuotes, quote.ID, first.Add(time.Hour))
	if err != nil || changed {
		t.Fatalf("MarkLeadRead second = %v, %v", changed, err)
	}

	got, _ := q.GetQuote(ctx, quote.ID)
	if got.Status != model.LeadStatusRead || !got.ReadAt.Time.Equal(first) {
		t.Errorf("quote after reads = status %s read_at %v", got.Status, got.ReadAt)
	}

	if _, err := q.MarkLeadRead(ctx, "users", 1, first); err == nil {
		t.Error("MarkLeadRead(users) expected error")
	}
}

func TestLeadFilterSearch(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	now := time.Now()
	for _, c := range []model.ContactMessage{
		{Name: "Alice", Email: "alice@example.com", Subject: "Devis toiture", Source: "contact"},
		{Name: "Bob", Email: "bob@example.com", Subject: "Question", Source: "contact"},
	} {
		c.Status = model.LeadStatusNew
		c.CreatedAt = now
		if _, err := q.CreateContactMessage(ctx, c); err != nil {
			t.Fatalf("CreateContactMessage: %v", err)
		}
	}

	list, err := q.ListContactMessages(ctx, LeadFilter{Search: "toiture", Page: NewPage(1, 20)})
	if err != nil {
		t.Fatalf("ListContactMessages: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Alice" {
		t.Errorf("search result = %+v", list)
	}

	n, _ := q.CountLeads(ctx, TableContacts, LeadFilter{Search: "example.com"})
	if n != 2 {
		t.Errorf("CountLeads = %d, want 2", n)
	}

	stats, err := q.LeadStats(ctx, TableContacts)
	if err != nil {
		t.Fatalf("LeadStats: %v", err)
	}
	if stats.Total != 2 || stats.New != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestUserSessionLifecycle(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	u, err := q.CreateUser(ctx, CreateUserParams{Name: "A", Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"s1", "s2", "s3"} {
		err := q.UpsertUserSession(ctx, UpsertUserSessionParams{
			ID: id, UserID: u.ID, IPAddress: "127.0.0.1", UserAgent: "test", At: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("UpsertUserSession: %v", err)
		}
	}

	list, err := q.ListUserSessions(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListUserSessions: %v", err)
	}
	if len(list) != 3 || list[0].ID != "s3" || list[2].ID != "s1" {
		t.Errorf("order = %v", []string{list[0].ID, list[1].ID, list[2].ID})
	}

	if err := q.RekeyUserSession(ctx, "s1", "s1b", time.Now()); err != nil {
		t.Fatalf("RekeyUserSession: %v", err)
	}
	list, _ = q.ListUserSessions(ctx, u.ID)
	for _, s := range list {
		if s.ID == "s1" {
			t.Error("old session id must be gone after rekey")
		}
	}

	n, err := q.DeleteOtherUserSessions(ctx, u.ID, "s1b")
	if err != nil || n != 2 {
		t.Errorf("DeleteOtherUserSessions = %d, %v", n, err)
	}
	list, _ = q.ListUserSessions(ctx, u.ID)
	if len(list) != 1 || list[0].ID != "s1b" {
		t.Errorf("remaining = %+v", list)
	}

	if err := q.DeleteUserSession(ctx, u.ID+1, "s1b"); !errors.Is(err, model.ErrNotFound) {
		t.Error("deleting another user's session must not match")
	}
}

func TestDeleteStaleUserSessions(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	u, _ := q.CreateUser(ctx, CreateUserParams{Name: "A", Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now()})

	// Live scs row for "live"; none for "orphan".
	if _, err := db.Exec(`INSERT INTO sessions (token, data, expiry) VALUES ('live', x'00', julianday('now') + 1)`); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	now := time.Now()
	_ = q.UpsertUserSession(ctx, UpsertUserSessionParams{ID: "live", UserID: u.ID, At: now})
	_ = q.UpsertUserSession(ctx, UpsertUserSessionParams{ID: "orphan", UserID: u.ID, At: now})

	n, err := q.DeleteStaleUserSessions(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteStaleUserSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	list, err := q.ListUserSessions(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListUserSessions: %v", err)
	}
	if len(list) != 1 || list[0].ID != "live" {
		t.Errorf("remaining = %+v", list)
	}
}

func TestAuthLogsAndFailedLogins(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	now := time.Now()
	for range 3 {
		if err := q.CreateAuthLog(ctx, CreateAuthLogParams{Email: "x@example.com", Event: model.AuthEventLoginFailed, CreatedAt: now}); err != nil {
			t.Fatalf("CreateAuthLog: %v", err)
		}
	}
	n, err := q.CountRecentFailedLogins(ctx, "x@example.com", now.Add(-time.Minute))
	if err != nil || n != 3 {
		t.Errorf("CountRecentFailedLogins = %d, %v", n, err)
	}
	n, _ = q.CountRecentFailedLogins(ctx, "x@example.com", now.Add(time.Minute))
	if n != 0 {
		t.Errorf("future window count = %d", n)
	}
}

func TestDashboardAggregates(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	now := time.Now()
	for _, p := range []model.Project{
		{Title: "a", Slug: "a", City: "Lyon", Category: "Logement", Status: model.StatusPublished},
		{Title: "b", Slug: "b", City: "Lyon", Category: "Industrie", Status: model.StatusDraft},
		{Title: "c", Slug: "c", City: "Grenoble", Category: "Logement", Status: model.StatusPublished},
		{Title: "d", Slug: "d", Status: model.StatusDraft},
	} {
		p.CreatedAt, p.UpdatedAt = now, now
		if _, err := q.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject: %v", err)
		}
	}

	cities, err := q.CountBy(ctx, "projects", "city", 6)
	if err != nil {
		t.Fatalf("CountBy: %v", err)
	}
	if len(cities) != 2 || cities[0].Label != "Lyon" || cities[0].Count != 2 {
		t.Errorf("cities = %+v", cities)
	}

	if _, err := q.CountBy(ctx, "projects", "body", 6); err == nil {
		t.Error("CountBy(body) expected error")
	}

	recent, err := q.RecentActivity(ctx, "projects", 3)
	if err != nil || len(recent) != 3 {
		t.Errorf("RecentActivity = %d, %v", len(recent), err)
	}

	n, _ := q.CountCreatedSince(ctx, "projects", now.Add(-time.Hour))
	if n != 4 {
		t.Errorf("CountCreatedSince = %d", n)
	}
}

func TestSeedDemo(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := Seed(ctx, db); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := SeedDemo(ctx, db); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	if err := SeedDemo(ctx, db); err != nil {
		t.Fatalf("second SeedDemo: %v", err)
	}

	q := New(db)
	p, err := q.GetProjectBySlug(ctx, "pont-de-la-liberte")
	if err != nil {
		t.Fatalf("GetProjectBySlug: %v", err)
	}
	if !p.IsPublished() {
		t.Error("demo bridge should be published")
	}
	if n, _ := q.CountProjects(ctx, ""); n != int64(len(demoProjects())) {
		t.Errorf("projects = %d after double seed", n)
	}

	lead, err := q.GetUserByEmail(ctx, DemoLeadEmail)
	if err != nil {
		t.Fatalf("demo lead missing: %v", err)
	}
	roles, _ := q.UserRoleNames(ctx, lead.ID)
	if len(roles) != 1 || roles[0] != model.RoleProjectLead {
		t.Errorf("lead roles = %v", roles)
	}
}
