// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/store"
)

const firefoxUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0"

func migratedDB(t *testing.T) *sql.DB {
	t.Helper()
	f, err := os.CreateTemp("", "bkconstruct-session-*.db")
	require.NoError(t, err)
	path := f.Name()
	_ = f.Close()

	db, err := store.NewDB(path)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(path)
		_ = os.Remove(path + "-wal")
		_ = os.Remove(path + "-shm")
	})
	return db
}

// fixture returns a tracker with one user owning three live sessions.
func fixture(t *testing.T) (*Tracker, *store.Queries, *sql.DB, int64) {
	t.Helper()
	db := migratedDB(t)
	q := store.New(db)
	sm := New(db, true, time.Hour)
	tr := NewTracker(q, sm.Store, time.Hour, nil)

	ctx := context.Background()
	u, err := q.CreateUser(ctx, store.CreateUserParams{Name: "A", Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now()})
	require.NoError(t, err)

	for _, token := range []string{"tok-a", "tok-b", "tok-c"} {
		require.NoError(t, sm.Store.Commit(token, []byte("data"), time.Now().Add(time.Hour)))
		require.NoError(t, tr.Start(ctx, token, u.ID, "10.0.0.1", firefoxUA))
	}
	return tr, q, db, u.ID
}

func storeHas(t *testing.T, tr *Tracker, token string) bool {
	t.Helper()
	_, found, err := tr.store.Find(token)
	require.NoError(t, err)
	return found
}

func TestTrackerList(t *testing.T) {
	tr, _, _, userID := fixture(t)
	ctx := context.Background()

	require.NoError(t, tr.Touch(ctx, "tok-a"))

	list, err := tr.List(ctx, userID, "tok-b")
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, PublicID("tok-a"), list[0].ID, "most recent activity first")
	for _, s := range list {
		assert.NotContains(t, s.ID, "tok-")
		assert.Len(t, s.ID, 64)
		assert.Equal(t, s.ID == PublicID("tok-b"), s.IsCurrent)
		assert.Contains(t, s.Browser, "Firefox")
		assert.Equal(t, "Windows", s.OS)
		assert.Equal(t, "Desktop", s.Device)
	}
}

func TestTrackerRevokeCurrentIsRefused(t *testing.T) {
	tr, _, _, userID := fixture(t)
	ctx := context.Background()

	err := tr.Revoke(ctx, userID, PublicID("tok-a"), "tok-a")
	assert.ErrorIs(t, err, model.ErrCurrentSession)

	list, _ := tr.List(ctx, userID, "tok-a")
	assert.Len(t, list, 3)
	assert.True(t, storeHas(t, tr, "tok-a"))
}

func TestTrackerRevokeOther(t *testing.T) {
	tr, _, _, userID := fixture(t)
	ctx := context.Background()

	require.NoError(t, tr.Revoke(ctx, userID, PublicID("tok-b"), "tok-a"))
	assert.False(t, storeHas(t, tr, "tok-b"))

	list, _ := tr.List(ctx, userID, "tok-a")
	assert.Len(t, list, 2)

	tests := []struct {
		name   string
		userID int64
		id     string
	}{
		{"already revoked", userID, PublicID("tok-b")},
		{"another user's session", userID + 1, PublicID("tok-c")},
		{"raw token is not an id", userID, "tok-c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tr.Revoke(ctx, tt.userID, tt.id, "tok-a"), model.ErrSessionNotFound)
		})
	}
	assert.True(t, storeHas(t, tr, "tok-c"))
}

func TestTrackerRevokeOthersAndRekey(t *testing.T) {
	tr, _, _, userID := fixture(t)
	ctx := context.Background()

	n, err := tr.RevokeOthers(ctx, userID, "tok-a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, storeHas(t, tr, "tok-a"))
	assert.False(t, storeHas(t, tr, "tok-b"))
	assert.False(t, storeHas(t, tr, "tok-c"))

	require.NoError(t, tr.Rekey(ctx, "tok-a", "tok-a2"))
	list, err := tr.List(ctx, userID, "tok-a2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsCurrent)
}

func TestTrackerSweep(t *testing.T) {
	tr, _, _, userID := fixture(t)
	ctx := context.Background()

	// tok-c loses its session data; tok-b goes idle beyond the lifetime.
	require.NoError(t, tr.store.Delete("tok-c"))
	tr.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	require.NoError(t, tr.Touch(ctx, "tok-b"))
	tr.now = time.Now

	n, err := tr.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, _ := tr.List(ctx, userID, "")
	require.Len(t, list, 1)
	assert.Equal(t, PublicID("tok-a"), list[0].ID)
}
