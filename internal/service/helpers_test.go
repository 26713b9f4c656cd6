// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/bkconstruct/internal/auth"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/notify"
	"github.com/olegiv/bkconstruct/internal/session"
	"github.com/olegiv/bkconstruct/internal/storage"
	"github.com/olegiv/bkconstruct/internal/store"
)

// testEnv is a migrated and seeded database with in-memory file storage.
type testEnv struct {
	db      *sql.DB
	q       *store.Queries
	sm      *scs.SessionManager
	tracker *session.Tracker
	fs      afero.Fs
	disk    *storage.Disk
	outbox  *outbox
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	f, err := os.CreateTemp("", "bkconstruct-service-*.db")
	require.NoError(t, err)
	path := f.Name()
	_ = f.Close()

	db, err := store.NewDB(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(path)
		_ = os.Remove(path + "-wal")
		_ = os.Remove(path + "-shm")
	})
	require.NoError(t, store.Migrate(db))
	require.NoError(t, store.Seed(context.Background(), db))

	q := store.New(db)
	sm := session.New(db, true, time.Hour)
	fsys := afero.NewBasePathFs(afero.NewMemMapFs(), "/")
	return &testEnv{
		db:      db,
		q:       q,
		sm:      sm,
		tracker: session.NewTracker(q, sm.Store, time.Hour, nil),
		fs:      fsys,
		disk:    storage.NewDiskFs(fsys, "/storage"),
		outbox:  &outbox{},
	}
}

func (e *testEnv) access() *AccessService {
	return NewAccessService(e.db, e.tracker, AccessConfig{
		Verifier: auth.NewEmailVerifier("0123456789abcdef0123456789abcdef"),
		Notifier: e.outbox,
		BaseURL:  "https://example.com",
	})
}

func (e *testEnv) content() *ContentService {
	return NewContentService(e.db, e.disk, nil)
}

func (e *testEnv) intake(notifyTo ...string) *IntakeService {
	return NewIntakeService(e.db, e.disk, IntakeConfig{NotifyTo: notifyTo, Notifier: e.outbox})
}

// login creates a tracked, live session for user.
func (e *testEnv) login(t *testing.T, userID int64, token string) {
	t.Helper()
	require.NoError(t, e.sm.Store.Commit(token, []byte("data"), time.Now().Add(time.Hour)))
	require.NoError(t, e.tracker.Start(context.Background(), token, userID, "10.0.0.1", "Mozilla/5.0"))
}

func (e *testEnv) sessionAlive(t *testing.T, token string) bool {
	t.Helper()
	_, found, err := e.sm.Store.Find(token)
	require.NoError(t, err)
	return found
}

func (e *testEnv) exists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := afero.Exists(e.fs, key)
	require.NoError(t, err)
	return ok
}

func (e *testEnv) admin(t *testing.T) model.User {
	t.Helper()
	u, err := e.q.GetUserByEmail(context.Background(), store.DefaultAdminEmail)
	require.NoError(t, err)
	return u
}

// outbox records enqueued notifications.
type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (o *outbox) Enqueue(msg notify.Message) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return true
}

func (o *outbox) all() []notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notify.Message(nil), o.msgs...)
}

// pngBytes returns a small PNG image.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// bytesUpload builds an Upload from memory.
func bytesUpload(filename string, data []byte) Upload {
	return Upload{
		Filename: filename,
		Size:     int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
