// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/olegiv/bkconstruct/internal/model"
)

func newTestSessionManager() *scs.SessionManager {
	sm := scs.New()
	sm.Store = memstore.New()
	return sm
}

// sessionCookies runs set inside a session and returns the resulting cookies.
func sessionCookies(t *testing.T, sm *scs.SessionManager, set func(ctx context.Context)) []*http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		set(r.Context())
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	return rr.Result().Cookies()
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type fakeUsers map[int64]*model.User

func (f fakeUsers) UserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return u, nil
}

func userWith(id int64, roles []string, perms []string) *model.User {
	u := &model.User{ID: id, Email: "user@example.com"}
	u.SetAccess(roles, perms)
	return u
}
