// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/bkconstruct/internal/model"
)

func newSessionManager() *scs.SessionManager {
	sm := scs.New()
	sm.Store = memstore.New()
	return sm
}

// roundTrip runs set on a first request and renders on a second one sharing the cookie.
func roundTrip(t *testing.T, r *Renderer, sm *scs.SessionManager, set func(*http.Request), user *model.User) Page {
	t.Helper()

	first := httptest.NewRecorder()
	sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		set(req)
	})).ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/admin/projects", nil))

	req := httptest.NewRequest(http.MethodGet, "/admin/projects/create?x=1", nil)
	for _, c := range first.Result().Cookies() {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, r.Render(w, req, user, "Admin/Projects/Create", map[string]any{"statuses": []string{"draft", "published"}}))
	})).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	var page Page
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	return page
}

func TestRenderCarriesFlashAndErrors(t *testing.T) {
	sm := newSessionManager()
	r := New(Config{SessionManager: sm})

	page := roundTrip(t, r, sm, func(req *http.Request) {
		r.SetFlash(req, "Please correct the errors below.", FlashError)
		r.SetErrors(req, map[string]string{"title": "The title field is required."}, map[string]string{"city": "Lyon"})
	}, nil)

	assert.Equal(t, "Admin/Projects/Create", page.Component)
	assert.Equal(t, "/admin/projects/create?x=1", page.URL)
	require.NotNil(t, page.Shared.Flash)
	assert.Equal(t, FlashError, page.Shared.Flash.Type)
	assert.Equal(t, "The title field is required.", page.Shared.Errors["title"])
	assert.Equal(t, "Lyon", page.Shared.Old["city"])
	assert.NotEmpty(t, page.Shared.CSRFToken)
	assert.Nil(t, page.Shared.Auth)
	assert.Equal(t, "BK Construct", page.Shared.AppName)
}

func TestRenderFlashDefaultsToInfo(t *testing.T) {
	sm := newSessionManager()
	r := New(Config{SessionManager: sm})

	page := roundTrip(t, r, sm, func(req *http.Request) {
		r.SetFlash(req, "Saved.", "")
	}, nil)

	require.NotNil(t, page.Shared.Flash)
	assert.Equal(t, FlashInfo, page.Shared.Flash.Type)
}

func TestRenderAuthState(t *testing.T) {
	sm := newSessionManager()
	r := New(Config{SessionManager: sm, AppName: "Test"})

	user := &model.User{ID: 7, Name: "Marie", Email: "marie@example.com", EmailVerifiedAt: sql.NullTime{Valid: true}}
	user.SetAccess([]string{model.RoleProjectLead}, []string{"projects.view"})

	page := roundTrip(t, r, sm, func(*http.Request) {}, user)

	require.NotNil(t, page.Shared.Auth)
	assert.Equal(t, []string{model.RoleProjectLead}, page.Shared.Auth.Roles)
	assert.Equal(t, []string{"projects.view"}, page.Shared.Auth.Permissions)
	assert.True(t, page.Shared.Auth.Verified)
	assert.Nil(t, page.Shared.Flash)
	assert.Empty(t, page.Shared.Errors)
}

func TestRenderStatusWithoutSession(t *testing.T) {
	r := New(Config{})
	rr := httptest.NewRecorder()

	err := r.RenderStatus(rr, httptest.NewRequest(http.MethodGet, "/missing", nil), http.StatusNotFound, nil, "Errors/NotFound", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var page Page
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, "Errors/NotFound", page.Component)
	assert.Empty(t, page.Shared.CSRFToken)
}
