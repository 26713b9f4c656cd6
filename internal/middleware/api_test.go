// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/bkconstruct/internal/model"
)

type fakeTokens map[string]*model.User

func (f fakeTokens) UserByAPIToken(_ context.Context, plain string) (*model.User, error) {
	if plain == "boom" {
		return nil, errors.New("database is locked")
	}
	u, ok := f[plain]
	if !ok {
		return nil, model.ErrInvalidCredentials
	}
	return u, nil
}

func TestWriteAPIError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteAPIError(rr, http.StatusBadRequest, "validation_error", "Invalid input", map[string]string{"title": "required"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	var body APIError
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error.Code != "validation_error" || body.Error.Details["title"] != "required" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestAPITokenAuth(t *testing.T) {
	owner := userWith(4, []string{model.RoleProjectLead}, []string{"projects.view"})
	tokens := fakeTokens{"bkc_valid": owner}

	var seen *model.User
	handler := APITokenAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUser(r)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bkc_nope", http.StatusUnauthorized},
		{"lookup failure", "Bearer boom", http.StatusInternalServerError},
		{"valid token", "Bearer bkc_valid", http.StatusOK},
		{"lowercase scheme", "bearer bkc_valid", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusOK && (seen == nil || seen.ID != owner.ID) {
				t.Errorf("owner not in context: %v", seen)
			}
		})
	}
}

func TestRequireAPIPermission(t *testing.T) {
	handler := RequireAPIPermission("quotes.view", "quotes.manage")(okHandler)

	for _, tt := range []struct {
		name string
		user *model.User
		want int
	}{
		{"no owner", nil, http.StatusUnauthorized},
		{"lacks permission", userWith(1, nil, []string{"projects.view"}), http.StatusForbidden},
		{"has one of", userWith(1, nil, []string{"quotes.manage"}), http.StatusOK},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
			if tt.user != nil {
				req = req.WithContext(WithUser(req.Context(), tt.user))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAPIRateLimit(t *testing.T) {
	handler := APIRateLimit(1, 2)(okHandler)
	user := userWith(9, nil, nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
		req = req.WithContext(WithUser(req.Context(), user))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Anonymous requests are not limited here.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("anonymous status = %d, want 200", rr.Code)
	}
}

func TestLimiterCacheClearIfExceeds(t *testing.T) {
	lc := newLimiterCache[string](1, 1)
	lc.get("a")
	lc.get("b")

	if lc.clearIfExceeds(5) {
		t.Error("should not clear below the limit")
	}
	if !lc.clearIfExceeds(1) {
		t.Error("should clear above the limit")
	}
	if len(lc.limiters) != 0 {
		t.Errorf("limiters = %d, want 0", len(lc.limiters))
	}
}
