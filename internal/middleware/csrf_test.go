// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/olegiv/bkconstruct/internal/session"
)

func TestDefaultCSRFConfig_Development(t *testing.T) {
	authKey := []byte("12345678901234567890123456789012") // 32-byte key
	cfg := DefaultCSRFConfig(authKey, true)

	if len(cfg.AuthKey) != 32 {
		t.Errorf("expected 32-byte AuthKey, got %d bytes", len(cfg.AuthKey))
	}

	// TrustedOrigins must be host-only values, not full URLs
	if len(cfg.TrustedOrigins) == 0 {
		t.Fatal("expected TrustedOrigins in dev mode")
	}
	for _, origin := range cfg.TrustedOrigins {
		if strings.HasPrefix(origin, "http") {
			t.Errorf("TrustedOrigin should be host:port, not full URL: %s", origin)
		}
	}
}

func TestDefaultCSRFConfig_Production(t *testing.T) {
	cfg := DefaultCSRFConfig([]byte("12345678901234567890123456789012"), false)

	if len(cfg.TrustedOrigins) != 0 {
		t.Errorf("expected no TrustedOrigins in production, got %d", len(cfg.TrustedOrigins))
	}
}

func TestCSRF_RejectsCrossSite(t *testing.T) {
	handler := CSRF(DefaultCSRFConfig([]byte("12345678901234567890123456789012"), false))(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("cross-site POST: status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("same-origin POST: status = %d, want 200", rr.Code)
	}
}

func TestFormToken(t *testing.T) {
	sm := newTestSessionManager()
	handler := sm.LoadAndSave(FormToken(sm)(okHandler))

	var token string
	cookies := sessionCookies(t, sm, func(ctx context.Context) { token = session.FormToken(ctx, sm) })

	form := func(tok string) *http.Request {
		body := url.Values{"title": {"x"}}
		if tok != "" {
			body.Set(CSRFFieldName, tok)
		}
		req := httptest.NewRequest(http.MethodPost, "/admin/projects", strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return withCookies(req, cookies)
	}

	multipartReq := func(tok string) *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField(CSRFFieldName, tok)
		fw, _ := mw.CreateFormFile("files", "plan.pdf")
		_, _ = fw.Write([]byte("%PDF-1.4"))
		_ = mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/quote", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return withCookies(req, cookies)
	}

	header := func(tok string) *http.Request {
		req := httptest.NewRequest(http.MethodDelete, "/admin/projects/1", nil)
		req.Header.Set(CSRFHeaderName, tok)
		return withCookies(req, cookies)
	}

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"GET passes", withCookies(httptest.NewRequest(http.MethodGet, "/admin", nil), cookies), http.StatusOK},
		{"form field", form(token), http.StatusOK},
		{"multipart field", multipartReq(token), http.StatusOK},
		{"header", header(token), http.StatusOK},
		{"missing token", form(""), http.StatusForbidden},
		{"wrong token", form("forged"), http.StatusForbidden},
		{"wrong header", header("forged"), http.StatusForbidden},
		{"no session", httptest.NewRequest(http.MethodPost, "/contact", nil), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, tt.req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
