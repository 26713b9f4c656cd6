// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFormToken(t *testing.T) {
	sm := New(setupSessionsDB(t), true, 0)

	var first, again, rotated string
	var validBefore, validAfter, staleAfter, empty bool
	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		first = FormToken(ctx, sm)
		again = FormToken(ctx, sm)
		validBefore = ValidFormToken(ctx, sm, first)
		rotated = RotateFormToken(ctx, sm)
		validAfter = ValidFormToken(ctx, sm, rotated)
		staleAfter = ValidFormToken(ctx, sm, first)
		empty = ValidFormToken(ctx, sm, "")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if first == "" || first != again {
		t.Fatalf("FormToken should be stable, got %q then %q", first, again)
	}
	if !validBefore {
		t.Error("issued token should validate")
	}
	if rotated == first {
		t.Error("rotation should change the token")
	}
	if !validAfter {
		t.Error("rotated token should validate")
	}
	if staleAfter {
		t.Error("previous token should be rejected after rotation")
	}
	if empty {
		t.Error("empty candidate should be rejected")
	}
}

func TestValidFormToken_NoSessionToken(t *testing.T) {
	sm := New(setupSessionsDB(t), true, 0)

	var ok bool
	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok = ValidFormToken(r.Context(), sm, "anything")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	if ok {
		t.Error("a session without a token must reject every candidate")
	}
}
