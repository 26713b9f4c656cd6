// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/olegiv/bkconstruct/internal/handler"
	"github.com/olegiv/bkconstruct/internal/service"
	"github.com/olegiv/bkconstruct/internal/store"
)

// LeadMeta extends Meta with the table-wide lead counters.
type LeadMeta struct {
	Meta
	Stats store.LeadStats `json:"stats"`
}

// listLeads writes a page of leads. Listing never marks them read.
func listLeads[T any](w http.ResponseWriter, r *http.Request, kind string, list func(context.Context, service.LeadQuery) (service.LeadPage[T], error)) {
	page, err := list(r.Context(), service.LeadQuery{
		Search: r.URL.Query().Get("q"),
		Status: r.URL.Query().Get("status"),
		Page:   handler.ParsePage(r),
	})
	if err != nil {
		slog.Error("api: failed to list "+kind, "error", err)
		WriteInternalError(w, "Failed to list "+kind)
		return
	}
	items := page.Items
	if items == nil {
		items = []T{}
	}
	WriteJSON(w, http.StatusOK, struct {
		Data []T      `json:"data"`
		Meta LeadMeta `json:"meta"`
	}{items, LeadMeta{Meta: *metaOf(page.Listing), Stats: page.Stats}})
}

// ListQuotes handles GET /api/v1/quotes.
func (h *Handler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	listLeads(w, r, "quotes", h.leads.ListQuotes)
}

// ListTenders handles GET /api/v1/tenders.
func (h *Handler) ListTenders(w http.ResponseWriter, r *http.Request) {
	listLeads(w, r, "tenders", h.leads.ListTenders)
}

// ListContacts handles GET /api/v1/contacts.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	listLeads(w, r, "contacts", h.leads.ListContacts)
}

// Dashboard handles GET /api/v1/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.dashboard.Summarize(r.Context(), service.ParseRange(r.URL.Query().Get("range")))
	if err != nil {
		slog.Error("api: failed to summarize dashboard", "error", err)
		WriteInternalError(w, "Failed to summarize dashboard")
		return
	}
	WriteSuccess(w, view, nil)
}
