// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/bkconstruct/internal/middleware"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/render"
	"github.com/olegiv/bkconstruct/internal/service"
)

// leadRoutes maps a lead kind to its back-office listing.
var leadRoutes = map[string]string{
	model.LeadKindQuote:   RouteAdmin + RouteQuotes,
	model.LeadKindTender:  RouteAdmin + RouteTenders,
	model.LeadKindContact: RouteAdmin + RouteContacts,
}

// LeadsHandler handles the triage of quotes, tenders and contact messages.
// Each method takes the lead kind and returns the handler for that kind.
type LeadsHandler struct {
	leads    *service.LeadService
	renderer *render.Renderer
}

// NewLeadsHandler creates a new LeadsHandler.
func NewLeadsHandler(leads *service.LeadService, renderer *render.Renderer) *LeadsHandler {
	return &LeadsHandler{
		leads:    leads,
		renderer: renderer,
	}
}

// List returns the handler for GET /admin/{kind}s.
func (h *LeadsHandler) List(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := service.LeadQuery{
			Search: r.URL.Query().Get("q"),
			Status: r.URL.Query().Get("status"),
			Page:   ParsePage(r),
		}

		var (
			page any
			err  error
		)
		switch kind {
		case model.LeadKindQuote:
			page, err = h.leads.ListQuotes(r.Context(), q)
		case model.LeadKindTender:
			page, err = h.leads.ListTenders(r.Context(), q)
		case model.LeadKindContact:
			page, err = h.leads.ListContacts(r.Context(), q)
		default:
			notFound(w, r, h.renderer)
			return
		}
		if err != nil {
			logAndInternalError(w, r, h.renderer, "failed to list leads", "kind", kind, "error", err)
			return
		}

		renderPage(w, r, h.renderer, componentLeadIndex, map[string]any{
			"kind":    kind,
			"leads":   page,
			"filters": map[string]string{"q": q.Search, "status": q.Status},
		})
	}
}

// Show returns the handler for GET /admin/{kind}s/{id}. Opening a new lead
// marks it read.
func (h *LeadsHandler) Show(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			notFound(w, r, h.renderer)
			return
		}

		lead, ok := requireEntity(w, r, h.renderer, kind, func() (any, error) {
			switch kind {
			case model.LeadKindQuote:
				return h.leads.OpenQuote(r.Context(), id)
			case model.LeadKindTender:
				return h.leads.OpenTender(r.Context(), id)
			case model.LeadKindContact:
				return h.leads.OpenContact(r.Context(), id)
			}
			return nil, model.ErrNotFound
		})
		if !ok {
			return
		}

		renderPage(w, r, h.renderer, componentLeadShow, map[string]any{
			"kind": kind,
			"lead": lead,
		})
	}
}

// File returns the handler for GET /admin/{kind}s/{id}/files/{index},
// which streams an attachment as a download.
func (h *LeadsHandler) File(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			notFound(w, r, h.renderer)
			return
		}
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			notFound(w, r, h.renderer)
			return
		}

		obj, file, err := h.leads.OpenFile(r.Context(), kind, id, index)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				notFound(w, r, h.renderer)
				return
			}
			logAndInternalError(w, r, h.renderer, "failed to open lead file", "kind", kind, "id", id, "index", index, "error", err)
			return
		}
		defer func() { _ = obj.Close() }()

		contentType := obj.ContentType
		if contentType == "" {
			contentType = file.Mime
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if obj.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		}
		if _, err := io.Copy(w, obj); err != nil {
			slog.Warn("lead file download interrupted", "kind", kind, "id", id, "error", err)
		}
	}
}

// SetStatus returns the handler for POST /admin/{kind}s/{id}/status.
func (h *LeadsHandler) SetStatus(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			notFound(w, r, h.renderer)
			return
		}
		back := fmt.Sprintf("%s/%d", leadRoutes[kind], id)
		if err := parseForm(r); err != nil {
			flashError(w, r, h.renderer, back, "Invalid form data")
			return
		}
		status := formValue(r, "status")
		if status == "" {
			status = model.LeadStatusArchived
		}

		err := h.leads.SetStatus(r.Context(), kind, id, status)
		if handleMutationError(w, r, h.renderer, back, err, nil, "failed to update lead status", "kind", kind, "id", id) {
			return
		}

		slog.Info("lead status changed", "kind", kind, "id", id, "status", status, "changed_by", middleware.GetUserID(r))
		flashSuccess(w, r, h.renderer, backTo(r, back), "Status updated")
	}
}

// Delete returns the handler for POST /admin/{kind}s/{id}/delete.
func (h *LeadsHandler) Delete(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			notFound(w, r, h.renderer)
			return
		}
		err := h.leads.Delete(r.Context(), kind, id)
		deleted(w, r, h.renderer, leadRoutes[kind], kind, id, err)
	}
}
