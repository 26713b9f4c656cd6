// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/olegiv/bkconstruct/internal/middleware"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/render"
	"github.com/olegiv/bkconstruct/internal/service"
)

var eventFields = []string{"title", "slug", "excerpt", "body", "category", "location", "organizer", "starts_at", "status"}

var eventStatuses = []string{model.StatusDraft, model.StatusPublished, model.StatusArchived}

// EventsHandler handles company event management routes.
type EventsHandler struct {
	content  *service.ContentService
	renderer *render.Renderer
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(content *service.ContentService, renderer *render.Renderer) *EventsHandler {
	return &EventsHandler{
		content:  content,
		renderer: renderer,
	}
}

// List handles GET /admin/events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := statusFilter(r)
	listing, err := h.content.ListEvents(r.Context(), status, ParsePage(r), service.ContentPerPage)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to list events", "error", err)
		return
	}
	renderPage(w, r, h.renderer, componentEventIndex, map[string]any{
		"events": listing,
		"status": status,
	})
}

// NewForm handles GET /admin/events/new.
func (h *EventsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, componentEventForm, map[string]any{
		"event":    nil,
		"statuses": eventStatuses,
	})
}

// Create handles POST /admin/events.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	back := redirectAdminEvents + RouteSuffixNew
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}

	e, err := h.content.CreateEvent(r.Context(), eventInput(r))
	if handleMutationError(w, r, h.renderer, back, err, oldInput(r, eventFields...), "failed to create event") {
		return
	}

	slog.Info("event created", "event_id", e.ID, "slug", e.Slug, "created_by", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, redirectAdminEvents, "Event created successfully")
}

// EditForm handles GET /admin/events/{id}/edit.
func (h *EventsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}
	e, ok := requireEntity(w, r, h.renderer, "event", func() (model.Event, error) {
		return h.content.GetEvent(r.Context(), id)
	})
	if !ok {
		return
	}
	renderPage(w, r, h.renderer, componentEventForm, map[string]any{
		"event":    e,
		"statuses": eventStatuses,
	})
}

// Update handles POST /admin/events/{id}.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}
	back := fmt.Sprintf("%s/%d%s", redirectAdminEvents, id, RouteSuffixEdit)
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}

	e, err := h.content.UpdateEvent(r.Context(), id, eventInput(r))
	if handleMutationError(w, r, h.renderer, back, err, oldInput(r, eventFields...), "failed to update event", "event_id", id) {
		return
	}

	slog.Info("event updated", "event_id", e.ID, "updated_by", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, back, "Event updated successfully")
}

// Delete handles POST /admin/events/{id}/delete.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}
	err := h.content.DeleteEvent(r.Context(), id)
	deleted(w, r, h.renderer, redirectAdminEvents, "event", id, err)
}

func eventInput(r *http.Request) service.EventInput {
	return service.EventInput{
		Title:     formValue(r, "title"),
		Slug:      formValue(r, "slug"),
		Excerpt:   formValue(r, "excerpt"),
		Body:      r.FormValue("body"),
		Category:  formValue(r, "category"),
		Location:  formValue(r, "location"),
		Organizer: formValue(r, "organizer"),
		StartsAt:  formValue(r, "starts_at"),
		Status:    formValue(r, "status"),
		Cover:     formUpload(r, "cover"),
	}
}
