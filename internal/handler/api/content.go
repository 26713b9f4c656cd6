// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/olegiv/bkconstruct/internal/handler"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/service"
)

// statusParam returns the "status" query parameter when it names a content status.
func statusParam(r *http.Request) string {
	switch s := r.URL.Query().Get("status"); s {
	case model.StatusDraft, model.StatusPublished, model.StatusArchived:
		return s
	}
	return ""
}

func listContent[T any](w http.ResponseWriter, r *http.Request, kind string, list func(ctx context.Context, status string, page, perPage int) (service.Listing[T], error)) {
	listing, err := list(r.Context(), statusParam(r), handler.ParsePage(r), service.ContentPerPage)
	if err != nil {
		slog.Error("api: failed to list "+kind, "error", err)
		WriteInternalError(w, "Failed to list "+kind)
		return
	}
	items := listing.Items
	if items == nil {
		items = []T{}
	}
	WriteSuccess(w, items, metaOf(listing))
}

// ListProjects handles GET /api/v1/projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	listContent(w, r, "projects", h.content.ListProjects)
}

// GetProject handles GET /api/v1/projects/{id}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, ok := requireEntityByID(w, r, "project", func(id int64) (model.Project, error) {
		return h.content.GetProject(r.Context(), id)
	})
	if !ok {
		return
	}
	WriteSuccess(w, p, nil)
}

// ListPosts handles GET /api/v1/posts.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	listContent(w, r, "posts", h.content.ListPosts)
}

// GetPost handles GET /api/v1/posts/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, ok := requireEntityByID(w, r, "post", func(id int64) (model.Post, error) {
		return h.content.GetPost(r.Context(), id)
	})
	if !ok {
		return
	}
	WriteSuccess(w, p, nil)
}

// ListEvents handles GET /api/v1/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	listContent(w, r, "events", h.content.ListEvents)
}

// GetEvent handles GET /api/v1/events/{id}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, ok := requireEntityByID(w, r, "event", func(id int64) (model.Event, error) {
		return h.content.GetEvent(r.Context(), id)
	})
	if !ok {
		return
	}
	WriteSuccess(w, e, nil)
}
