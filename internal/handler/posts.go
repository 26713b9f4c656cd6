// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/bkconstruct/internal/middleware"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/render"
	"github.com/olegiv/bkconstruct/internal/service"
)

var postFields = []string{"title", "slug", "status", "published_at", "excerpt", "body", "tags"}

// PostsHandler handles news post management routes.
type PostsHandler struct {
	content  *service.ContentService
	renderer *render.Renderer
}

// NewPostsHandler creates a new PostsHandler.
func NewPostsHandler(content *service.ContentService, renderer *render.Renderer) *PostsHandler {
	return &PostsHandler{
		content:  content,
		renderer: renderer,
	}
}

// List handles GET /admin/posts.
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := statusFilter(r)
	listing, err := h.content.ListPosts(r.Context(), status, ParsePage(r), service.ContentPerPage)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to list posts", "error", err)
		return
	}
	renderPage(w, r, h.renderer, componentPostIndex, map[string]any{
		"posts":  listing,
		"status": status,
	})
}

// NewForm handles GET /admin/posts/new.
func (h *PostsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, componentPostForm, map[string]any{
		"post":     nil,
		"statuses": []string{model.StatusDraft, model.StatusPublished},
	})
}

// Create handles POST /admin/posts.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	back := redirectAdminPosts + RouteSuffixNew
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}

	p, err := h.content.CreatePost(r.Context(), postInput(r))
	if handleMutationError(w, r, h.renderer, back, err, oldInput(r, postFields...), "failed to create post") {
		return
	}

	slog.Info("post created", "post_id", p.ID, "slug", p.Slug, "created_by", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, redirectAdminPosts, "Post created successfully")
}

// EditForm handles GET /admin/posts/{id}/edit.
func (h *PostsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}
	p, ok := requireEntity(w, r, h.renderer, "post", func() (model.Post, error) {
		return h.content.GetPost(r.Context(), id)
	})
	if !ok {
		return
	}
	renderPage(w, r, h.renderer, componentPostForm, map[string]any{
		"post":     p,
		"statuses": []string{model.StatusDraft, model.StatusPublished},
	})
}

// Update handles POST /admin/posts/{id}.
func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}
	back := fmt.Sprintf("%s/%d%s", redirectAdminPosts, id, RouteSuffixEdit)
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}

	p, err := h.content.UpdatePost(r.Context(), id, postInput(r))
	if handleMutationError(w, r, h.renderer, back, err, oldInput(r, postFields...), "failed to update post", "post_id", id) {
		return
	}

	slog.Info("post updated", "post_id", p.ID, "updated_by", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, back, "Post updated successfully")
}

// Delete handles POST /admin/posts/{id}/delete.
func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}
	err := h.content.DeletePost(r.Context(), id)
	deleted(w, r, h.renderer, redirectAdminPosts, "post", id, err)
}

func postInput(r *http.Request) service.PostInput {
	tags := formValues(r, "tags")
	// A single comma-separated field is accepted as well.
	if len(tags) == 1 && strings.Contains(tags[0], ",") {
		tags = splitTags(tags[0])
	}
	return service.PostInput{
		Title:       formValue(r, "title"),
		Slug:        formValue(r, "slug"),
		Status:      formValue(r, "status"),
		PublishedAt: formValue(r, "published_at"),
		Excerpt:     formValue(r, "excerpt"),
		Body:        r.FormValue("body"),
		Tags:        tags,
		Cover:       formUpload(r, "cover"),
	}
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
