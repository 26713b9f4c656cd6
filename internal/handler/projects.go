// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/olegiv/bkconstruct/internal/middleware"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/rbac"
	"github.com/olegiv/bkconstruct/internal/render"
	"github.com/olegiv/bkconstruct/internal/service"
)

// projectFields are the text fields echoed back after a failed submission.
var projectFields = []string{"title", "slug", "category", "city", "client", "year", "status", "excerpt", "body"}

// ProjectsHandler handles project management routes.
type ProjectsHandler struct {
	content  *service.ContentService
	renderer *render.Renderer
}

// NewProjectsHandler creates a new ProjectsHandler.
func NewProjectsHandler(content *service.ContentService, renderer *render.Renderer) *ProjectsHandler {
	return &ProjectsHandler{
		content:  content,
		renderer: renderer,
	}
}

// ProjectFormPage holds the props of the project form.
type ProjectFormPage struct {
	Project    *model.Project `json:"project"`
	Statuses   []string       `json:"statuses"`
	CanPublish bool           `json:"can_publish"`
}

// List handles GET /admin/projects - displays a paginated list of projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := statusFilter(r)
	listing, err := h.content.ListProjects(r.Context(), status, ParsePage(r), service.ContentPerPage)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to list projects", "error", err)
		return
	}
	renderPage(w, r, h.renderer, componentProjectIndex, map[string]any{
		"projects": listing,
		"status":   status,
	})
}

// NewForm handles GET /admin/projects/new.
func (h *ProjectsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, componentProjectForm, ProjectFormPage{
		Statuses:   []string{model.StatusDraft, model.StatusPublished},
		CanPublish: service.Authorize(middleware.GetUser(r), rbac.ProjectsPublish),
	})
}

// Create handles POST /admin/projects.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	back := redirectAdminProjects + RouteSuffixNew
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}
	in := projectInput(r)
	if !h.mayPublish(r, in.Status, "") {
		validationRedirect(w, r, h.renderer, back, publishDenied(), oldInput(r, projectFields...))
		return
	}

	p, err := h.content.CreateProject(r.Context(), in)
	if handleMutationError(w, r, h.renderer, back, err, oldInput(r, projectFields...), "failed to create project") {
		return
	}

	slog.Info("project created", "project_id", p.ID, "slug", p.Slug, "created_by", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, redirectAdminProjects, "Project created successfully")
}

// EditForm handles GET /admin/projects/{id}/edit.
func (h *ProjectsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}
	p, ok := requireEntity(w, r, h.renderer, "project", func() (model.Project, error) {
		return h.content.GetProject(r.Context(), id)
	})
	if !ok {
		return
	}
	renderPage(w, r, h.renderer, componentProjectForm, ProjectFormPage{
		Project:    &p,
		Statuses:   []string{model.StatusDraft, model.StatusPublished},
		CanPublish: service.Authorize(middleware.GetUser(r), rbac.ProjectsPublish),
	})
}

// Update handles POST /admin/projects/{id}.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}
	back := fmt.Sprintf("%s/%d%s", redirectAdminProjects, id, RouteSuffixEdit)
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}
	existing, ok := requireEntity(w, r, h.renderer, "project", func() (model.Project, error) {
		return h.content.GetProject(r.Context(), id)
	})
	if !ok {
		return
	}
	in := projectInput(r)
	if !h.mayPublish(r, in.Status, existing.Status) {
		validationRedirect(w, r, h.renderer, back, publishDenied(), oldInput(r, projectFields...))
		return
	}

	p, err := h.content.UpdateProject(r.Context(), id, in)
	if handleMutationError(w, r, h.renderer, back, err, oldInput(r, projectFields...), "failed to update project", "project_id", id) {
		return
	}

	slog.Info("project updated", "project_id", p.ID, "updated_by", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, back, "Project updated successfully")
}

// Delete handles POST /admin/projects/{id}/delete.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}
	err := h.content.DeleteProject(r.Context(), id)
	deleted(w, r, h.renderer, redirectAdminProjects, "project", id, err)
}

// mayPublish reports whether the user may move a project to the published
// status. Keeping an already published project published needs no grant.
func (h *ProjectsHandler) mayPublish(r *http.Request, status, current string) bool {
	if status != model.StatusPublished || current == model.StatusPublished {
		return true
	}
	return service.Authorize(middleware.GetUser(r), rbac.ProjectsPublish)
}

func publishDenied() *model.ValidationError {
	return model.NewValidationError("status", "You are not allowed to publish projects.")
}

func projectInput(r *http.Request) service.ProjectInput {
	return service.ProjectInput{
		Title:       formValue(r, "title"),
		Slug:        formValue(r, "slug"),
		Category:    formValue(r, "category"),
		City:        formValue(r, "city"),
		Client:      formValue(r, "client"),
		Year:        formValue(r, "year"),
		Status:      formValue(r, "status"),
		Excerpt:     formValue(r, "excerpt"),
		Body:        r.FormValue("body"),
		VideoURLs:   formValues(r, "video_urls"),
		RemoveMedia: formInts(r, "remove_media"),
		Cover:       formUpload(r, "cover"),
		Media:       formUploads(r, "media_uploads"),
	}
}

// statusFilter returns the "status" query parameter when it names a
// content status.
func statusFilter(r *http.Request) string {
	switch s := r.URL.Query().Get("status"); s {
	case model.StatusDraft, model.StatusPublished, model.StatusArchived:
		return s
	}
	return ""
}

// deleted reports the outcome of a delete that removes stored files
// before the row.
func deleted(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, entity string, id int64, err error) {
	var se *model.StorageError
	switch {
	case err == nil:
		slog.Info(entity+" deleted", entity+"_id", id, "deleted_by", middleware.GetUserID(r))
		flashSuccess(w, r, renderer, url, capitalize(entity)+" deleted successfully")
	case errors.As(err, &se):
		flashError(w, r, renderer, url, capitalize(entity)+" deleted, but some files could not be removed.")
	case errors.Is(err, model.ErrNotFound):
		flashError(w, r, renderer, url, capitalize(entity)+" not found")
	default:
		slog.Error("failed to delete "+entity, entity+"_id", id, "error", err)
		flashError(w, r, renderer, url, "Error deleting "+entity)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
