// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the read-only REST API served under /api/v1.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/bkconstruct/internal/handler"
	"github.com/olegiv/bkconstruct/internal/middleware"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/rbac"
	"github.com/olegiv/bkconstruct/internal/service"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	content   *service.ContentService
	leads     *service.LeadService
	dashboard *service.DashboardService
}

// NewHandler creates a new API handler.
func NewHandler(content *service.ContentService, leads *service.LeadService, dashboard *service.DashboardService) *Handler {
	return &Handler{
		content:   content,
		leads:     leads,
		dashboard: dashboard,
	}
}

// Routes registers the endpoints on r. Authentication is left to the
// caller; each endpoint checks the permission it needs.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Status)
	r.Get("/me", h.Me)

	r.With(middleware.RequireAPIPermission(rbac.ProjectsView)).Get("/projects", h.ListProjects)
	r.With(middleware.RequireAPIPermission(rbac.ProjectsView)).Get("/projects/{id}", h.GetProject)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIPermission(rbac.CMSManage))
		r.Get("/posts", h.ListPosts)
		r.Get("/posts/{id}", h.GetPost)
		r.Get("/events", h.ListEvents)
		r.Get("/events/{id}", h.GetEvent)
	})
	r.With(middleware.RequireAPIPermission(rbac.QuotesView)).Get("/quotes", h.ListQuotes)
	r.With(middleware.RequireAPIPermission(rbac.RFPsView)).Get("/tenders", h.ListTenders)
	r.With(middleware.RequireAPIPermission(rbac.ClientsView)).Get("/contacts", h.ListContacts)
	r.With(middleware.RequireAPIPermission(rbac.ReportsView)).Get("/dashboard", h.Dashboard)
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Pages   int   `json:"pages"`
}

func metaOf[T any](l service.Listing[T]) *Meta {
	return &Meta{Total: l.Total, Page: l.Page, PerPage: l.PerPage, Pages: l.LastPage}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", message, nil)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{Status: "ok", Version: "v1"}, nil)
}

// MeResponse describes the token owner.
type MeResponse struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Me returns the owner of the API token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	WriteSuccess(w, MeResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Roles:       user.Roles(),
		Permissions: user.Permissions(),
	}, nil)
}

// requireEntityByID parses an ID from the URL and fetches the entity.
// Returns the entity and true if successful, or zero value and false if error (response written).
func requireEntityByID[T any](w http.ResponseWriter, r *http.Request, entityName string, fetch func(id int64) (T, error)) (T, bool) {
	var zero T

	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid "+entityName+" ID")
		return zero, false
	}

	entity, err := fetch(id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			WriteNotFound(w, capitalizeFirst(entityName)+" not found")
		} else {
			slog.Error("failed to get "+entityName, "id", id, "error", err)
			WriteInternalError(w, "Failed to retrieve "+entityName)
		}
		return zero, false
	}

	return entity, true
}

// capitalizeFirst returns s with the first letter capitalized.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
