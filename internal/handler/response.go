// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/bkconstruct/internal/middleware"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/render"
)

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST/PUT/DELETE redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashError)
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashSuccess)
}

// flashInfo sets an info flash message and redirects to the given URL.
func flashInfo(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashInfo)
}

// validationRedirect stores field errors and the submitted values, then
// redirects back to the form.
func validationRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url string, ve *model.ValidationError, old map[string]string) {
	renderer.SetErrors(r, ve.Fields, old)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// handleMutationError redirects back with field errors for validation
// failures and with a generic error flash otherwise. It returns false
// when err is nil.
func handleMutationError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url string, err error, old map[string]string, logMsg string, args ...any) bool {
	if err == nil {
		return false
	}
	if ve, ok := model.IsValidation(err); ok {
		validationRedirect(w, r, renderer, url, ve, old)
		return true
	}
	if errors.Is(err, model.ErrNotFound) {
		notFound(w, r, renderer)
		return true
	}
	slog.Error(logMsg, append(args, "error", err)...)
	flashError(w, r, renderer, url, "Something went wrong. Please try again.")
	return true
}

// renderPage renders a page payload for the current user and logs failures.
func renderPage(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, component string, props any) {
	if err := renderer.Render(w, r, middleware.GetUser(r), component, props); err != nil {
		slog.Error("failed to render page", "component", component, "error", err)
	}
}

// notFound renders the 404 page.
func notFound(w http.ResponseWriter, r *http.Request, renderer *render.Renderer) {
	if err := renderer.RenderStatus(w, r, http.StatusNotFound, middleware.GetUser(r), componentNotFound, nil); err != nil {
		slog.Error("failed to render not found page", "error", err)
	}
}

// logAndInternalError logs an error and renders the 500 page.
func logAndInternalError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	if err := renderer.RenderStatus(w, r, http.StatusInternalServerError, middleware.GetUser(r), componentServerFailure, nil); err != nil {
		slog.Error("failed to render error page", "error", err)
	}
}

// requireEntity fetches an entity using the provided query function.
// On error, it renders the 404 or 500 page. Returns the entity and true if
// successful, or zero value and false if an error occurred (response
// already written).
func requireEntity[T any](
	w http.ResponseWriter,
	r *http.Request,
	renderer *render.Renderer,
	entityName string,
	queryFn func() (T, error),
) (T, bool) {
	var zero T
	entity, err := queryFn()
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			notFound(w, r, renderer)
		} else {
			logAndInternalError(w, r, renderer, "failed to get "+entityName, "error", err)
		}
		return zero, false
	}
	return entity, true
}
