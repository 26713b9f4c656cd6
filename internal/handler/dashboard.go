// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/bkconstruct/internal/render"
	"github.com/olegiv/bkconstruct/internal/service"
)

// DashboardHandler handles the back-office dashboard.
type DashboardHandler struct {
	dashboard *service.DashboardService
	renderer  *render.Renderer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService, renderer *render.Renderer) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		renderer:  renderer,
	}
}

// DashboardPage holds the props of the dashboard.
type DashboardPage struct {
	Stats    *service.DashboardView `json:"stats"`
	Activity []service.ActivityItem `json:"activity"`
	Ranges   []service.Range        `json:"ranges"`
}

// Dashboard handles GET /admin.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	rng := service.ParseRange(r.URL.Query().Get("range"))

	stats, err := h.dashboard.Summarize(r.Context(), rng)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to summarize dashboard", "range", rng, "error", err)
		return
	}
	activity, err := h.dashboard.RecentActivity(r.Context(), service.DefaultActivityLimit)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to load recent activity", "error", err)
		return
	}

	renderPage(w, r, h.renderer, componentDashboard, DashboardPage{
		Stats:    stats,
		Activity: activity,
		Ranges:   []service.Range{service.Range7d, service.Range30d, service.Range90d, service.RangeAll},
	})
}
