// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/bkconstruct/internal/cache"
	"github.com/olegiv/bkconstruct/internal/markup"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/render"
	"github.com/olegiv/bkconstruct/internal/service"
)

// Public listing sizes.
const (
	homeHeroProjects = 6
	homeGridProjects = 9
	homePosts        = 6
	projectsPerPage  = 9
	relatedProjects  = 6
	morePosts        = 6
	agendaEvents     = 12
)

// homeCacheKey holds the home page payload in the page cache.
const homeCacheKey = "home"

// ContactInfo holds the public contact details.
type ContactInfo struct {
	PhoneDisplay string `json:"phone_display"`
	PhoneHref    string `json:"phone_href"`
	WhatsAppHref string `json:"whatsapp_href"`
	Email        string `json:"email"`
	City         string `json:"city"`
	Hours        string `json:"hours"`
}

// NewContactInfo derives the tel: and WhatsApp links from a display number.
func NewContactInfo(phone, email, city, hours string) ContactInfo {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	info := ContactInfo{PhoneDisplay: phone, Email: email, City: city, Hours: hours}
	if digits != "" {
		info.PhoneHref = "tel:+" + digits
		info.WhatsAppHref = "https://wa.me/" + digits
	}
	return info
}

// FrontendHandler handles the public site. Drafts are never visible.
type FrontendHandler struct {
	content  *service.ContentService
	renderer *render.Renderer
	contact  ContactInfo
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewFrontendHandler creates a new FrontendHandler.
func NewFrontendHandler(content *service.ContentService, renderer *render.Renderer, contact ContactInfo) *FrontendHandler {
	return &FrontendHandler{
		content:  content,
		renderer: renderer,
		contact:  contact,
	}
}

// UseCache serves the home page from c for up to ttl. The cache must be
// cleared whenever published content changes.
func (h *FrontendHandler) UseCache(c cache.Cache, ttl time.Duration) {
	h.cache = c
	h.cacheTTL = ttl
}

// HomePage holds the props of the home page.
type HomePage struct {
	Hero  []model.Project `json:"hero"`
	Grid  []model.Project `json:"grid"`
	Posts []model.Post    `json:"posts"`
}

// Home handles GET /.
func (h *FrontendHandler) Home(w http.ResponseWriter, r *http.Request) {
	// Cached as encoded props; the model types only marshal one way
	var cached json.RawMessage
	if h.cache != nil && cache.GetJSON(r.Context(), h.cache, homeCacheKey, &cached) {
		renderPage(w, r, h.renderer, componentHome, cached)
		return
	}

	projects, err := h.content.ListProjects(r.Context(), model.StatusPublished, 1, homeHeroProjects+homeGridProjects)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to list home projects", "error", err)
		return
	}
	posts, err := h.content.ListPosts(r.Context(), model.StatusPublished, 1, homePosts)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to list home posts", "error", err)
		return
	}

	page := HomePage{Hero: []model.Project{}, Grid: []model.Project{}, Posts: posts.Items}
	for i, p := range projects.Items {
		if i < homeHeroProjects {
			page.Hero = append(page.Hero, p)
		} else {
			page.Grid = append(page.Grid, p)
		}
	}
	if h.cache != nil {
		cache.SetJSON(r.Context(), h.cache, homeCacheKey, page, h.cacheTTL)
	}
	renderPage(w, r, h.renderer, componentHome, page)
}

// Projects handles GET /projects.
func (h *FrontendHandler) Projects(w http.ResponseWriter, r *http.Request) {
	listing, err := h.content.ListProjects(r.Context(), model.StatusPublished, ParsePage(r), projectsPerPage)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to list projects", "error", err)
		return
	}
	renderPage(w, r, h.renderer, componentProjects, map[string]any{"projects": listing})
}

// Project handles GET /projects/{slug}. Numeric ids are accepted too.
func (h *FrontendHandler) Project(w http.ResponseWriter, r *http.Request) {
	p, ok := requireEntity(w, r, h.renderer, "project", func() (model.Project, error) {
		return h.content.PublishedProject(r.Context(), chi.URLParam(r, "slug"))
	})
	if !ok {
		return
	}
	related, err := h.content.RelatedProjects(r.Context(), p, relatedProjects)
	if err != nil {
		slog.Warn("failed to load related projects", "project_id", p.ID, "error", err)
		related = []model.Project{}
	}
	renderPage(w, r, h.renderer, componentProject, map[string]any{
		"item":      p,
		"body_html": h.bodyHTML("project", p.ID, p.Body),
		"related":   related,
	})
}

// Posts handles GET /posts.
func (h *FrontendHandler) Posts(w http.ResponseWriter, r *http.Request) {
	listing, err := h.content.ListPosts(r.Context(), model.StatusPublished, ParsePage(r), service.ContentPerPage)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to list posts", "error", err)
		return
	}
	renderPage(w, r, h.renderer, componentPosts, map[string]any{"posts": listing})
}

// Post handles GET /posts/{slug}. Numeric ids are accepted too.
func (h *FrontendHandler) Post(w http.ResponseWriter, r *http.Request) {
	p, ok := requireEntity(w, r, h.renderer, "post", func() (model.Post, error) {
		return h.content.PublishedPost(r.Context(), chi.URLParam(r, "slug"))
	})
	if !ok {
		return
	}
	more, err := h.content.OtherPosts(r.Context(), p.ID, morePosts)
	if err != nil {
		slog.Warn("failed to load more posts", "post_id", p.ID, "error", err)
		more = []model.Post{}
	}
	renderPage(w, r, h.renderer, componentPost, map[string]any{
		"item":      p,
		"body_html": h.bodyHTML("post", p.ID, p.Body),
		"more":      more,
	})
}

// Events handles GET /events.
func (h *FrontendHandler) Events(w http.ResponseWriter, r *http.Request) {
	upcoming, past, err := h.content.EventAgenda(r.Context(), agendaEvents)
	if err != nil {
		logAndInternalError(w, r, h.renderer, "failed to list events", "error", err)
		return
	}
	renderPage(w, r, h.renderer, componentEvents, map[string]any{
		"upcoming": upcoming,
		"past":     past,
	})
}

// Event handles GET /events/{slug}.
func (h *FrontendHandler) Event(w http.ResponseWriter, r *http.Request) {
	e, ok := requireEntity(w, r, h.renderer, "event", func() (model.Event, error) {
		return h.content.PublishedEvent(r.Context(), chi.URLParam(r, "slug"))
	})
	if !ok {
		return
	}
	renderPage(w, r, h.renderer, componentEvent, map[string]any{
		"item":      e,
		"body_html": h.bodyHTML("event", e.ID, e.Body),
		"upcoming":  e.IsUpcoming(time.Now()),
	})
}

// Contact handles GET /contact-info.
func (h *FrontendHandler) Contact(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, componentContactInfo, map[string]any{"contact": h.contact})
}

// NotFound renders the 404 page for unmatched routes.
func (h *FrontendHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	notFound(w, r, h.renderer)
}

func (h *FrontendHandler) bodyHTML(kind string, id int64, body string) string {
	html, err := markup.Render(body)
	if err != nil {
		slog.Warn("failed to render body", "kind", kind, "id", id, "error", err)
		return ""
	}
	return html
}
