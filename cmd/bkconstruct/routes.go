// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/bkconstruct/internal/cache"
	"github.com/olegiv/bkconstruct/internal/config"
	"github.com/olegiv/bkconstruct/internal/handler"
	"github.com/olegiv/bkconstruct/internal/handler/api"
	"github.com/olegiv/bkconstruct/internal/metrics"
	"github.com/olegiv/bkconstruct/internal/middleware"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/rbac"
	"github.com/olegiv/bkconstruct/internal/render"
	"github.com/olegiv/bkconstruct/internal/service"
	"github.com/olegiv/bkconstruct/internal/session"
	"github.com/olegiv/bkconstruct/internal/storage"
)

// API rate limit per token owner.
const (
	apiRateLimit = 10 // requests per second
	apiBurst     = 20
)

type services struct {
	access    *service.AccessService
	audit     *service.AuditLog
	content   *service.ContentService
	intake    *service.IntakeService
	leads     *service.LeadService
	dashboard *service.DashboardService
}

type routerDeps struct {
	cfg             *config.Config
	db              *sql.DB
	sm              *scs.SessionManager
	tracker         *session.Tracker
	storage         storage.Storage
	storageDir      string
	services        services
	renderer        *render.Renderer
	pages           cache.Cache
	loginProtection *middleware.LoginProtection
	version         string
}

// crudHandlers defines the standard CRUD handler methods.
type crudHandlers struct {
	List     http.HandlerFunc
	NewForm  http.HandlerFunc
	Create   http.HandlerFunc
	EditForm http.HandlerFunc
	Update   http.HandlerFunc
	Delete   http.HandlerFunc
}

// registerCRUD registers standard CRUD routes for a resource.
// Routes: GET /, GET /new, POST /, GET /{id}/edit, PUT /{id}, POST /{id}, POST /{id}/delete, DELETE /{id}
func registerCRUD(r chi.Router, h crudHandlers) {
	r.Get(handler.RouteRoot, h.List)
	r.Get(handler.RouteSuffixNew, h.NewForm)
	r.Post(handler.RouteRoot, h.Create)
	r.Get(handler.RouteParamID+handler.RouteSuffixEdit, h.EditForm)
	r.Put(handler.RouteParamID, h.Update)
	r.Post(handler.RouteParamID, h.Update) // HTML forms can't send PUT
	r.Post(handler.RouteParamID+handler.RouteSuffixDelete, h.Delete)
	r.Delete(handler.RouteParamID, h.Delete)
}

// leadPermissions guards the back-office routes of one lead kind.
type leadPermissions struct {
	view, manage string
}

var leadRoutes = []struct {
	route string
	kind  string
	perms leadPermissions
}{
	{handler.RouteQuotes, model.LeadKindQuote, leadPermissions{rbac.QuotesView, rbac.QuotesManage}},
	{handler.RouteTenders, model.LeadKindTender, leadPermissions{rbac.RFPsView, rbac.RFPsManage}},
	{handler.RouteContacts, model.LeadKindContact, leadPermissions{rbac.ClientsView, rbac.ClientsManage}},
}

func newLoginProtection(ctx context.Context) *middleware.LoginProtection {
	lp := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	go lp.Run(ctx, 10*time.Minute)
	return lp
}

func newRouter(d routerDeps) chi.Router {
	cfg := d.cfg
	svc := d.services

	authH := handler.NewAuthHandler(svc.access, svc.audit, d.renderer, d.sm)
	accountH := handler.NewAccountHandler(svc.access, d.tracker, d.renderer, d.sm)
	dashboardH := handler.NewDashboardHandler(svc.dashboard, d.renderer)
	projectsH := handler.NewProjectsHandler(svc.content, d.renderer)
	postsH := handler.NewPostsHandler(svc.content, d.renderer)
	eventsH := handler.NewEventsHandler(svc.content, d.renderer)
	leadsH := handler.NewLeadsHandler(svc.leads, d.renderer)
	formsH := handler.NewFormsHandler(svc.intake, d.renderer)
	frontendH := handler.NewFrontendHandler(svc.content, d.renderer,
		handler.NewContactInfo(cfg.ContactPhone, cfg.ContactEmail, cfg.ContactCity, cfg.ContactHours))
	if d.pages != nil {
		frontendH.UseCache(d.pages, cfg.PageCacheTTL)
	}
	healthH := handler.NewHealthHandler(d.db, d.storage, d.storageDir, d.version)
	apiH := api.NewHandler(svc.content, svc.leads, svc.dashboard)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestPath)
	r.Use(requestLogger())
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(chimw.StripSlashes)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	if cfg.MetricsEnabled {
		r.Use(metrics.Middleware)
	}

	// Health checks and scraping bypass sessions
	r.Get(handler.RouteHealth+"/live", healthH.Liveness)
	r.Get(handler.RouteHealth+"/ready", healthH.Readiness)
	if cfg.MetricsEnabled {
		r.Handle(handler.RouteMetrics, metrics.Handler())
	}

	// Read-only API authenticated by bearer token
	r.Route(handler.RouteAPIv1, func(r chi.Router) {
		r.Use(middleware.APITokenAuth(svc.access))
		r.Use(middleware.APIRateLimit(apiRateLimit, apiBurst))
		apiH.Routes(r)
	})

	// Browser routes
	r.Group(func(r chi.Router) {
		r.Use(d.sm.LoadAndSave)
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())))
		r.Use(middleware.LimitBody(maxRequestBody))
		r.Use(middleware.FormToken(d.sm))
		r.Use(middleware.OptionalLoadUser(d.sm, svc.access))
		r.Use(middleware.TrackActivity(d.sm, d.tracker))

		r.Get(handler.RouteHealth, healthH.Health)

		// Authentication
		r.With(middleware.Guest(d.sm, handler.RouteAdmin)).Get(handler.RouteLogin, authH.LoginForm)
		r.With(d.loginProtection.Middleware()).Post(handler.RouteLogin, authH.Login)
		r.Post(handler.RouteLogout, authH.Logout)
		r.Get(handler.RouteVerifyEmail, authH.VerifyEmail)

		// Public site
		mount(r, handler.RouteRoot, frontendH.Home)
		mount(r, handler.RouteProjects, frontendH.Projects)
		mount(r, handler.RouteProjects+handler.RouteParamSlug, frontendH.Project)
		mount(r, handler.RoutePosts, frontendH.Posts)
		mount(r, handler.RoutePosts+handler.RouteParamSlug, frontendH.Post)
		mount(r, handler.RouteEvents, frontendH.Events)
		mount(r, handler.RouteEvents+handler.RouteParamSlug, frontendH.Event)
		mount(r, handler.RouteContactInfo, frontendH.Contact)

		// Public forms
		r.Group(func(r chi.Router) {
			r.Use(middleware.FormRateLimit(cfg.FormRateLimit))
			r.Post("/contact", formsH.Contact)
			r.Post("/quote", formsH.Quote)
			r.Post("/tender", formsH.Tender)
		})

		// Public files of the disk driver; object storage serves its own
		if !cfg.UseMinIO() {
			mount(r, handler.RouteStorage+"/*", handler.NewFilesHandler(d.storage).Serve)
		}

		// Account
		r.Route(handler.RouteAccount, func(r chi.Router) {
			r.Use(middleware.Auth(d.sm))
			r.Use(middleware.LoadUser(d.sm, svc.access))
			r.Get(handler.RouteSecurity, accountH.Security)
			r.Post("/password", accountH.UpdatePassword)
			r.Post("/email", accountH.UpdateEmail)
			r.Post("/email/resend", accountH.ResendVerification)
			r.Post("/sessions/logout-others", accountH.LogoutOthers)
			r.Post("/sessions/{session}/delete", accountH.RevokeSession)
			r.Post("/tokens", accountH.CreateToken)
			r.Post("/tokens/{id}/delete", accountH.DeleteToken)
		})

		// Back office
		r.Route(handler.RouteAdmin, func(r chi.Router) {
			r.Use(middleware.Auth(d.sm))
			r.Use(middleware.LoadUser(d.sm, svc.access))
			r.Use(middleware.RequirePermission(rbac.AccessAdmin))

			r.With(middleware.RequirePermission(rbac.ReportsView)).Get(handler.RouteRoot, dashboardH.Dashboard)

			r.Route(handler.RouteProjects, func(r chi.Router) {
				view := middleware.RequirePermission(rbac.ProjectsView)
				create := middleware.RequirePermission(rbac.ProjectsCreate)
				edit := middleware.RequirePermission(rbac.ProjectsEdit)
				del := middleware.RequirePermission(rbac.ProjectsDelete)
				registerCRUD(r, crudHandlers{
					List:     view(http.HandlerFunc(projectsH.List)).ServeHTTP,
					NewForm:  create(http.HandlerFunc(projectsH.NewForm)).ServeHTTP,
					Create:   create(http.HandlerFunc(projectsH.Create)).ServeHTTP,
					EditForm: edit(http.HandlerFunc(projectsH.EditForm)).ServeHTTP,
					Update:   edit(http.HandlerFunc(projectsH.Update)).ServeHTTP,
					Delete:   del(http.HandlerFunc(projectsH.Delete)).ServeHTTP,
				})
			})

			r.Route(handler.RoutePosts, func(r chi.Router) {
				r.Use(middleware.RequirePermission(rbac.CMSManage))
				registerCRUD(r, crudHandlers{
					List:     postsH.List,
					NewForm:  postsH.NewForm,
					Create:   postsH.Create,
					EditForm: postsH.EditForm,
					Update:   postsH.Update,
					Delete:   postsH.Delete,
				})
			})

			r.Route(handler.RouteEvents, func(r chi.Router) {
				r.Use(middleware.RequirePermission(rbac.CMSManage))
				registerCRUD(r, crudHandlers{
					List:     eventsH.List,
					NewForm:  eventsH.NewForm,
					Create:   eventsH.Create,
					EditForm: eventsH.EditForm,
					Update:   eventsH.Update,
					Delete:   eventsH.Delete,
				})
			})

			for _, lr := range leadRoutes {
				r.Route(lr.route, func(r chi.Router) {
					view := r.With(middleware.RequirePermission(lr.perms.view))
					view.Get(handler.RouteRoot, leadsH.List(lr.kind))
					view.Get(handler.RouteParamID, leadsH.Show(lr.kind))
					view.Get(handler.RouteParamID+handler.RouteSuffixFile, leadsH.File(lr.kind))

					manage := r.With(middleware.RequirePermission(lr.perms.manage))
					manage.Post(handler.RouteParamID+handler.RouteSuffixStatus, leadsH.SetStatus(lr.kind))
					manage.Post(handler.RouteParamID+handler.RouteSuffixDelete, leadsH.Delete(lr.kind))
				})
			}
		})

		r.NotFound(frontendH.NotFound)
	})

	return r
}
