// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteSuffixNew is the suffix for "new" routes.
	RouteSuffixNew = "/new"
	// RouteSuffixEdit is the suffix for edit routes.
	RouteSuffixEdit = "/edit"
	// RouteSuffixDelete is the suffix for delete routes.
	RouteSuffixDelete = "/delete"
	// RouteSuffixStatus is the suffix for lead status routes.
	RouteSuffixStatus = "/status"
	// RouteSuffixFile is the suffix for lead attachment downloads.
	RouteSuffixFile = "/files/{index}"

	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteParamSlug is the slug parameter pattern.
	RouteParamSlug = "/{slug}"

	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteVerifyEmail is the email verification link target.
	RouteVerifyEmail = "/email/verify"

	// RouteAdmin is the back-office prefix.
	RouteAdmin = "/admin"
	// RouteProjects is the projects route.
	RouteProjects = "/projects"
	// RoutePosts is the posts route.
	RoutePosts = "/posts"
	// RouteEvents is the events route.
	RouteEvents = "/events"
	// RouteQuotes is the quotes admin route.
	RouteQuotes = "/quotes"
	// RouteTenders is the tenders admin route.
	RouteTenders = "/tenders"
	// RouteContacts is the contact messages admin route.
	RouteContacts = "/contacts"
	// RouteContactInfo is the public contact details page.
	RouteContactInfo = "/contact-info"

	// RouteAccount is the account prefix.
	RouteAccount = "/account"
	// RouteSecurity is the account security page.
	RouteSecurity = "/security"

	// RouteStorage is the public file prefix of the disk driver.
	RouteStorage = "/storage"
	// RouteHealth is the health check route.
	RouteHealth = "/health"
	// RouteMetrics is the Prometheus scrape route.
	RouteMetrics = "/metrics"
	// RouteAPIv1 is the read-only API prefix.
	RouteAPIv1 = "/api/v1"
)

// Redirect targets.
const (
	redirectAdmin         = RouteAdmin
	redirectLogin         = RouteLogin
	redirectSecurity      = RouteAccount + RouteSecurity
	redirectAdminProjects = RouteAdmin + RouteProjects
	redirectAdminPosts    = RouteAdmin + RoutePosts
	redirectAdminEvents   = RouteAdmin + RouteEvents
)

// Page components rendered by the front end.
const (
	componentLogin         = "Auth/Login"
	componentSecurity      = "Account/Security"
	componentDashboard     = "Admin/Dashboard"
	componentProjectIndex  = "Admin/Projects/Index"
	componentProjectForm   = "Admin/Projects/Form"
	componentPostIndex     = "Admin/Posts/Index"
	componentPostForm      = "Admin/Posts/Form"
	componentEventIndex    = "Admin/Events/Index"
	componentEventForm     = "Admin/Events/Form"
	componentLeadIndex     = "Admin/Leads/Index"
	componentLeadShow      = "Admin/Leads/Show"
	componentHome          = "Site/Home"
	componentProjects      = "Site/Projects/Index"
	componentProject       = "Site/Projects/Show"
	componentPosts         = "Site/Posts/Index"
	componentPost          = "Site/Posts/Show"
	componentEvents        = "Site/Events/Index"
	componentEvent         = "Site/Events/Show"
	componentContactInfo   = "Site/ContactInfo"
	componentNotFound      = "Errors/NotFound"
	componentServerFailure = "Errors/ServerError"
)
