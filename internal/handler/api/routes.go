// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/blogspace-go/internal/middleware"
	"github.com/olegiv/blogspace-go/internal/service"
)

// Route paths.
const (
	RouteRegister  = "/register"
	RouteLogin     = "/auth/login"
	RouteLogout    = "/auth/logout"
	RouteSession   = "/auth/session"
	RouteToken     = "/auth/token"
	RouteArticles  = "/articles"
	RouteArticle   = "/articles/{slug}"
	RouteStats     = "/admin/stats"
	RouteDashboard = "/admin/dashboard"
	RouteUsers     = "/admin/users"
	RouteUser      = "/admin/users/{id}"
	RouteEvents    = "/admin/events"
)

// RouteConfig holds the middleware settings for Routes.
type RouteConfig struct {
	// Events receives access-denied audit events; may be nil.
	Events *service.EventService

	// LoginProtection rate-limits credential endpoints by IP; may be nil.
	LoginProtection *middleware.LoginProtection

	// RegisterRPS and RegisterBurst limit registrations per client IP.
	// Zero disables the limit.
	RegisterRPS   float64
	RegisterBurst int
}

// Routes registers the API on r, which is expected to be mounted at /api
// behind the Identify middleware.
func Routes(r chi.Router, h *Handler, rc RouteConfig) {
	requireAdmin := middleware.RequireAdmin(rc.Events)
	requireSuperAdmin := middleware.RequireSuperAdmin(rc.Events)

	r.Group(func(r chi.Router) {
		if rc.RegisterRPS > 0 {
			r.Use(middleware.IPRateLimit(rc.RegisterRPS, rc.RegisterBurst))
		}
		r.Post(RouteRegister, h.Register)
	})

	r.Group(func(r chi.Router) {
		if rc.LoginProtection != nil {
			r.Use(rc.LoginProtection.Middleware())
		}
		r.Post(RouteLogin, h.Login)
		r.Post(RouteToken, h.Token)
	})

	r.Post(RouteLogout, h.Logout)
	r.With(middleware.RequireAuth).Get(RouteSession, h.Session)

	// Public reads; drafts are filtered by the service per caller.
	r.Get(RouteArticles, h.ListArticles)
	r.Get(RouteArticle, h.GetArticle)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post(RouteArticles, h.CreateArticle)
			r.Put(RouteArticle, h.UpdateArticle)
			r.Delete(RouteArticle, h.DeleteArticle)

			r.Get(RouteStats, h.Stats)
			r.Get(RouteDashboard, h.Dashboard)
			r.Get(RouteUsers, h.ListUsers)
			r.Get(RouteEvents, h.AuditLog)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSuperAdmin)
			r.Patch(RouteUser, h.ChangeUserRole)
			r.Delete(RouteUser, h.DeleteUser)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})
}
