// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/blogspace-go/internal/middleware"
)

// ChangeRoleRequest is the body of PATCH /api/admin/users/{id}.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// ListUsers handles GET /api/admin/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), middleware.GetIdentity(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, users)
}

// ChangeUserRole handles PATCH /api/admin/users/{id}.
func (h *Handler) ChangeUserRole(w http.ResponseWriter, r *http.Request) {
	var req ChangeRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.ChangeRole(r.Context(), middleware.GetIdentity(r), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, user)
}

// DeleteUser handles DELETE /api/admin/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), middleware.GetIdentity(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, "User deleted successfully")
}

// Stats handles GET /api/admin/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context(), middleware.GetIdentity(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, stats)
}

// Dashboard handles GET /api/admin/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.stats.Dashboard(r.Context(), middleware.GetIdentity(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, dashboard)
}

// AuditLog handles GET /api/admin/events?category=...&limit=...
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	entries, err := h.events.AuditLog(r.Context(), middleware.GetIdentity(r), q.Get("category"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, entries)
}
