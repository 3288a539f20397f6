// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/blogspace-go/internal/middleware"
	"github.com/olegiv/blogspace-go/internal/service"
)

// ListArticles handles GET /api/articles.
// ?all=true includes drafts for admin callers and is ignored for everyone else.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	articles, err := h.articles.List(r.Context(), middleware.GetIdentity(r), all)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, articles)
}

// GetArticle handles GET /api/articles/{slug}.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Get(r.Context(), middleware.GetIdentity(r), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, article)
}

// CreateArticle handles POST /api/articles.
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var in service.CreateArticleInput
	if !decodeJSON(w, r, &in) {
		return
	}

	article, err := h.articles.Create(r.Context(), middleware.GetIdentity(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, article)
}

// UpdateArticle handles PUT /api/articles/{slug}. Absent fields keep their
// stored values.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateArticleInput
	if !decodeJSON(w, r, &in) {
		return
	}

	article, err := h.articles.Update(r.Context(), middleware.GetIdentity(r), chi.URLParam(r, "slug"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, article)
}

// DeleteArticle handles DELETE /api/articles/{slug}.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := h.articles.Delete(r.Context(), middleware.GetIdentity(r), chi.URLParam(r, "slug")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, "Article deleted successfully")
}
