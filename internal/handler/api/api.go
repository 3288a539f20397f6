// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON API handlers for BlogSpace.
//
// Every success body is wrapped as {"data": ...}, including article lists
// and single articles, and every failure as {"error": {"code", "message"}}.
// Clients that expect a bare array or object must read the data field.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/blogspace-go/internal/auth"
	"github.com/olegiv/blogspace-go/internal/middleware"
	"github.com/olegiv/blogspace-go/internal/service"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	articles *service.ArticleService
	users    *service.UserService
	stats    *service.StatsService
	events   *service.EventService
	sessions *scs.SessionManager
	tokens   *auth.TokenManager
	login    *middleware.LoginProtection
}

// Config holds the dependencies passed to NewHandler. Cache, Events and
// LoginProtection may be nil.
type Config struct {
	DB              *sql.DB
	Cache           service.ArticleCache
	Events          *service.EventService
	Sessions        *scs.SessionManager
	Tokens          *auth.TokenManager
	LoginProtection *middleware.LoginProtection
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		articles: service.NewArticleService(cfg.DB, cfg.Cache, cfg.Events),
		users:    service.NewUserService(cfg.DB, cfg.Cache, cfg.Events),
		stats:    service.NewStatsService(cfg.DB),
		events:   cfg.Events,
		sessions: cfg.Sessions,
		tokens:   cfg.Tokens,
		login:    cfg.LoginProtection,
	}
}

// Response is the standard API response wrapper. Data holds the entity,
// list or message; it is never omitted.
type Response struct {
	Data any `json:"data"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// MessageResponse is returned by operations that have no entity to show.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 response wrapping data.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{Data: data})
}

// WriteCreated writes a 201 Created response wrapping data.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteMessage writes a 200 response carrying only a message.
func WriteMessage(w http.ResponseWriter, message string) {
	WriteSuccess(w, MessageResponse{Message: message})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
}

// errorStatus maps a service error kind to its HTTP status and code.
// Conflicts are reported as 400 like other input errors.
func errorStatus(k service.Kind) (int, string) {
	switch k {
	case service.KindUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case service.KindForbidden:
		return http.StatusForbidden, "forbidden"
	case service.KindInvalidInput:
		return http.StatusBadRequest, "bad_request"
	case service.KindConflict:
		return http.StatusBadRequest, "conflict"
	case service.KindNotFound:
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError writes err as an API error. Internal errors are logged
// with their cause and reported with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if !errors.As(err, &se) || se.Kind == service.KindInternal {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteInternalError(w)
		return
	}

	status, code := errorStatus(se.Kind)
	WriteError(w, status, code, se.Message, nil)
}

// decodeJSON decodes the request body into dst. It writes a 400 response
// and returns false when the body is missing or malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			WriteBadRequest(w, "Request body is required")
		} else {
			WriteBadRequest(w, "Invalid JSON body")
		}
		return false
	}
	return true
}
