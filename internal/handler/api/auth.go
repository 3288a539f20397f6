// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/blogspace-go/internal/middleware"
	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/service"
	"github.com/olegiv/blogspace-go/internal/store"
)

// LoginRequest is the body of the login and token endpoints.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /api/auth/token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionResponse describes the caller's identity.
type SessionResponse struct {
	UserID string     `json:"userId"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

// Register handles POST /api/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, user)
}

// Login handles POST /api/auth/login and starts a cookie session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	// Renew the token to prevent session fixation
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		slog.Error("failed to renew session token", "error", err)
		WriteInternalError(w)
		return
	}
	h.sessions.Put(r.Context(), middleware.SessionKeyUserID, user.ID)
	h.sessions.Put(r.Context(), middleware.SessionKeyEmail, user.Email)
	h.sessions.Put(r.Context(), middleware.SessionKeyRole, user.Role)

	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	WriteSuccess(w, userFromStore(user))
}

// Token handles POST /api/auth/token and issues a bearer token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil {
		WriteError(w, http.StatusNotFound, "not_found", "Token issuance is disabled", nil)
		return
	}

	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID, user.Email, string(model.NormalizeRole(user.Role)))
	if err != nil {
		slog.Error("failed to issue token", "user_id", user.ID, "error", err)
		WriteInternalError(w)
		return
	}
	WriteSuccess(w, TokenResponse{Token: token, ExpiresAt: expiresAt})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := middleware.GetIdentity(r); id != nil {
		slog.Info("user logged out", "user_id", id.UserID)
	}
	if err := h.sessions.Destroy(r.Context()); err != nil {
		slog.Error("failed to destroy session", "error", err)
		WriteInternalError(w)
		return
	}
	WriteMessage(w, "Logged out")
}

// Session handles GET /api/auth/session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r)
	if id == nil {
		WriteUnauthorized(w, service.MsgUnauthorized)
		return
	}
	WriteSuccess(w, SessionResponse{UserID: id.UserID, Email: id.Email, Role: id.Role})
}

// authenticate decodes credentials and checks them, applying account
// lockout. It writes the error response itself and returns false on failure.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (store.User, bool) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return store.User{}, false
	}

	if h.login != nil {
		if locked, remaining := h.login.IsAccountLocked(req.Email); locked {
			_ = h.events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login attempt on locked account", "",
				map[string]any{"email": req.Email})
			writeLocked(w, remaining)
			return store.User{}, false
		}
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.login != nil && service.IsKind(err, service.KindUnauthorized) {
			if locked, lockDuration := h.login.RecordFailedAttempt(req.Email); locked {
				writeLocked(w, lockDuration)
				return store.User{}, false
			}
		}
		writeServiceError(w, r, err)
		return store.User{}, false
	}

	if h.login != nil {
		h.login.RecordSuccessfulLogin(req.Email)
	}
	return user, true
}

func writeLocked(w http.ResponseWriter, d time.Duration) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(d.Seconds())+1))
	WriteError(w, http.StatusTooManyRequests, "account_locked",
		"Too many failed attempts. Try again in "+formatDuration(d), nil)
}

// formatDuration formats a lockout duration for humans.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%d hour(s)", int(d.Hours()))
	case d >= time.Minute:
		return fmt.Sprintf("%d minute(s)", int(d.Minutes()))
	default:
		return fmt.Sprintf("%d second(s)", int(d.Seconds()))
	}
}

func userFromStore(u store.User) SessionResponse {
	return SessionResponse{UserID: u.ID, Email: u.Email, Role: model.NormalizeRole(u.Role)}
}
