// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/blogspace-go/internal/auth"
	"github.com/olegiv/blogspace-go/internal/logging"
	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/service"
	"github.com/olegiv/blogspace-go/internal/util"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyIdentity holds the *model.Identity of the caller.
const ContextKeyIdentity ContextKey = "identity"

// Session keys for the signed-in user.
const (
	SessionKeyUserID = "user_id"
	SessionKeyEmail  = "email"
	SessionKeyRole   = "role"
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, id)
}

// IdentityFrom returns the caller identity stored in ctx, or nil.
func IdentityFrom(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(ContextKeyIdentity).(*model.Identity)
	return id
}

// GetIdentity retrieves the caller identity from the request context.
// Returns nil for anonymous requests.
func GetIdentity(r *http.Request) *model.Identity {
	return IdentityFrom(r.Context())
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Identify resolves the caller from a bearer token or, failing that, from
// the session and stores it in the request context. Requests without
// credentials pass through anonymously. A bearer token that does not
// validate is rejected with 401 rather than silently ignored.
func Identify(sm *scs.SessionManager, tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, ok := BearerToken(r); ok && tokens != nil {
				claims, err := tokens.Parse(raw)
				if err != nil {
					slog.Debug("bearer token rejected", "error", err, "path", r.URL.Path)
					WriteAPIError(w, http.StatusUnauthorized, "unauthorized", service.MsgUnauthorized, nil)
					return
				}
				id := &model.Identity{
					UserID: claims.Subject,
					Email:  claims.Email,
					Role:   model.NormalizeRole(claims.Role),
				}
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
				return
			}

			if sm != nil {
				ctx := r.Context()
				if userID := sm.GetString(ctx, SessionKeyUserID); userID != "" {
					id := &model.Identity{
						UserID: userID,
						Email:  sm.GetString(ctx, SessionKeyEmail),
						Role:   model.NormalizeRole(sm.GetString(ctx, SessionKeyRole)),
					}
					r = r.WithContext(WithIdentity(ctx, id))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetIdentity(r) == nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", service.MsgUnauthorized, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole creates middleware that requires a minimum role claim.
// Roles are hierarchical: superadmin > admin > user.
// If eventService is provided, 403 responses are also recorded as auth events.
func RequireRole(minRole model.Role, eventService *service.EventService) func(http.Handler) http.Handler {
	message := service.MsgForbidden
	if minRole == model.RoleSuperAdmin {
		message = service.MsgSuperAdminRequired
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetIdentity(r)
			if id == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", service.MsgUnauthorized, nil)
				return
			}

			if id.Role.Level() < minRole.Level() {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", id.UserID,
					"user_role", string(id.Role),
					"required_role", string(minRole),
					"remote_addr", r.RemoteAddr,
				)

				_ = eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
					"Access denied: insufficient permissions", id.UserID, map[string]any{
						"method":        r.Method,
						"status":        http.StatusForbidden,
						"user_role":     string(id.Role),
						"required_role": string(minRole),
					})

				WriteAPIError(w, http.StatusForbidden, "forbidden", message, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin requires the admin or superadmin role.
func RequireAdmin(eventService *service.EventService) func(http.Handler) http.Handler {
	return RequireRole(model.RoleAdmin, eventService)
}

// RequireSuperAdmin requires the superadmin role.
func RequireSuperAdmin(eventService *service.EventService) func(http.Handler) http.Handler {
	return RequireRole(model.RoleSuperAdmin, eventService)
}

// RequestPath stores the client IP and request path in the context.
// The event log handler and EventService read them back.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestInfo(r.Context(), logging.RequestInfo{
			IP:   util.ClientIP(r),
			Path: r.URL.Path,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
