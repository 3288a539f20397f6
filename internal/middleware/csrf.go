// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"

	"filippo.io/csrf/gorilla"

	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/service"
)

// CSRFConfig configures cross-site request protection for cookie sessions.
// filippo.io/csrf decides from Fetch metadata and Origin headers, so there
// is no token cookie to configure.
type CSRFConfig struct {
	// AuthKey is accepted for API compatibility with gorilla/csrf.
	AuthKey []byte

	// TrustedOrigins lists host:port values allowed to send cross-origin
	// writes, for a frontend served from another origin.
	TrustedOrigins []string

	// ErrorHandler replaces the JSON 403 response.
	ErrorHandler http.Handler

	// Events records rejected requests in the auth category; may be nil.
	Events *service.EventService
}

// DefaultCSRFConfig trusts the local dev server origins in development and
// nothing else.
func DefaultCSRFConfig(authKey []byte, isDev bool) CSRFConfig {
	cfg := CSRFConfig{AuthKey: authKey}
	if isDev {
		cfg.TrustedOrigins = []string{"localhost:8080", "127.0.0.1:8080"}
	}
	return cfg
}

// CSRF rejects cross-site state-changing requests. Safe methods always pass.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	onFail := cfg.ErrorHandler
	if onFail == nil {
		onFail = csrfRejected(cfg.Events)
	}

	opts := []csrf.Option{csrf.ErrorHandler(onFail)}
	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}
	return csrf.Protect(cfg.AuthKey, opts...)
}

// csrfRejected logs and audits a failed check, then writes a JSON 403.
func csrfRejected(events *service.EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reason := "unknown"
		if err := csrf.FailureReason(r); err != nil {
			reason = err.Error()
		}

		slog.Warn("cross-site request rejected",
			"reason", reason,
			"method", r.Method,
			"path", r.URL.Path,
			"origin", r.Header.Get("Origin"),
			"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
		)

		var userID string
		if id := GetIdentity(r); id != nil {
			userID = id.UserID
		}
		_ = events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Cross-site request rejected", userID,
			map[string]any{
				"method": r.Method,
				"reason": reason,
				"origin": r.Header.Get("Origin"),
			})

		WriteAPIError(w, http.StatusForbidden, "csrf_failed", "Forbidden - CSRF validation failed", nil)
	}
}

// SkipCSRFForBearer exempts bearer-token requests from CSRF checks.
// Browsers never attach that header on their own. Must run before CSRF.
func SkipCSRFForBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := BearerToken(r); ok {
			r = csrf.UnsafeSkipCheck(r)
		}
		next.ServeHTTP(w, r)
	})
}
