// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// apiContentSecurityPolicy forbids loading or framing anything. The server
// only ever returns JSON.
const apiContentSecurityPolicy = "default-src 'none'; base-uri 'none'; form-action 'none'; frame-ancestors 'none'"

// SecurityHeadersConfig selects the response hardening headers. Empty
// string fields omit their header.
type SecurityHeadersConfig struct {
	// IsDevelopment disables HSTS, which would pin plain-HTTP dev hosts.
	IsDevelopment bool

	ContentSecurityPolicy string
	FrameOptions          string
	ReferrerPolicy        string
	PermissionsPolicy     string

	// HSTSMaxAge is in seconds; zero disables HSTS.
	HSTSMaxAge            int
	HSTSIncludeSubDomains bool
	HSTSPreload           bool
}

// DefaultSecurityHeadersConfig returns the headers used for the JSON API.
func DefaultSecurityHeadersConfig(isDev bool) SecurityHeadersConfig {
	return SecurityHeadersConfig{
		IsDevelopment:         isDev,
		ContentSecurityPolicy: apiContentSecurityPolicy,
		FrameOptions:          "DENY",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy: buildPermissionsPolicy(map[string]string{
			"accelerometer":   "()",
			"browsing-topics": "()",
			"camera":          "()",
			"geolocation":     "()",
			"gyroscope":       "()",
			"interest-cohort": "()",
			"magnetometer":    "()",
			"microphone":      "()",
			"payment":         "()",
			"usb":             "()",
		}),
		HSTSMaxAge:            31536000,
		HSTSIncludeSubDomains: !isDev,
	}
}

// buildPermissionsPolicy renders policies sorted by feature name.
func buildPermissionsPolicy(policies map[string]string) string {
	features := make([]string, 0, len(policies))
	for f := range policies {
		features = append(features, f)
	}
	slices.Sort(features)

	parts := make([]string, len(features))
	for i, f := range features {
		parts[i] = f + "=" + policies[f]
	}
	return strings.Join(parts, ", ")
}

// hsts renders the Strict-Transport-Security value, or "" when disabled.
func (c SecurityHeadersConfig) hsts() string {
	if c.IsDevelopment || c.HSTSMaxAge <= 0 {
		return ""
	}
	v := "max-age=" + strconv.Itoa(c.HSTSMaxAge)
	if c.HSTSIncludeSubDomains {
		v += "; includeSubDomains"
	}
	if c.HSTSPreload {
		v += "; preload"
	}
	return v
}

// headers returns the full header set for c.
func (c SecurityHeadersConfig) headers() http.Header {
	h := http.Header{}
	set := func(key, value string) {
		if value != "" {
			h.Set(key, value)
		}
	}

	set("Content-Security-Policy", c.ContentSecurityPolicy)
	set("Strict-Transport-Security", c.hsts())
	set("X-Frame-Options", c.FrameOptions)
	set("Referrer-Policy", c.ReferrerPolicy)
	set("Permissions-Policy", c.PermissionsPolicy)
	h.Set("X-Content-Type-Options", "nosniff")
	// Responses carry per-caller data, drafts included.
	h.Set("Cache-Control", "no-store")
	return h
}

// SecurityHeaders adds the configured headers to every response.
func SecurityHeaders(cfg SecurityHeadersConfig) func(http.Handler) http.Handler {
	fixed := cfg.headers()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dst := w.Header()
			for k, v := range fixed {
				dst[k] = slices.Clone(v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
