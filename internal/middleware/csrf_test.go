// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/service"
	"github.com/olegiv/blogspace-go/internal/testutil"
)

var testCSRFKey = []byte("12345678901234567890123456789012")

func TestDefaultCSRFConfig_Development(t *testing.T) {
	cfg := DefaultCSRFConfig(testCSRFKey, true)

	if len(cfg.AuthKey) != 32 {
		t.Errorf("expected 32-byte AuthKey, got %d bytes", len(cfg.AuthKey))
	}

	expectedOrigins := map[string]bool{
		"localhost:8080": true,
		"127.0.0.1:8080": true,
	}
	if len(cfg.TrustedOrigins) != len(expectedOrigins) {
		t.Fatalf("expected %d TrustedOrigins in dev mode, got %d", len(expectedOrigins), len(cfg.TrustedOrigins))
	}
	for _, origin := range cfg.TrustedOrigins {
		if !expectedOrigins[origin] {
			t.Errorf("unexpected TrustedOrigin: %s", origin)
		}
		// the csrf library expects host:port, not full URLs
		if strings.HasPrefix(origin, "http") {
			t.Errorf("TrustedOrigin should be host:port, not full URL: %s", origin)
		}
	}
}

func TestDefaultCSRFConfig_Production(t *testing.T) {
	cfg := DefaultCSRFConfig(testCSRFKey, false)

	if len(cfg.TrustedOrigins) != 0 {
		t.Errorf("expected no TrustedOrigins in production, got %d", len(cfg.TrustedOrigins))
	}
}

func csrfTestHandler() http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return SkipCSRFForBearer(CSRF(DefaultCSRFConfig(testCSRFKey, false))(ok))
}

func TestCSRF(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		fetchSite  string
		bearer     string
		wantStatus int
	}{
		{"safe method cross-site", http.MethodGet, "cross-site", "", http.StatusOK},
		{"same-origin post", http.MethodPost, "same-origin", "", http.StatusOK},
		{"non-browser post", http.MethodPost, "", "", http.StatusOK},
		{"cross-site post", http.MethodPost, "cross-site", "", http.StatusForbidden},
		{"cross-site delete", http.MethodDelete, "cross-site", "", http.StatusForbidden},
		{"cross-site post with bearer", http.MethodPost, "cross-site", "some.jwt.token", http.StatusOK},
	}

	handler := csrfTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/articles", nil)
			if tt.fetchSite != "" {
				req.Header.Set("Sec-Fetch-Site", tt.fetchSite)
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q, want application/json", ct)
				}
			}
		})
	}
}

func TestCSRF_WithCustomErrorHandler(t *testing.T) {
	cfg := DefaultCSRFConfig(testCSRFKey, false)

	customCalled := false
	cfg.ErrorHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		customCalled = true
		http.Error(w, "Custom CSRF Error", http.StatusForbidden)
	})

	handler := CSRF(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/articles", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !customCalled {
		t.Error("custom error handler was not called")
	}
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestSkipCSRFForBearer_NoHeader(t *testing.T) {
	called := false
	handler := SkipCSRFForBearer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	if !called {
		t.Error("next handler was not called")
	}
}

func TestCSRF_AuditsRejection(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	events := service.NewEventService(db)

	cfg := DefaultCSRFConfig(testCSRFKey, false)
	cfg.Events = events
	handler := CSRF(cfg)(simpleOKHandler)

	req := withIdentity(httptest.NewRequest(http.MethodDelete, "/api/articles/hello", nil), model.RoleAdmin)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
	if e := decodeAPIError(t, rr); e.Error.Code != "csrf_failed" {
		t.Errorf("code = %q, want csrf_failed", e.Error.Code)
	}

	logged, err := events.ListByCategory(t.Context(), model.EventCategoryAuth, 10)
	if err != nil {
		t.Fatalf("ListByCategory: %v", err)
	}
	if len(logged) != 1 {
		t.Fatalf("logged %d events, want 1", len(logged))
	}
	if logged[0].Message != "Cross-site request rejected" {
		t.Errorf("message = %q", logged[0].Message)
	}
	if !strings.Contains(logged[0].Metadata, "evil.example") {
		t.Errorf("metadata = %s, want origin", logged[0].Metadata)
	}
	if logged[0].UserID.String != "user-1" {
		t.Errorf("user id = %v, want user-1", logged[0].UserID)
	}
}
