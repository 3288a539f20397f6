// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/blogspace-go/internal/middleware"
	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/service"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/register", "", `{"name":"Ann","email":"ann@example.com","password":"longenough"}`)
	assertStatusCode(t, w, http.StatusCreated)

	got := unmarshalData[model.User](t, w)
	assert.Equal(t, "ann@example.com", got.Email)
	assert.Equal(t, model.RoleUser, got.Role)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Ann", *got.Name)
	assert.NotContains(t, w.Body.String(), "password")

	t.Run("duplicate", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/register", "", `{"email":"ann@example.com","password":"longenough"}`)
		assertStatusCode(t, w, http.StatusBadRequest)
		resp := assertErrorResponse(t, w, "conflict")
		assert.Equal(t, service.MsgUserExists, resp.Error.Message)
	})

	t.Run("short password", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/register", "", `{"email":"bob@example.com","password":"short"}`)
		assertStatusCode(t, w, http.StatusBadRequest)
	})

	t.Run("role field ignored", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/register", "", `{"email":"eve@example.com","password":"longenough","role":"superadmin"}`)
		assertStatusCode(t, w, http.StatusCreated)
		assert.Equal(t, model.RoleUser, unmarshalData[model.User](t, w).Role)
	})
}

func TestLoginSessionLogout(t *testing.T) {
	env := newTestEnv(t)
	createUserWithPassword(t, env.db, "admin@example.com", "admin-password", model.RoleAdmin)

	w := env.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"admin-password"}`)
	assertStatusCode(t, w, http.StatusOK)
	assert.Equal(t, model.RoleAdmin, unmarshalData[SessionResponse](t, w).Role)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "login should set a session cookie")

	withCookies := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	w = withCookies(http.MethodGet, "/api/auth/session")
	assertStatusCode(t, w, http.StatusOK)
	sess := unmarshalData[SessionResponse](t, w)
	assert.Equal(t, "admin@example.com", sess.Email)
	assert.Equal(t, model.RoleAdmin, sess.Role)

	// The session grants admin routes.
	assertStatusCode(t, withCookies(http.MethodGet, "/api/admin/stats"), http.StatusOK)

	w = withCookies(http.MethodPost, "/api/auth/logout")
	assertStatusCode(t, w, http.StatusOK)

	assertStatusCode(t, withCookies(http.MethodGet, "/api/auth/session"), http.StatusUnauthorized)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	createUserWithPassword(t, env.db, "user@example.com", "right-password", model.RoleUser)

	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"email":"user@example.com","password":"wrong-password"}`},
		{"unknown email", `{"email":"nobody@example.com","password":"right-password"}`},
		{"empty", `{"email":"","password":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			assertStatusCode(t, w, http.StatusUnauthorized)
			resp := assertErrorResponse(t, w, "unauthorized")
			assert.Equal(t, service.MsgInvalidCredentials, resp.Error.Message)
		})
	}
}

func TestLogin_AccountLockout(t *testing.T) {
	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       1000,
		IPBurst:           1000,
		MaxFailedAttempts: 2,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})
	t.Cleanup(lp.Stop)
	env := newTestEnvWithLogin(t, lp)
	createUserWithPassword(t, env.db, "user@example.com", "right-password", model.RoleUser)

	bad := `{"email":"user@example.com","password":"wrong-password"}`
	assertStatusCode(t, env.do(t, http.MethodPost, "/api/auth/login", "", bad), http.StatusUnauthorized)

	w := env.do(t, http.MethodPost, "/api/auth/login", "", bad)
	assertStatusCode(t, w, http.StatusTooManyRequests)
	assertErrorResponse(t, w, "account_locked")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Correct credentials are refused while locked.
	w = env.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"USER@example.com","password":"right-password"}`)
	assertStatusCode(t, w, http.StatusTooManyRequests)
}

func TestToken(t *testing.T) {
	env := newTestEnv(t)
	createUserWithPassword(t, env.db, "super@example.com", "super-password", model.RoleSuperAdmin)

	w := env.do(t, http.MethodPost, "/api/auth/token", "", `{"email":"super@example.com","password":"super-password"}`)
	assertStatusCode(t, w, http.StatusOK)

	tok := unmarshalData[TokenResponse](t, w)
	require.NotEmpty(t, tok.Token)
	assert.True(t, tok.ExpiresAt.After(time.Now()))

	claims, err := env.tokens.Parse(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "super@example.com", claims.Email)
	assert.Equal(t, string(model.RoleSuperAdmin), claims.Role)

	w = env.do(t, http.MethodGet, "/api/auth/session", tok.Token, "")
	assertStatusCode(t, w, http.StatusOK)
	assert.Equal(t, model.RoleSuperAdmin, unmarshalData[SessionResponse](t, w).Role)
}

func TestToken_Disabled(t *testing.T) {
	h := &Handler{}
	w := httptest.NewRecorder()
	h.Token(w, httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(`{}`)))
	assertStatusCode(t, w, http.StatusNotFound)
}

func TestSession_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/auth/session", "", "")
	assertStatusCode(t, w, http.StatusUnauthorized)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30 second(s)"},
		{15 * time.Minute, "15 minute(s)"},
		{2 * time.Hour, "2 hour(s)"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q; want %q", tt.d, got, tt.want)
		}
	}
}
