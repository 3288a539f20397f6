// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/blogspace-go/internal/auth"
	"github.com/olegiv/blogspace-go/internal/middleware"
	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/service"
	"github.com/olegiv/blogspace-go/internal/store"
	"github.com/olegiv/blogspace-go/internal/testutil"
)

// testEnv is a fully wired API router backed by a migrated temp database.
type testEnv struct {
	db       *sql.DB
	router   http.Handler
	tokens   *auth.TokenManager
	sessions *scs.SessionManager
	events   *service.EventService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLogin(t, nil)
}

func newTestEnvWithLogin(t *testing.T, lp *middleware.LoginProtection) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	tm, err := auth.NewTokenManager([]byte("test-secret-key-at-least-32-bytes!"), "blogspace-test", time.Hour)
	require.NoError(t, err)

	sm := scs.New()
	events := service.NewEventService(db)

	h := NewHandler(Config{
		DB:              db,
		Events:          events,
		Sessions:        sm,
		Tokens:          tm,
		LoginProtection: lp,
	})

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identify(sm, tm))
		Routes(r, h, RouteConfig{Events: events})
	})

	return &testEnv{db: db, router: r, tokens: tm, sessions: sm, events: events}
}

// tokenFor issues a bearer token carrying the user's stored role.
func (e *testEnv) tokenFor(t *testing.T, u store.User) string {
	t.Helper()
	tok, _, err := e.tokens.Issue(u.ID, u.Email, u.Role)
	require.NoError(t, err)
	return tok
}

// do sends a request through the router. token may be empty.
func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// createUserWithPassword inserts a user and sets an argon2id password hash.
func createUserWithPassword(t *testing.T, db *sql.DB, email, password string, role model.Role) store.User {
	t.Helper()
	u := testutil.CreateUser(t, db, email, role)
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	err = store.New(db).UpdateUserPassword(context.Background(), store.UpdateUserPasswordParams{
		PasswordHash: sql.NullString{String: hash, Valid: true},
		UpdatedAt:    time.Now().UTC(),
		ID:           u.ID,
	})
	require.NoError(t, err)
	return u
}

// dataResponse is a generic wrapper for API responses with a "data" field.
type dataResponse[T any] struct {
	Data T `json:"data"`
}

// unmarshalData unmarshals a JSON response body into the specified type.
func unmarshalData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp dataResponse[T]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v (body %s)", err, w.Body.String())
	}
	return resp.Data
}

// assertStatusCode checks that the response has the expected status code.
func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("expected status %d, got %d (body %s)", expected, w.Code, w.Body.String())
	}
}

// assertErrorResponse unmarshals and validates an error response.
func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error.Code != expectedCode {
		t.Errorf("expected code '%s', got %s", expectedCode, resp.Error.Code)
	}
	return resp
}
