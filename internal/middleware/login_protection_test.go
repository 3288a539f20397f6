// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// newTestLoginProtection returns a LoginProtection with a generous IP limit
// and a fake clock.
func newTestLoginProtection(t *testing.T, maxAttempts int, lockout, window time.Duration) (*LoginProtection, *fakeClock) {
	t.Helper()

	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       10,
		IPBurst:           100,
		MaxFailedAttempts: maxAttempts,
		LockoutDuration:   lockout,
		AttemptWindow:     window,
	})
	t.Cleanup(lp.Stop)

	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	lp.now = clock.now
	return lp, clock
}

func TestLoginProtectionConfigDefaults(t *testing.T) {
	d := DefaultLoginProtectionConfig()
	assert.Equal(t, 0.5, d.IPRateLimit)
	assert.Equal(t, 5, d.IPBurst)
	assert.Equal(t, 5, d.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, d.LockoutDuration)
	assert.Equal(t, 15*time.Minute, d.AttemptWindow)

	lp := NewLoginProtection(LoginProtectionConfig{MaxFailedAttempts: 3})
	defer lp.Stop()
	assert.Equal(t, 3, lp.cfg.MaxFailedAttempts)
	assert.Equal(t, d.LockoutDuration, lp.cfg.LockoutDuration)
	assert.Equal(t, d.IPRateLimit, lp.cfg.IPRateLimit)
}

func TestLoginProtectionLocksAfterMaxFailures(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 3, time.Minute, time.Hour)
	const email = "reader@example.com"

	locked, _ := lp.IsAccountLocked(email)
	require.False(t, locked)

	for i := 1; i < 3; i++ {
		locked, _ := lp.RecordFailedAttempt(email)
		require.False(t, locked, "failure %d", i)
	}
	locked, d := lp.RecordFailedAttempt(email)
	require.True(t, locked)
	assert.Equal(t, time.Minute, d)

	locked, remaining := lp.IsAccountLocked(email)
	assert.True(t, locked)
	assert.Equal(t, time.Minute, remaining)

	clock.advance(40 * time.Second)
	_, remaining = lp.IsAccountLocked(email)
	assert.Equal(t, 20*time.Second, remaining)

	clock.advance(21 * time.Second)
	locked, _ = lp.IsAccountLocked(email)
	assert.False(t, locked)
}

func TestLoginProtectionLockoutDoubles(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 1, time.Minute, time.Hour)
	const email = "reader@example.com"

	want := []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute}
	for i, w := range want {
		locked, d := lp.RecordFailedAttempt(email)
		require.True(t, locked, "lockout %d", i+1)
		assert.Equal(t, w, d, "lockout %d", i+1)
		clock.advance(d + time.Second)
	}
}

func TestLoginProtectionLockoutFor(t *testing.T) {
	lp, _ := newTestLoginProtection(t, 5, 15*time.Minute, time.Hour)

	tests := []struct {
		prior int
		want  time.Duration
	}{
		{0, 15 * time.Minute},
		{1, 30 * time.Minute},
		{3, 2 * time.Hour},
		{6, 16 * time.Hour},
		{7, 24 * time.Hour},
		{40, 24 * time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lp.lockoutFor(tt.prior), "prior=%d", tt.prior)
	}
}

func TestLoginProtectionRemainingAttempts(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 5, time.Minute, 10*time.Minute)
	const email = "reader@example.com"

	assert.Equal(t, 5, lp.RemainingAttempts(email))

	lp.RecordFailedAttempt(email)
	assert.Equal(t, 4, lp.RemainingAttempts(email))

	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)
	assert.Equal(t, 2, lp.RemainingAttempts(email))

	clock.advance(11 * time.Minute)
	assert.Equal(t, 5, lp.RemainingAttempts(email), "window expired")

	lp.RecordFailedAttempt(email)
	assert.Equal(t, 4, lp.RemainingAttempts(email), "count restarts in a new window")
}

func TestLoginProtectionSuccessfulLoginClearsHistory(t *testing.T) {
	lp, _ := newTestLoginProtection(t, 3, time.Minute, time.Hour)
	const email = "reader@example.com"

	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)
	lp.RecordSuccessfulLogin(email)

	assert.Equal(t, 3, lp.RemainingAttempts(email))
	locked, _ := lp.RecordFailedAttempt(email)
	assert.False(t, locked)
}

func TestLoginProtectionEmailCaseInsensitive(t *testing.T) {
	lp, _ := newTestLoginProtection(t, 2, time.Minute, time.Hour)

	lp.RecordFailedAttempt("Admin@Example.com")
	locked, _ := lp.RecordFailedAttempt(" admin@example.com")
	require.True(t, locked, "differently cased emails count toward one account")

	locked, _ = lp.IsAccountLocked("ADMIN@EXAMPLE.COM")
	assert.True(t, locked)
}

func TestLoginProtectionRemoveStale(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 2, time.Minute, 5*time.Minute)

	lp.RecordFailedAttempt("stale@example.com")
	lp.RecordFailedAttempt("locked@example.com")
	lp.RecordFailedAttempt("locked@example.com")

	// The failure window has passed for both, the lockout has not.
	clock.advance(5*time.Minute + time.Second)
	lp.accounts["locked@example.com"].lockedUntil = clock.t.Add(time.Hour)
	lp.removeStale()

	lp.mu.Lock()
	_, stale := lp.accounts["stale@example.com"]
	_, active := lp.accounts["locked@example.com"]
	lp.mu.Unlock()

	assert.False(t, stale, "stale entry should be removed")
	assert.True(t, active, "locked entry should be kept")
}

func TestLoginProtectionStopIsIdempotent(t *testing.T) {
	lp := NewLoginProtection(DefaultLoginProtectionConfig())
	lp.Stop()
	assert.NotPanics(t, lp.Stop)
}

func TestLoginProtectionAllowIP(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{IPRateLimit: 0.001, IPBurst: 3})
	defer lp.Stop()

	for i := range 3 {
		assert.True(t, lp.AllowIP("192.0.2.10"), "request %d within burst", i+1)
	}
	assert.False(t, lp.AllowIP("192.0.2.10"))
	assert.True(t, lp.AllowIP("192.0.2.11"), "limits are per IP")
}

func TestLoginProtectionMiddleware(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{IPRateLimit: 0.5, IPBurst: 1})
	defer lp.Stop()
	wrapped := lp.Middleware()(simpleOKHandler)

	send := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusOK, send(http.MethodPost).Code)

	rr := send(http.MethodPost)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "3", rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "rate_limit_exceeded")

	assert.Equal(t, http.StatusOK, send(http.MethodGet).Code, "only POST is limited")
}
