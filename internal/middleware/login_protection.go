// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/blogspace-go/internal/util"
)

// maxLockout caps the doubling lockout period.
const maxLockout = 24 * time.Hour

// LoginProtectionConfig configures LoginProtection. Zero values fall back
// to DefaultLoginProtectionConfig.
type LoginProtectionConfig struct {
	// IPRateLimit and IPBurst bound credential requests per client IP.
	IPRateLimit float64
	IPBurst     int

	// MaxFailedAttempts within AttemptWindow lock the account.
	MaxFailedAttempts int
	AttemptWindow     time.Duration

	// LockoutDuration is the first lockout period. Each later lockout of
	// the same account doubles it, up to 24 hours.
	LockoutDuration time.Duration
}

// DefaultLoginProtectionConfig returns the production settings.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

func (c LoginProtectionConfig) withDefaults() LoginProtectionConfig {
	d := DefaultLoginProtectionConfig()
	if c.IPRateLimit <= 0 {
		c.IPRateLimit = d.IPRateLimit
	}
	if c.IPBurst <= 0 {
		c.IPBurst = d.IPBurst
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = d.MaxFailedAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = d.LockoutDuration
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = d.AttemptWindow
	}
	return c
}

// LoginProtection guards the credential endpoints. It rate-limits requests
// per client IP and locks an account after repeated failed sign-ins.
type LoginProtection struct {
	cfg LoginProtectionConfig
	ips *limiterCache[string]

	mu       sync.Mutex
	accounts map[string]*accountState

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// accountState is the failure history of one account, keyed by its
// normalized email.
type accountState struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
	lockouts    int
}

// NewLoginProtection creates a LoginProtection and starts its background
// sweeper. Call Stop to end the sweeper.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	cfg = cfg.withDefaults()
	lp := &LoginProtection{
		cfg:      cfg,
		ips:      newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		accounts: make(map[string]*accountState),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go lp.sweep(10 * time.Minute)
	return lp
}

// Stop ends the background sweeper. It is safe to call more than once.
func (lp *LoginProtection) Stop() {
	lp.once.Do(func() { close(lp.stop) })
}

// AllowIP reports whether another credential request from ip is allowed.
func (lp *LoginProtection) AllowIP(ip string) bool {
	return lp.ips.get(ip).Allow()
}

// accountKey folds emails so that case and surrounding spaces do not
// split one account's history.
func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAccountLocked reports whether email is locked and for how much longer.
func (lp *LoginProtection) IsAccountLocked(email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	st, ok := lp.accounts[accountKey(email)]
	if !ok {
		return false, 0
	}
	if now := lp.now(); now.Before(st.lockedUntil) {
		return true, st.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailedAttempt counts a failed sign-in for email. When the failure
// reaches the limit it locks the account and returns true with the lockout
// period.
func (lp *LoginProtection) RecordFailedAttempt(email string) (bool, time.Duration) {
	key := accountKey(email)
	now := lp.now()

	lp.mu.Lock()
	defer lp.mu.Unlock()

	st, ok := lp.accounts[key]
	if !ok {
		st = &accountState{windowStart: now}
		lp.accounts[key] = st
	}
	if now.Sub(st.windowStart) > lp.cfg.AttemptWindow {
		st.failures = 0
		st.windowStart = now
	}

	st.failures++
	slog.Debug("failed sign-in recorded", "email", key, "failures", st.failures)
	if st.failures < lp.cfg.MaxFailedAttempts {
		return false, 0
	}

	d := lp.lockoutFor(st.lockouts)
	st.lockedUntil = now.Add(d)
	st.lockouts++
	st.failures = 0

	slog.Warn("account locked after failed sign-ins",
		"email", key,
		"lockouts", st.lockouts,
		"duration", d,
	)
	return true, d
}

// lockoutFor returns the lockout period after prior earlier lockouts.
func (lp *LoginProtection) lockoutFor(prior int) time.Duration {
	d := lp.cfg.LockoutDuration
	for range prior {
		d *= 2
		if d >= maxLockout {
			return maxLockout
		}
	}
	return d
}

// RecordSuccessfulLogin forgets the failure history of email.
func (lp *LoginProtection) RecordSuccessfulLogin(email string) {
	lp.mu.Lock()
	delete(lp.accounts, accountKey(email))
	lp.mu.Unlock()
}

// RemainingAttempts returns how many more failures email may have before
// it is locked.
func (lp *LoginProtection) RemainingAttempts(email string) int {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	st, ok := lp.accounts[accountKey(email)]
	if !ok || lp.now().Sub(st.windowStart) > lp.cfg.AttemptWindow {
		return lp.cfg.MaxFailedAttempts
	}
	return max(lp.cfg.MaxFailedAttempts-st.failures, 0)
}

func (lp *LoginProtection) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-lp.stop:
			return
		case <-ticker.C:
			lp.removeStale()
		}
	}
}

// removeStale drops accounts whose lockout and failure window have both
// passed, and resets the IP limiters once they grow too large.
func (lp *LoginProtection) removeStale() {
	if lp.ips.clearIfExceeds(maxLimiters) {
		slog.Info("cleared sign-in IP limiters", "max", maxLimiters)
	}

	now := lp.now()
	lp.mu.Lock()
	for key, st := range lp.accounts {
		if now.After(st.lockedUntil) && now.Sub(st.windowStart) > lp.cfg.AttemptWindow {
			delete(lp.accounts, key)
		}
	}
	lp.mu.Unlock()
}

// Middleware rate-limits POST requests per client IP. Mount it on the
// login and token routes.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(1/lp.cfg.IPRateLimit) + 1)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := util.ClientIP(r)
			if !lp.AllowIP(ip) {
				slog.Warn("sign-in rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", retryAfter)
				WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
					"Too many sign-in attempts. Please wait a moment and try again.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
