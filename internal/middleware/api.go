// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/time/rate"

	"github.com/olegiv/blogspace-go/internal/util"
)

// APIError is the JSON error body written by this package. It matches the
// envelope of the api handlers.
type APIError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	var body APIError
	body.Error.Code = code
	body.Error.Message = message
	body.Error.Details = details

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

const msgRateLimited = "Rate limit exceeded. Please slow down."

// maxLimiters bounds every per-key limiter map. A map that grows past it
// is reset, which briefly forgives all keys.
const maxLimiters = 10000

// limiterCache holds one token bucket per key.
type limiterCache[K comparable] struct {
	mu       sync.RWMutex
	limiters map[K]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the limiter for key, creating it on first use.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	l, ok := lc.limiters[key]
	lc.mu.RUnlock()
	if ok {
		return l
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if l, ok = lc.limiters[key]; ok {
		return l
	}
	l = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = l
	return l
}

// clearIfExceeds drops every limiter once the cache holds more than
// maxSize keys and reports whether it did.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if len(lc.limiters) <= maxSize {
		return false
	}
	lc.limiters = make(map[K]*rate.Limiter)
	return true
}

func (lc *limiterCache[K]) size() int {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return len(lc.limiters)
}

// KeyFunc derives the rate limit bucket for a request.
type KeyFunc func(r *http.Request) string

// ClientIPKey buckets requests by client IP.
func ClientIPKey(r *http.Request) string {
	return "ip:" + util.ClientIP(r)
}

// CallerKey buckets signed-in callers by user id and everyone else by
// client IP. It needs Identify to have run.
func CallerKey(r *http.Request) string {
	if id := GetIdentity(r); id != nil {
		return "user:" + id.UserID
	}
	return ClientIPKey(r)
}

// RateLimiter is a keyed token bucket limiter.
type RateLimiter struct {
	cache      *limiterCache[string]
	key        KeyFunc
	retryAfter string
}

// NewRateLimiter allows rps requests per second per key, with bursts of
// up to burst.
func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	retry := 1
	if rps > 0 && rps < 1 {
		retry = int(1/rps) + 1
	}
	return &RateLimiter{
		cache:      newLimiterCache[string](rps, burst),
		key:        key,
		retryAfter: strconv.Itoa(retry),
	}
}

// Allow consumes one token from the bucket of r.
func (rl *RateLimiter) Allow(r *http.Request) bool {
	if rl.cache.clearIfExceeds(maxLimiters) {
		slog.Info("cleared rate limiters", "max", maxLimiters)
	}
	return rl.cache.get(rl.key(r)).Allow()
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(r) {
				slog.Warn("rate limit exceeded", "key", rl.key(r), "path", r.URL.Path)
				w.Header().Set("Retry-After", rl.retryAfter)
				WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", msgRateLimited, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// APIRateLimit limits API requests per caller. It must run after Identify.
func APIRateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	return NewRateLimiter(rps, burst, CallerKey).Middleware()
}

// IPRateLimit limits requests per client IP regardless of identity.
func IPRateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	return NewRateLimiter(rps, burst, ClientIPKey).Middleware()
}
