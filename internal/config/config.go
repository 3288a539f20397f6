// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application settings from BLOGSPACE_* environment
// variables.
package config

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/hkdf"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"BLOGSPACE_DB_PATH" envDefault:"./data/blogspace.db"`
	SessionSecret string `env:"BLOGSPACE_SESSION_SECRET,required"`
	ServerHost    string `env:"BLOGSPACE_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"BLOGSPACE_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"BLOGSPACE_ENV" envDefault:"development"`
	LogLevel      string `env:"BLOGSPACE_LOG_LEVEL" envDefault:"info"`

	// Bearer tokens
	TokenTTL    time.Duration `env:"BLOGSPACE_TOKEN_TTL" envDefault:"24h"`
	TokenIssuer string        `env:"BLOGSPACE_TOKEN_ISSUER" envDefault:"blogspace"`

	// Cache configuration
	RedisURL     string `env:"BLOGSPACE_REDIS_URL"` // empty selects the in-memory cache
	CachePrefix  string `env:"BLOGSPACE_CACHE_PREFIX" envDefault:"blogspace:"`
	CacheTTL     int    `env:"BLOGSPACE_CACHE_TTL" envDefault:"300"` // seconds
	CacheMaxSize int    `env:"BLOGSPACE_CACHE_MAX_SIZE" envDefault:"1000"`

	// Rate limiting for the JSON API, per client IP
	APIRateLimit float64 `env:"BLOGSPACE_API_RATE_LIMIT" envDefault:"10"`
	APIRateBurst int     `env:"BLOGSPACE_API_RATE_BURST" envDefault:"20"`

	// TrustProxy takes the client address from X-Real-IP/X-Forwarded-For.
	// Enable it only behind a reverse proxy that overwrites those headers.
	TrustProxy bool `env:"BLOGSPACE_TRUST_PROXY" envDefault:"false"`

	// Hosts (host:port) allowed to send cross-origin state-changing requests
	TrustedOrigins []string `env:"BLOGSPACE_TRUSTED_ORIGINS" envSeparator:","`

	// Event log retention, pruned once at startup
	EventRetention time.Duration `env:"BLOGSPACE_EVENT_RETENTION" envDefault:"2160h"`

	DoSeed bool `env:"BLOGSPACE_DO_SEED" envDefault:"false"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// TokenSecret derives the bearer-token signing key from the session secret,
// so a leaked token key does not expose session encryption and vice versa.
func (c Config) TokenSecret() []byte {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(c.SessionSecret), nil, []byte("blogspace bearer token v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails when more than 255*32 bytes are requested.
		panic(fmt.Sprintf("deriving token secret: %v", err))
	}
	return key
}

// CSRFKey returns the 32-byte key used by CSRF protection.
func (c Config) CSRFKey() []byte {
	return []byte(c.SessionSecret)[:MinSessionSecretLength]
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("BLOGSPACE_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("BLOGSPACE_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("BLOGSPACE_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if cfg.APIRateLimit <= 0 || cfg.APIRateBurst <= 0 {
		return nil, fmt.Errorf("BLOGSPACE_API_RATE_LIMIT and BLOGSPACE_API_RATE_BURST must be positive")
	}

	return cfg, nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
