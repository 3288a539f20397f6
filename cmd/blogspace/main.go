// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/blogspace-go/internal/auth"
	"github.com/olegiv/blogspace-go/internal/cache"
	"github.com/olegiv/blogspace-go/internal/config"
	"github.com/olegiv/blogspace-go/internal/handler"
	"github.com/olegiv/blogspace-go/internal/handler/api"
	"github.com/olegiv/blogspace-go/internal/logging"
	"github.com/olegiv/blogspace-go/internal/middleware"
	"github.com/olegiv/blogspace-go/internal/service"
	"github.com/olegiv/blogspace-go/internal/session"
	"github.com/olegiv/blogspace-go/internal/store"
	"github.com/olegiv/blogspace-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "BlogSpace - role-gated blog API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOGSPACE_SESSION_SECRET  Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOGSPACE_DB_PATH         SQLite database path (default: ./data/blogspace.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOGSPACE_SERVER_PORT     Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOGSPACE_ENV             Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOGSPACE_REDIS_URL       Redis URL for the article cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOGSPACE_DO_SEED         Create default accounts and a sample article\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("blogspace %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	logLevel := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	eventService := service.NewEventService(db)
	if cfg.EventRetention > 0 {
		if err := eventService.DeleteOldEvents(ctx, cfg.EventRetention); err != nil {
			slog.Warn("failed to prune old events", "error", err)
		}
	}

	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	tokens, err := auth.NewTokenManager(cfg.TokenSecret(), cfg.TokenIssuer, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token manager: %w", err)
	}

	cacheBackend := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.CacheTTLDuration(),
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	}, logger)
	defer func() {
		if err := cacheBackend.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	articleCache := cache.NewArticleCache(cacheBackend, cfg.CacheTTLDuration())
	slog.Info("article cache initialized", "redis", cfg.UseRedisCache(), "ttl", cfg.CacheTTLDuration())

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Stop()

	apiHandler := api.NewHandler(api.Config{
		DB:              db,
		Cache:           articleCache,
		Events:          eventService,
		Sessions:        sessionManager,
		Tokens:          tokens,
		LoginProtection: loginProtection,
	})
	healthHandler := handler.NewHealthHandler(db, cacheBackend, versionInfo)

	csrfConfig := middleware.DefaultCSRFConfig(cfg.CSRFKey(), cfg.IsDevelopment())
	csrfConfig.TrustedOrigins = append(csrfConfig.TrustedOrigins, cfg.TrustedOrigins...)
	csrfConfig.Events = eventService
	csrfMiddleware := middleware.CSRF(csrfConfig)
	slog.Info("CSRF protection initialized", "trusted_origins", csrfConfig.TrustedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.IPRateLimit(100, 200))

	// Health probes carry the caller's identity so admins see full checks.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identify(sessionManager, tokens))
		r.Get("/health", healthHandler.Health)
		r.Get("/health/live", healthHandler.Liveness)
		r.Get("/health/ready", healthHandler.Readiness)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.SkipCSRFForBearer)
		r.Use(csrfMiddleware)
		r.Use(middleware.Identify(sessionManager, tokens))
		r.Use(middleware.APIRateLimit(cfg.APIRateLimit, cfg.APIRateBurst))

		api.Routes(r, apiHandler, api.RouteConfig{
			Events:          eventService,
			LoginProtection: loginProtection,
			RegisterRPS:     0.2,
			RegisterBurst:   3,
		})
	})
	slog.Info("JSON API mounted at /api")

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
