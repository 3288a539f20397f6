// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/testutil"
)

type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

type storedEvent struct {
	Level, Category, Message string
	UserID                   sql.NullString
	Metadata                 string
	IP, URL                  string
}

func listEvents(t *testing.T, db *sql.DB) []storedEvent {
	t.Helper()
	rows, err := db.Query(`SELECT level, category, message, user_id, metadata, ip_address, request_url FROM events ORDER BY id`)
	if err != nil {
		t.Fatalf("querying events: %v", err)
	}
	defer func() { _ = rows.Close() }()

	var out []storedEvent
	for rows.Next() {
		var e storedEvent
		if err := rows.Scan(&e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.IP, &e.URL); err != nil {
			t.Fatalf("scanning event: %v", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterating events: %v", err)
	}
	return out
}

func newTestLogger(t *testing.T) (*slog.Logger, *sql.DB) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	return slog.New(NewEventLogHandler(discardHandler{}, db)), db
}

func TestEventLogHandler_Levels(t *testing.T) {
	tests := []struct {
		name      string
		log       func(*slog.Logger)
		wantLevel string
	}{
		{"error", func(l *slog.Logger) { l.Error("database connection failed") }, model.EventLevelError},
		{"warn", func(l *slog.Logger) { l.Warn("slow query detected") }, model.EventLevelWarning},
		{"info ignored", func(l *slog.Logger) { l.Info("server started") }, ""},
		{"debug ignored", func(l *slog.Logger) { l.Debug("cache miss") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, db := newTestLogger(t)
			tt.log(logger)

			events := listEvents(t, db)
			if tt.wantLevel == "" {
				if len(events) != 0 {
					t.Fatalf("expected no events, got %d", len(events))
				}
				return
			}
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", events[0].Level, tt.wantLevel)
			}
		})
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, db, slog.LevelInfo))
	logger.Info("article published")
	logger.Debug("not stored")

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Level != model.EventLevelInfo {
		t.Errorf("Level = %q, want info", events[0].Level)
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"login rate limit exceeded", model.EventCategoryAuth},
		{"access denied", model.EventCategoryAuth},
		{"csrf validation failed", model.EventCategoryAuth},
		{"article cache refresh failed", model.EventCategoryArticle},
		{"password rehash failed for user", model.EventCategoryUser},
		{"cache ping failed", model.EventCategoryCache},
		{"disk almost full", model.EventCategorySystem},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := inferCategory(tt.message); got != tt.want {
				t.Errorf("inferCategory(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestEventLogHandler_ExplicitCategory(t *testing.T) {
	logger, db := newTestLogger(t)
	logger.Warn("something odd", "category", model.EventCategoryArticle)

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Category != model.EventCategoryArticle {
		t.Errorf("Category = %q, want article", events[0].Category)
	}
	if events[0].Metadata != "{}" {
		t.Errorf("category attr should not be kept in metadata: %s", events[0].Metadata)
	}
}

func TestEventLogHandler_MetadataAndUser(t *testing.T) {
	logger, db := newTestLogger(t)
	logger.Error("request failed",
		"status_code", 500,
		"path", "/api/articles",
		"user_id", "u-42",
	)

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(events[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if meta["status_code"] != "500" || meta["path"] != "/api/articles" {
		t.Errorf("metadata = %v", meta)
	}
	if !events[0].UserID.Valid || events[0].UserID.String != "u-42" {
		t.Errorf("UserID = %+v, want u-42", events[0].UserID)
	}
}

func TestEventLogHandler_RequestInfo(t *testing.T) {
	logger, db := newTestLogger(t)

	ctx := WithRequestInfo(context.Background(), RequestInfo{IP: "203.0.113.7", Path: "/api/admin/users"})
	logger.WarnContext(ctx, "access denied")

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].IP != "203.0.113.7" || events[0].URL != "/api/admin/users" {
		t.Errorf("request info = %q %q", events[0].IP, events[0].URL)
	}
}

func TestEventLogHandler_WithAttrsAndGroup(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	base := NewEventLogHandler(discardHandler{}, db)
	logger := slog.New(base.WithAttrs([]slog.Attr{slog.String("service", "api")}).WithGroup("request"))
	logger.Error("service error", "id", "abc123")

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(events[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if meta["service"] != "api" {
		t.Errorf("metadata should carry handler attrs: %v", meta)
	}
}

func TestRequestInfoFrom_Empty(t *testing.T) {
	if got := RequestInfoFrom(context.Background()); got != (RequestInfo{}) {
		t.Errorf("RequestInfoFrom(empty) = %+v", got)
	}
}

func TestEventLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, model.EventLevelInfo},
		{slog.LevelInfo, model.EventLevelInfo},
		{slog.LevelWarn, model.EventLevelWarning},
		{slog.LevelError, model.EventLevelError},
		{slog.LevelError + 4, model.EventLevelError},
	}
	for _, tt := range tests {
		if got := eventLevel(tt.level); got != tt.want {
			t.Errorf("eventLevel(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}
