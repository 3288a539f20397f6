// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the business rules: article lifecycle, user role
// management, authentication and the audit event log.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"github.com/olegiv/blogspace-go/internal/logging"
	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/store"
	"github.com/olegiv/blogspace-go/internal/util"
)

// EventService writes audit entries to the events table.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent records an event. Client IP and request path come from ctx.
// A nil receiver is a no-op so services can run without an audit log.
func (s *EventService) LogEvent(ctx context.Context, level, category, message, userID string, metadata map[string]any) error {
	if s == nil {
		return nil
	}

	metadataJSON := "{}"
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	var nullUserID sql.NullString
	if userID != "" {
		nullUserID = sql.NullString{String: userID, Valid: true}
	}

	info := logging.RequestInfoFrom(ctx)
	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:      level,
		Category:   category,
		Message:    message,
		UserID:     nullUserID,
		Metadata:   metadataJSON,
		IpAddress:  info.IP,
		RequestUrl: info.Path,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		slog.Debug("failed to log event", "error", err, "category", category)
		return err
	}
	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, metadata)
}

// LogArticleEvent logs an article lifecycle event.
func (s *EventService) LogArticleEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryArticle, message, userID, metadata)
}

// LogUserEvent logs a user management event.
func (s *EventService) LogUserEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryUser, message, userID, metadata)
}

// ListByCategory returns the most recent events of one category, newest first.
func (s *EventService) ListByCategory(ctx context.Context, category string, limit int64) ([]store.Event, error) {
	return s.queries.ListEventsByCategory(ctx, store.ListEventsByCategoryParams{
		Category: category,
		Limit:    limit,
	})
}

// Audit log page sizes.
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 200
)

var auditCategories = []string{
	model.EventCategoryAuth,
	model.EventCategoryArticle,
	model.EventCategoryUser,
	model.EventCategorySystem,
	model.EventCategoryCache,
}

// AuditEntry is an event as shown to admins.
type AuditEntry struct {
	ID         int64           `json:"id"`
	Level      string          `json:"level"`
	Category   string          `json:"category"`
	Message    string          `json:"message"`
	UserID     *string         `json:"userId"`
	Metadata   json.RawMessage `json:"metadata"`
	IPAddress  string          `json:"ipAddress"`
	RequestURL string          `json:"requestUrl"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// AuditLog returns the newest events of category for an admin caller. A
// limit outside 1..MaxAuditLimit falls back to DefaultAuditLimit.
func (s *EventService) AuditLog(ctx context.Context, caller *model.Identity, category string, limit int) ([]AuditEntry, error) {
	if err := requireClaim(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	if !slices.Contains(auditCategories, category) {
		return nil, InvalidInput("Unknown event category")
	}
	if limit <= 0 || limit > MaxAuditLimit {
		limit = DefaultAuditLimit
	}
	if s == nil {
		return []AuditEntry{}, nil
	}

	rows, err := s.ListByCategory(ctx, category, int64(limit))
	if err != nil {
		return nil, Internal("listing events", err)
	}

	entries := make([]AuditEntry, 0, len(rows))
	for _, e := range rows {
		meta := json.RawMessage(e.Metadata)
		if !json.Valid(meta) {
			meta = json.RawMessage("{}")
		}
		entries = append(entries, AuditEntry{
			ID:         e.ID,
			Level:      e.Level,
			Category:   e.Category,
			Message:    e.Message,
			UserID:     util.PtrFromNullString(e.UserID),
			Metadata:   meta,
			IPAddress:  e.IpAddress,
			RequestURL: e.RequestUrl,
			CreatedAt:  e.CreatedAt,
		})
	}
	return entries, nil
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.queries.DeleteOldEvents(ctx, cutoff)
}
