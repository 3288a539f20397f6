// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/store"
)

const (
	recentUsersWindow = 7 * 24 * time.Hour
	dashboardLimit    = 5
)

// Stats are the admin console counters.
type Stats struct {
	TotalUsers        int64 `json:"totalUsers"`
	TotalArticles     int64 `json:"totalArticles"`
	PublishedArticles int64 `json:"publishedArticles"`
	DraftArticles     int64 `json:"draftArticles"`
	RecentUsers       int64 `json:"recentUsers"`
}

// Dashboard is Stats plus the latest users and articles.
type Dashboard struct {
	Stats          Stats           `json:"stats"`
	RecentUsers    []model.User    `json:"recentUsers"`
	RecentArticles []model.Article `json:"recentArticles"`
}

// StatsService computes admin statistics.
type StatsService struct {
	queries *store.Queries
	now     func() time.Time
}

// NewStatsService creates a new StatsService.
func NewStatsService(db *sql.DB) *StatsService {
	return &StatsService{
		queries: store.New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Stats returns counts of users and articles. recentUsers covers the last
// seven days.
func (s *StatsService) Stats(ctx context.Context, caller *model.Identity) (Stats, error) {
	if err := requireClaim(caller, model.RoleAdmin); err != nil {
		return Stats{}, err
	}

	var (
		st  Stats
		err error
	)
	if st.TotalUsers, err = s.queries.CountUsers(ctx); err != nil {
		return Stats{}, Internal("counting users", err)
	}
	if st.TotalArticles, err = s.queries.CountArticles(ctx); err != nil {
		return Stats{}, Internal("counting articles", err)
	}
	if st.PublishedArticles, err = s.queries.CountArticlesByPublished(ctx, true); err != nil {
		return Stats{}, Internal("counting published articles", err)
	}
	if st.DraftArticles, err = s.queries.CountArticlesByPublished(ctx, false); err != nil {
		return Stats{}, Internal("counting draft articles", err)
	}
	if st.RecentUsers, err = s.queries.CountUsersCreatedSince(ctx, s.now().Add(-recentUsersWindow)); err != nil {
		return Stats{}, Internal("counting recent users", err)
	}
	return st, nil
}

// Dashboard returns Stats with the five newest users and articles.
func (s *StatsService) Dashboard(ctx context.Context, caller *model.Identity) (Dashboard, error) {
	st, err := s.Stats(ctx, caller)
	if err != nil {
		return Dashboard{}, err
	}

	users, err := s.queries.ListRecentUsers(ctx, dashboardLimit)
	if err != nil {
		return Dashboard{}, Internal("listing recent users", err)
	}
	articles, err := s.queries.ListRecentArticles(ctx, dashboardLimit)
	if err != nil {
		return Dashboard{}, Internal("listing recent articles", err)
	}

	d := Dashboard{
		Stats:          st,
		RecentUsers:    make([]model.User, 0, len(users)),
		RecentArticles: articlesFromRows(articles),
	}
	for _, u := range users {
		d.RecentUsers = append(d.RecentUsers, userFromRow(u))
	}
	return d, nil
}
