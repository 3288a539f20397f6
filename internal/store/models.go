// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

// User is a row of the users table.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Name         sql.NullString `json:"name"`
	PasswordHash sql.NullString `json:"-"`
	Image        sql.NullString `json:"image"`
	Role         string         `json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Article is a row of the articles table. Tags hold the JSON-array encoding.
type Article struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Slug       string         `json:"slug"`
	Excerpt    string         `json:"excerpt"`
	Content    string         `json:"content"`
	CoverImage sql.NullString `json:"cover_image"`
	Published  bool           `json:"published"`
	ReadTime   string         `json:"read_time"`
	Tags       sql.NullString `json:"tags"`
	AuthorID   string         `json:"author_id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ArticleWithAuthor is an article joined with the public fields of its author.
type ArticleWithAuthor struct {
	Article
	AuthorName  sql.NullString `json:"author_name"`
	AuthorEmail string         `json:"author_email"`
	AuthorImage sql.NullString `json:"author_image"`
}

// UserWithArticleCount is a user row with the number of articles they own.
type UserWithArticleCount struct {
	User
	ArticleCount int64 `json:"article_count"`
}

// Event is a row of the events table.
type Event struct {
	ID         int64          `json:"id"`
	Level      string         `json:"level"`
	Category   string         `json:"category"`
	Message    string         `json:"message"`
	UserID     sql.NullString `json:"user_id"`
	Metadata   string         `json:"metadata"`
	IpAddress  string         `json:"ip_address"`
	RequestUrl string         `json:"request_url"`
	CreatedAt  time.Time      `json:"created_at"`
}
