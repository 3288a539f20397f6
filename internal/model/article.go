// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// DefaultReadTime is assigned to new articles that do not specify one.
const DefaultReadTime = "5 min read"

// Article is an article as returned to callers, with tags decoded.
type Article struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Slug       string         `json:"slug"`
	Excerpt    string         `json:"excerpt"`
	Content    string         `json:"content"`
	CoverImage *string        `json:"coverImage"`
	Published  bool           `json:"published"`
	ReadTime   string         `json:"readTime"`
	Tags       []string       `json:"tags"`
	AuthorID   string         `json:"authorId"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	Author     *ArticleAuthor `json:"author,omitempty"`
}

// ArticleAuthor is the public projection of an article's author.
type ArticleAuthor struct {
	ID    string  `json:"id"`
	Name  *string `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image"`
}

// User is the public projection of a user. It never carries the password hash.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name"`
	Image        *string   `json:"image"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	ArticleCount *int64    `json:"articleCount,omitempty"`
}

// Optional distinguishes a JSON field that is absent from one that is
// present, including present as null. Set is true whenever the key appeared.
type Optional[T any] struct {
	Set   bool
	Value T
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}
