// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for BlogSpace.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// TestDB creates a temporary database with all migrations applied.
// Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "blogspace-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
	}
}

// TestMemoryDB creates an in-memory SQLite database without migrations.
func TestMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateUser inserts a user with the given role and no password.
func CreateUser(t *testing.T, db *sql.DB, email string, role model.Role) store.User {
	t.Helper()

	now := time.Now().UTC()
	user, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      sql.NullString{String: email, Valid: true},
		Role:      string(role),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", email, err)
	}
	return user
}

// CreateArticle inserts an article owned by authorID.
func CreateArticle(t *testing.T, db *sql.DB, authorID, slug string, published bool, tags ...string) store.Article {
	t.Helper()

	now := time.Now().UTC()
	article, err := store.New(db).CreateArticle(context.Background(), store.CreateArticleParams{
		ID:        uuid.NewString(),
		Title:     "Title of " + slug,
		Slug:      slug,
		Excerpt:   "Excerpt of " + slug,
		Content:   "<p>Content of " + slug + "</p>",
		Published: published,
		ReadTime:  model.DefaultReadTime,
		Tags:      sql.NullString{String: model.EncodeTags(tags), Valid: true},
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateArticle(%q): %v", slug, err)
	}
	return article
}

// Identity returns the identity a session for user would carry.
func Identity(user store.User) *model.Identity {
	return &model.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   model.NormalizeRole(user.Role),
	}
}
