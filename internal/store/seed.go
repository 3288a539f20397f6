// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/blogspace-go/internal/auth"
)

// Default seed accounts. Change these passwords after the first login.
const (
	SeedSuperAdminEmail    = "superadmin@example.com"
	SeedSuperAdminPassword = "superadmin123"
	SeedSuperAdminName     = "Super Admin"

	SeedAdminEmail    = "admin@example.com"
	SeedAdminPassword = "admin123"
	SeedAdminName     = "Admin User"

	SeedArticleSlug = "getting-started-with-our-blog"
)

const seedArticleContent = `<h2>Welcome</h2>
<p>This is the first article on your new blog. Sign in as an admin to edit or remove it, and to write your own.</p>
<h2>Roles</h2>
<ul>
<li><strong>user</strong> can read published articles.</li>
<li><strong>admin</strong> can write, publish and delete articles.</li>
<li><strong>superadmin</strong> can also change roles and remove accounts.</li>
</ul>`

// Seed creates the default accounts and a sample article in one
// transaction. Each item is skipped when a row with the same natural key
// already exists, so Seed is safe to run on every start.
func Seed(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := seed(ctx, New(db).WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}
	return nil
}

func seed(ctx context.Context, queries *Queries) error {
	if _, err := seedUser(ctx, queries, SeedSuperAdminEmail, SeedSuperAdminPassword, SeedSuperAdminName, "superadmin"); err != nil {
		return err
	}
	admin, err := seedUser(ctx, queries, SeedAdminEmail, SeedAdminPassword, SeedAdminName, "admin")
	if err != nil {
		return err
	}

	n, err := queries.ArticleSlugExists(ctx, SeedArticleSlug)
	if err != nil {
		return fmt.Errorf("checking seed article: %w", err)
	}
	if n > 0 {
		slog.Debug("seed article already exists", "slug", SeedArticleSlug)
		return nil
	}

	now := time.Now().UTC()
	_, err = queries.CreateArticle(ctx, CreateArticleParams{
		ID:        uuid.NewString(),
		Title:     "Getting Started with Our Blog",
		Slug:      SeedArticleSlug,
		Excerpt:   "A quick tour of how this blog works and who can do what.",
		Content:   seedArticleContent,
		Published: true,
		ReadTime:  "3 min read",
		Tags:      sql.NullString{String: `["getting-started","tutorial"]`, Valid: true},
		AuthorID:  admin.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("creating seed article: %w", err)
	}

	slog.Info("created seed article", "slug", SeedArticleSlug)
	return nil
}

// seedUser returns the existing user with email, or creates one.
func seedUser(ctx context.Context, queries *Queries, email, password, name, role string) (User, error) {
	user, err := queries.GetUserByEmail(ctx, email)
	if err == nil {
		slog.Debug("seed user already exists", "email", email)
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("checking for %s: %w", email, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	user, err = queries.CreateUser(ctx, CreateUserParams{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         sql.NullString{String: name, Valid: true},
		PasswordHash: sql.NullString{String: hash, Valid: true},
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return User{}, fmt.Errorf("creating %s: %w", email, err)
	}

	slog.Info("created seed user", "email", user.Email, "role", user.Role)
	return user, nil
}
