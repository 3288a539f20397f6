// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const articleColumns = `id, title, slug, excerpt, content, cover_image, published, read_time, tags, author_id, created_at, updated_at`

const articleWithAuthorSelect = `SELECT a.id, a.title, a.slug, a.excerpt, a.content, a.cover_image, a.published,
       a.read_time, a.tags, a.author_id, a.created_at, a.updated_at,
       u.name, u.email, u.image
FROM articles a
JOIN users u ON u.id = a.author_id`

func scanArticle(row interface{ Scan(...any) error }) (Article, error) {
	var i Article
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Slug,
		&i.Excerpt,
		&i.Content,
		&i.CoverImage,
		&i.Published,
		&i.ReadTime,
		&i.Tags,
		&i.AuthorID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanArticleWithAuthor(row interface{ Scan(...any) error }) (ArticleWithAuthor, error) {
	var i ArticleWithAuthor
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Slug,
		&i.Excerpt,
		&i.Content,
		&i.CoverImage,
		&i.Published,
		&i.ReadTime,
		&i.Tags,
		&i.AuthorID,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.AuthorName,
		&i.AuthorEmail,
		&i.AuthorImage,
	)
	return i, err
}

func (q *Queries) queryArticlesWithAuthor(ctx context.Context, query string, args ...any) ([]ArticleWithAuthor, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []ArticleWithAuthor
	for rows.Next() {
		i, err := scanArticleWithAuthor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createArticle = `-- name: CreateArticle :one
INSERT INTO articles (id, title, slug, excerpt, content, cover_image, published, read_time, tags, author_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + articleColumns

type CreateArticleParams struct {
	ID         string
	Title      string
	Slug       string
	Excerpt    string
	Content    string
	CoverImage sql.NullString
	Published  bool
	ReadTime   string
	Tags       sql.NullString
	AuthorID   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (q *Queries) CreateArticle(ctx context.Context, arg CreateArticleParams) (Article, error) {
	row := q.db.QueryRowContext(ctx, createArticle,
		arg.ID,
		arg.Title,
		arg.Slug,
		arg.Excerpt,
		arg.Content,
		arg.CoverImage,
		arg.Published,
		arg.ReadTime,
		arg.Tags,
		arg.AuthorID,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanArticle(row)
}

const getArticleBySlug = `-- name: GetArticleBySlug :one
` + articleWithAuthorSelect + `
WHERE a.slug = ?`

func (q *Queries) GetArticleBySlug(ctx context.Context, slug string) (ArticleWithAuthor, error) {
	return scanArticleWithAuthor(q.db.QueryRowContext(ctx, getArticleBySlug, slug))
}

const getPublishedArticleBySlug = `-- name: GetPublishedArticleBySlug :one
` + articleWithAuthorSelect + `
WHERE a.slug = ? AND a.published = 1`

func (q *Queries) GetPublishedArticleBySlug(ctx context.Context, slug string) (ArticleWithAuthor, error) {
	return scanArticleWithAuthor(q.db.QueryRowContext(ctx, getPublishedArticleBySlug, slug))
}

const listArticles = `-- name: ListArticles :many
` + articleWithAuthorSelect + `
ORDER BY a.created_at DESC`

func (q *Queries) ListArticles(ctx context.Context) ([]ArticleWithAuthor, error) {
	return q.queryArticlesWithAuthor(ctx, listArticles)
}

const listPublishedArticles = `-- name: ListPublishedArticles :many
` + articleWithAuthorSelect + `
WHERE a.published = 1
ORDER BY a.created_at DESC`

func (q *Queries) ListPublishedArticles(ctx context.Context) ([]ArticleWithAuthor, error) {
	return q.queryArticlesWithAuthor(ctx, listPublishedArticles)
}

const listRecentArticles = `-- name: ListRecentArticles :many
` + articleWithAuthorSelect + `
ORDER BY a.created_at DESC
LIMIT ?`

func (q *Queries) ListRecentArticles(ctx context.Context, limit int64) ([]ArticleWithAuthor, error) {
	return q.queryArticlesWithAuthor(ctx, listRecentArticles, limit)
}

const articleSlugExists = `-- name: ArticleSlugExists :one
SELECT COUNT(*) FROM articles WHERE slug = ?`

func (q *Queries) ArticleSlugExists(ctx context.Context, slug string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, articleSlugExists, slug).Scan(&count)
	return count, err
}

const updateArticle = `-- name: UpdateArticle :one
UPDATE articles
SET title = ?, slug = ?, excerpt = ?, content = ?, cover_image = ?, published = ?,
    read_time = ?, tags = ?, updated_at = ?
WHERE id = ?
RETURNING ` + articleColumns

type UpdateArticleParams struct {
	Title      string
	Slug       string
	Excerpt    string
	Content    string
	CoverImage sql.NullString
	Published  bool
	ReadTime   string
	Tags       sql.NullString
	UpdatedAt  time.Time
	ID         string
}

func (q *Queries) UpdateArticle(ctx context.Context, arg UpdateArticleParams) (Article, error) {
	row := q.db.QueryRowContext(ctx, updateArticle,
		arg.Title,
		arg.Slug,
		arg.Excerpt,
		arg.Content,
		arg.CoverImage,
		arg.Published,
		arg.ReadTime,
		arg.Tags,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanArticle(row)
}

const deleteArticleBySlug = `-- name: DeleteArticleBySlug :execrows
DELETE FROM articles WHERE slug = ?`

func (q *Queries) DeleteArticleBySlug(ctx context.Context, slug string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteArticleBySlug, slug)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countArticles = `-- name: CountArticles :one
SELECT COUNT(*) FROM articles`

func (q *Queries) CountArticles(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countArticles).Scan(&count)
	return count, err
}

const countArticlesByPublished = `-- name: CountArticlesByPublished :one
SELECT COUNT(*) FROM articles WHERE published = ?`

func (q *Queries) CountArticlesByPublished(ctx context.Context, published bool) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countArticlesByPublished, published).Scan(&count)
	return count, err
}
