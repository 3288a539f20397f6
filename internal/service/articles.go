// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/store"
	"github.com/olegiv/blogspace-go/internal/util"
)

// ArticleCache is the published-article read cache. Implementations must
// never hold drafts.
type ArticleCache interface {
	PublishedList(ctx context.Context, load func() ([]model.Article, error)) ([]model.Article, error)
	Published(ctx context.Context, slug string, load func() (*model.Article, error)) (*model.Article, error)
	Invalidate(ctx context.Context) error
}

// noCache loads straight from the store.
type noCache struct{}

func (noCache) PublishedList(_ context.Context, load func() ([]model.Article, error)) ([]model.Article, error) {
	return load()
}

func (noCache) Published(_ context.Context, _ string, load func() (*model.Article, error)) (*model.Article, error) {
	return load()
}

func (noCache) Invalidate(context.Context) error { return nil }

// ArticleService manages the article lifecycle.
type ArticleService struct {
	queries   *store.Queries
	authz     *Authorizer
	cache     ArticleCache
	events    *EventService
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewArticleService creates a new ArticleService. cache and events may be nil.
func NewArticleService(db *sql.DB, cache ArticleCache, events *EventService) *ArticleService {
	if cache == nil {
		cache = noCache{}
	}
	return &ArticleService{
		queries:   store.New(db),
		authz:     NewAuthorizer(db),
		cache:     cache,
		events:    events,
		sanitizer: bluemonday.UGCPolicy(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateArticleInput holds the fields accepted on create. An empty Slug is
// derived from Title.
type CreateArticleInput struct {
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Excerpt    string   `json:"excerpt"`
	Content    string   `json:"content"`
	CoverImage *string  `json:"coverImage"`
	Published  *bool    `json:"published"`
	ReadTime   *string  `json:"readTime"`
	Tags       []string `json:"tags"`
}

// UpdateArticleInput holds a partial update. A nil field keeps the stored
// value. CoverImage distinguishes absent from an explicit null, which clears it.
type UpdateArticleInput struct {
	Title      *string                 `json:"title"`
	NewSlug    *string                 `json:"newSlug"`
	Excerpt    *string                 `json:"excerpt"`
	Content    *string                 `json:"content"`
	CoverImage model.Optional[*string] `json:"coverImage"`
	Published  *bool                   `json:"published"`
	ReadTime   *string                 `json:"readTime"`
	Tags       *[]string               `json:"tags"`
}

// List returns published articles, newest first. Drafts are included only
// when includeDrafts is set and the caller is an admin.
func (s *ArticleService) List(ctx context.Context, caller *model.Identity, includeDrafts bool) ([]model.Article, error) {
	if includeDrafts && caller.IsAdmin() {
		rows, err := s.queries.ListArticles(ctx)
		if err != nil {
			return nil, Internal("listing articles", err)
		}
		return articlesFromRows(rows), nil
	}

	articles, err := s.cache.PublishedList(ctx, func() ([]model.Article, error) {
		rows, err := s.queries.ListPublishedArticles(ctx)
		if err != nil {
			return nil, err
		}
		return articlesFromRows(rows), nil
	})
	if err != nil {
		return nil, Internal("listing published articles", err)
	}
	return articles, nil
}

// Get returns the article with slug. Admins see drafts; everyone else gets
// NotFound for an unpublished article.
func (s *ArticleService) Get(ctx context.Context, caller *model.Identity, slug string) (*model.Article, error) {
	if caller.IsAdmin() {
		row, err := s.queries.GetArticleBySlug(ctx, slug)
		if err != nil {
			return nil, articleLookupError(err)
		}
		a := articleWithAuthorFromRow(row)
		return &a, nil
	}

	article, err := s.cache.Published(ctx, slug, func() (*model.Article, error) {
		row, err := s.queries.GetPublishedArticleBySlug(ctx, slug)
		if err != nil {
			return nil, articleLookupError(err)
		}
		a := articleWithAuthorFromRow(row)
		return &a, nil
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, Internal("loading article", err)
	}
	return article, nil
}

// Create stores a new article authored by the caller.
func (s *ArticleService) Create(ctx context.Context, caller *model.Identity, in CreateArticleInput) (*model.Article, error) {
	if err := requireClaim(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	author, err := s.authz.Verify(ctx, caller, model.RoleAdmin)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	excerpt := strings.TrimSpace(in.Excerpt)
	content := s.sanitizer.Sanitize(in.Content)
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = util.Slugify(title)
	}

	if title == "" || slug == "" || excerpt == "" || strings.TrimSpace(content) == "" {
		return nil, InvalidInput(MsgArticleFieldsNeeded)
	}
	if !util.IsValidSlug(slug) {
		return nil, InvalidInput(MsgInvalidSlug)
	}

	if err := s.ensureSlugFree(ctx, slug); err != nil {
		return nil, err
	}

	readTime := model.DefaultReadTime
	if in.ReadTime != nil && strings.TrimSpace(*in.ReadTime) != "" {
		readTime = strings.TrimSpace(*in.ReadTime)
	}
	published := in.Published != nil && *in.Published

	now := s.now()
	row, err := s.queries.CreateArticle(ctx, store.CreateArticleParams{
		ID:         uuid.NewString(),
		Title:      title,
		Slug:       slug,
		Excerpt:    excerpt,
		Content:    content,
		CoverImage: util.NullStringFromPtr(in.CoverImage),
		Published:  published,
		ReadTime:   readTime,
		Tags:       sql.NullString{String: model.EncodeTags(in.Tags), Valid: true},
		AuthorID:   author.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, Conflict(MsgSlugExists)
		}
		return nil, Internal("creating article", err)
	}

	s.invalidate(ctx)
	_ = s.events.LogArticleEvent(ctx, model.EventLevelInfo, "Article created", author.ID,
		map[string]any{"article_id": row.ID, "slug": row.Slug, "published": row.Published})

	article := articleFromRow(row)
	article.Author = authorOf(author)
	return &article, nil
}

// Update applies a partial update to the article at slug.
func (s *ArticleService) Update(ctx context.Context, caller *model.Identity, slug string, in UpdateArticleInput) (*model.Article, error) {
	if err := requireClaim(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	actor, err := verifyActor(ctx, s.authz, caller, model.RoleAdmin)
	if err != nil {
		return nil, err
	}

	existing, err := s.queries.GetArticleBySlug(ctx, slug)
	if err != nil {
		return nil, articleLookupError(err)
	}

	params := store.UpdateArticleParams{
		ID:         existing.ID,
		Title:      existing.Title,
		Slug:       existing.Slug,
		Excerpt:    existing.Excerpt,
		Content:    existing.Content,
		CoverImage: existing.CoverImage,
		Published:  existing.Published,
		ReadTime:   existing.ReadTime,
		Tags:       existing.Tags,
		UpdatedAt:  s.now(),
	}

	if in.Title != nil {
		params.Title = strings.TrimSpace(*in.Title)
	}
	if in.Excerpt != nil {
		params.Excerpt = strings.TrimSpace(*in.Excerpt)
	}
	if in.Content != nil {
		params.Content = s.sanitizer.Sanitize(*in.Content)
	}
	if params.Title == "" || params.Excerpt == "" || strings.TrimSpace(params.Content) == "" {
		return nil, InvalidInput(MsgArticleFieldsNeeded)
	}

	if in.NewSlug != nil {
		if newSlug := strings.TrimSpace(*in.NewSlug); newSlug != "" && newSlug != existing.Slug {
			if !util.IsValidSlug(newSlug) {
				return nil, InvalidInput(MsgInvalidSlug)
			}
			if err := s.ensureSlugFree(ctx, newSlug); err != nil {
				return nil, err
			}
			params.Slug = newSlug
		}
	}

	if in.CoverImage.Set {
		params.CoverImage = util.NullStringFromPtr(in.CoverImage.Value)
	}
	if in.Published != nil {
		params.Published = *in.Published
	}
	if in.ReadTime != nil && strings.TrimSpace(*in.ReadTime) != "" {
		params.ReadTime = strings.TrimSpace(*in.ReadTime)
	}
	if in.Tags != nil {
		params.Tags = sql.NullString{String: model.EncodeTags(*in.Tags), Valid: true}
	}

	row, err := s.queries.UpdateArticle(ctx, params)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, Conflict(MsgSlugExists)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound(MsgArticleNotFound)
		}
		return nil, Internal("updating article", err)
	}

	s.invalidate(ctx)
	_ = s.events.LogArticleEvent(ctx, model.EventLevelInfo, "Article updated", actor.ID,
		map[string]any{"article_id": row.ID, "slug": row.Slug, "previous_slug": existing.Slug})

	article := articleFromRow(row)
	article.Author = articleWithAuthorFromRow(existing).Author
	return &article, nil
}

// Delete removes the article at slug.
func (s *ArticleService) Delete(ctx context.Context, caller *model.Identity, slug string) error {
	if err := requireClaim(caller, model.RoleAdmin); err != nil {
		return err
	}
	actor, err := verifyActor(ctx, s.authz, caller, model.RoleAdmin)
	if err != nil {
		return err
	}

	n, err := s.queries.DeleteArticleBySlug(ctx, slug)
	if err != nil {
		return Internal("deleting article", err)
	}
	if n == 0 {
		return NotFound(MsgArticleNotFound)
	}

	s.invalidate(ctx)
	_ = s.events.LogArticleEvent(ctx, model.EventLevelInfo, "Article deleted", actor.ID,
		map[string]any{"slug": slug})
	return nil
}

func (s *ArticleService) ensureSlugFree(ctx context.Context, slug string) error {
	n, err := s.queries.ArticleSlugExists(ctx, slug)
	if err != nil {
		return Internal("checking slug", err)
	}
	if n > 0 {
		return Conflict(MsgSlugExists)
	}
	return nil
}

// verifyActor is Verify for callers that edit existing data: an account that
// no longer exists has no rights, so NotFound becomes Forbidden.
func verifyActor(ctx context.Context, authz *Authorizer, caller *model.Identity, min model.Role) (store.User, error) {
	user, err := authz.Verify(ctx, caller, min)
	if IsKind(err, KindNotFound) {
		return store.User{}, Forbidden(forbiddenMessage(min))
	}
	return user, err
}

func (s *ArticleService) invalidate(ctx context.Context) {
	invalidateArticles(ctx, s.cache)
}

func invalidateArticles(ctx context.Context, c ArticleCache) {
	if err := c.Invalidate(ctx); err != nil {
		slog.Warn("article cache invalidation failed", "error", err)
	}
}

func articleLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return NotFound(MsgArticleNotFound)
	}
	return Internal("loading article", err)
}

func authorOf(u store.User) *model.ArticleAuthor {
	return &model.ArticleAuthor{
		ID:    u.ID,
		Name:  util.PtrFromNullString(u.Name),
		Email: u.Email,
		Image: util.PtrFromNullString(u.Image),
	}
}
