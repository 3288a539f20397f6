// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/blogspace-go/internal/model"
)

const (
	articlesPrefix = "articles:published:"
	generationKey  = "articles:generation"
	generationTTL  = 24 * time.Hour
)

// ArticleCache is a read-through cache for what anonymous and non-admin
// readers see: the published list and published articles by slug. Drafts
// are never stored here. Any article write must call Invalidate.
//
// Entries are keyed by a generation token kept in the backend. A reader
// resolves the token before it loads, and Invalidate replaces it, so a
// load that raced with a write is stored under a key nobody reads again.
type ArticleCache struct {
	backend Cache
	list    *TypedCache[[]model.Article]
	single  *TypedCache[model.Article]
}

// NewArticleCache creates an ArticleCache over backend.
func NewArticleCache(backend Cache, ttl time.Duration) *ArticleCache {
	return &ArticleCache{
		backend: backend,
		list:    NewTypedCache[[]model.Article](backend, ttl),
		single:  NewTypedCache[model.Article](backend, ttl),
	}
}

// PublishedList returns the cached published list, calling load on a miss.
func (c *ArticleCache) PublishedList(ctx context.Context, load func() ([]model.Article, error)) ([]model.Article, error) {
	gen, ok := c.generation(ctx)
	if !ok {
		return load()
	}

	v, err := c.list.GetOrSet(ctx, listKey(gen), func() (*[]model.Article, error) {
		articles, err := load()
		if err != nil {
			return nil, err
		}
		return &articles, nil
	})
	if err != nil {
		return nil, err
	}
	return *v, nil
}

// Published returns the cached published article for slug, calling load on
// a miss. Errors from load, including not-found, are not cached.
func (c *ArticleCache) Published(ctx context.Context, slug string, load func() (*model.Article, error)) (*model.Article, error) {
	gen, ok := c.generation(ctx)
	if !ok {
		return load()
	}
	return c.single.GetOrSet(ctx, slugKey(gen, slug), load)
}

// Invalidate starts a new generation and drops every cached article entry.
func (c *ArticleCache) Invalidate(ctx context.Context) error {
	if err := c.backend.Set(ctx, generationKey, []byte(uuid.NewString()), generationTTL); err != nil {
		return err
	}
	return c.backend.DeleteByPrefix(ctx, articlesPrefix)
}

// generation returns the current generation token, creating one when none
// is stored. ok is false when the backend cannot be used, in which case
// callers load without caching.
func (c *ArticleCache) generation(ctx context.Context) (string, bool) {
	data, err := c.backend.Get(ctx, generationKey)
	if err == nil && len(data) > 0 {
		return string(data), true
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return "", false
	}

	gen := uuid.NewString()
	if err := c.backend.Set(ctx, generationKey, []byte(gen), generationTTL); err != nil {
		return "", false
	}
	return gen, true
}

func listKey(gen string) string {
	return articlesPrefix + gen + ":list"
}

func slugKey(gen, slug string) string {
	return articlesPrefix + gen + ":slug:" + slug
}
