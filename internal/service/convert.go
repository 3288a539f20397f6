// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/store"
	"github.com/olegiv/blogspace-go/internal/util"
)

func articleFromRow(a store.Article) model.Article {
	return model.Article{
		ID:         a.ID,
		Title:      a.Title,
		Slug:       a.Slug,
		Excerpt:    a.Excerpt,
		Content:    a.Content,
		CoverImage: util.PtrFromNullString(a.CoverImage),
		Published:  a.Published,
		ReadTime:   a.ReadTime,
		Tags:       model.DecodeTags(a.Tags),
		AuthorID:   a.AuthorID,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func articleWithAuthorFromRow(a store.ArticleWithAuthor) model.Article {
	out := articleFromRow(a.Article)
	out.Author = &model.ArticleAuthor{
		ID:    a.AuthorID,
		Name:  util.PtrFromNullString(a.AuthorName),
		Email: a.AuthorEmail,
		Image: util.PtrFromNullString(a.AuthorImage),
	}
	return out
}

func articlesFromRows(rows []store.ArticleWithAuthor) []model.Article {
	out := make([]model.Article, 0, len(rows))
	for _, r := range rows {
		out = append(out, articleWithAuthorFromRow(r))
	}
	return out
}

// userFromRow projects a user row for callers. The password hash is dropped.
func userFromRow(u store.User) model.User {
	return model.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      util.PtrFromNullString(u.Name),
		Image:     util.PtrFromNullString(u.Image),
		Role:      model.NormalizeRole(u.Role),
		CreatedAt: u.CreatedAt,
	}
}
