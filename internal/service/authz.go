// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/store"
)

// Authorizer re-checks a caller against the user table before a mutation.
// Router guards trust the role claim carried by the session or token; the
// Authorizer is the single authority for writes.
type Authorizer struct {
	queries *store.Queries
}

// NewAuthorizer creates a new Authorizer.
func NewAuthorizer(db *sql.DB) *Authorizer {
	return &Authorizer{queries: store.New(db)}
}

// Verify loads the caller's user record and checks that its stored role is
// at least min. It returns Unauthorized for a nil caller, NotFound when the
// record no longer exists and Forbidden when the stored role is too low.
func (a *Authorizer) Verify(ctx context.Context, caller *model.Identity, min model.Role) (store.User, error) {
	if caller == nil {
		return store.User{}, Unauthorized(MsgUnauthorized)
	}

	var (
		user store.User
		err  error
	)
	if caller.UserID != "" {
		user, err = a.queries.GetUserByID(ctx, caller.UserID)
	} else {
		user, err = a.queries.GetUserByEmail(ctx, caller.Email)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.User{}, NotFound(MsgUserNotFound)
		}
		return store.User{}, Internal("loading caller", err)
	}

	if model.NormalizeRole(user.Role).Level() < min.Level() {
		return store.User{}, Forbidden(forbiddenMessage(min))
	}
	return user, nil
}

func forbiddenMessage(min model.Role) string {
	if min == model.RoleSuperAdmin {
		return MsgSuperAdminRequired
	}
	return MsgForbidden
}

// requireClaim is the cheap pre-check against the role claim alone.
func requireClaim(caller *model.Identity, min model.Role) error {
	if caller == nil {
		return Unauthorized(MsgUnauthorized)
	}
	if caller.Role.Level() < min.Level() {
		return Forbidden(forbiddenMessage(min))
	}
	return nil
}
