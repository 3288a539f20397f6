// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/blogspace-go/internal/auth"
	"github.com/olegiv/blogspace-go/internal/model"
	"github.com/olegiv/blogspace-go/internal/store"
	"github.com/olegiv/blogspace-go/internal/util"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// UserService manages accounts: registration, authentication, role changes
// and deletion.
type UserService struct {
	queries *store.Queries
	authz   *Authorizer
	cache   ArticleCache
	events  *EventService
	now     func() time.Time
}

// NewUserService creates a new UserService. cache is invalidated when a
// deleted user's articles cascade away; cache and events may be nil.
func NewUserService(db *sql.DB, cache ArticleCache, events *EventService) *UserService {
	if cache == nil {
		cache = noCache{}
	}
	return &UserService{
		queries: store.New(db),
		authz:   NewAuthorizer(db),
		cache:   cache,
		events:  events,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput is the registration request body.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account with the user role.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return model.User{}, InvalidInput("Email and password are required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return model.User{}, InvalidInput("Invalid email address")
	}
	if len(in.Password) < MinPasswordLength {
		return model.User{}, InvalidInput("Password must be at least 8 characters")
	}

	if _, err := s.queries.GetUserByEmail(ctx, email); err == nil {
		return model.User{}, Conflict(MsgUserExists)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return model.User{}, Internal("checking email", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, Internal("hashing password", err)
	}

	now := s.now()
	user, err := s.queries.CreateUser(ctx, store.CreateUserParams{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         util.NullStringFromValue(in.Name),
		PasswordHash: sql.NullString{String: hash, Valid: true},
		Role:         string(model.RoleUser),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.User{}, Conflict(MsgUserExists)
		}
		return model.User{}, Internal("creating user", err)
	}

	_ = s.events.LogAuthEvent(ctx, model.EventLevelInfo, "User registered", user.ID,
		map[string]any{"email": user.Email})
	return userFromRow(user), nil
}

// Authenticate checks email and password. Every failure is reported as
// Unauthorized with the same message. Hashes in a legacy format are
// upgraded after a successful check.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (store.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return store.User{}, Unauthorized(MsgInvalidCredentials)
	}

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = s.events.LogAuthEvent(ctx, model.EventLevelWarning, "Login failed: unknown email", "",
				map[string]any{"email": email})
			return store.User{}, Unauthorized(MsgInvalidCredentials)
		}
		return store.User{}, Internal("loading user", err)
	}

	if !user.PasswordHash.Valid || user.PasswordHash.String == "" {
		return store.User{}, Unauthorized(MsgInvalidCredentials)
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash.String)
	if err != nil || !ok {
		_ = s.events.LogAuthEvent(ctx, model.EventLevelWarning, "Login failed: wrong password", user.ID,
			map[string]any{"email": email})
		return store.User{}, Unauthorized(MsgInvalidCredentials)
	}

	if auth.NeedsRehash(user.PasswordHash.String) {
		s.rehash(ctx, user.ID, password)
	}

	_ = s.events.LogAuthEvent(ctx, model.EventLevelInfo, "User logged in", user.ID, nil)
	return user, nil
}

func (s *UserService) rehash(ctx context.Context, userID, password string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.Warn("password rehash failed", "user_id", userID, "error", err)
		return
	}
	err = s.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
		PasswordHash: sql.NullString{String: hash, Valid: true},
		UpdatedAt:    s.now(),
		ID:           userID,
	})
	if err != nil {
		slog.Warn("password rehash failed", "user_id", userID, "error", err)
	}
}

// Get returns one user by id.
func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	user, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, NotFound(MsgUserNotFound)
		}
		return model.User{}, Internal("loading user", err)
	}
	return userFromRow(user), nil
}

// List returns all users, newest first, with their article counts.
func (s *UserService) List(ctx context.Context, caller *model.Identity) ([]model.User, error) {
	if err := requireClaim(caller, model.RoleAdmin); err != nil {
		return nil, err
	}

	rows, err := s.queries.ListUsersWithArticleCount(ctx)
	if err != nil {
		return nil, Internal("listing users", err)
	}

	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		u := userFromRow(r.User)
		count := r.ArticleCount
		u.ArticleCount = &count
		users = append(users, u)
	}
	return users, nil
}

// ChangeRole sets the role of targetID. Only superadmins may do this, and a
// superadmin may not take the superadmin role away from themselves.
func (s *UserService) ChangeRole(ctx context.Context, caller *model.Identity, targetID, role string) (model.User, error) {
	if err := requireClaim(caller, model.RoleSuperAdmin); err != nil {
		return model.User{}, err
	}

	newRole, ok := model.ParseRole(role)
	if !ok {
		return model.User{}, InvalidInput(MsgInvalidRole)
	}

	actor, err := verifyActor(ctx, s.authz, caller, model.RoleSuperAdmin)
	if err != nil {
		return model.User{}, err
	}

	if targetID == actor.ID && newRole != model.RoleSuperAdmin {
		return model.User{}, InvalidInput(MsgCannotDemoteSelf)
	}

	updated, err := s.queries.UpdateUserRole(ctx, store.UpdateUserRoleParams{
		Role:      string(newRole),
		UpdatedAt: s.now(),
		ID:        targetID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, NotFound(MsgUserNotFound)
		}
		return model.User{}, Internal("updating role", err)
	}

	_ = s.events.LogUserEvent(ctx, model.EventLevelInfo, "User role changed", actor.ID,
		map[string]any{"target_id": targetID, "role": string(newRole)})
	return userFromRow(updated), nil
}

// DeleteUser removes targetID and, by cascade, every article they wrote.
func (s *UserService) DeleteUser(ctx context.Context, caller *model.Identity, targetID string) error {
	if err := requireClaim(caller, model.RoleSuperAdmin); err != nil {
		return err
	}

	actor, err := verifyActor(ctx, s.authz, caller, model.RoleSuperAdmin)
	if err != nil {
		return err
	}

	if targetID == actor.ID {
		return InvalidInput(MsgCannotDeleteSelf)
	}

	n, err := s.queries.DeleteUser(ctx, targetID)
	if err != nil {
		return Internal("deleting user", err)
	}
	if n == 0 {
		return NotFound(MsgUserNotFound)
	}

	invalidateArticles(ctx, s.cache)
	_ = s.events.LogUserEvent(ctx, model.EventLevelWarning, "User deleted", actor.ID,
		map[string]any{"target_id": targetID})
	return nil
}
