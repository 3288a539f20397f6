// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure. The HTTP layer maps each kind to a
// status code.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindInvalidInput
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a classified service failure. Message is safe to show to callers;
// Err, when set, is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Messages shared by services and handlers.
const (
	MsgUnauthorized        = "Unauthorized"
	MsgForbidden           = "Forbidden"
	MsgSuperAdminRequired  = "Forbidden - Only superadmins can modify users"
	MsgArticleNotFound     = "Article not found"
	MsgUserNotFound        = "User not found"
	MsgSlugExists          = "An article with this slug already exists"
	MsgArticleFieldsNeeded = "Title, slug, excerpt, and content are required"
	MsgInvalidSlug         = "Slug may contain only lowercase letters, digits and single hyphens"
	MsgInvalidRole         = "Invalid role"
	MsgCannotDemoteSelf    = "Cannot change your own superadmin role"
	MsgCannotDeleteSelf    = "Cannot delete yourself"
	MsgInvalidCredentials  = "Invalid email or password"
	MsgUserExists          = "User already exists"
)

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Unauthorized reports a missing or invalid identity.
func Unauthorized(msg string) *Error { return newError(KindUnauthorized, msg) }

// Forbidden reports an identity without the required role.
func Forbidden(msg string) *Error { return newError(KindForbidden, msg) }

// InvalidInput reports missing or illegal request data.
func InvalidInput(msg string) *Error { return newError(KindInvalidInput, msg) }

// Conflict reports a uniqueness violation.
func Conflict(msg string) *Error { return newError(KindConflict, msg) }

// NotFound reports a missing entity.
func NotFound(msg string) *Error { return newError(KindNotFound, msg) }

// Internal wraps an unexpected failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the Kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a service error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
