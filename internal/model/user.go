// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Identity is the caller as established by a session cookie or bearer token.
// Role is the claim carried by that credential and may be stale; mutations
// that matter re-read the role from the store.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the identity claims admin capability.
// A nil identity has none.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role.IsAdmin()
}

// IsSuperAdmin reports whether the identity claims superadmin capability.
func (i *Identity) IsSuperAdmin() bool {
	return i != nil && i.Role.IsSuperAdmin()
}
