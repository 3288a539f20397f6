// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared across the application:
// roles, article tags and event log constants.
package model

// Role is a user's capability level. The set is closed: any stored or claimed
// value outside it is treated as RoleUser.
type Role string

// Roles in ascending order of capability.
const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Roles lists every valid role.
var Roles = []Role{RoleUser, RoleAdmin, RoleSuperAdmin}

// ParseRole converts s to a Role. The boolean is false when s is not one of
// the known roles.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return Role(s), true
	default:
		return RoleUser, false
	}
}

// NormalizeRole returns the Role for s, falling back to RoleUser.
func NormalizeRole(s string) Role {
	r, _ := ParseRole(s)
	return r
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// IsAdmin reports whether r may manage articles and read admin surfaces.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// IsSuperAdmin reports whether r may change roles and delete users.
func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

// Level returns the position of r in the capability order.
// Unknown roles rank with RoleUser.
func (r Role) Level() int {
	switch r {
	case RoleSuperAdmin:
		return 2
	case RoleAdmin:
		return 1
	default:
		return 0
	}
}

// IsAdmin reports whether the raw role string grants admin capability.
func IsAdmin(role string) bool {
	return NormalizeRole(role).IsAdmin()
}

// IsSuperAdmin reports whether the raw role string grants superadmin capability.
func IsSuperAdmin(role string) bool {
	return NormalizeRole(role).IsSuperAdmin()
}
