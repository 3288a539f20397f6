// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
)

func TestIdentityCapabilities(t *testing.T) {
	tests := []struct {
		name           string
		identity       *Identity
		wantAdmin      bool
		wantSuperAdmin bool
	}{
		{
			name:     "nil identity",
			identity: nil,
		},
		{
			name:     "user",
			identity: &Identity{UserID: "u1", Role: RoleUser},
		},
		{
			name:      "admin",
			identity:  &Identity{UserID: "u2", Role: RoleAdmin},
			wantAdmin: true,
		},
		{
			name:           "superadmin",
			identity:       &Identity{UserID: "u3", Role: RoleSuperAdmin},
			wantAdmin:      true,
			wantSuperAdmin: true,
		},
		{
			name:     "unknown role claim",
			identity: &Identity{UserID: "u4", Role: Role("owner")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.identity.IsAdmin(); got != tt.wantAdmin {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.wantAdmin)
			}
			if got := tt.identity.IsSuperAdmin(); got != tt.wantSuperAdmin {
				t.Errorf("IsSuperAdmin() = %v, want %v", got, tt.wantSuperAdmin)
			}
		})
	}
}
