// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestNullStringFromPtr(t *testing.T) {
	tests := []struct {
		name     string
		input    *string
		expected sql.NullString
	}{
		{
			name:     "nil pointer",
			input:    nil,
			expected: sql.NullString{},
		},
		{
			name:     "value",
			input:    ptr("https://example.com/a.png"),
			expected: sql.NullString{String: "https://example.com/a.png", Valid: true},
		},
		{
			name:     "trimmed",
			input:    ptr("  Jane  "),
			expected: sql.NullString{String: "Jane", Valid: true},
		},
		{
			name:     "blank is null",
			input:    ptr("   "),
			expected: sql.NullString{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NullStringFromPtr(tt.input)
			if result != tt.expected {
				t.Errorf("NullStringFromPtr() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestPtrFromNullString(t *testing.T) {
	if got := PtrFromNullString(sql.NullString{}); got != nil {
		t.Errorf("PtrFromNullString(NULL) = %q, want nil", *got)
	}

	got := PtrFromNullString(sql.NullString{String: "x", Valid: true})
	if got == nil || *got != "x" {
		t.Errorf("PtrFromNullString(x) = %v, want x", got)
	}

	empty := PtrFromNullString(sql.NullString{String: "", Valid: true})
	if empty == nil || *empty != "" {
		t.Errorf("PtrFromNullString(valid empty) = %v, want pointer to empty string", empty)
	}
}
