// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides small helpers shared by handlers and services:
// slug derivation and validation, nullable column conversion and client IP
// extraction.
package util

import (
	"regexp"
	"strings"
)

// nonSlugRun matches a maximal run of characters outside [a-z0-9].
var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title: lower-case it, collapse every run
// of characters outside [a-z0-9] into one hyphen, then trim hyphens from
// both ends. Non-ASCII letters are separators, not transliterated.
func Slugify(s string) string {
	result := nonSlugRun.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(result, "-")
}

// IsValidSlug checks if a string is a valid slug format.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}

	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}

	return !strings.Contains(s, "--")
}
