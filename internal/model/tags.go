// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// NormalizeTags trims every tag and drops the empty ones, keeping order.
// The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// EncodeTags normalizes tags and serializes them as a JSON array string.
func EncodeTags(tags []string) string {
	b, err := json.Marshal(NormalizeTags(tags))
	if err != nil {
		// A []string always marshals.
		return "[]"
	}
	return string(b)
}

// DecodeTags parses a stored JSON array of tags. An absent, empty or
// malformed value decodes to an empty slice.
func DecodeTags(stored sql.NullString) []string {
	if !stored.Valid || strings.TrimSpace(stored.String) == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(stored.String), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}
