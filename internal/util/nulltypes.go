// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the form value layout for plain dates.
const DateLayout = "2006-01-02"

// ParseDate parses an RFC 3339 timestamp, a datetime-local value or a
// plain YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04:05", DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ParseNullDate parses an optional date. Empty input yields an invalid NullTime.
func ParseNullDate(s string) (sql.NullTime, error) {
	if strings.TrimSpace(s) == "" {
		return sql.NullTime{}, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

// NullTimeFromValue creates a valid sql.NullTime.
func NullTimeFromValue(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

// FormatNullDate formats a NullTime as YYYY-MM-DD, or "" when invalid.
func FormatNullDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(DateLayout)
}
