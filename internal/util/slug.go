// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides general-purpose helpers: URL slugs, storage keys
// and nullable value parsing.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonSlugChars matches runs of characters that cannot appear in a slug
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugFormat   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Slugify converts a title to a URL-friendly slug: ASCII-folded, lowercase,
// words joined by single hyphens.
//
//	Slugify("Pont de la Liberté") == "pont-de-la-liberte"
func Slugify(s string) string {
	// Strip combining marks first so accented Latin letters fold predictably,
	// then transliterate whatever is left outside ASCII.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = unidecode.Unidecode(folded)

	result := strings.ToLower(folded)
	result = strings.ReplaceAll(result, "'", "")
	result = nonSlugChars.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// IsValidSlug checks if a string is a valid slug format.
func IsValidSlug(s string) bool {
	return slugFormat.MatchString(s)
}
