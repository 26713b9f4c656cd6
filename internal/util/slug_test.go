// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple title", input: "Hello World", expected: "hello-world"},
		{name: "french accents", input: "Pont de la Liberté", expected: "pont-de-la-liberte"},
		{name: "apostrophe", input: "Rénovation de l'Hôtel de Ville", expected: "renovation-de-lhotel-de-ville"},
		{name: "punctuation", input: "Hello, World!", expected: "hello-world"},
		{name: "numbers", input: "Lot 12 - Phase 3", expected: "lot-12-phase-3"},
		{name: "multiple spaces", input: "  Hello   World  ", expected: "hello-world"},
		{name: "german", input: "Straße Köln", expected: "strasse-koln"},
		{name: "cyrillic", input: "Мост", expected: "most"},
		{name: "empty", input: "", expected: ""},
		{name: "only symbols", input: "!!!", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSlugifyIsDeterministic(t *testing.T) {
	title := "Pont de la Liberté"
	if Slugify(title) != Slugify(title) {
		t.Error("Slugify must be deterministic")
	}
	if !IsValidSlug(Slugify(title)) {
		t.Error("Slugify output must be a valid slug")
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"hello-world", true},
		{"projet-2024", true},
		{"a", true},
		{"", false},
		{"-leading", false},
		{"trailing-", false},
		{"double--hyphen", false},
		{"Upper", false},
		{"with space", false},
		{"accentué", false},
	}
	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			if got := IsValidSlug(tt.slug); got != tt.want {
				t.Errorf("IsValidSlug(%q) = %v, want %v", tt.slug, got, tt.want)
			}
		})
	}
}
