// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"regexp"
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "plan.pdf", want: "plan.pdf"},
		{input: "../../etc/passwd", want: "passwd"},
		{input: `C:\Users\me\devis.docx`, want: "devis.docx"},
		{input: "..", wantErr: true},
		{input: "", wantErr: true},
		{input: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := SanitizeFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanKey(t *testing.T) {
	valid := []string{"quotes/2025/01/02/a.pdf", "projects/./covers/x.jpg"}
	for _, k := range valid {
		if _, err := CleanKey(k); err != nil {
			t.Errorf("CleanKey(%q) unexpected error: %v", k, err)
		}
	}
	invalid := []string{"", "/etc/passwd", "../secret", "a/../../b", `a\b`}
	for _, k := range invalid {
		if _, err := CleanKey(k); err == nil {
			t.Errorf("CleanKey(%q) expected error", k)
		}
	}
}

func TestDatedKey(t *testing.T) {
	day := time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)
	key := DatedKey("quotes", day, ".PDF")
	re := regexp.MustCompile(`^quotes/2025/03/07/[0-9a-f-]{36}\.pdf$`)
	if !re.MatchString(key) {
		t.Errorf("DatedKey() = %q", key)
	}
	if DatedKey("quotes", day, "pdf") == key {
		t.Error("DatedKey must generate distinct names")
	}
}
