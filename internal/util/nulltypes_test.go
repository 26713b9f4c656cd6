// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "2025-06-01", want: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{input: "2025-06-01T14:30", want: time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)},
		{input: "2025-06-01T14:30:00Z", want: time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)},
		{input: "01/06/2025", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v", tt.input, err)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseNullDate(t *testing.T) {
	nt, err := ParseNullDate("")
	if err != nil || nt.Valid {
		t.Errorf("ParseNullDate(\"\") = %+v, %v", nt, err)
	}
	nt, err = ParseNullDate("2025-01-31")
	if err != nil || !nt.Valid {
		t.Fatalf("ParseNullDate() = %+v, %v", nt, err)
	}
	if FormatNullDate(nt) != "2025-01-31" {
		t.Errorf("FormatNullDate() = %q", FormatNullDate(nt))
	}
	if _, err := ParseNullDate("soon"); err == nil {
		t.Error("ParseNullDate(\"soon\") expected error")
	}
}
