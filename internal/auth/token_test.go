// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	plain, hash, err := GenerateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(plain, TokenPrefix))
	assert.Len(t, hash, 64)
	assert.Equal(t, HashToken(plain), hash)
	assert.NotContains(t, hash, plain)

	other, _, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, plain, other)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer   abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer  ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
