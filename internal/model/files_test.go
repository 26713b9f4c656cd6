// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileListScan(t *testing.T) {
	t.Run("legacy strings", func(t *testing.T) {
		var l FileList
		require.NoError(t, l.Scan(`["quotes/2025/01/02/x.pdf",""]`))
		assert.Equal(t, FileList{{Name: "x.pdf", Path: "quotes/2025/01/02/x.pdf"}}, l)
	})

	t.Run("objects", func(t *testing.T) {
		var l FileList
		require.NoError(t, l.Scan([]byte(`[{"name":"plan.dwg","path":"tenders/p.dwg","size":10,"mime":"image/vnd.dwg"},{"path":"q/a.zip"}]`)))
		require.Len(t, l, 2)
		assert.Equal(t, "plan.dwg", l[0].Name)
		assert.Equal(t, int64(10), l[0].Size)
		assert.Equal(t, "a.zip", l[1].Name)
		assert.Equal(t, []string{"tenders/p.dwg", "q/a.zip"}, l.Paths())
	})

	t.Run("null", func(t *testing.T) {
		var l FileList
		require.NoError(t, l.Scan(nil))
		assert.NotNil(t, l)
		assert.Empty(t, l)
	})
}

func TestTags(t *testing.T) {
	tags := NewTags(" beton ", "", "bois", "beton", "acier")
	assert.Equal(t, Tags{"beton", "bois", "acier"}, tags)

	v, err := tags.Value()
	require.NoError(t, err)
	assert.Equal(t, `["beton","bois","acier"]`, v)

	var scanned Tags
	require.NoError(t, scanned.Scan(`["a","a"," b "]`))
	assert.Equal(t, Tags{"a", "b"}, scanned)

	require.NoError(t, scanned.Scan(""))
	assert.Empty(t, scanned)
}
