// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SanitizeFilename extracts only the base name of a client-supplied filename,
// removing any directory components.
func SanitizeFilename(filename string) (string, error) {
	filename = strings.ReplaceAll(filename, "\\", "/")
	safe := path.Base(filename)
	if safe == "." || safe == ".." || safe == "" || safe == "/" {
		return "", fmt.Errorf("invalid filename: %q", filename)
	}
	return safe, nil
}

// CleanKey validates a relative storage key and returns its cleaned form.
// Absolute keys and keys escaping the storage root are rejected.
func CleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty storage key")
	}
	if strings.Contains(key, "\\") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	if ContainsPathTraversal(key) {
		return "", fmt.Errorf("path traversal detected in %q", key)
	}
	return path.Clean(key), nil
}

// ContainsPathTraversal checks if a slash-separated path contains ".." after cleaning.
func ContainsPathTraversal(p string) bool {
	cleaned := path.Clean(p)
	return cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../")
}

// DatedKey builds a storage key of the form prefix/YYYY/MM/DD/<uuid>.<ext>.
// ext may be empty or carry a leading dot.
func DatedKey(prefix string, t time.Time, ext string) string {
	name := uuid.NewString()
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext != "" {
		name += "." + ext
	}
	return path.Join(prefix, t.Format("2006"), t.Format("01"), t.Format("02"), name)
}
