// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Media entry types.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Media entry kinds.
const (
	MediaKindUpload = "upload"
	MediaKindURL    = "url"
)

// Supported MIME types
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
	MimeTypePDF  = "application/pdf"
	MimeTypeMP4  = "video/mp4"
	MimeTypeWebM = "video/webm"
)

// MediaItem is one entry of a project's media gallery.
// Upload entries carry Path/Mime/Size, URL entries carry only URL.
type MediaItem struct {
	Type string `json:"type"`
	Kind string `json:"kind,omitempty"`
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
	Mime string `json:"mime,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// IsUpload reports whether the entry references a stored file.
// Entries written before kinds existed only have a path; those count as uploads
// unless the path is an absolute URL.
func (m MediaItem) IsUpload() bool {
	switch m.Kind {
	case MediaKindUpload:
		return m.Path != ""
	case MediaKindURL:
		return false
	}
	return m.Path != "" && !isAbsoluteURL(m.Path)
}

// MediaTypeForMime classifies a MIME type as video or image.
func MediaTypeForMime(mime string) string {
	if strings.HasPrefix(mime, "video/") {
		return MediaTypeVideo
	}
	return MediaTypeImage
}

// MediaList is an ordered list of media entries stored as a JSON column.
type MediaList []MediaItem

// Value implements driver.Valuer.
func (l MediaList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encoding media: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *MediaList) Scan(src any) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*l = MediaList{}
		return err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decoding media: %w", err)
	}

	out := make(MediaList, 0, len(items))
	for _, item := range items {
		// Legacy rows stored bare paths.
		var path string
		if json.Unmarshal(item, &path) == nil {
			if path == "" {
				continue
			}
			if isAbsoluteURL(path) {
				out = append(out, MediaItem{Type: MediaTypeVideo, Kind: MediaKindURL, URL: path})
			} else {
				out = append(out, MediaItem{Type: MediaTypeImage, Kind: MediaKindUpload, Path: path})
			}
			continue
		}

		var m MediaItem
		if err := json.Unmarshal(item, &m); err != nil {
			return fmt.Errorf("decoding media item: %w", err)
		}
		if m.Type == "" {
			m.Type = MediaTypeForMime(m.Mime)
		}
		if m.Kind == "" {
			if m.URL != "" && m.Path == "" {
				m.Kind = MediaKindURL
			} else if isAbsoluteURL(m.Path) {
				m.Kind, m.URL, m.Path = MediaKindURL, m.Path, ""
			} else {
				m.Kind = MediaKindUpload
			}
		}
		out = append(out, m)
	}
	*l = out
	return nil
}

// UploadPaths returns the storage paths of all upload-kind entries.
func (l MediaList) UploadPaths() []string {
	var paths []string
	for _, m := range l {
		if m.IsUpload() {
			paths = append(paths, m.Path)
		}
	}
	return paths
}

// Without returns a copy of the list without the entries at the given indexes,
// together with the removed entries. Out-of-range indexes are ignored.
func (l MediaList) Without(indexes []int) (MediaList, MediaList) {
	drop := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		drop[i] = true
	}
	kept := make(MediaList, 0, len(l))
	var removed MediaList
	for i, m := range l {
		if drop[i] {
			removed = append(removed, m)
			continue
		}
		kept = append(kept, m)
	}
	return kept, removed
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// jsonBytes normalises a JSON column value. Returns nil for NULL or blank values.
func jsonBytes(src any) ([]byte, error) {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", src)
	}
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	return []byte(s), nil
}
