// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// AttachedFile is a document uploaded with a lead submission.
type AttachedFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size,omitempty"`
	Mime string `json:"mime,omitempty"`
}

// FileList is an ordered list of attached files stored as a JSON column.
type FileList []AttachedFile

// Value implements driver.Valuer.
func (l FileList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encoding files: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Bare path strings are accepted and
// converted to entries named after the file's base name.
func (l *FileList) Scan(src any) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*l = FileList{}
		return err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decoding files: %w", err)
	}

	out := make(FileList, 0, len(items))
	for _, item := range items {
		var p string
		if json.Unmarshal(item, &p) == nil {
			if p != "" {
				out = append(out, AttachedFile{Name: path.Base(p), Path: p})
			}
			continue
		}
		var f AttachedFile
		if err := json.Unmarshal(item, &f); err != nil {
			return fmt.Errorf("decoding file entry: %w", err)
		}
		if f.Name == "" && f.Path != "" {
			f.Name = path.Base(f.Path)
		}
		out = append(out, f)
	}
	*l = out
	return nil
}

// Paths returns the non-empty storage paths of the list.
func (l FileList) Paths() []string {
	var paths []string
	for _, f := range l {
		if f.Path != "" {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// Tags is a set of short labels stored as a JSON array. Order of first
// appearance is kept; blanks and duplicates are dropped.
type Tags []string

// NewTags normalises raw tag input into a Tags set.
func NewTags(raw ...string) Tags {
	seen := make(map[string]bool, len(raw))
	out := make(Tags, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src any) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*t = Tags{}
		return err
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decoding tags: %w", err)
	}
	*t = NewTags(items...)
	return nil
}
