// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"encoding/json"
	"time"
)

// dateLayout is the wire format of date-only columns.
const dateLayout = "2006-01-02"

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func datePtr(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := t.Time.Format(dateLayout)
	return &s
}

// MarshalJSON writes the nullable year as a number or null.
func (p Project) MarshalJSON() ([]byte, error) {
	type alias Project
	var year *int64
	if p.Year.Valid {
		year = &p.Year.Int64
	}
	return json.Marshal(struct {
		alias
		Year *int64 `json:"year"`
	}{alias(p), year})
}

// MarshalJSON writes the nullable publication time as a timestamp or null.
func (p Post) MarshalJSON() ([]byte, error) {
	type alias Post
	return json.Marshal(struct {
		alias
		PublishedAt *time.Time `json:"published_at"`
	}{alias(p), timePtr(p.PublishedAt)})
}

// MarshalJSON writes the nullable dates of a quote.
func (q Quote) MarshalJSON() ([]byte, error) {
	type alias Quote
	return json.Marshal(struct {
		alias
		DesiredDate *string    `json:"desired_date"`
		ReadAt      *time.Time `json:"read_at"`
	}{alias(q), datePtr(q.DesiredDate), timePtr(q.ReadAt)})
}

// MarshalJSON writes the nullable dates of a tender.
func (t Tender) MarshalJSON() ([]byte, error) {
	type alias Tender
	return json.Marshal(struct {
		alias
		Deadline *string    `json:"deadline"`
		ReadAt   *time.Time `json:"read_at"`
	}{alias(t), datePtr(t.Deadline), timePtr(t.ReadAt)})
}

// MarshalJSON writes the nullable read time of a contact message.
func (c ContactMessage) MarshalJSON() ([]byte, error) {
	type alias ContactMessage
	return json.Marshal(struct {
		alias
		ReadAt *time.Time `json:"read_at"`
	}{alias(c), timePtr(c.ReadAt)})
}
