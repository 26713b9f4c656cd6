// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Content statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Project is a showcased construction project.
type Project struct {
	ID         int64         `json:"id"`
	Title      string        `json:"title"`
	Slug       string        `json:"slug"`
	Category   string        `json:"category"`
	City       string        `json:"city"`
	Client     string        `json:"client"`
	Year       sql.NullInt64 `json:"-"`
	Status     string        `json:"status"`
	Excerpt    string        `json:"excerpt"`
	Body       string        `json:"body"`
	CoverImage string        `json:"cover_image"`
	Media      MediaList     `json:"media"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// IsPublished reports whether the project is publicly visible.
func (p *Project) IsPublished() bool {
	return p.Status == StatusPublished
}

// Post is a news or blog article.
type Post struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Status      string       `json:"status"`
	PublishedAt sql.NullTime `json:"-"`
	Excerpt     string       `json:"excerpt"`
	Body        string       `json:"body"`
	CoverImage  string       `json:"cover_image"`
	Tags        Tags         `json:"tags"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsPublished reports whether the post is publicly visible.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// Event is a company event (site visit, trade fair, open day).
type Event struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Excerpt    string    `json:"excerpt"`
	Body       string    `json:"body"`
	Category   string    `json:"category"`
	Location   string    `json:"location"`
	Organizer  string    `json:"organizer"`
	StartsAt   time.Time `json:"starts_at"`
	Status     string    `json:"status"`
	CoverImage string    `json:"cover_image"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsUpcoming reports whether the event starts on or after the given day.
func (e *Event) IsUpcoming(now time.Time) bool {
	y, m, d := now.Date()
	return !e.StartsAt.Before(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
}
