// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/bkconstruct/internal/model"
)

// slugTables lists the tables carrying a unique slug column.
var slugTables = map[string]bool{"projects": true, "posts": true, "events": true}

// SlugTaken reports whether slug is used by a row of table other than exceptID.
func (q *Queries) SlugTaken(ctx context.Context, table, slug string, exceptID int64) (bool, error) {
	if !slugTables[table] {
		return false, fmt.Errorf("table %q has no slug", table)
	}
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE slug = ? AND id <> ?`, slug, exceptID).Scan(&n)
	return n > 0, err
}

// ---- projects ----

const projectColumns = `id, title, slug, category, city, client, year, status, excerpt, body, cover_image, media, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (model.Project, error) {
	var p model.Project
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Category, &p.City, &p.Client, &p.Year,
		&p.Status, &p.Excerpt, &p.Body, &p.CoverImage, &p.Media, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (q *Queries) queryProjects(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListProjects returns projects newest first. An empty status matches all.
func (q *Queries) ListProjects(ctx context.Context, status string, page Page) ([]model.Project, error) {
	return q.queryProjects(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE (? = '' OR status = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, status, status, page.Limit, page.Offset)
}

// CountProjects counts projects. An empty status matches all.
func (q *Queries) CountProjects(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE (? = '' OR status = ?)`, status, status).Scan(&n)
	return n, err
}

// ListRelatedProjects returns published projects of the same category.
func (q *Queries) ListRelatedProjects(ctx context.Context, category string, excludeID, limit int64) ([]model.Project, error) {
	return q.queryProjects(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE status = 'published' AND id <> ? AND (? = '' OR category = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, excludeID, category, category, limit)
}

// GetProject returns a project by id.
func (q *Queries) GetProject(ctx context.Context, id int64) (model.Project, error) {
	p, err := scanProject(q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	return p, notFound(err)
}

// GetProjectBySlug returns a project by slug.
func (q *Queries) GetProjectBySlug(ctx context.Context, slug string) (model.Project, error) {
	p, err := scanProject(q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE slug = ?`, slug))
	return p, notFound(err)
}

// CreateProject inserts p and returns the stored row.
func (q *Queries) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	id, err := insertID(q.db.ExecContext(ctx, `
		INSERT INTO projects (title, slug, category, city, client, year, status, excerpt, body, cover_image, media, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Slug, p.Category, p.City, p.Client, p.Year, p.Status, p.Excerpt, p.Body,
		p.CoverImage, p.Media, utc(p.CreatedAt), utc(p.UpdatedAt)))
	if err != nil {
		return model.Project{}, err
	}
	return q.GetProject(ctx, id)
}

// UpdateProject stores every mutable column of p.
func (q *Queries) UpdateProject(ctx context.Context, p model.Project) (model.Project, error) {
	if err := affected(q.db.ExecContext(ctx, `
		UPDATE projects SET title = ?, slug = ?, category = ?, city = ?, client = ?, year = ?, status = ?,
			excerpt = ?, body = ?, cover_image = ?, media = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Slug, p.Category, p.City, p.Client, p.Year, p.Status, p.Excerpt, p.Body,
		p.CoverImage, p.Media, utc(p.UpdatedAt), p.ID)); err != nil {
		return model.Project{}, err
	}
	return q.GetProject(ctx, p.ID)
}

// DeleteProject deletes a project row.
func (q *Queries) DeleteProject(ctx context.Context, id int64) error {
	return affected(q.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id))
}

// ---- posts ----

const postColumns = `id, title, slug, status, published_at, excerpt, body, cover_image, tags, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Status, &p.PublishedAt, &p.Excerpt, &p.Body,
		&p.CoverImage, &p.Tags, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (q *Queries) queryPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPosts returns posts newest first. An empty status matches all.
func (q *Queries) ListPosts(ctx context.Context, status string, page Page) ([]model.Post, error) {
	return q.queryPosts(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE (? = '' OR status = ?)
		ORDER BY COALESCE(published_at, created_at) DESC, id DESC
		LIMIT ? OFFSET ?`, status, status, page.Limit, page.Offset)
}

// CountPosts counts posts. An empty status matches all.
func (q *Queries) CountPosts(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE (? = '' OR status = ?)`, status, status).Scan(&n)
	return n, err
}

// ListOtherPublishedPosts returns published posts except excludeID.
func (q *Queries) ListOtherPublishedPosts(ctx context.Context, excludeID, limit int64) ([]model.Post, error) {
	return q.queryPosts(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE status = 'published' AND id <> ?
		ORDER BY COALESCE(published_at, created_at) DESC, id DESC
		LIMIT ?`, excludeID, limit)
}

// GetPost returns a post by id.
func (q *Queries) GetPost(ctx context.Context, id int64) (model.Post, error) {
	p, err := scanPost(q.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	return p, notFound(err)
}

// GetPostBySlug returns a post by slug.
func (q *Queries) GetPostBySlug(ctx context.Context, slug string) (model.Post, error) {
	p, err := scanPost(q.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug))
	return p, notFound(err)
}

// CreatePost inserts p and returns the stored row.
func (q *Queries) CreatePost(ctx context.Context, p model.Post) (model.Post, error) {
	id, err := insertID(q.db.ExecContext(ctx, `
		INSERT INTO posts (title, slug, status, published_at, excerpt, body, cover_image, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Slug, p.Status, nullUTC(p.PublishedAt), p.Excerpt, p.Body, p.CoverImage, p.Tags,
		utc(p.CreatedAt), utc(p.UpdatedAt)))
	if err != nil {
		return model.Post{}, err
	}
	return q.GetPost(ctx, id)
}

// UpdatePost stores every mutable column of p.
func (q *Queries) UpdatePost(ctx context.Context, p model.Post) (model.Post, error) {
	if err := affected(q.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, slug = ?, status = ?, published_at = ?, excerpt = ?, body = ?,
			cover_image = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Slug, p.Status, nullUTC(p.PublishedAt), p.Excerpt, p.Body, p.CoverImage, p.Tags,
		utc(p.UpdatedAt), p.ID)); err != nil {
		return model.Post{}, err
	}
	return q.GetPost(ctx, p.ID)
}

// DeletePost deletes a post row.
func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	return affected(q.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id))
}

// ---- events ----

const eventColumns = `id, title, slug, excerpt, body, category, location, organizer, starts_at, status, cover_image, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Slug, &e.Excerpt, &e.Body, &e.Category, &e.Location,
		&e.Organizer, &e.StartsAt, &e.Status, &e.CoverImage, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (q *Queries) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListEvents returns events by start date, latest first. An empty status matches all.
func (q *Queries) ListEvents(ctx context.Context, status string, page Page) ([]model.Event, error) {
	return q.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE (? = '' OR status = ?)
		ORDER BY starts_at DESC, id DESC
		LIMIT ? OFFSET ?`, status, status, page.Limit, page.Offset)
}

// CountEvents counts events. An empty status matches all.
func (q *Queries) CountEvents(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE (? = '' OR status = ?)`, status, status).Scan(&n)
	return n, err
}

// ListUpcomingEvents returns published events starting at or after from, soonest first.
func (q *Queries) ListUpcomingEvents(ctx context.Context, from time.Time, limit int64) ([]model.Event, error) {
	return q.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE status = 'published' AND starts_at >= ?
		ORDER BY starts_at ASC, id ASC
		LIMIT ?`, utc(from), limit)
}

// ListPastEvents returns published events that started before until, latest first.
func (q *Queries) ListPastEvents(ctx context.Context, until time.Time, limit int64) ([]model.Event, error) {
	return q.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE status = 'published' AND starts_at < ?
		ORDER BY starts_at DESC, id DESC
		LIMIT ?`, utc(until), limit)
}

// GetEvent returns an event by id.
func (q *Queries) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	e, err := scanEvent(q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	return e, notFound(err)
}

// GetEventBySlug returns an event by slug.
func (q *Queries) GetEventBySlug(ctx context.Context, slug string) (model.Event, error) {
	e, err := scanEvent(q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = ?`, slug))
	return e, notFound(err)
}

// CreateEvent inserts e and returns the stored row.
func (q *Queries) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	id, err := insertID(q.db.ExecContext(ctx, `
		INSERT INTO events (title, slug, excerpt, body, category, location, organizer, starts_at, status, cover_image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Slug, e.Excerpt, e.Body, e.Category, e.Location, e.Organizer, utc(e.StartsAt),
		e.Status, e.CoverImage, utc(e.CreatedAt), utc(e.UpdatedAt)))
	if err != nil {
		return model.Event{}, err
	}
	return q.GetEvent(ctx, id)
}

// UpdateEvent stores every mutable column of e.
func (q *Queries) UpdateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	if err := affected(q.db.ExecContext(ctx, `
		UPDATE events SET title = ?, slug = ?, excerpt = ?, body = ?, category = ?, location = ?,
			organizer = ?, starts_at = ?, status = ?, cover_image = ?, updated_at = ?
		WHERE id = ?`,
		e.Title, e.Slug, e.Excerpt, e.Body, e.Category, e.Location, e.Organizer, utc(e.StartsAt),
		e.Status, e.CoverImage, utc(e.UpdatedAt), e.ID)); err != nil {
		return model.Event{}, err
	}
	return q.GetEvent(ctx, e.ID)
}

// DeleteEvent deletes an event row.
func (q *Queries) DeleteEvent(ctx context.Context, id int64) error {
	return affected(q.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id))
}
