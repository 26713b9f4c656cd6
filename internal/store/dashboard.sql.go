// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"
)

// GroupCount is one row of a GROUP BY aggregate.
type GroupCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// groupable lists the table/column pairs the dashboard may aggregate on.
var groupable = map[string]map[string]bool{
	"projects":    {"status": true, "category": true, "city": true},
	"posts":       {"status": true},
	"events":      {"status": true, "category": true},
	TableQuotes:   {"status": true, "city": true, "project_type": true},
	TableTenders:  {"status": true},
	TableContacts: {"status": true, "source": true},
}

func checkGroupable(table, column string) error {
	if !groupable[table][column] {
		return fmt.Errorf("cannot aggregate %s.%s", table, column)
	}
	return nil
}

// CountBy returns row counts grouped by column, largest first. Empty values
// are skipped. A limit of zero returns every group.
func (q *Queries) CountBy(ctx context.Context, table, column string, limit int64) ([]GroupCount, error) {
	if err := checkGroupable(table, column); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+column+`, COUNT(*) AS n FROM `+table+`
		WHERE `+column+` IS NOT NULL AND `+column+` <> ''
		GROUP BY `+column+`
		ORDER BY n DESC, `+column+` ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []GroupCount{}
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Label, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CountCreatedSince counts rows of a dashboard table created at or after since.
func (q *Queries) CountCreatedSince(ctx context.Context, table string, since time.Time) (int64, error) {
	if _, ok := groupable[table]; !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE created_at >= ?`, utc(since)).Scan(&n)
	return n, err
}

// ActivityRow is a recent row of any feed source.
type ActivityRow struct {
	ID     int64
	Title  string
	Status string
	// At is the creation time, or the last update for posts.
	At time.Time
}

// activityColumns maps each feed source to its title expression and the
// timestamp it is ordered by. Posts surface when edited, the rest when created.
var activityColumns = map[string]struct{ title, at string }{
	"projects":    {"title", "created_at"},
	"posts":       {"title", "updated_at"},
	TableQuotes:   {"CASE WHEN company <> '' THEN name || ' (' || company || ')' ELSE name END", "created_at"},
	TableTenders:  {"CASE WHEN reference <> '' THEN reference || ' - ' || organization ELSE organization END", "created_at"},
	TableContacts: {"CASE WHEN subject <> '' THEN subject ELSE name END", "created_at"},
}

// RecentActivity returns the latest rows of a feed source.
func (q *Queries) RecentActivity(ctx context.Context, table string, limit int64) ([]ActivityRow, error) {
	cols, ok := activityColumns[table]
	if !ok {
		return nil, fmt.Errorf("unknown activity source %q", table)
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, `+cols.title+`, status, `+cols.at+` FROM `+table+`
		ORDER BY `+cols.at+` DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []ActivityRow{}
	for rows.Next() {
		var r ActivityRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Status, &r.At); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountPerDay counts rows of a dashboard table created at or after since,
// grouped by UTC calendar day (YYYY-MM-DD), oldest first. Days without rows
// are omitted.
func (q *Queries) CountPerDay(ctx context.Context, table string, since time.Time) ([]GroupCount, error) {
	if _, ok := groupable[table]; !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT substr(created_at, 1, 10) AS day, COUNT(*) FROM `+table+`
		WHERE created_at >= ?
		GROUP BY day ORDER BY day`, utc(since))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []GroupCount{}
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Label, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
