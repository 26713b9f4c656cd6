// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/store"
)

// Range is a dashboard reporting window.
type Range string

// Dashboard ranges.
const (
	Range7d  Range = "7d"
	Range30d Range = "30d"
	Range90d Range = "90d"
	RangeAll Range = "all"
)

// ParseRange returns the named range, defaulting to 30 days.
func ParseRange(s string) Range {
	switch r := Range(s); r {
	case Range7d, Range30d, Range90d, RangeAll:
		return r
	}
	return Range30d
}

func (r Range) days() int {
	switch r {
	case Range7d:
		return 7
	case Range90d:
		return 90
	case RangeAll:
		return 0
	}
	return 30
}

// Since returns the start of the window: midnight UTC, days-1 days before now.
// The zero time is returned for RangeAll.
func (r Range) Since(now time.Time) time.Time {
	n := r.days()
	if n == 0 {
		return time.Time{}
	}
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(n - 1))
}

// topGroups is the size of the category and city groupings.
const topGroups = 6

// DefaultActivityLimit is the feed length shown on the dashboard.
const DefaultActivityLimit = 20

// ProjectStats summarises the project portfolio.
type ProjectStats struct {
	Total      int64              `json:"total"`
	Published  int64              `json:"published"`
	Drafts     int64              `json:"drafts"`
	InRange    int64              `json:"in_range"`
	ByStatus   []store.GroupCount `json:"by_status"`
	ByCategory []store.GroupCount `json:"by_category"`
	ByCity     []store.GroupCount `json:"by_city"`
}

// LeadSummary counts one lead table.
type LeadSummary struct {
	Total   int64 `json:"total"`
	New     int64 `json:"new"`
	Read    int64 `json:"read"`
	InRange int64 `json:"in_range"`
}

// PostStats counts posts by status.
type PostStats struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
	Drafts    int64 `json:"drafts"`
}

// DashboardView is the back-office dashboard payload.
type DashboardView struct {
	Range    Range              `json:"range"`
	Projects ProjectStats       `json:"projects"`
	Leads    LeadSummary        `json:"leads"`
	Tenders  LeadSummary        `json:"tenders"`
	Contacts LeadSummary        `json:"contacts"`
	Posts    PostStats          `json:"posts"`
	Trend    []store.GroupCount `json:"trend"`
}

// ActivityItem is one entry of the recent activity feed.
type ActivityItem struct {
	ID     int64     `json:"id"`
	Type   string    `json:"type"`
	Title  string    `json:"title"`
	Status string    `json:"status"`
	URL    string    `json:"url"`
	At     time.Time `json:"at"`
	When   string    `json:"when"`
}

// activitySources lists the feed sources with their per-source limits.
var activitySources = []struct {
	table string
	kind  string
	limit int64
	url   string
}{
	{"projects", "project", 8, "/admin/projects/%d/edit"},
	{store.TableQuotes, model.LeadKindQuote, 6, "/admin/quotes/%d"},
	{"posts", "post", 5, "/admin/posts/%d/edit"},
	{store.TableTenders, model.LeadKindTender, 5, "/admin/tenders/%d"},
	{store.TableContacts, model.LeadKindContact, 5, "/admin/contacts/%d"},
}

// DashboardService computes read-only aggregates. Tables that do not exist
// yet contribute zero counts and empty groupings.
type DashboardService struct {
	queries *store.Queries
	logger  *slog.Logger
	now     func() time.Time
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(db *sql.DB, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{queries: store.New(db), logger: logger, now: time.Now}
}

// tables returns which dashboard tables exist.
func (s *DashboardService) tables(ctx context.Context) (map[string]bool, error) {
	names := []string{"projects", "posts", store.TableQuotes, store.TableTenders, store.TableContacts}
	have := make(map[string]bool, len(names))
	for _, name := range names {
		ok, err := s.queries.HasTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("checking table %s: %w", name, err)
		}
		have[name] = ok
	}
	return have, nil
}

// Summarize computes the dashboard counters for r.
func (s *DashboardService) Summarize(ctx context.Context, r Range) (*DashboardView, error) {
	have, err := s.tables(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	since := r.Since(now)

	v := &DashboardView{
		Range: r,
		Projects: ProjectStats{
			ByStatus:   []store.GroupCount{},
			ByCategory: []store.GroupCount{},
			ByCity:     []store.GroupCount{},
		},
		Trend: []store.GroupCount{},
	}

	if have["projects"] {
		p := &v.Projects
		if p.Total, err = s.queries.CountProjects(ctx, ""); err != nil {
			return nil, err
		}
		if p.Published, err = s.queries.CountProjects(ctx, model.StatusPublished); err != nil {
			return nil, err
		}
		if p.Drafts, err = s.queries.CountProjects(ctx, model.StatusDraft); err != nil {
			return nil, err
		}
		if p.InRange, err = s.queries.CountCreatedSince(ctx, "projects", since); err != nil {
			return nil, err
		}
		if p.ByStatus, err = s.queries.CountBy(ctx, "projects", "status", 0); err != nil {
			return nil, err
		}
		if p.ByCategory, err = s.queries.CountBy(ctx, "projects", "category", topGroups); err != nil {
			return nil, err
		}
		if p.ByCity, err = s.queries.CountBy(ctx, "projects", "city", topGroups); err != nil {
			return nil, err
		}
	}

	for table, dst := range map[string]*LeadSummary{
		store.TableQuotes:   &v.Leads,
		store.TableTenders:  &v.Tenders,
		store.TableContacts: &v.Contacts,
	} {
		if !have[table] {
			continue
		}
		stats, err := s.queries.LeadStats(ctx, table)
		if err != nil {
			return nil, err
		}
		dst.Total, dst.New, dst.Read = stats.Total, stats.New, stats.Read
		if dst.InRange, err = s.queries.CountCreatedSince(ctx, table, since); err != nil {
			return nil, err
		}
	}

	if have["posts"] {
		if v.Posts.Total, err = s.queries.CountPosts(ctx, ""); err != nil {
			return nil, err
		}
		if v.Posts.Published, err = s.queries.CountPosts(ctx, model.StatusPublished); err != nil {
			return nil, err
		}
		if v.Posts.Drafts, err = s.queries.CountPosts(ctx, model.StatusDraft); err != nil {
			return nil, err
		}
	}

	if have[store.TableQuotes] {
		trendSince := since
		if trendSince.IsZero() {
			trendSince = Range30d.Since(now)
		}
		if v.Trend, err = s.queries.CountPerDay(ctx, store.TableQuotes, trendSince); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// RecentActivity merges the latest projects, quotes, posts, tenders and
// contact messages into one feed, newest first. limit <= 0 keeps every item.
func (s *DashboardService) RecentActivity(ctx context.Context, limit int) ([]ActivityItem, error) {
	have, err := s.tables(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	items := []ActivityItem{}
	for _, src := range activitySources {
		if !have[src.table] {
			continue
		}
		rows, err := s.queries.RecentActivity(ctx, src.table, src.limit)
		if err != nil {
			return nil, fmt.Errorf("loading %s activity: %w", src.table, err)
		}
		for _, r := range rows {
			items = append(items, ActivityItem{
				ID:     r.ID,
				Type:   src.kind,
				Title:  r.Title,
				Status: r.Status,
				URL:    fmt.Sprintf(src.url, r.ID),
				At:     r.At,
				When:   humanize.RelTime(r.At, now, "ago", "from now"),
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].At.After(items[j].At)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
