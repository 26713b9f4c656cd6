// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/bkconstruct/internal/imaging"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/storage"
	"github.com/olegiv/bkconstruct/internal/store"
	"github.com/olegiv/bkconstruct/internal/util"
)

// ContentPerPage is the admin listing page size.
const ContentPerPage = 12

// Storage prefixes of content files.
const (
	prefixProjectCovers = "projects/covers"
	prefixProjectMedia  = "projects/media"
	prefixPostCovers    = "posts/covers"
	prefixEventCovers   = "events/covers"
)

const (
	msgSlugTaken = "The slug has already been taken."
	msgCoverType = "Must be a JPEG, PNG, GIF or WebP image."
)

// Listing is one page of a paginated listing.
type Listing[T any] struct {
	Items    []T   `json:"data"`
	Total    int64 `json:"total"`
	Page     int   `json:"current_page"`
	PerPage  int   `json:"per_page"`
	LastPage int   `json:"last_page"`
}

func newListing[T any](items []T, total int64, page, perPage int) Listing[T] {
	if page < 1 {
		page = 1
	}
	last := int((total + int64(perPage) - 1) / int64(perPage))
	if last < 1 {
		last = 1
	}
	if items == nil {
		items = []T{}
	}
	return Listing[T]{Items: items, Total: total, Page: page, PerPage: perPage, LastPage: last}
}

// ProjectInput is the project form.
type ProjectInput struct {
	Title       string   `form:"title" validate:"required,max=180"`
	Slug        string   `form:"slug" validate:"omitempty,max=200,slug"`
	Category    string   `form:"category" validate:"max=80"`
	City        string   `form:"city" validate:"max=120"`
	Client      string   `form:"client" validate:"max=160"`
	Year        string   `form:"year" validate:"-"`
	Status      string   `form:"status" validate:"required,oneof=draft published"`
	Excerpt     string   `form:"excerpt" validate:"max=500"`
	Body        string   `form:"body"`
	VideoURLs   []string `form:"video_urls" validate:"dive,max=1024,httpurl"`
	RemoveMedia []int    `form:"remove_media" validate:"-"`
	Cover       *Upload  `form:"cover" validate:"-"`
	Media       []Upload `form:"media_uploads" validate:"-"`
}

func (in *ProjectInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Category = strings.TrimSpace(in.Category)
	in.City = strings.TrimSpace(in.City)
	in.Client = strings.TrimSpace(in.Client)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	urls := in.VideoURLs[:0:0]
	for _, u := range in.VideoURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	in.VideoURLs = urls
}

// PostInput is the post form.
type PostInput struct {
	Title       string   `form:"title" validate:"required,max=180"`
	Slug        string   `form:"slug" validate:"omitempty,max=200,slug"`
	Status      string   `form:"status" validate:"required,oneof=draft published"`
	PublishedAt string   `form:"published_at" validate:"-"`
	Excerpt     string   `form:"excerpt" validate:"max=500"`
	Body        string   `form:"body"`
	Tags        []string `form:"tags" validate:"dive,max=40"`
	Cover       *Upload  `form:"cover" validate:"-"`
}

// EventInput is the event form.
type EventInput struct {
	Title     string  `form:"title" validate:"required,max=255"`
	Slug      string  `form:"slug" validate:"omitempty,max=200,slug"`
	Excerpt   string  `form:"excerpt" validate:"max=500"`
	Body      string  `form:"body" validate:"required"`
	Category  string  `form:"category" validate:"required,max=120"`
	Location  string  `form:"location" validate:"required,max=255"`
	Organizer string  `form:"organizer" validate:"required,max=255"`
	StartsAt  string  `form:"starts_at" validate:"required"`
	Status    string  `form:"status" validate:"required,oneof=draft published archived"`
	Cover     *Upload `form:"cover" validate:"-"`
}

// ContentService manages projects, posts and events.
type ContentService struct {
	db       *sql.DB
	queries  *store.Queries
	storage  storage.Storage
	images   *imaging.Normalizer
	logger   *slog.Logger
	now      func() time.Time
	onChange func(kind string)
}

// NewContentService creates a ContentService storing files in st.
func NewContentService(db *sql.DB, st storage.Storage, logger *slog.Logger) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		db:      db,
		queries: store.New(db),
		storage: st,
		images:  imaging.NewNormalizer(),
		logger:  logger,
		now:     time.Now,
	}
}

// OnChange registers fn to be called after every successful write. kind is
// "project", "post" or "event".
func (s *ContentService) OnChange(fn func(kind string)) {
	s.onChange = fn
}

func (s *ContentService) changed(kind string) {
	if s.onChange != nil {
		s.onChange(kind)
	}
}

// staged tracks files written during an operation so they can be removed
// when the database write fails.
type staged struct {
	keys []string
}

func (s *ContentService) rollback(ctx context.Context, st *staged) {
	if failed, err := storage.DeleteAll(context.WithoutCancel(ctx), s.storage, st.keys); err != nil {
		s.logger.Error("failed to remove staged files", "keys", failed, "error", err)
	}
}

// discard deletes files no longer referenced after a successful write.
func (s *ContentService) discard(ctx context.Context, keys ...string) {
	if failed, err := storage.DeleteAll(ctx, s.storage, keys); err != nil {
		s.logger.Error("failed to delete replaced files", "keys", failed, "error", err)
	}
}

// prepareCover validates and normalises an optional cover upload.
func (s *ContentService) prepareCover(ve *model.ValidationError, u *Upload) *imaging.Result {
	if u == nil {
		return nil
	}
	files := checkUploads(ve, "cover", []Upload{*u}, MaxCoverSize, isImage, msgCoverType)
	if len(files) == 0 {
		return nil
	}
	r, err := files[0].Open()
	if err != nil {
		ve.Add("cover", msgCoverType)
		return nil
	}
	defer func() { _ = r.Close() }()

	res, err := s.images.Normalize(r)
	if err != nil {
		if !errors.Is(err, imaging.ErrUnsupportedFormat) {
			s.logger.Warn("cover image rejected", "file", u.Filename, "error", err)
		}
		ve.Add("cover", msgCoverType)
		return nil
	}
	return res
}

func (s *ContentService) putCover(ctx context.Context, st *staged, prefix string, img *imaging.Result) (string, error) {
	key := util.DatedKey(prefix, s.now(), img.Ext)
	if err := s.storage.Put(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.MimeType); err != nil {
		return "", err
	}
	st.keys = append(st.keys, key)
	return key, nil
}

// resolveSlug derives a slug from title when slug is empty and checks that
// it is free. Collisions are reported, never resolved.
func (s *ContentService) resolveSlug(ctx context.Context, ve *model.ValidationError, table, slug, title string, exceptID int64) string {
	if slug == "" {
		slug = util.Slugify(title)
	}
	if slug == "" {
		ve.Add("slug", "A slug could not be derived from the title.")
		return ""
	}
	taken, err := s.queries.SlugTaken(ctx, table, slug, exceptID)
	if err != nil {
		s.logger.Error("failed to check slug", "table", table, "error", err)
		return slug
	}
	if taken {
		ve.Add("slug", msgSlugTaken)
	}
	return slug
}

func slugConflict(err error, table string) error {
	if store.IsUniqueViolation(err, table+".slug") {
		return model.NewValidationError("slug", msgSlugTaken)
	}
	return err
}

func parseYear(ve *model.ValidationError, s string, now time.Time) sql.NullInt64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullInt64{}
	}
	maxYear := now.Year() + 1
	y, err := strconv.Atoi(s)
	if err != nil || len(s) != 4 || y < 1900 || y > maxYear {
		ve.Add("year", fmt.Sprintf("Must be a year between 1900 and %d.", maxYear))
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(y), Valid: true}
}

// Projects

// ListProjects returns a page of projects, newest first. An empty status lists all.
func (s *ContentService) ListProjects(ctx context.Context, status string, page, perPage int) (Listing[model.Project], error) {
	if perPage <= 0 {
		perPage = ContentPerPage
	}
	items, err := s.queries.ListProjects(ctx, status, store.NewPage(page, perPage))
	if err != nil {
		return Listing[model.Project]{}, fmt.Errorf("listing projects: %w", err)
	}
	total, err := s.queries.CountProjects(ctx, status)
	if err != nil {
		return Listing[model.Project]{}, fmt.Errorf("counting projects: %w", err)
	}
	return newListing(items, total, page, perPage), nil
}

// GetProject returns a project by id.
func (s *ContentService) GetProject(ctx context.Context, id int64) (model.Project, error) {
	return s.queries.GetProject(ctx, id)
}

// PublishedProject finds a published project by slug or numeric id.
func (s *ContentService) PublishedProject(ctx context.Context, key string) (model.Project, error) {
	p, err := s.queries.GetProjectBySlug(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		if id, perr := strconv.ParseInt(key, 10, 64); perr == nil {
			p, err = s.queries.GetProject(ctx, id)
		}
	}
	if err != nil {
		return model.Project{}, err
	}
	if !p.IsPublished() {
		return model.Project{}, model.ErrNotFound
	}
	return p, nil
}

// RelatedProjects returns other published projects, same category first.
func (s *ContentService) RelatedProjects(ctx context.Context, p model.Project, limit int64) ([]model.Project, error) {
	related, err := s.queries.ListRelatedProjects(ctx, p.Category, p.ID, limit)
	if err != nil {
		return nil, err
	}
	if int64(len(related)) < limit && p.Category != "" {
		more, err := s.queries.ListRelatedProjects(ctx, "", p.ID, limit)
		if err != nil {
			return nil, err
		}
		seen := make(map[int64]bool, len(related))
		for _, r := range related {
			seen[r.ID] = true
		}
		for _, m := range more {
			if int64(len(related)) >= limit {
				break
			}
			if !seen[m.ID] {
				related = append(related, m)
			}
		}
	}
	return related, nil
}

// projectFiles validates the uploads of a project form.
func (s *ContentService) projectFiles(ve *model.ValidationError, in *ProjectInput) (*imaging.Result, []sniffed) {
	cover := s.prepareCover(ve, in.Cover)
	media := checkUploads(ve, "media_uploads", in.Media, MaxMediaSize, isImageOrVideo,
		"Must be an image or a video.")
	return cover, media
}

// appendMedia stores new uploads and video URLs at the end of list.
func (s *ContentService) appendMedia(ctx context.Context, st *staged, list model.MediaList, uploads []sniffed, urls []string) (model.MediaList, error) {
	out := append(model.MediaList{}, list...)
	for _, u := range uploads {
		key, err := putUpload(ctx, s.storage, prefixProjectMedia, s.now(), u, u.Ext)
		if err != nil {
			return nil, err
		}
		st.keys = append(st.keys, key)
		out = append(out, model.MediaItem{
			Type: model.MediaTypeForMime(u.Mime),
			Kind: model.MediaKindUpload,
			Path: key,
			Mime: u.Mime,
			Size: u.Size,
		})
	}
	for _, u := range urls {
		out = append(out, model.MediaItem{Type: model.MediaTypeVideo, Kind: model.MediaKindURL, URL: u})
	}
	return out, nil
}

// CreateProject validates in, stores its files and inserts the project.
func (s *ContentService) CreateProject(ctx context.Context, in ProjectInput) (model.Project, error) {
	in.normalize()
	ve := &model.ValidationError{}
	_ = check(in, ve)
	year := parseYear(ve, in.Year, s.now())
	cover, uploads := s.projectFiles(ve, &in)
	slug := in.Slug
	if _, bad := ve.Fields["slug"]; !bad && in.Title != "" {
		slug = s.resolveSlug(ctx, ve, "projects", in.Slug, in.Title, 0)
	}
	if err := ve.Err(); err != nil {
		return model.Project{}, err
	}

	st := &staged{}
	p := model.Project{
		Title:    in.Title,
		Slug:     slug,
		Category: in.Category,
		City:     in.City,
		Client:   in.Client,
		Year:     year,
		Status:   in.Status,
		Excerpt:  in.Excerpt,
		Body:     in.Body,
	}
	var err error
	if cover != nil {
		if p.CoverImage, err = s.putCover(ctx, st, prefixProjectCovers, cover); err != nil {
			s.rollback(ctx, st)
			return model.Project{}, err
		}
	}
	if p.Media, err = s.appendMedia(ctx, st, model.MediaList{}, uploads, in.VideoURLs); err != nil {
		s.rollback(ctx, st)
		return model.Project{}, err
	}

	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	created, err := s.queries.CreateProject(ctx, p)
	if err != nil {
		s.rollback(ctx, st)
		return model.Project{}, slugConflict(err, "projects")
	}
	s.logger.Info("project created", "id", created.ID, "slug", created.Slug)
	s.changed("project")
	return created, nil
}

// UpdateProject applies in to project id. New media are appended to the
// existing list; entries listed in RemoveMedia are dropped and their files
// deleted.
func (s *ContentService) UpdateProject(ctx context.Context, id int64, in ProjectInput) (model.Project, error) {
	p, err := s.queries.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, err
	}

	in.normalize()
	ve := &model.ValidationError{}
	_ = check(in, ve)
	year := parseYear(ve, in.Year, s.now())
	cover, uploads := s.projectFiles(ve, &in)
	slug := in.Slug
	if _, bad := ve.Fields["slug"]; !bad && in.Title != "" {
		slug = s.resolveSlug(ctx, ve, "projects", in.Slug, in.Title, p.ID)
	}
	if err := ve.Err(); err != nil {
		return model.Project{}, err
	}

	kept, removed := p.Media.Without(in.RemoveMedia)
	oldCover := ""

	st := &staged{}
	if cover != nil {
		key, err := s.putCover(ctx, st, prefixProjectCovers, cover)
		if err != nil {
			s.rollback(ctx, st)
			return model.Project{}, err
		}
		oldCover, p.CoverImage = p.CoverImage, key
	}
	if p.Media, err = s.appendMedia(ctx, st, kept, uploads, in.VideoURLs); err != nil {
		s.rollback(ctx, st)
		return model.Project{}, err
	}

	p.Title, p.Slug, p.Category, p.City, p.Client = in.Title, slug, in.Category, in.City, in.Client
	p.Year, p.Status, p.Excerpt, p.Body = year, in.Status, in.Excerpt, in.Body
	p.UpdatedAt = s.now()

	updated, err := s.queries.UpdateProject(ctx, p)
	if err != nil {
		s.rollback(ctx, st)
		return model.Project{}, slugConflict(err, "projects")
	}
	s.discard(ctx, append(removed.UploadPaths(), oldCover)...)
	s.changed("project")
	return updated, nil
}

// DeleteProject deletes the cover and every uploaded media file, then the
// row. URL media entries need no storage action. The row is deleted even
// when some files could not be; that failure is returned as a
// *model.StorageError.
func (s *ContentService) DeleteProject(ctx context.Context, id int64) error {
	p, err := s.queries.GetProject(ctx, id)
	if err != nil {
		return err
	}
	keys := append([]string{p.CoverImage}, p.Media.UploadPaths()...)
	return s.deleteWithFiles(ctx, "project", id, keys, s.queries.DeleteProject)
}

func (s *ContentService) deleteWithFiles(ctx context.Context, kind string, id int64, keys []string, del func(context.Context, int64) error) error {
	failed, storageErr := storage.DeleteAll(ctx, s.storage, keys)
	if err := del(ctx, id); err != nil {
		return err
	}
	s.changed(kind)
	s.logger.Info(kind+" deleted", "id", id, "files", len(keys))
	if storageErr != nil {
		s.logger.Error("failed to delete "+kind+" files", "id", id, "keys", failed, "error", storageErr)
		return &model.StorageError{Op: "delete", Path: strings.Join(failed, ", "), Err: storageErr}
	}
	return nil
}

// Posts

// ListPosts returns a page of posts, newest first. An empty status lists all.
func (s *ContentService) ListPosts(ctx context.Context, status string, page, perPage int) (Listing[model.Post], error) {
	if perPage <= 0 {
		perPage = ContentPerPage
	}
	items, err := s.queries.ListPosts(ctx, status, store.NewPage(page, perPage))
	if err != nil {
		return Listing[model.Post]{}, fmt.Errorf("listing posts: %w", err)
	}
	total, err := s.queries.CountPosts(ctx, status)
	if err != nil {
		return Listing[model.Post]{}, fmt.Errorf("counting posts: %w", err)
	}
	return newListing(items, total, page, perPage), nil
}

// GetPost returns a post by id.
func (s *ContentService) GetPost(ctx context.Context, id int64) (model.Post, error) {
	return s.queries.GetPost(ctx, id)
}

// PublishedPost finds a published post by slug or numeric id.
func (s *ContentService) PublishedPost(ctx context.Context, key string) (model.Post, error) {
	p, err := s.queries.GetPostBySlug(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		if id, perr := strconv.ParseInt(key, 10, 64); perr == nil {
			p, err = s.queries.GetPost(ctx, id)
		}
	}
	if err != nil {
		return model.Post{}, err
	}
	if !p.IsPublished() {
		return model.Post{}, model.ErrNotFound
	}
	return p, nil
}

// OtherPosts returns published posts other than excludeID.
func (s *ContentService) OtherPosts(ctx context.Context, excludeID, limit int64) ([]model.Post, error) {
	return s.queries.ListOtherPublishedPosts(ctx, excludeID, limit)
}

// postFields validates a post form and resolves its publication date.
// existing is the stored publication date on update.
func (s *ContentService) postFields(ve *model.ValidationError, in *PostInput, existing sql.NullTime) sql.NullTime {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Tags = model.NewTags(in.Tags...)
	_ = check(*in, ve)

	at, err := util.ParseNullDate(in.PublishedAt)
	if err != nil {
		ve.Add("published_at", "Must be a valid date.")
	}
	if in.Status != model.StatusPublished {
		return sql.NullTime{}
	}
	switch {
	case at.Valid:
		return at
	case existing.Valid:
		return existing
	}
	return sql.NullTime{Time: s.now(), Valid: true}
}

// CreatePost validates in and inserts the post. Publishing without a date
// stamps the current time; drafts carry no publication date.
func (s *ContentService) CreatePost(ctx context.Context, in PostInput) (model.Post, error) {
	ve := &model.ValidationError{}
	publishedAt := s.postFields(ve, &in, sql.NullTime{})
	cover := s.prepareCover(ve, in.Cover)
	slug := in.Slug
	if _, bad := ve.Fields["slug"]; !bad && in.Title != "" {
		slug = s.resolveSlug(ctx, ve, "posts", in.Slug, in.Title, 0)
	}
	if err := ve.Err(); err != nil {
		return model.Post{}, err
	}

	st := &staged{}
	p := model.Post{
		Title:       in.Title,
		Slug:        slug,
		Status:      in.Status,
		PublishedAt: publishedAt,
		Excerpt:     in.Excerpt,
		Body:        in.Body,
		Tags:        model.Tags(in.Tags),
	}
	if cover != nil {
		key, err := s.putCover(ctx, st, prefixPostCovers, cover)
		if err != nil {
			s.rollback(ctx, st)
			return model.Post{}, err
		}
		p.CoverImage = key
	}

	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	created, err := s.queries.CreatePost(ctx, p)
	if err != nil {
		s.rollback(ctx, st)
		return model.Post{}, slugConflict(err, "posts")
	}
	s.logger.Info("post created", "id", created.ID, "slug", created.Slug)
	s.changed("post")
	return created, nil
}

// UpdatePost applies in to post id.
func (s *ContentService) UpdatePost(ctx context.Context, id int64, in PostInput) (model.Post, error) {
	p, err := s.queries.GetPost(ctx, id)
	if err != nil {
		return model.Post{}, err
	}

	ve := &model.ValidationError{}
	publishedAt := s.postFields(ve, &in, p.PublishedAt)
	cover := s.prepareCover(ve, in.Cover)
	slug := in.Slug
	if _, bad := ve.Fields["slug"]; !bad && in.Title != "" {
		slug = s.resolveSlug(ctx, ve, "posts", in.Slug, in.Title, p.ID)
	}
	if err := ve.Err(); err != nil {
		return model.Post{}, err
	}

	st := &staged{}
	oldCover := ""
	if cover != nil {
		key, err := s.putCover(ctx, st, prefixPostCovers, cover)
		if err != nil {
			s.rollback(ctx, st)
			return model.Post{}, err
		}
		oldCover, p.CoverImage = p.CoverImage, key
	}

	p.Title, p.Slug, p.Status, p.PublishedAt = in.Title, slug, in.Status, publishedAt
	p.Excerpt, p.Body, p.Tags = in.Excerpt, in.Body, model.Tags(in.Tags)
	p.UpdatedAt = s.now()

	updated, err := s.queries.UpdatePost(ctx, p)
	if err != nil {
		s.rollback(ctx, st)
		return model.Post{}, slugConflict(err, "posts")
	}
	s.discard(ctx, oldCover)
	s.changed("post")
	return updated, nil
}

// DeletePost deletes the post cover, then the row.
func (s *ContentService) DeletePost(ctx context.Context, id int64) error {
	p, err := s.queries.GetPost(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteWithFiles(ctx, "post", id, []string{p.CoverImage}, s.queries.DeletePost)
}

// Events

// ListEvents returns a page of events, newest first. An empty status lists all.
func (s *ContentService) ListEvents(ctx context.Context, status string, page, perPage int) (Listing[model.Event], error) {
	if perPage <= 0 {
		perPage = ContentPerPage
	}
	items, err := s.queries.ListEvents(ctx, status, store.NewPage(page, perPage))
	if err != nil {
		return Listing[model.Event]{}, fmt.Errorf("listing events: %w", err)
	}
	total, err := s.queries.CountEvents(ctx, status)
	if err != nil {
		return Listing[model.Event]{}, fmt.Errorf("counting events: %w", err)
	}
	return newListing(items, total, page, perPage), nil
}

// GetEvent returns an event by id.
func (s *ContentService) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	return s.queries.GetEvent(ctx, id)
}

// PublishedEvent finds a published event by slug.
func (s *ContentService) PublishedEvent(ctx context.Context, slug string) (model.Event, error) {
	e, err := s.queries.GetEventBySlug(ctx, slug)
	if err != nil {
		return model.Event{}, err
	}
	if e.Status != model.StatusPublished {
		return model.Event{}, model.ErrNotFound
	}
	return e, nil
}

// EventAgenda returns published events from today on and the most recent past ones.
func (s *ContentService) EventAgenda(ctx context.Context, limit int64) (upcoming, past []model.Event, err error) {
	y, m, d := s.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if upcoming, err = s.queries.ListUpcomingEvents(ctx, today, limit); err != nil {
		return nil, nil, err
	}
	if past, err = s.queries.ListPastEvents(ctx, today, limit); err != nil {
		return nil, nil, err
	}
	return upcoming, past, nil
}

func (s *ContentService) eventFields(ve *model.ValidationError, in *EventInput) time.Time {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Category = strings.TrimSpace(in.Category)
	in.Location = strings.TrimSpace(in.Location)
	in.Organizer = strings.TrimSpace(in.Organizer)
	_ = check(*in, ve)
	if strings.TrimSpace(in.StartsAt) == "" {
		return time.Time{}
	}
	startsAt, err := util.ParseDate(in.StartsAt)
	if err != nil {
		ve.Add("starts_at", "Must be a valid date.")
	}
	return startsAt
}

// eventSlug derives an event slug from its title with a short random
// suffix, so recurring events may share a title.
func eventSlug(title string) string {
	base := util.Slugify(title)
	if base == "" {
		return ""
	}
	if len(base) > 190 {
		base = strings.TrimRight(base[:190], "-")
	}
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// CreateEvent validates in and inserts the event.
func (s *ContentService) CreateEvent(ctx context.Context, in EventInput) (model.Event, error) {
	ve := &model.ValidationError{}
	startsAt := s.eventFields(ve, &in)
	cover := s.prepareCover(ve, in.Cover)
	slug := in.Slug
	if _, bad := ve.Fields["slug"]; !bad && in.Title != "" {
		if slug == "" {
			slug = eventSlug(in.Title)
		}
		slug = s.resolveSlug(ctx, ve, "events", slug, in.Title, 0)
	}
	if err := ve.Err(); err != nil {
		return model.Event{}, err
	}

	st := &staged{}
	e := model.Event{
		Title:     in.Title,
		Slug:      slug,
		Excerpt:   in.Excerpt,
		Body:      in.Body,
		Category:  in.Category,
		Location:  in.Location,
		Organizer: in.Organizer,
		StartsAt:  startsAt,
		Status:    in.Status,
	}
	if cover != nil {
		key, err := s.putCover(ctx, st, prefixEventCovers, cover)
		if err != nil {
			s.rollback(ctx, st)
			return model.Event{}, err
		}
		e.CoverImage = key
	}

	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	created, err := s.queries.CreateEvent(ctx, e)
	if err != nil {
		s.rollback(ctx, st)
		return model.Event{}, slugConflict(err, "events")
	}
	s.logger.Info("event created", "id", created.ID, "slug", created.Slug)
	s.changed("event")
	return created, nil
}

// UpdateEvent applies in to event id. An empty slug keeps the current one.
func (s *ContentService) UpdateEvent(ctx context.Context, id int64, in EventInput) (model.Event, error) {
	e, err := s.queries.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, err
	}

	ve := &model.ValidationError{}
	startsAt := s.eventFields(ve, &in)
	cover := s.prepareCover(ve, in.Cover)
	slug := e.Slug
	if _, bad := ve.Fields["slug"]; !bad && in.Slug != "" {
		slug = s.resolveSlug(ctx, ve, "events", in.Slug, in.Title, e.ID)
	}
	if err := ve.Err(); err != nil {
		return model.Event{}, err
	}

	st := &staged{}
	oldCover := ""
	if cover != nil {
		key, err := s.putCover(ctx, st, prefixEventCovers, cover)
		if err != nil {
			s.rollback(ctx, st)
			return model.Event{}, err
		}
		oldCover, e.CoverImage = e.CoverImage, key
	}

	e.Title, e.Slug, e.Excerpt, e.Body = in.Title, slug, in.Excerpt, in.Body
	e.Category, e.Location, e.Organizer = in.Category, in.Location, in.Organizer
	e.StartsAt, e.Status = startsAt, in.Status
	e.UpdatedAt = s.now()

	updated, err := s.queries.UpdateEvent(ctx, e)
	if err != nil {
		s.rollback(ctx, st)
		return model.Event{}, slugConflict(err, "events")
	}
	s.discard(ctx, oldCover)
	s.changed("event")
	return updated, nil
}

// DeleteEvent deletes the event cover, then the row.
func (s *ContentService) DeleteEvent(ctx context.Context, id int64) error {
	e, err := s.queries.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteWithFiles(ctx, "event", id, []string{e.CoverImage}, s.queries.DeleteEvent)
}
