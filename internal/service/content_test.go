// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/storage"
)

func TestCreateProjectSlug(t *testing.T) {
	env := newEnv(t)
	svc := env.content()
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, ProjectInput{Title: "Pont de la Liberté", Status: model.StatusPublished, Year: "2024"})
	require.NoError(t, err)
	assert.Equal(t, "pont-de-la-liberte", p.Slug)
	assert.Equal(t, int64(2024), p.Year.Int64)
	assert.Empty(t, p.Media)

	_, err = svc.CreateProject(ctx, ProjectInput{Title: "Pont de la Liberté", Status: model.StatusDraft})
	ve, ok := model.IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, msgSlugTaken, ve.Fields["slug"])

	got, err := svc.PublishedProject(ctx, "pont-de-la-liberte")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestCreateProjectValidation(t *testing.T) {
	env := newEnv(t)
	svc := env.content()
	ctx := context.Background()

	tests := []struct {
		name  string
		in    ProjectInput
		field string
	}{
		{"missing title", ProjectInput{Status: model.StatusDraft}, "title"},
		{"bad status", ProjectInput{Title: "Villa", Status: "live"}, "status"},
		{"bad slug", ProjectInput{Title: "Villa", Slug: "Not A Slug", Status: model.StatusDraft}, "slug"},
		{"bad year", ProjectInput{Title: "Villa", Year: "1850", Status: model.StatusDraft}, "year"},
		{"bad video url", ProjectInput{Title: "Villa", Status: model.StatusDraft, VideoURLs: []string{"ftp://x"}}, "video_urls.0"},
		{"cover not an image", ProjectInput{Title: "Villa", Status: model.StatusDraft, Cover: uploadPtr(bytesUpload("c.pdf", pdfBytes))}, "cover"},
		{"media not an image", ProjectInput{Title: "Villa", Status: model.StatusDraft, Media: []Upload{bytesUpload("m.pdf", pdfBytes)}}, "media_uploads"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProject(ctx, tt.in)
			ve, ok := model.IsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}

	list, err := svc.ListProjects(ctx, "", 1, 0)
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

func TestProjectMediaLifecycle(t *testing.T) {
	env := newEnv(t)
	svc := env.content()
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, ProjectInput{
		Title:     "Résidence Les Tilleuls",
		Status:    model.StatusPublished,
		Cover:     uploadPtr(bytesUpload("cover.png", pngBytes(t, 20, 10))),
		Media:     []Upload{bytesUpload("a.png", pngBytes(t, 4, 4)), bytesUpload("b.png", pngBytes(t, 5, 5))},
		VideoURLs: []string{" https://www.youtube.com/watch?v=abc ", ""},
	})
	require.NoError(t, err)
	require.Len(t, p.Media, 3)
	assert.Regexp(t, regexp.MustCompile(`^projects/covers/\d{4}/\d{2}/\d{2}/[0-9a-f-]+\.png$`), p.CoverImage)
	assert.True(t, env.exists(t, p.CoverImage))

	uploads := p.Media.UploadPaths()
	require.Len(t, uploads, 2)
	for _, key := range uploads {
		assert.True(t, strings.HasPrefix(key, "projects/media/"))
		assert.True(t, env.exists(t, key))
	}
	assert.Equal(t, model.MediaKindURL, p.Media[2].Kind)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", p.Media[2].URL)

	t.Run("update appends and removes", func(t *testing.T) {
		updated, err := svc.UpdateProject(ctx, p.ID, ProjectInput{
			Title:       p.Title,
			Status:      model.StatusPublished,
			RemoveMedia: []int{0},
			Media:       []Upload{bytesUpload("c.png", pngBytes(t, 6, 6))},
		})
		require.NoError(t, err)
		require.Len(t, updated.Media, 3)
		assert.Equal(t, uploads[1], updated.Media[0].Path)
		assert.Equal(t, model.MediaKindURL, updated.Media[1].Kind)
		assert.True(t, strings.HasPrefix(updated.Media[2].Path, "projects/media/"))
		assert.False(t, env.exists(t, uploads[0]))
		assert.Equal(t, p.CoverImage, updated.CoverImage)
		assert.Equal(t, "residence-les-tilleuls", updated.Slug)
		p = updated
	})

	t.Run("delete removes every file", func(t *testing.T) {
		keys := append([]string{p.CoverImage}, p.Media.UploadPaths()...)
		require.NoError(t, svc.DeleteProject(ctx, p.ID))
		for _, key := range keys {
			assert.False(t, env.exists(t, key), key)
		}
		_, err := svc.GetProject(ctx, p.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

// flakyStorage fails every delete.
type flakyStorage struct {
	storage.Storage
}

func (flakyStorage) Delete(context.Context, string) error {
	return errors.New("disk unavailable")
}

func TestDeleteProjectStorageFailure(t *testing.T) {
	env := newEnv(t)
	svc := NewContentService(env.db, flakyStorage{env.disk}, nil)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, ProjectInput{
		Title:  "Entrepôt Nord",
		Status: model.StatusDraft,
		Media:  []Upload{bytesUpload("a.png", pngBytes(t, 4, 4))},
	})
	require.NoError(t, err)

	err = svc.DeleteProject(ctx, p.ID)
	var se *model.StorageError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Path, p.Media[0].Path)

	_, err = svc.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPublishedProjectHidesDrafts(t *testing.T) {
	env := newEnv(t)
	svc := env.content()
	ctx := context.Background()

	draft, err := svc.CreateProject(ctx, ProjectInput{Title: "Hangar", Status: model.StatusDraft})
	require.NoError(t, err)

	_, err = svc.PublishedProject(ctx, draft.Slug)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.UpdateProject(ctx, draft.ID, ProjectInput{Title: "Hangar", Status: model.StatusPublished})
	require.NoError(t, err)
	got, err := svc.PublishedProject(ctx, "hangar")
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)
}

func TestRelatedProjects(t *testing.T) {
	env := newEnv(t)
	svc := env.content()
	ctx := context.Background()

	mk := func(title, category string) model.Project {
		p, err := svc.CreateProject(ctx, ProjectInput{Title: title, Category: category, Status: model.StatusPublished})
		require.NoError(t, err)
		return p
	}
	base := mk("École A", "Public")
	same := mk("École B", "Public")
	other := mk("Bureau C", "Tertiaire")
	_, err := svc.CreateProject(ctx, ProjectInput{Title: "Draft D", Category: "Public", Status: model.StatusDraft})
	require.NoError(t, err)

	related, err := svc.RelatedProjects(ctx, base, 2)
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, same.ID, related[0].ID)
	assert.Equal(t, other.ID, related[1].ID)
}

func TestListProjectsPagination(t *testing.T) {
	env := newEnv(t)
	svc := env.content()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.CreateProject(ctx, ProjectInput{Title: "Lot " + string(rune('A'+i)), Status: model.StatusPublished})
		require.NoError(t, err)
	}

	page, err := svc.ListProjects(ctx, model.StatusPublished, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.LastPage)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 2)

	empty, err := svc.ListProjects(ctx, model.StatusDraft, 1, 2)
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 1, empty.LastPage)
}

func TestPostPublication(t *testing.T) {
	env := newEnv(t)
	svc := env.content()
	ctx := context.Background()

	t.Run("draft has no date", func(t *testing.T) {
		p, err := svc.CreatePost(ctx, PostInput{Title: "Chantier en cours", Status: model.StatusDraft, PublishedAt: "2025-01-01"})
		require.NoError(t, err)
		assert.False(t, p.PublishedAt.Valid)
		_, err = svc.PublishedPost(ctx, p.Slug)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("explicit date", func(t *testing.T) {
		p, err := svc.CreatePost(ctx, PostInput{Title: "Livraison", Status: model.StatusPublished, PublishedAt: "2025-03-14", Tags: []string{" BTP ", "BTP", "", "gros oeuvre"}})
		require.NoError(t, err)
		require.True(t, p.PublishedAt.Valid)
		assert.Equal(t, "2025-03-14", p.PublishedAt.Time.UTC().Format("2006-01-02"))
		assert.Equal(t, model.Tags{"BTP", "gros oeuvre"}, p.Tags)
	})

	t.Run("published without date stamps now and keeps it", func(t *testing.T) {
		p, err := svc.CreatePost(ctx, PostInput{Title: "Inauguration", Status: model.StatusPublished})
		require.NoError(t, err)
		require.True(t, p.PublishedAt.Valid)
		assert.WithinDuration(t, time.Now(), p.PublishedAt.Time, time.Minute)

		updated, err := svc.UpdatePost(ctx, p.ID, PostInput{Title: "Inauguration du site", Slug: p.Slug, Status: model.StatusPublished})
		require.NoError(t, err)
		assert.True(t, p.PublishedAt.Time.Equal(updated.PublishedAt.Time))
		assert.Equal(t, "inauguration", updated.Slug)

		got, err := svc.PublishedPost(ctx, "inauguration")
		require.NoError(t, err)
		assert.Equal(t, "Inauguration du site", got.Title)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := svc.CreatePost(ctx, PostInput{Title: "Oops", Status: model.StatusPublished, PublishedAt: "14/03/2025"})
		ve, ok := model.IsValidation(err)
		require.True(t, ok)
		assert.Contains(t, ve.Fields, "published_at")
	})
}

func TestPostCoverReplaced(t *testing.T) {
	env := newEnv(t)
	svc := env.content()
	ctx := context.Background()

	p, err := svc.CreatePost(ctx, PostInput{Title: "Cover", Status: model.StatusDraft, Cover: uploadPtr(bytesUpload("a.png", pngBytes(t, 8, 8)))})
	require.NoError(t, err)
	old := p.CoverImage
	require.True(t, env.exists(t, old))

	updated, err := svc.UpdatePost(ctx, p.ID, PostInput{Title: "Cover", Status: model.StatusDraft, Cover: uploadPtr(bytesUpload("b.png", pngBytes(t, 9, 9)))})
	require.NoError(t, err)
	assert.NotEqual(t, old, updated.CoverImage)
	assert.False(t, env.exists(t, old))
	assert.True(t, env.exists(t, updated.CoverImage))

	require.NoError(t, svc.DeletePost(ctx, p.ID))
	assert.False(t, env.exists(t, updated.CoverImage))
}

func validEvent(title string) EventInput {
	return EventInput{
		Title:     title,
		Body:      "Visite guidée du chantier.",
		Category:  "Portes ouvertes",
		Location:  "Lyon",
		Organizer: "BK Construct",
		StartsAt:  "2030-05-20T09:30",
		Status:    model.StatusPublished,
	}
}

func TestEventSlugs(t *testing.T) {
	env := newEnv(t)
	svc := env.content()
	ctx := context.Background()

	a, err := svc.CreateEvent(ctx, validEvent("Journée Portes Ouvertes"))
	require.NoError(t, err)
	b, err := svc.CreateEvent(ctx, validEvent("Journée Portes Ouvertes"))
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^journee-portes-ouvertes-[0-9a-f]{6}$`)
	assert.Regexp(t, pattern, a.Slug)
	assert.Regexp(t, pattern, b.Slug)
	assert.NotEqual(t, a.Slug, b.Slug)

	in := validEvent("Journée Portes Ouvertes 2030")
	updated, err := svc.UpdateEvent(ctx, a.ID, in)
	require.NoError(t, err)
	assert.Equal(t, a.Slug, updated.Slug)
	assert.Equal(t, "Journée Portes Ouvertes 2030", updated.Title)

	in.Slug = b.Slug
	_, err = svc.UpdateEvent(ctx, a.ID, in)
	ve, ok := model.IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, msgSlugTaken, ve.Fields["slug"])
}

func TestEventValidation(t *testing.T) {
	env := newEnv(t)
	svc := env.content()

	tests := []struct {
		name  string
		edit  func(*EventInput)
		field string
	}{
		{"missing location", func(in *EventInput) { in.Location = " " }, "location"},
		{"missing organizer", func(in *EventInput) { in.Organizer = "" }, "organizer"},
		{"missing body", func(in *EventInput) { in.Body = "" }, "body"},
		{"bad date", func(in *EventInput) { in.StartsAt = "tomorrow" }, "starts_at"},
		{"missing date", func(in *EventInput) { in.StartsAt = "" }, "starts_at"},
		{"bad status", func(in *EventInput) { in.Status = "cancelled" }, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validEvent("Salon BTP")
			tt.edit(&in)
			_, err := svc.CreateEvent(context.Background(), in)
			ve, ok := model.IsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestEventAgenda(t *testing.T) {
	env := newEnv(t)
	svc := env.content()
	ctx := context.Background()

	future := validEvent("Salon futur")
	_, err := svc.CreateEvent(ctx, future)
	require.NoError(t, err)

	past := validEvent("Salon passé")
	past.StartsAt = "2020-01-10"
	_, err = svc.CreateEvent(ctx, past)
	require.NoError(t, err)

	archived := validEvent("Salon archivé")
	archived.Status = model.StatusArchived
	_, err = svc.CreateEvent(ctx, archived)
	require.NoError(t, err)

	upcoming, previous, err := svc.EventAgenda(ctx, 10)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Salon futur", upcoming[0].Title)
	require.Len(t, previous, 1)
	assert.Equal(t, "Salon passé", previous[0].Title)
}

func TestParseYear(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in    string
		want  int64
		valid bool
		fails bool
	}{
		{"", 0, false, false},
		{"2027", 2027, true, false},
		{"1900", 1900, true, false},
		{"2028", 0, false, true},
		{"1899", 0, false, true},
		{"20x4", 0, false, true},
		{"02024", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ve := &model.ValidationError{}
			got := parseYear(ve, tt.in, now)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.want, got.Int64)
			assert.Equal(t, tt.fails, ve.HasErrors())
		})
	}
}

func uploadPtr(u Upload) *Upload { return &u }
