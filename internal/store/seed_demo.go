// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/util"
)

// Demo mode credentials
const (
	DemoLeadEmail    = "lead@example.com"
	DemoLeadPassword = "demo1234demo"
	DemoLeadName     = "Demo Project Lead"

	DemoClientEmail    = "client@example.com"
	DemoClientPassword = "demo1234demo"
	DemoClientName     = "Demo Client"
)

// SeedDemo creates demo accounts, projects, posts and events.
// It does nothing when demo projects already exist.
func SeedDemo(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	n, err := queries.CountProjects(ctx, "")
	if err != nil {
		return fmt.Errorf("counting projects: %w", err)
	}
	if n > 0 {
		slog.Info("content already present, skipping demo seed")
		return nil
	}

	slog.Info("seeding demo content")

	if err := seedDemoUsers(ctx, db); err != nil {
		return fmt.Errorf("seeding demo users: %w", err)
	}

	now := time.Now()
	for i, p := range demoProjects() {
		p.Slug = util.Slugify(p.Title)
		p.CreatedAt = now.Add(-time.Duration(i) * 72 * time.Hour)
		p.UpdatedAt = p.CreatedAt
		if _, err := queries.CreateProject(ctx, p); err != nil {
			return fmt.Errorf("creating project %q: %w", p.Title, err)
		}
	}

	for i, p := range demoPosts() {
		p.Slug = util.Slugify(p.Title)
		p.CreatedAt = now.Add(-time.Duration(i) * 96 * time.Hour)
		p.UpdatedAt = p.CreatedAt
		if p.Status == model.StatusPublished {
			p.PublishedAt = util.NullTimeFromValue(p.CreatedAt)
		}
		if _, err := queries.CreatePost(ctx, p); err != nil {
			return fmt.Errorf("creating post %q: %w", p.Title, err)
		}
	}

	for i, e := range demoEvents(now) {
		e.Slug = fmt.Sprintf("%s-demo%d", util.Slugify(e.Title), i+1)
		e.CreatedAt = now
		e.UpdatedAt = now
		if _, err := queries.CreateEvent(ctx, e); err != nil {
			return fmt.Errorf("creating event %q: %w", e.Title, err)
		}
	}

	slog.Info("demo content created")
	return nil
}

func seedDemoUsers(ctx context.Context, db *sql.DB) error {
	users := []struct {
		name, email, password, role string
	}{
		{DemoLeadName, DemoLeadEmail, DemoLeadPassword, model.RoleProjectLead},
		{DemoClientName, DemoClientEmail, DemoClientPassword, model.RoleClient},
	}

	queries := New(db)
	for _, u := range users {
		_, err := queries.GetUserByEmail(ctx, u.email)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}
		if _, err := CreateUserWithRole(ctx, db, u.name, u.email, u.password, u.role); err != nil {
			return fmt.Errorf("creating %s: %w", u.email, err)
		}
	}

	slog.Info("created demo users",
		"lead_email", DemoLeadEmail,
		"client_email", DemoClientEmail,
		"password", DemoLeadPassword,
	)
	return nil
}

func demoProjects() []model.Project {
	year := func(y int64) sql.NullInt64 { return sql.NullInt64{Int64: y, Valid: true} }
	return []model.Project{
		{
			Title: "Pont de la Liberté", Category: "Ouvrages d'art", City: "Lyon", Client: "Métropole de Lyon",
			Year: year(2024), Status: model.StatusPublished,
			Excerpt: "Réhabilitation complète d'un pont routier de 180 mètres.",
			Body:    "## Contexte\n\nReprise des appuis, remplacement du tablier et mise aux normes des garde-corps.\n",
			Media: model.MediaList{
				{Type: model.MediaTypeVideo, Kind: model.MediaKindURL, URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
			},
		},
		{
			Title: "Résidence Les Tilleuls", Category: "Logement", City: "Villeurbanne", Client: "Habitat Rhône",
			Year: year(2023), Status: model.StatusPublished,
			Excerpt: "42 logements collectifs à ossature bois, label E+C-.",
			Body:    "Chantier livré en 14 mois avec une démarche bas carbone.\n",
		},
		{
			Title: "Groupe scolaire Jean Moulin", Category: "Équipements publics", City: "Grenoble", Client: "Ville de Grenoble",
			Year: year(2025), Status: model.StatusPublished,
			Excerpt: "Extension de 12 classes et d'un restaurant scolaire.",
			Body:    "Travaux réalisés en site occupé, phasés sur trois périodes de vacances.\n",
		},
		{
			Title: "Entrepôt logistique Saint-Priest", Category: "Industrie", City: "Saint-Priest", Client: "LogiSud",
			Year: year(2025), Status: model.StatusDraft,
			Excerpt: "Plateforme de 24 000 m² avec quais niveleurs.",
		},
	}
}

func demoPosts() []model.Post {
	return []model.Post{
		{
			Title: "Livraison du Pont de la Liberté", Status: model.StatusPublished,
			Excerpt: "Le chantier s'achève avec deux semaines d'avance.",
			Body:    "Retour en images sur dix-huit mois de travaux.\n",
			Tags:    model.NewTags("ouvrages d'art", "livraison"),
		},
		{
			Title: "Nous recrutons des chefs de chantier", Status: model.StatusPublished,
			Excerpt: "Rejoignez nos équipes en Auvergne-Rhône-Alpes.",
			Body:    "Postes en CDI basés à Lyon et Grenoble.\n",
			Tags:    model.NewTags("recrutement"),
		},
		{
			Title: "Bilan carbone 2025", Status: model.StatusDraft,
			Excerpt: "Nos engagements chiffrés pour l'année.",
			Tags:    model.NewTags("environnement"),
		},
	}
}

func demoEvents(now time.Time) []model.Event {
	return []model.Event{
		{
			Title: "Journée portes ouvertes chantier", Category: "Visite", Location: "Grenoble",
			Organizer: "BK Construct", StartsAt: now.AddDate(0, 0, 21), Status: model.StatusPublished,
			Excerpt: "Visite guidée du groupe scolaire en construction.",
			Body:    "Inscription obligatoire, équipements de protection fournis.\n",
		},
		{
			Title: "Salon Batimat", Category: "Salon", Location: "Paris Nord Villepinte",
			Organizer: "Batimat", StartsAt: now.AddDate(0, -2, 0), Status: model.StatusPublished,
			Excerpt: "Retrouvez-nous sur le stand B42.",
			Body:    "Présentation de nos solutions bois-béton.\n",
		},
	}
}
