// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/storage"
	"github.com/olegiv/bkconstruct/internal/store"
)

// LeadsPerPage is the lead listing page size.
const LeadsPerPage = 20

var leadTables = map[string]string{
	model.LeadKindQuote:   store.TableQuotes,
	model.LeadKindTender:  store.TableTenders,
	model.LeadKindContact: store.TableContacts,
}

func leadTable(kind string) (string, error) {
	t, ok := leadTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown lead kind %q: %w", kind, model.ErrNotFound)
	}
	return t, nil
}

// LeadQuery filters a lead listing.
type LeadQuery struct {
	Search string
	Status string
	Page   int
}

func (q LeadQuery) filter() store.LeadFilter {
	status := q.Status
	if !model.IsValidLeadStatus(status) {
		status = ""
	}
	return store.LeadFilter{
		Search: strings.TrimSpace(q.Search),
		Status: status,
		Page:   store.NewPage(q.Page, LeadsPerPage),
	}
}

// LeadPage is a page of leads with the table-wide counters.
type LeadPage[T any] struct {
	Listing[T]
	Stats store.LeadStats `json:"stats"`
}

// LeadService is the back-office triage of quotes, tenders and contact messages.
type LeadService struct {
	queries *store.Queries
	storage storage.Storage
	logger  *slog.Logger
	now     func() time.Time
}

// NewLeadService creates a LeadService.
func NewLeadService(db *sql.DB, st storage.Storage, logger *slog.Logger) *LeadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeadService{queries: store.New(db), storage: st, logger: logger, now: time.Now}
}

func listLeads[T any](ctx context.Context, s *LeadService, table string, q LeadQuery, list func(context.Context, store.LeadFilter) ([]T, error)) (LeadPage[T], error) {
	f := q.filter()
	items, err := list(ctx, f)
	if err != nil {
		return LeadPage[T]{}, fmt.Errorf("listing %s: %w", table, err)
	}
	total, err := s.queries.CountLeads(ctx, table, f)
	if err != nil {
		return LeadPage[T]{}, fmt.Errorf("counting %s: %w", table, err)
	}
	stats, err := s.queries.LeadStats(ctx, table)
	if err != nil {
		return LeadPage[T]{}, fmt.Errorf("counting %s: %w", table, err)
	}
	return LeadPage[T]{Listing: newListing(items, total, q.Page, LeadsPerPage), Stats: stats}, nil
}

// ListQuotes returns a page of quote requests, newest first.
func (s *LeadService) ListQuotes(ctx context.Context, q LeadQuery) (LeadPage[model.Quote], error) {
	return listLeads(ctx, s, store.TableQuotes, q, s.queries.ListQuotes)
}

// ListTenders returns a page of tenders, newest first.
func (s *LeadService) ListTenders(ctx context.Context, q LeadQuery) (LeadPage[model.Tender], error) {
	return listLeads(ctx, s, store.TableTenders, q, s.queries.ListTenders)
}

// ListContacts returns a page of contact messages, newest first.
func (s *LeadService) ListContacts(ctx context.Context, q LeadQuery) (LeadPage[model.ContactMessage], error) {
	return listLeads(ctx, s, store.TableContacts, q, s.queries.ListContactMessages)
}

// markRead moves a new lead to read on its first view only.
func (s *LeadService) markRead(ctx context.Context, table string, id int64) error {
	changed, err := s.queries.MarkLeadRead(ctx, table, id, s.now())
	if err != nil {
		return fmt.Errorf("marking lead read: %w", err)
	}
	if changed {
		s.logger.Info("lead read", "table", table, "id", id)
	}
	return nil
}

// OpenQuote returns a quote for display, marking it read on first view.
func (s *LeadService) OpenQuote(ctx context.Context, id int64) (model.Quote, error) {
	if _, err := s.queries.GetQuote(ctx, id); err != nil {
		return model.Quote{}, err
	}
	if err := s.markRead(ctx, store.TableQuotes, id); err != nil {
		return model.Quote{}, err
	}
	return s.queries.GetQuote(ctx, id)
}

// OpenTender returns a tender for display, marking it read on first view.
func (s *LeadService) OpenTender(ctx context.Context, id int64) (model.Tender, error) {
	if _, err := s.queries.GetTender(ctx, id); err != nil {
		return model.Tender{}, err
	}
	if err := s.markRead(ctx, store.TableTenders, id); err != nil {
		return model.Tender{}, err
	}
	return s.queries.GetTender(ctx, id)
}

// OpenContact returns a contact message for display, marking it read on first view.
func (s *LeadService) OpenContact(ctx context.Context, id int64) (model.ContactMessage, error) {
	if _, err := s.queries.GetContactMessage(ctx, id); err != nil {
		return model.ContactMessage{}, err
	}
	if err := s.markRead(ctx, store.TableContacts, id); err != nil {
		return model.ContactMessage{}, err
	}
	return s.queries.GetContactMessage(ctx, id)
}

// files returns the attachments of a lead. Contact messages have none.
func (s *LeadService) files(ctx context.Context, kind string, id int64) (model.FileList, error) {
	switch kind {
	case model.LeadKindQuote:
		q, err := s.queries.GetQuote(ctx, id)
		return q.Files, err
	case model.LeadKindTender:
		t, err := s.queries.GetTender(ctx, id)
		return t.Files, err
	case model.LeadKindContact:
		_, err := s.queries.GetContactMessage(ctx, id)
		return nil, err
	}
	return nil, fmt.Errorf("unknown lead kind %q: %w", kind, model.ErrNotFound)
}

// OpenFile opens the attachment at index of a lead. A missing index or
// stored file yields model.ErrNotFound.
func (s *LeadService) OpenFile(ctx context.Context, kind string, id int64, index int) (*storage.Object, model.AttachedFile, error) {
	files, err := s.files(ctx, kind, id)
	if err != nil {
		return nil, model.AttachedFile{}, err
	}
	if index < 0 || index >= len(files) || files[index].Path == "" {
		return nil, model.AttachedFile{}, model.ErrNotFound
	}
	f := files[index]
	obj, err := s.storage.Open(ctx, f.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, model.AttachedFile{}, model.ErrNotFound
		}
		return nil, model.AttachedFile{}, err
	}
	if f.Name == "" {
		f.Name = "document"
	}
	return obj, f, nil
}

// SetStatus changes the triage status of a lead (archive, reopen).
func (s *LeadService) SetStatus(ctx context.Context, kind string, id int64, status string) error {
	table, err := leadTable(kind)
	if err != nil {
		return err
	}
	if !model.IsValidLeadStatus(status) {
		return model.NewValidationError("status", "Must be one of: new, read, archived.")
	}
	return s.queries.SetLeadStatus(ctx, table, id, status, s.now())
}

// Delete deletes the stored attachments of a lead, then the row. The row
// is deleted even when some files could not be; that failure is returned
// as a *model.StorageError.
func (s *LeadService) Delete(ctx context.Context, kind string, id int64) error {
	table, err := leadTable(kind)
	if err != nil {
		return err
	}
	files, err := s.files(ctx, kind, id)
	if err != nil {
		return err
	}
	failed, storageErr := storage.DeleteAll(ctx, s.storage, files.Paths())
	if err := s.queries.DeleteLead(ctx, table, id); err != nil {
		return err
	}
	s.logger.Info("lead deleted", "table", table, "id", id, "files", len(files))
	if storageErr != nil {
		s.logger.Error("failed to delete lead files", "table", table, "id", id, "keys", failed, "error", storageErr)
		return &model.StorageError{Op: "delete", Path: strings.Join(failed, ", "), Err: storageErr}
	}
	return nil
}
