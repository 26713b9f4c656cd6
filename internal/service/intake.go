// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/notify"
	"github.com/olegiv/bkconstruct/internal/storage"
	"github.com/olegiv/bkconstruct/internal/store"
	"github.com/olegiv/bkconstruct/internal/util"
)

// Submission outcomes reported to IntakeConfig.OnSubmit.
const (
	OutcomeStored  = "stored"
	OutcomeSpam    = "spam"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

const msgDocumentType = "Must be a file of type: pdf, zip, rar, 7z, doc, docx, xls, xlsx, dwg, dxf."

// ContactInput is the public contact form.
type ContactInput struct {
	Name     string `form:"name" validate:"max=160"`
	Email    string `form:"email" validate:"omitempty,email,max=160"`
	Phone    string `form:"phone" validate:"max=40"`
	Subject  string `form:"subject" validate:"max=180"`
	Message  string `form:"message" validate:"max=10000"`
	Source   string `form:"source" validate:"required,oneof=contact quote tender"`
	Honeypot string `form:"hp" validate:"-"`
	IP       string `form:"-" validate:"-"`
}

// QuoteInput is the public quote request form.
type QuoteInput struct {
	Name        string   `form:"name" validate:"required,max=160"`
	Company     string   `form:"company" validate:"max=160"`
	Email       string   `form:"email" validate:"omitempty,email,max=160"`
	Phone       string   `form:"phone" validate:"max=40"`
	City        string   `form:"city" validate:"max=120"`
	ProjectType string   `form:"project_type" validate:"max=120"`
	Budget      string   `form:"budget" validate:"max=120"`
	DesiredDate string   `form:"desired_date" validate:"-"`
	Message     string   `form:"message" validate:"max=10000"`
	Files       []Upload `form:"files" validate:"-"`
	Honeypot    string   `form:"hp" validate:"-"`
	IP          string   `form:"-" validate:"-"`
}

// TenderInput is the public call-for-tenders form.
type TenderInput struct {
	Reference    string   `form:"reference" validate:"max=120"`
	Organization string   `form:"organization" validate:"max=200"`
	ContactName  string   `form:"contact_name" validate:"max=160"`
	Email        string   `form:"email" validate:"omitempty,email,max=160"`
	Phone        string   `form:"phone" validate:"max=40"`
	Deadline     string   `form:"deadline" validate:"-"`
	Scope        string   `form:"scope" validate:"max=15000"`
	Documents    []Upload `form:"documents" validate:"-"`
	Honeypot     string   `form:"hp" validate:"-"`
	IP           string   `form:"-" validate:"-"`
}

// Receipt describes what happened to an accepted submission. Callers must
// answer every accepted submission the same way, whatever the receipt says.
type Receipt struct {
	ID      int64
	Outcome string
}

// IntakeConfig configures IntakeService.
type IntakeConfig struct {
	// NotifyTo receives new-lead notifications; empty disables them.
	NotifyTo []string
	Notifier Notifier
	Logger   *slog.Logger
	// OnSubmit is called once per submission with the lead kind and outcome.
	OnSubmit func(kind, outcome string)
}

// IntakeService accepts anonymous contact, quote and tender submissions.
type IntakeService struct {
	queries  *store.Queries
	storage  storage.Storage
	notifier Notifier
	notifyTo []string
	logger   *slog.Logger
	onSubmit func(kind, outcome string)
	now      func() time.Time
}

// NewIntakeService creates an IntakeService.
func NewIntakeService(db *sql.DB, st storage.Storage, cfg IntakeConfig) *IntakeService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	onSubmit := cfg.OnSubmit
	if onSubmit == nil {
		onSubmit = func(string, string) {}
	}
	var to []string
	for _, addr := range cfg.NotifyTo {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	return &IntakeService{
		queries:  store.New(db),
		storage:  st,
		notifier: cfg.Notifier,
		notifyTo: to,
		logger:   cfg.Logger,
		onSubmit: onSubmit,
		now:      time.Now,
	}
}

// spam reports a filled honeypot. Such submissions are acknowledged like
// any other and then dropped.
func (s *IntakeService) spam(kind, hp, ip string) (*Receipt, bool) {
	if strings.TrimSpace(hp) == "" {
		return nil, false
	}
	s.logger.Info("honeypot submission dropped", "kind", kind, "ip", ip)
	s.onSubmit(kind, OutcomeSpam)
	return &Receipt{Outcome: OutcomeSpam}, true
}

func (s *IntakeService) invalid(kind string, err error) (*Receipt, error) {
	s.onSubmit(kind, OutcomeInvalid)
	return nil, err
}

// failed logs a persistence or storage failure and removes any stored files.
// The submitter is still answered with success.
func (s *IntakeService) failed(ctx context.Context, kind string, files model.FileList, err error) *Receipt {
	s.logger.Error("failed to store submission", "kind", kind, "error", err)
	if keys, derr := storage.DeleteAll(context.WithoutCancel(ctx), s.storage, files.Paths()); derr != nil {
		s.logger.Error("failed to clean up submission files", "kind", kind, "keys", keys, "error", derr)
	}
	s.onSubmit(kind, OutcomeFailed)
	return &Receipt{Outcome: OutcomeFailed}
}

func (s *IntakeService) stored(kind string, id int64, fields [][2]string) *Receipt {
	s.logger.Info("submission stored", "kind", kind, "id", id)
	s.onSubmit(kind, OutcomeStored)
	if len(s.notifyTo) > 0 && s.notifier != nil {
		s.notifier.Enqueue(notify.NewLead(notifyKind(kind), s.notifyTo, id, fields))
	}
	return &Receipt{ID: id, Outcome: OutcomeStored}
}

func notifyKind(kind string) string {
	switch kind {
	case model.LeadKindQuote:
		return notify.KindQuote
	case model.LeadKindTender:
		return notify.KindTender
	}
	return notify.KindContact
}

// storeFiles writes attachments under prefix/YYYY/MM/DD/. On error the
// files written so far are returned so the caller can remove them.
func (s *IntakeService) storeFiles(ctx context.Context, prefix string, files []sniffed) (model.FileList, error) {
	list := model.FileList{}
	now := s.now()
	for _, f := range files {
		ext := documentExt(f)
		key, err := putUpload(ctx, s.storage, prefix, now, f, ext)
		if err != nil {
			return list, err
		}
		list = append(list, model.AttachedFile{
			Name: originalName(f, "document."+ext),
			Path: key,
			URL:  s.storage.URL(key),
			Size: f.Size,
			Mime: f.Mime,
		})
	}
	return list, nil
}

// SubmitContact validates and stores a contact message.
func (s *IntakeService) SubmitContact(ctx context.Context, in ContactInput) (*Receipt, error) {
	const kind = model.LeadKindContact
	if r, ok := s.spam(kind, in.Honeypot, in.IP); ok {
		return r, nil
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	in.Source = contactSource(in.Source)
	if err := check(in, nil); err != nil {
		return s.invalid(kind, err)
	}

	now := s.now()
	msg, err := s.queries.CreateContactMessage(ctx, model.ContactMessage{
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Subject:   in.Subject,
		Source:    in.Source,
		Message:   in.Message,
		Status:    model.LeadStatusNew,
		IPAddress: in.IP,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return s.failed(ctx, kind, nil, err), nil
	}
	return s.stored(kind, msg.ID, [][2]string{
		{"name", msg.Name}, {"email", msg.Email}, {"phone", msg.Phone},
		{"subject", msg.Subject}, {"source", msg.Source}, {"message", msg.Message},
	}), nil
}

// contactSource maps legacy form values to their current names.
func contactSource(src string) string {
	src = strings.ToLower(strings.TrimSpace(src))
	switch src {
	case "devis":
		return "quote"
	case "rfp":
		return "tender"
	}
	return src
}

// SubmitQuote validates and stores a quote request with its attachments.
func (s *IntakeService) SubmitQuote(ctx context.Context, in QuoteInput) (*Receipt, error) {
	const kind = model.LeadKindQuote
	if r, ok := s.spam(kind, in.Honeypot, in.IP); ok {
		return r, nil
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Company = strings.TrimSpace(in.Company)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.City = strings.TrimSpace(in.City)
	in.ProjectType = strings.TrimSpace(in.ProjectType)
	in.Budget = strings.TrimSpace(in.Budget)
	in.Message = strings.TrimSpace(in.Message)

	ve := &model.ValidationError{}
	_ = check(in, ve)
	desired, err := util.ParseNullDate(in.DesiredDate)
	if err != nil {
		ve.Add("desired_date", "Must be a valid date.")
	}
	files := checkUploads(ve, "files", in.Files, MaxQuoteFileSize, isDocument, msgDocumentType)
	if err := ve.Err(); err != nil {
		return s.invalid(kind, err)
	}

	list, err := s.storeFiles(ctx, "quotes", files)
	if err != nil {
		return s.failed(ctx, kind, list, err), nil
	}

	now := s.now()
	q, err := s.queries.CreateQuote(ctx, model.Quote{
		Name:        in.Name,
		Company:     in.Company,
		Email:       in.Email,
		Phone:       in.Phone,
		City:        in.City,
		ProjectType: in.ProjectType,
		Budget:      in.Budget,
		DesiredDate: desired,
		Message:     in.Message,
		Files:       list,
		Status:      model.LeadStatusNew,
		IPAddress:   in.IP,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return s.failed(ctx, kind, list, err), nil
	}
	return s.stored(kind, q.ID, [][2]string{
		{"name", q.Name}, {"company", q.Company}, {"email", q.Email}, {"phone", q.Phone},
		{"city", q.City}, {"project_type", q.ProjectType}, {"budget", q.Budget},
		{"desired_date", util.FormatNullDate(q.DesiredDate)}, {"message", q.Message},
		{"files", fileCount(q.Files)},
	}), nil
}

// SubmitTender validates and stores a call for tenders with its documents.
func (s *IntakeService) SubmitTender(ctx context.Context, in TenderInput) (*Receipt, error) {
	const kind = model.LeadKindTender
	if r, ok := s.spam(kind, in.Honeypot, in.IP); ok {
		return r, nil
	}

	in.Reference = strings.TrimSpace(in.Reference)
	in.Organization = strings.TrimSpace(in.Organization)
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Scope = strings.TrimSpace(in.Scope)

	ve := &model.ValidationError{}
	_ = check(in, ve)
	deadline, err := util.ParseNullDate(in.Deadline)
	if err != nil {
		ve.Add("deadline", "Must be a valid date.")
	}
	docs := checkUploads(ve, "documents", in.Documents, MaxTenderFileSize, isDocument, msgDocumentType)
	if err := ve.Err(); err != nil {
		return s.invalid(kind, err)
	}

	list, err := s.storeFiles(ctx, "tenders", docs)
	if err != nil {
		return s.failed(ctx, kind, list, err), nil
	}

	now := s.now()
	t, err := s.queries.CreateTender(ctx, model.Tender{
		Reference:    in.Reference,
		Organization: in.Organization,
		ContactName:  in.ContactName,
		Email:        in.Email,
		Phone:        in.Phone,
		Deadline:     deadline,
		Scope:        in.Scope,
		Files:        list,
		Status:       model.LeadStatusNew,
		IPAddress:    in.IP,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return s.failed(ctx, kind, list, err), nil
	}
	return s.stored(kind, t.ID, [][2]string{
		{"reference", t.Reference}, {"organization", t.Organization},
		{"contact_name", t.ContactName}, {"email", t.Email}, {"phone", t.Phone},
		{"deadline", util.FormatNullDate(t.Deadline)}, {"scope", t.Scope},
		{"documents", fileCount(t.Files)},
	}), nil
}

func fileCount(files model.FileList) string {
	if len(files) == 0 {
		return ""
	}
	return fmt.Sprint(len(files))
}
