// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/bkconstruct/internal/model"
)

// Lead tables.
const (
	TableQuotes   = "quotes"
	TableTenders  = "tenders"
	TableContacts = "contact_messages"
)

// leadSearchColumns lists the columns matched by the admin search box per table.
var leadSearchColumns = map[string][]string{
	TableQuotes:   {"name", "email", "phone", "city", "company"},
	TableTenders:  {"reference", "organization", "contact_name", "email", "phone"},
	TableContacts: {"name", "email", "phone", "subject"},
}

// LeadFilter narrows a lead listing.
type LeadFilter struct {
	Search string
	Status string
	Page   Page
}

// where builds the WHERE clause shared by lead listings and counts.
func (f LeadFilter) where(table string) (string, []any) {
	clauses := []string{"1 = 1"}
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		var ors []string
		for _, col := range leadSearchColumns[table] {
			ors = append(ors, col+" LIKE ?")
			args = append(args, like)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	return strings.Join(clauses, " AND "), args
}

func checkLeadTable(table string) error {
	if _, ok := leadSearchColumns[table]; !ok {
		return fmt.Errorf("unknown lead table %q", table)
	}
	return nil
}

// LeadStats holds total and unread counts of a lead table.
type LeadStats struct {
	Total int64 `json:"total"`
	New   int64 `json:"new"`
	Read  int64 `json:"read"`
}

// LeadStats counts rows of a lead table by status.
func (q *Queries) LeadStats(ctx context.Context, table string) (LeadStats, error) {
	var s LeadStats
	if err := checkLeadTable(table); err != nil {
		return s, err
	}
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'new' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'read' THEN 1 ELSE 0 END), 0)
		FROM `+table).Scan(&s.Total, &s.New, &s.Read)
	return s, err
}

// CountLeads counts rows of a lead table matching f.
func (q *Queries) CountLeads(ctx context.Context, table string, f LeadFilter) (int64, error) {
	if err := checkLeadTable(table); err != nil {
		return 0, err
	}
	where, args := f.where(table)
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE `+where, args...).Scan(&n)
	return n, err
}

// MarkLeadRead moves a new lead to read and stamps read_at. It only ever
// changes a row once; later calls leave read_at untouched and report false.
func (q *Queries) MarkLeadRead(ctx context.Context, table string, id int64, now time.Time) (bool, error) {
	if err := checkLeadTable(table); err != nil {
		return false, err
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE `+table+` SET status = 'read', read_at = ?, updated_at = ?
		WHERE id = ? AND status = 'new' AND read_at IS NULL`, utc(now), utc(now), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetLeadStatus changes the status of a lead.
func (q *Queries) SetLeadStatus(ctx context.Context, table string, id int64, status string, now time.Time) error {
	if err := checkLeadTable(table); err != nil {
		return err
	}
	if !model.IsValidLeadStatus(status) {
		return fmt.Errorf("invalid lead status %q", status)
	}
	return affected(q.db.ExecContext(ctx,
		`UPDATE `+table+` SET status = ?, updated_at = ? WHERE id = ?`, status, utc(now), id))
}

// DeleteLead deletes a lead row.
func (q *Queries) DeleteLead(ctx context.Context, table string, id int64) error {
	if err := checkLeadTable(table); err != nil {
		return err
	}
	return affected(q.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id))
}

// ---- quotes ----

const quoteColumns = `id, name, company, email, phone, city, project_type, budget, desired_date, message, files, status, read_at, ip_address, created_at, updated_at`

func scanQuote(row interface{ Scan(...any) error }) (model.Quote, error) {
	var r model.Quote
	err := row.Scan(&r.ID, &r.Name, &r.Company, &r.Email, &r.Phone, &r.City, &r.ProjectType, &r.Budget,
		&r.DesiredDate, &r.Message, &r.Files, &r.Status, &r.ReadAt, &r.IPAddress, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateQuote inserts a quote request.
func (q *Queries) CreateQuote(ctx context.Context, r model.Quote) (model.Quote, error) {
	id, err := insertID(q.db.ExecContext(ctx, `
		INSERT INTO quotes (name, company, email, phone, city, project_type, budget, desired_date, message, files, status, ip_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Company, r.Email, r.Phone, r.City, r.ProjectType, r.Budget, nullUTC(r.DesiredDate),
		r.Message, r.Files, r.Status, r.IPAddress, utc(r.CreatedAt), utc(r.CreatedAt)))
	if err != nil {
		return model.Quote{}, err
	}
	return q.GetQuote(ctx, id)
}

// GetQuote returns a quote by id.
func (q *Queries) GetQuote(ctx context.Context, id int64) (model.Quote, error) {
	r, err := scanQuote(q.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id))
	return r, notFound(err)
}

// ListQuotes returns quotes matching f, newest first.
func (q *Queries) ListQuotes(ctx context.Context, f LeadFilter) ([]model.Quote, error) {
	where, args := f.where(TableQuotes)
	args = append(args, f.Page.Limit, f.Page.Offset)
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+quoteColumns+` FROM quotes WHERE `+where+`
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []model.Quote{}
	for rows.Next() {
		r, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- tenders ----

const tenderColumns = `id, reference, organization, contact_name, email, phone, deadline, scope, files, status, read_at, ip_address, created_at, updated_at`

func scanTender(row interface{ Scan(...any) error }) (model.Tender, error) {
	var r model.Tender
	err := row.Scan(&r.ID, &r.Reference, &r.Organization, &r.ContactName, &r.Email, &r.Phone,
		&r.Deadline, &r.Scope, &r.Files, &r.Status, &r.ReadAt, &r.IPAddress, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateTender inserts a call for tenders.
func (q *Queries) CreateTender(ctx context.Context, r model.Tender) (model.Tender, error) {
	id, err := insertID(q.db.ExecContext(ctx, `
		INSERT INTO tenders (reference, organization, contact_name, email, phone, deadline, scope, files, status, ip_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Reference, r.Organization, r.ContactName, r.Email, r.Phone, nullUTC(r.Deadline), r.Scope,
		r.Files, r.Status, r.IPAddress, utc(r.CreatedAt), utc(r.CreatedAt)))
	if err != nil {
		return model.Tender{}, err
	}
	return q.GetTender(ctx, id)
}

// GetTender returns a tender by id.
func (q *Queries) GetTender(ctx context.Context, id int64) (model.Tender, error) {
	r, err := scanTender(q.db.QueryRowContext(ctx, `SELECT `+tenderColumns+` FROM tenders WHERE id = ?`, id))
	return r, notFound(err)
}

// ListTenders returns tenders matching f, newest first.
func (q *Queries) ListTenders(ctx context.Context, f LeadFilter) ([]model.Tender, error) {
	where, args := f.where(TableTenders)
	args = append(args, f.Page.Limit, f.Page.Offset)
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+tenderColumns+` FROM tenders WHERE `+where+`
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []model.Tender{}
	for rows.Next() {
		r, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- contact messages ----

const contactColumns = `id, name, email, phone, subject, source, message, status, read_at, ip_address, created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (model.ContactMessage, error) {
	var r model.ContactMessage
	err := row.Scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.Subject, &r.Source, &r.Message,
		&r.Status, &r.ReadAt, &r.IPAddress, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateContactMessage inserts a contact message.
func (q *Queries) CreateContactMessage(ctx context.Context, r model.ContactMessage) (model.ContactMessage, error) {
	id, err := insertID(q.db.ExecContext(ctx, `
		INSERT INTO contact_messages (name, email, phone, subject, source, message, status, ip_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Email, r.Phone, r.Subject, r.Source, r.Message, r.Status, r.IPAddress,
		utc(r.CreatedAt), utc(r.CreatedAt)))
	if err != nil {
		return model.ContactMessage{}, err
	}
	return q.GetContactMessage(ctx, id)
}

// GetContactMessage returns a contact message by id.
func (q *Queries) GetContactMessage(ctx context.Context, id int64) (model.ContactMessage, error) {
	r, err := scanContact(q.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contact_messages WHERE id = ?`, id))
	return r, notFound(err)
}

// ListContactMessages returns contact messages matching f, newest first.
func (q *Queries) ListContactMessages(ctx context.Context, f LeadFilter) ([]model.ContactMessage, error) {
	where, args := f.where(TableContacts)
	args = append(args, f.Page.Limit, f.Page.Offset)
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+contactColumns+` FROM contact_messages WHERE `+where+`
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []model.ContactMessage{}
	for rows.Next() {
		r, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
