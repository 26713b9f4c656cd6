// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Lead statuses.
const (
	LeadStatusNew      = "new"
	LeadStatusRead     = "read"
	LeadStatusArchived = "archived"
)

// Lead kinds, used for routing notifications and the activity feed.
const (
	LeadKindQuote   = "quote"
	LeadKindTender  = "tender"
	LeadKindContact = "contact"
)

// Quote is a request for a price estimate.
type Quote struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Company     string       `json:"company"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	City        string       `json:"city"`
	ProjectType string       `json:"project_type"`
	Budget      string       `json:"budget"`
	DesiredDate sql.NullTime `json:"-"`
	Message     string       `json:"message"`
	Files       FileList     `json:"files"`
	Status      string       `json:"status"`
	ReadAt      sql.NullTime `json:"-"`
	IPAddress   string       `json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Tender is a call for tenders submitted by an organisation.
type Tender struct {
	ID           int64        `json:"id"`
	Reference    string       `json:"reference"`
	Organization string       `json:"organization"`
	ContactName  string       `json:"contact_name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Deadline     sql.NullTime `json:"-"`
	Scope        string       `json:"scope"`
	Files        FileList     `json:"files"`
	Status       string       `json:"status"`
	ReadAt       sql.NullTime `json:"-"`
	IPAddress    string       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ContactMessage is a message sent through the contact form.
type ContactMessage struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone"`
	Subject   string       `json:"subject"`
	Source    string       `json:"source"`
	Message   string       `json:"message"`
	Status    string       `json:"status"`
	ReadAt    sql.NullTime `json:"-"`
	IPAddress string       `json:"-"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsValidLeadStatus reports whether s is a known lead status.
func IsValidLeadStatus(s string) bool {
	switch s {
	case LeadStatusNew, LeadStatusRead, LeadStatusArchived:
		return true
	}
	return false
}
