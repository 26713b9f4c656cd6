// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notify delivers outgoing notifications (new leads, email
// verification links) through a pluggable Sender, off the request path.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Message kinds. They double as AMQP routing keys.
const (
	KindQuote       = "lead.quote"
	KindTender      = "lead.tender"
	KindContact     = "lead.contact"
	KindVerifyEmail = "account.verify_email"
)

// Message is a single notification.
type Message struct {
	Kind      string            `json:"kind"`
	To        []string          `json:"to"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// NewLead builds the notification for a freshly submitted lead.
// fields are rendered in the given order as "key: value" lines.
func NewLead(kind string, to []string, id int64, fields [][2]string) Message {
	var label string
	switch kind {
	case KindQuote:
		label = "quote request"
	case KindTender:
		label = "tender"
	default:
		label = "contact message"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A new %s was received (#%d).\n\n", label, id)
	data := make(map[string]string, len(fields)+1)
	data["id"] = fmt.Sprint(id)
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f[0], f[1])
		data[f[0]] = f[1]
	}

	return Message{
		Kind:      kind,
		To:        to,
		Subject:   fmt.Sprintf("New %s #%d", label, id),
		Body:      b.String(),
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

// VerifyEmail builds the email verification message.
func VerifyEmail(to, name, link string) Message {
	body := fmt.Sprintf("Hello %s,\n\nPlease confirm your email address by opening the link below.\n"+
		"The link expires in 60 minutes.\n\n%s\n", name, link)
	return Message{
		Kind:      KindVerifyEmail,
		To:        []string{to},
		Subject:   "Confirm your email address",
		Body:      body,
		Data:      map[string]string{"email": to, "link": link},
		CreatedAt: time.Now().UTC(),
	}
}
