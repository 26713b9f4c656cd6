// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/bkconstruct/internal/middleware"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/render"
	"github.com/olegiv/bkconstruct/internal/service"
)

// Acknowledgements shown after a public submission. Honeypot hits and
// storage failures get the same answer as stored submissions.
const (
	msgContactSent  = "Your message has been sent."
	msgQuoteSent    = "Quote request received. We will get back to you shortly."
	msgTenderSent   = "Your call for tenders has been submitted."
	msgSubmitFailed = "Something went wrong. Please try again."
)

var (
	contactFields = []string{"name", "email", "phone", "subject", "message", "source"}
	quoteFields   = []string{"name", "company", "email", "phone", "city", "project_type", "budget", "desired_date", "message"}
	tenderFields  = []string{"reference", "organization", "contact_name", "email", "phone", "deadline", "scope"}
)

// FormsHandler handles the public contact, quote and tender forms.
type FormsHandler struct {
	intake   *service.IntakeService
	renderer *render.Renderer
}

// NewFormsHandler creates a new FormsHandler.
func NewFormsHandler(intake *service.IntakeService, renderer *render.Renderer) *FormsHandler {
	return &FormsHandler{
		intake:   intake,
		renderer: renderer,
	}
}

// Contact handles POST /contact.
func (h *FormsHandler) Contact(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, RouteContactInfo)
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}

	source := formValue(r, "source")
	if source == "" {
		source = model.LeadKindContact
	}
	receipt, err := h.intake.SubmitContact(r.Context(), service.ContactInput{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Phone:    r.FormValue("phone"),
		Subject:  r.FormValue("subject"),
		Message:  r.FormValue("message"),
		Source:   source,
		Honeypot: r.FormValue("hp"),
		IP:       middleware.ClientIP(r),
	})
	h.acknowledge(w, r, back, model.LeadKindContact, receipt, err, contactFields, msgContactSent)
}

// Quote handles POST /quote.
func (h *FormsHandler) Quote(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, RouteContactInfo)
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}

	receipt, err := h.intake.SubmitQuote(r.Context(), service.QuoteInput{
		Name:        r.FormValue("name"),
		Company:     r.FormValue("company"),
		Email:       r.FormValue("email"),
		Phone:       r.FormValue("phone"),
		City:        r.FormValue("city"),
		ProjectType: r.FormValue("project_type"),
		Budget:      r.FormValue("budget"),
		DesiredDate: r.FormValue("desired_date"),
		Message:     r.FormValue("message"),
		Files:       formUploads(r, "files"),
		Honeypot:    r.FormValue("hp"),
		IP:          middleware.ClientIP(r),
	})
	h.acknowledge(w, r, back, model.LeadKindQuote, receipt, err, quoteFields, msgQuoteSent)
}

// Tender handles POST /tender.
func (h *FormsHandler) Tender(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, RouteContactInfo)
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}

	receipt, err := h.intake.SubmitTender(r.Context(), service.TenderInput{
		Reference:    r.FormValue("reference"),
		Organization: r.FormValue("organization"),
		ContactName:  r.FormValue("contact_name"),
		Email:        r.FormValue("email"),
		Phone:        r.FormValue("phone"),
		Deadline:     r.FormValue("deadline"),
		Scope:        r.FormValue("scope"),
		Documents:    formUploads(r, "documents"),
		Honeypot:     r.FormValue("hp"),
		IP:           middleware.ClientIP(r),
	})
	h.acknowledge(w, r, back, model.LeadKindTender, receipt, err, tenderFields, msgTenderSent)
}

func (h *FormsHandler) acknowledge(w http.ResponseWriter, r *http.Request, back, kind string, receipt *service.Receipt, err error, fields []string, msg string) {
	if err != nil {
		if ve, ok := model.IsValidation(err); ok {
			validationRedirect(w, r, h.renderer, back, ve, oldInput(r, fields...))
			return
		}
		slog.Error("submission failed", "kind", kind, "error", err)
		flashError(w, r, h.renderer, back, msgSubmitFailed)
		return
	}
	slog.Debug("submission acknowledged", "kind", kind, "outcome", receipt.Outcome)
	flashAndRedirect(w, r, h.renderer, back, msg, render.FlashSuccess)
}
