// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/bkconstruct/internal/service"
)

// maxMultipartMemory is the in-memory part of a parsed multipart form.
const maxMultipartMemory = 32 << 20

// ParseIDParam parses the "id" URL parameter as a positive integer.
func ParseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid id %d", id)
	}
	return id, nil
}

// parseID is ParseIDParam for handlers that only need to know whether
// the parameter is usable.
func parseID(r *http.Request) (int64, bool) {
	id, err := ParseIDParam(r)
	return id, err == nil
}

// ParsePage returns the "page" query parameter, defaulting to 1.
func ParsePage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// parseForm parses urlencoded and multipart bodies alike.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if r.MultipartForm != nil {
			return nil
		}
		return r.ParseMultipartForm(maxMultipartMemory)
	}
	return r.ParseForm()
}

// formValue returns the trimmed form value.
func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// formValues returns the non-empty trimmed values of a repeated field,
// accepting both "key" and "key[]".
func formValues(r *http.Request, key string) []string {
	var out []string
	for _, k := range []string{key, key + "[]"} {
		for _, v := range r.Form[k] {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// formInts returns the integer values of a repeated field, skipping
// anything that does not parse.
func formInts(r *http.Request, key string) []int {
	var out []int
	for _, v := range formValues(r, key) {
		if n, err := strconv.Atoi(v); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// fileHeaders returns the uploaded files of a field, accepting both
// "key" and "key[]".
func fileHeaders(r *http.Request, key string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	var out []*multipart.FileHeader
	for _, k := range []string{key, key + "[]"} {
		out = append(out, r.MultipartForm.File[k]...)
	}
	return out
}

// formUploads wraps the uploaded files of a field.
func formUploads(r *http.Request, key string) []service.Upload {
	return service.FileUploads(fileHeaders(r, key))
}

// formUpload returns the first uploaded file of a field, or nil.
func formUpload(r *http.Request, key string) *service.Upload {
	fhs := fileHeaders(r, key)
	if len(fhs) == 0 || fhs[0].Size == 0 {
		return nil
	}
	u := service.FileUpload(fhs[0])
	return &u
}

// oldInput captures the submitted text fields to refill a form after a
// validation failure. Secrets are never echoed back.
func oldInput(r *http.Request, keys ...string) map[string]string {
	old := make(map[string]string, len(keys))
	for _, k := range keys {
		if v := r.FormValue(k); v != "" {
			old[k] = v
		}
	}
	return old
}

// backTo returns the Referer path when it is a local path, else fallback.
func backTo(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return fallback
	}
	p := u.EscapedPath()
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return fallback
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
