// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/bkconstruct/internal/storage"
	"github.com/olegiv/bkconstruct/internal/util"
)

// publicPrefixes are the storage prefixes served without authentication.
// Lead attachments are only reachable through the back office.
var publicPrefixes = []string{"projects/", "posts/", "events/"}

// FilesHandler serves stored content files for the disk driver.
type FilesHandler struct {
	storage storage.Storage
}

// NewFilesHandler creates a new FilesHandler.
func NewFilesHandler(st storage.Storage) *FilesHandler {
	return &FilesHandler{storage: st}
}

// Serve handles GET /storage/*.
func (h *FilesHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key, err := util.CleanKey(chi.URLParam(r, "*"))
	if err != nil || !isPublicKey(key) {
		http.NotFound(w, r)
		return
	}

	obj, err := h.storage.Open(r.Context(), key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotExist) {
			slog.Error("failed to open stored file", "key", key, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	defer func() { _ = obj.Close() }()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, obj); err != nil {
		slog.Debug("stored file download interrupted", "key", key, "error", err)
	}
}

func isPublicKey(key string) bool {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
