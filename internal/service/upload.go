// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/storage"
	"github.com/olegiv/bkconstruct/internal/util"
)

// Size limits for uploaded files.
const (
	MiB = 1 << 20

	MaxCoverSize       = 4 * MiB
	MaxMediaSize       = 8 * MiB
	MaxQuoteFileSize   = 15 * MiB
	MaxTenderFileSize  = 25 * MiB
	MaxVideoURLLength  = 1024
	MaxUploadsPerField = 20
)

// documentExtensions are the attachment types accepted on public forms.
var documentExtensions = map[string]bool{
	"pdf": true, "zip": true, "rar": true, "7z": true,
	"doc": true, "docx": true, "xls": true, "xlsx": true,
	"dwg": true, "dxf": true,
}

// Upload is a file received with a form.
type Upload struct {
	Filename string
	Size     int64
	open     func() (io.ReadCloser, error)
}

// FileUpload wraps a multipart file header.
func FileUpload(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// FileUploads wraps every header of a multipart field.
func FileUploads(fhs []*multipart.FileHeader) []Upload {
	out := make([]Upload, 0, len(fhs))
	for _, fh := range fhs {
		out = append(out, FileUpload(fh))
	}
	return out
}

// Open opens the upload for reading.
func (u Upload) Open() (io.ReadCloser, error) {
	if u.open == nil {
		return nil, fmt.Errorf("upload %q has no content", u.Filename)
	}
	return u.open()
}

// sniffed is an upload whose content type has been detected.
type sniffed struct {
	Upload
	Mime string
	Ext  string // without dot
}

// sniff detects the content type of u from its first bytes.
func sniff(u Upload) (sniffed, error) {
	r, err := u.Open()
	if err != nil {
		return sniffed{}, err
	}
	defer func() { _ = r.Close() }()

	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return sniffed{}, fmt.Errorf("detecting type of %q: %w", u.Filename, err)
	}
	mime, _, _ := strings.Cut(mt.String(), ";")
	return sniffed{Upload: u, Mime: mime, Ext: strings.TrimPrefix(mt.Extension(), ".")}, nil
}

// checkUploads sniffs every upload of a field and records a validation
// error for the first one that is too large or of a refused type.
func checkUploads(ve *model.ValidationError, field string, uploads []Upload, maxSize int64, allow func(s sniffed) bool, typeMsg string) []sniffed {
	if len(uploads) > MaxUploadsPerField {
		ve.Add(field, fmt.Sprintf("No more than %d files may be uploaded at once.", MaxUploadsPerField))
		return nil
	}
	out := make([]sniffed, 0, len(uploads))
	for i, u := range uploads {
		key := field
		if len(uploads) > 1 {
			key = fmt.Sprintf("%s.%d", field, i)
		}
		if u.Size > maxSize {
			ve.Add(key, fmt.Sprintf("Must not be larger than %d MiB.", maxSize/MiB))
			continue
		}
		s, err := sniff(u)
		if err != nil || !allow(s) {
			ve.Add(key, typeMsg)
			continue
		}
		out = append(out, s)
	}
	return out
}

func isImage(s sniffed) bool { return strings.HasPrefix(s.Mime, "image/") }

func isImageOrVideo(s sniffed) bool {
	return strings.HasPrefix(s.Mime, "image/") || strings.HasPrefix(s.Mime, "video/")
}

// isDocument accepts whitelisted attachment types. Office and CAD formats
// are often sniffed as generic containers, so the client extension decides
// in that case.
func isDocument(s sniffed) bool {
	if documentExtensions[s.Ext] {
		return true
	}
	switch s.Mime {
	case "application/octet-stream", "text/plain", "application/zip", "application/x-ole-storage":
		return documentExtensions[clientExt(s.Filename)]
	}
	return false
}

// documentExt picks the stored extension of an attachment.
func documentExt(s sniffed) string {
	if ext := clientExt(s.Filename); documentExtensions[ext] {
		return ext
	}
	return s.Ext
}

func clientExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(strings.ReplaceAll(name, "\\", "/")), "."))
}

// putUpload stores an upload under a dated key and returns the key.
func putUpload(ctx context.Context, st storage.Storage, prefix string, now time.Time, s sniffed, ext string) (string, error) {
	r, err := s.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	key := util.DatedKey(prefix, now, ext)
	if err := st.Put(ctx, key, r, s.Size, s.Mime); err != nil {
		return "", err
	}
	return key, nil
}

// originalName returns the client file name without directories.
func originalName(s sniffed, fallback string) string {
	if name, err := util.SanitizeFilename(s.Filename); err == nil {
		return name
	}
	return fallback
}
