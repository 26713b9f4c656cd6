// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage stores uploaded files behind a small driver interface with
// a local disk driver and an S3-compatible (MinIO) driver.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotExist is returned when a key has no stored object.
var ErrNotExist = errors.New("file does not exist")

// Object is an opened stored file.
type Object struct {
	io.ReadCloser
	Size        int64
	ContentType string
}

// Storage is a flat key/value file store. Keys are slash-separated relative paths.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
}

// DeleteAll deletes every key, returning the keys that failed together with
// the joined errors. Missing files are not failures.
func DeleteAll(ctx context.Context, s Storage, keys []string) ([]string, error) {
	var failed []string
	var errs []error
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotExist) {
			failed = append(failed, key)
			errs = append(errs, err)
		}
	}
	return failed, errors.Join(errs...)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
