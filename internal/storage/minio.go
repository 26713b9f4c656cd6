// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/util"
)

// MinIOConfig holds S3-compatible connection settings.
type MinIOConfig struct {
	Endpoint        string // e.g. "minio:9000"
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	PublicURL       string // base URL objects are served from
}

// MinIO stores files in a single bucket of an S3-compatible server.
type MinIO struct {
	mc        *minio.Client
	bucket    string
	publicURL string
}

// NewMinIO connects to the server and makes sure the bucket exists.
func NewMinIO(ctx context.Context, cfg MinIOConfig) (*MinIO, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &MinIO{mc: mc, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

// Put uploads r as key.
func (m *MinIO) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	clean, err := util.CleanKey(key)
	if err != nil {
		return err
	}
	_, err = m.mc.PutObject(ctx, m.bucket, clean, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return &model.StorageError{Op: "put", Path: clean, Err: err}
	}
	return nil
}

// Open downloads key.
func (m *MinIO) Open(ctx context.Context, key string) (*Object, error) {
	clean, err := util.CleanKey(key)
	if err != nil {
		return nil, err
	}
	obj, err := m.mc.GetObject(ctx, m.bucket, clean, minio.GetObjectOptions{})
	if err != nil {
		return nil, &model.StorageError{Op: "get", Path: clean, Err: err}
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, ErrNotExist
		}
		return nil, &model.StorageError{Op: "stat", Path: clean, Err: err}
	}
	return &Object{ReadCloser: obj, Size: info.Size, ContentType: info.ContentType}, nil
}

// Delete removes key. S3 deletes are idempotent so a missing key is not reported.
func (m *MinIO) Delete(ctx context.Context, key string) error {
	clean, err := util.CleanKey(key)
	if err != nil {
		return err
	}
	if err := m.mc.RemoveObject(ctx, m.bucket, clean, minio.RemoveObjectOptions{}); err != nil {
		return &model.StorageError{Op: "delete", Path: clean, Err: err}
	}
	return nil
}

// Exists reports whether key is stored.
func (m *MinIO) Exists(ctx context.Context, key string) (bool, error) {
	clean, err := util.CleanKey(key)
	if err != nil {
		return false, err
	}
	_, err = m.mc.StatObject(ctx, m.bucket, clean, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// URL returns the public URL of key.
func (m *MinIO) URL(key string) string {
	return joinURL(m.publicURL, key)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
