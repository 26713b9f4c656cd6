// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"

	"github.com/spf13/afero"

	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/util"
)

// Disk stores files on a filesystem rooted at a base directory.
type Disk struct {
	fs      afero.Fs
	baseURL string
}

// NewDisk returns a driver storing files under root on the OS filesystem.
// Files are served from baseURL (for example "/storage").
func NewDisk(root, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	return NewDiskFs(afero.NewBasePathFs(afero.NewOsFs(), root), baseURL), nil
}

// NewDiskFs returns a driver over an arbitrary afero filesystem.
func NewDiskFs(fsys afero.Fs, baseURL string) *Disk {
	return &Disk{fs: fsys, baseURL: baseURL}
}

// Fs exposes the underlying filesystem for serving files.
func (d *Disk) Fs() afero.Fs {
	return d.fs
}

// Put writes r to key, creating parent directories.
func (d *Disk) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	clean, err := util.CleanKey(key)
	if err != nil {
		return err
	}
	if err := d.fs.MkdirAll(path.Dir(clean), 0o750); err != nil {
		return &model.StorageError{Op: "mkdir", Path: clean, Err: err}
	}

	f, err := d.fs.OpenFile(clean, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return &model.StorageError{Op: "create", Path: clean, Err: err}
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = d.fs.Remove(clean)
		return &model.StorageError{Op: "write", Path: clean, Err: err}
	}
	if err := f.Close(); err != nil {
		_ = d.fs.Remove(clean)
		return &model.StorageError{Op: "close", Path: clean, Err: err}
	}
	return nil
}

// Open opens a stored file.
func (d *Disk) Open(_ context.Context, key string) (*Object, error) {
	clean, err := util.CleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := d.fs.Open(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, &model.StorageError{Op: "open", Path: clean, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &model.StorageError{Op: "stat", Path: clean, Err: err}
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, ErrNotExist
	}
	return &Object{
		ReadCloser:  f,
		Size:        info.Size(),
		ContentType: mime.TypeByExtension(path.Ext(clean)),
	}, nil
}

// Delete removes a stored file.
func (d *Disk) Delete(_ context.Context, key string) error {
	clean, err := util.CleanKey(key)
	if err != nil {
		return err
	}
	if err := d.fs.Remove(clean); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return &model.StorageError{Op: "delete", Path: clean, Err: err}
	}
	return nil
}

// Exists reports whether key is stored.
func (d *Disk) Exists(_ context.Context, key string) (bool, error) {
	clean, err := util.CleanKey(key)
	if err != nil {
		return false, err
	}
	return afero.Exists(d.fs, clean)
}

// URL returns the public URL of key.
func (d *Disk) URL(key string) string {
	return joinURL(d.baseURL, key)
}
