// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"testing"
)

func TestUserCollectionsNeverNil(t *testing.T) {
	u := &User{}
	if u.Roles() == nil || u.Permissions() == nil || u.Tokens() == nil {
		t.Fatal("collections must be non-nil for a bare user")
	}
	if u.Can("projects.view") {
		t.Error("bare user must not carry permissions")
	}
}

func TestUserCan(t *testing.T) {
	u := &User{}
	u.SetAccess([]string{RoleProjectLead}, []string{"access admin", "projects.view"})

	tests := []struct {
		name  string
		perms []string
		want  bool
	}{
		{name: "single match", perms: []string{"projects.view"}, want: true},
		{name: "any of", perms: []string{"users.manage", "access admin"}, want: true},
		{name: "none", perms: []string{"users.manage"}, want: false},
		{name: "case sensitive", perms: []string{"Projects.View"}, want: false},
		{name: "empty list", perms: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := u.Can(tt.perms...); got != tt.want {
				t.Errorf("Can(%v) = %v, want %v", tt.perms, got, tt.want)
			}
		})
	}

	if u.IsAdmin() {
		t.Error("project lead must not be admin")
	}
	if !u.HasRole(RoleClient, RoleProjectLead) {
		t.Error("HasRole any-of failed")
	}
}

func TestValidationError(t *testing.T) {
	ve := &ValidationError{}
	if ve.Err() != nil {
		t.Fatal("empty ValidationError must not be an error")
	}
	ve.Add("slug", "taken")
	ve.Add("slug", "ignored")
	ve.Add("title", "required")

	err := ve.Err()
	got, ok := IsValidation(err)
	if !ok {
		t.Fatal("IsValidation() = false")
	}
	if got.Fields["slug"] != "taken" {
		t.Errorf("slug message = %q", got.Fields["slug"])
	}
	if err.Error() != "validation failed: slug: taken; title: required" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestStorageErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := error(&StorageError{Op: "write", Path: "a", Err: inner})
	if !errors.Is(err, inner) {
		t.Error("StorageError must unwrap")
	}
}
