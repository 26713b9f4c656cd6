// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package rbac declares the permission names used to guard routes and the
// default role matrix seeded into the database.
package rbac

import (
	_ "embed"
	"fmt"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// Permission names.
const (
	AccessAdmin        = "access admin"
	AccessClientPortal = "access client portal"

	ProjectsView    = "projects.view"
	ProjectsCreate  = "projects.create"
	ProjectsEdit    = "projects.edit"
	ProjectsDelete  = "projects.delete"
	ProjectsPublish = "projects.publish"

	QuotesView   = "quotes.view"
	QuotesManage = "quotes.manage"
	RFPsView     = "rfps.view"
	RFPsManage   = "rfps.manage"

	ClientsView   = "clients.view"
	ClientsManage = "clients.manage"
	ReportsView   = "reports.view"
	ReportsManage = "reports.manage"

	CMSManage   = "cms.manage"
	UsersManage = "users.manage"
)

//go:embed rbac.yaml
var defaultMatrix []byte

// Matrix is the declared set of permissions and the roles granting them.
type Matrix struct {
	Guard       string          `yaml:"guard"`
	Permissions []string        `yaml:"permissions"`
	Roles       map[string]Role `yaml:"roles"`
}

// Role lists the permissions of a role. All grants every declared permission.
type Role struct {
	All         bool     `yaml:"all"`
	Permissions []string `yaml:"permissions"`
}

// Default returns the embedded role matrix.
func Default() (*Matrix, error) {
	return Parse(defaultMatrix)
}

// Parse decodes and validates a role matrix.
func Parse(data []byte) (*Matrix, error) {
	var m Matrix
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing role matrix: %w", err)
	}
	if m.Guard == "" {
		m.Guard = "web"
	}
	for name, role := range m.Roles {
		for _, p := range role.Permissions {
			if !slices.Contains(m.Permissions, p) {
				return nil, fmt.Errorf("role %s: undeclared permission %q", name, p)
			}
		}
	}
	return &m, nil
}

// RoleNames returns the declared role names in sorted order.
func (m *Matrix) RoleNames() []string {
	names := make([]string, 0, len(m.Roles))
	for name := range m.Roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PermissionsOf returns the permissions granted by a role.
func (m *Matrix) PermissionsOf(role string) []string {
	r, ok := m.Roles[role]
	if !ok {
		return nil
	}
	if r.All {
		return slices.Clone(m.Permissions)
	}
	return slices.Clone(r.Permissions)
}
