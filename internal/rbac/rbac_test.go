// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatrix(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "web", m.Guard)
	assert.Equal(t, []string{"admin", "client", "project_lead"}, m.RoleNames())
	assert.ElementsMatch(t, m.Permissions, m.PermissionsOf("admin"))

	lead := m.PermissionsOf("project_lead")
	assert.Contains(t, lead, AccessAdmin)
	assert.NotContains(t, lead, UsersManage)
	assert.NotContains(t, lead, ProjectsDelete)

	client := m.PermissionsOf("client")
	assert.Equal(t, []string{AccessClientPortal, ProjectsView}, client)

	assert.Nil(t, m.PermissionsOf("ghost"))
}

func TestDefaultMatrixDeclaresConstants(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	for _, p := range []string{
		AccessAdmin, AccessClientPortal, ProjectsView, ProjectsCreate, ProjectsEdit,
		ProjectsDelete, ProjectsPublish, QuotesView, QuotesManage, RFPsView, RFPsManage,
		ClientsView, ClientsManage, ReportsView, ReportsManage, CMSManage, UsersManage,
	} {
		assert.Contains(t, m.Permissions, p)
	}
}

func TestParseRejectsUndeclaredPermission(t *testing.T) {
	_, err := Parse([]byte(`
permissions: [a]
roles:
  r:
    permissions: [a, b]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"b"`)
}

func TestParseDefaultsGuard(t *testing.T) {
	m, err := Parse([]byte("permissions: []\nroles: {}\n"))
	require.NoError(t, err)
	assert.Equal(t, "web", m.Guard)
}
