package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/model"
)

func TestEveryRoleHasPermissions(t *testing.T) {
	for _, role := range model.AllRoles() {
		assert.NotEmpty(t, RolePermissions(role), string(role))
	}
	assert.Empty(t, RolePermissions(model.Role("ghost")))
}

func TestRolePermissionsReturnsCopy(t *testing.T) {
	perms := RolePermissions(model.RoleRider)
	require.NotEmpty(t, perms)
	perms[0] = "tampered"
	assert.NotContains(t, RolePermissions(model.RoleRider), "tampered")
}

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(model.RoleAdmin, PermUserManagementFull))
	assert.False(t, HasPermission(model.RoleRider, PermUserManagementFull))
	assert.True(t, HasPermission(model.RoleRider, PermOrderManagementDelivery))
	assert.False(t, HasPermission(model.Role(""), PermOrderManagementOwn))
}

func TestHasAnyAndAllPermissions(t *testing.T) {
	assert.True(t, HasAnyPermission(model.RoleCustomer, PermPaymentsFull, PermPaymentsOwn))
	assert.False(t, HasAnyPermission(model.RoleRider, PermPaymentsFull, PermPaymentsOwn))

	assert.True(t, HasAllPermissions(model.RoleAdmin, PermUserManagementFull, PermAccountingFull))
	assert.False(t, HasAllPermissions(model.RoleAccountant, PermAccountingFull, PermBranchManagementFull))
}

func TestPagePermissionsLookup(t *testing.T) {
	assert.Equal(t, []string{PermUserManagementFull}, PagePermissions("/roles"))
	// Nested paths inherit the prefix's requirements.
	assert.Equal(t, []string{PermUserManagementFull}, PagePermissions("/roles/rider"))
	// Unmapped pages fall back to the profile capability.
	assert.Equal(t, []string{PermUserManagementProfile}, PagePermissions("/somewhere-else"))
	assert.Empty(t, PagePermissions("not-a-path"))
}

func TestCatalogIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Catalog {
		assert.False(t, seen[p.ID], p.ID)
		seen[p.ID] = true
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Category)
	}
}

func TestRoleMatrixOnlyGrantsCatalogIDs(t *testing.T) {
	known := map[string]bool{}
	for _, p := range Catalog {
		known[p.ID] = true
	}
	for _, role := range model.AllRoles() {
		for _, id := range RolePermissions(role) {
			assert.True(t, known[id], "role %s grants unknown capability %s", role, id)
		}
	}
}
