// Copyright 2026 The ScopeGuard Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scopeguard/scopeguard/internal/audit"
)

// TestPurpose: Validates the role policy table before any tenant comparison.
// Scope: Unit Test
// Security: Least privilege per role
// Expected: Members read, tenant admins manage users, only system admins delete tenants; unknown roles may do nothing.
// Test Case ID: ATZ-01
func TestAuthz_PolicyTable(t *testing.T) {
	assert.True(t, Allowed(RoleUser, OpTenantRead))
	assert.True(t, Allowed(RoleUser, OpSelfRead))
	assert.False(t, Allowed(RoleUser, OpUserList))
	assert.False(t, Allowed(RoleUser, OpUserProvision))
	assert.False(t, Allowed(RoleUser, OpRoleChange))
	assert.False(t, Allowed(RoleUser, OpTenantCreate))
	assert.False(t, Allowed(RoleUser, OpTenantDelete))

	assert.True(t, Allowed(RoleTenantAdmin, OpUserList))
	assert.False(t, Allowed(RoleTenantAdmin, OpTenantCreate))
	assert.True(t, Allowed(RoleTenantAdmin, OpUserProvision))
	assert.True(t, Allowed(RoleTenantAdmin, OpRoleChange))
	assert.False(t, Allowed(RoleTenantAdmin, OpTenantDelete))

	assert.True(t, Allowed(RoleSystemAdmin, OpTenantCreate))
	assert.True(t, Allowed(RoleSystemAdmin, OpTenantDelete))

	assert.False(t, Allowed(Role("superuser"), OpSelfRead))
	assert.False(t, Allowed(Role(""), OpTenantRead))
}

// TestPurpose: Validates the tenant boundary: same-tenant access passes, cross-tenant access is denied for everyone but system_admin on the allowlisted operations.
// Scope: Unit Test
// Security: Tenant isolation at the resource boundary
// Expected: ErrForbidden on every cross-tenant request outside the system_admin allowlist.
// Test Case ID: ATZ-02
func TestAuthz_Gate_TenantBoundary(t *testing.T) {
	gate := NewGate(audit.NewSlogLogger())
	ctx := context.Background()

	member := IdentityContext{TenantID: "tenant-a", UserID: "user-1", Role: RoleUser}
	admin := IdentityContext{TenantID: "tenant-a", UserID: "admin-1", Role: RoleTenantAdmin}
	sysAdmin := IdentityContext{TenantID: "tenant-ops", UserID: "ops-1", Role: RoleSystemAdmin}

	// Same tenant passes.
	assert.NoError(t, gate.Check(ctx, "tenant-a", OpTenantRead, member))
	assert.NoError(t, gate.Check(ctx, "tenant-a", OpUserList, admin))

	// Cross tenant is denied for members and tenant admins regardless of
	// the operation's own policy.
	assert.ErrorIs(t, gate.Check(ctx, "tenant-b", OpTenantRead, member), ErrForbidden)
	assert.ErrorIs(t, gate.Check(ctx, "tenant-b", OpUserList, admin), ErrForbidden)
	assert.ErrorIs(t, gate.Check(ctx, "tenant-b", OpUserProvision, admin), ErrForbidden)

	// system_admin crosses the boundary only for the allowlisted set.
	assert.NoError(t, gate.Check(ctx, "tenant-b", OpTenantRead, sysAdmin))
	assert.NoError(t, gate.Check(ctx, "tenant-b", OpTenantDelete, sysAdmin))
	assert.NoError(t, gate.Check(ctx, "tenant-b", OpUserList, sysAdmin))
	assert.ErrorIs(t, gate.Check(ctx, "tenant-b", OpUserProvision, sysAdmin), ErrForbidden)
	assert.ErrorIs(t, gate.Check(ctx, "tenant-b", OpRoleChange, sysAdmin), ErrForbidden)
}

// TestPurpose: Validates role parsing accepts only the defined role names.
// Scope: Unit Test
// Security: Role integrity at input boundaries
// Expected: The three defined roles parse; anything else errors.
// Test Case ID: ATZ-03
func TestAuthz_ParseRole(t *testing.T) {
	for _, name := range []string{"user", "tenant_admin", "system_admin"} {
		role, err := ParseRole(name)
		assert.NoError(t, err)
		assert.True(t, role.Valid())
	}

	for _, name := range []string{"", "admin", "root", "USER"} {
		_, err := ParseRole(name)
		assert.Error(t, err, "role %q should not parse", name)
	}
}
