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

import "fmt"

// Role is the typed role enumeration. Every identity carries exactly one
// role; there are no per-endpoint ad hoc role strings.
type Role string

const (
	// RoleUser is a regular member of a tenant.
	RoleUser Role = "user"

	// RoleTenantAdmin administers identities within its own tenant.
	RoleTenantAdmin Role = "tenant_admin"

	// RoleSystemAdmin is the platform operator role. It is the only role
	// permitted to cross tenant boundaries, and only for the operations
	// listed in crossTenantOps.
	RoleSystemAdmin Role = "system_admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTenantAdmin, RoleSystemAdmin:
		return true
	}
	return false
}

// ParseRole converts a string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}
