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
	"errors"

	"github.com/scopeguard/scopeguard/internal/audit"
)

// Domain errors
var (
	ErrForbidden = errors.New("forbidden")
)

// Operation names a resource-boundary action evaluated against the policy
// table. Handlers pass the operation they are about to perform; the gate
// decides, so no handler re-implements role checks inline.
type Operation string

const (
	OpTenantCreate  Operation = "tenant:create"
	OpTenantRead    Operation = "tenant:read"
	OpTenantDelete  Operation = "tenant:delete"
	OpUserList      Operation = "user:list"
	OpUserProvision Operation = "user:provision"
	OpRoleChange    Operation = "user:role_change"
	OpSelfRead      Operation = "self:read"
)

// IdentityContext is the verified caller identity produced by the request
// middleware. It is request-scoped and never persisted.
type IdentityContext struct {
	TenantID string
	UserID   string
	Email    string
	Role     Role
}

// policy is the role × operation allow table. Absence means deny.
var policy = map[Role]map[Operation]bool{
	RoleUser: {
		OpTenantRead: true,
		OpSelfRead:   true,
	},
	RoleTenantAdmin: {
		OpTenantRead:    true,
		OpSelfRead:      true,
		OpUserList:      true,
		OpUserProvision: true,
		OpRoleChange:    true,
	},
	RoleSystemAdmin: {
		OpTenantCreate:  true,
		OpTenantRead:    true,
		OpSelfRead:      true,
		OpUserList:      true,
		OpUserProvision: true,
		OpRoleChange:    true,
		OpTenantDelete:  true,
	},
}

// crossTenantOps is the narrow set of administrative operations a
// system_admin may perform against a tenant other than its own.
var crossTenantOps = map[Operation]bool{
	OpTenantRead:   true,
	OpTenantDelete: true,
	OpUserList:     true,
}

// Gate is the explicit tenant-equality check invoked at every resource
// boundary. It is deliberately independent from the storage-layer row
// filter: both layers must deny on their own.
type Gate struct {
	auditLogger audit.Logger
}

// NewGate creates a new authorization gate
func NewGate(auditLogger audit.Logger) *Gate {
	return &Gate{auditLogger: auditLogger}
}

// Allowed reports whether the role may perform the operation at all,
// before any tenant comparison.
func Allowed(role Role, op Operation) bool {
	return policy[role][op]
}

// Check evaluates the policy table and the tenant boundary for a single
// operation. It returns ErrForbidden on any mismatch; there is no partial
// success.
func (g *Gate) Check(ctx context.Context, requestedTenant string, op Operation, caller IdentityContext) error {
	if !Allowed(caller.Role, op) {
		return ErrForbidden
	}

	if requestedTenant == caller.TenantID {
		return nil
	}

	// Cross-tenant access: system_admin only, and only for the allowlisted
	// operations.
	if caller.Role == RoleSystemAdmin && crossTenantOps[op] {
		return nil
	}

	g.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeCrossTenantDenied,
		TenantID: caller.TenantID,
		ActorID:  caller.UserID,
		Resource: string(op),
		Metadata: map[string]any{"requested_tenant": requestedTenant},
	})

	return ErrForbidden
}
