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

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/authz"
)

// TestPurpose: Validates the startup promotion of the initial system admin.
// Scope: Unit Test
// Security: First-operator provisioning outside the API surface
// Expected: With the variable set, the named account is promoted to system_admin exactly once; an unset variable and an already promoted account are no-ops, an unknown email fails.
// Test Case ID: BST-01
func TestIdentity_Bootstrap(t *testing.T) {
	repo := NewMockRepository()
	s := newTestService(repo, 5, 15*time.Minute)
	bs := NewBootstrapService(s, audit.NewSlogLogger())
	ctx := context.Background()

	ident, err := s.CreateIdentity(ctx, "tenant-1", "ops@example.com", "SecurePassword123", authz.RoleTenantAdmin)
	if err != nil {
		t.Fatalf("failed to create identity: %v", err)
	}

	// Unset variable: nothing happens.
	t.Setenv(EnvBootstrapAdminEmail, "")
	if err := bs.Bootstrap(ctx); err != nil {
		t.Fatalf("expected no-op with unset variable, got %v", err)
	}
	stored, _ := repo.GetByID(ctx, ident.ID)
	if stored.Role != authz.RoleTenantAdmin {
		t.Fatalf("role changed without bootstrap variable: %s", stored.Role)
	}

	t.Setenv(EnvBootstrapAdminEmail, "ops@example.com")
	if err := bs.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	stored, _ = repo.GetByID(ctx, ident.ID)
	if stored.Role != authz.RoleSystemAdmin {
		t.Fatalf("expected system_admin after bootstrap, got %s", stored.Role)
	}

	// Idempotent across restarts.
	if err := bs.Bootstrap(ctx); err != nil {
		t.Fatalf("second bootstrap should be a no-op, got %v", err)
	}

	t.Setenv(EnvBootstrapAdminEmail, "ghost@example.com")
	if err := bs.Bootstrap(ctx); err == nil {
		t.Fatal("expected error for unknown bootstrap email")
	}
}
