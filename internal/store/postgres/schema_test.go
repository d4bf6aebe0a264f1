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

package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates that the embedded schema keeps row-level security effective for the pool's own role.
// Scope: Unit Test
// Security: Storage-layer tenant isolation
// Expected: The identities table both enables and forces row-level security; table owners skip policies without FORCE, and migrations run as the same role the pool connects with.
// Test Case ID: SCH-01
func TestInitialSchema_RowLevelSecurity(t *testing.T) {
	assert.Contains(t, InitialSchema, "ALTER TABLE identities ENABLE ROW LEVEL SECURITY;")
	assert.Contains(t, InitialSchema, "ALTER TABLE identities FORCE ROW LEVEL SECURITY;")
	assert.Contains(t, InitialSchema, "CREATE POLICY identities_tenant_isolation ON identities")
}

// TestPurpose: Validates that the reset token and its expiry stay paired at the schema level.
// Scope: Unit Test
// Security: Reset token lifecycle integrity
// Expected: The schema carries the set-or-cleared-together constraint.
// Test Case ID: SCH-02
func TestInitialSchema_ResetTokenPairing(t *testing.T) {
	assert.True(t, strings.Contains(InitialSchema,
		"(password_reset_token IS NULL) = (password_reset_expires_at IS NULL)"))
}
