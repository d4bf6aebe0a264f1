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
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/scopeguard/scopeguard/internal/authz"
	"github.com/scopeguard/scopeguard/internal/identity"
)

// ScopedStore runs queries inside a storage session bound to a single
// tenant. The binding is installed with set_config(..., true), which is
// transaction-local: it cannot survive commit, rollback, or cancellation,
// so a pooled connection never carries a stale binding into a later
// request. Row-level security policies keyed on app.tenant_id narrow every
// read and write inside the transaction to the bound tenant.
type ScopedStore struct {
	db *DB
}

// NewScopedStore creates a new scoped store
func NewScopedStore(db *DB) *ScopedStore {
	return &ScopedStore{db: db}
}

// WithTenant acquires a connection, opens a transaction bound to tenantID,
// and runs fn inside it. The transaction commits when fn returns nil and
// rolls back otherwise.
func (s *ScopedStore) WithTenant(ctx context.Context, tenantID string, fn func(tx pgx.Tx) error) error {
	conn, err := s.db.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// No-op after a successful commit.
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT set_config('app.tenant_id', $1, true)`, tenantID); err != nil {
		return fmt.Errorf("failed to bind tenant scope: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListIdentities returns the identities owned by tenantID, newest first.
// The query carries no tenant filter of its own: the row-level security
// policy on the bound transaction narrows it, so a bug in this query could
// widen the result set only within the bound tenant.
func (s *ScopedStore) ListIdentities(ctx context.Context, tenantID string) ([]*identity.Identity, error) {
	var idents []*identity.Identity

	err := s.WithTenant(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+identityColumns+`
			FROM identities
			ORDER BY created_at DESC
		`)
		if err != nil {
			return fmt.Errorf("failed to list identities: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var ident identity.Identity
			var role string
			var lockedUntil, resetExpiresAt sql.NullTime
			var resetToken sql.NullString

			if err := rows.Scan(
				&ident.ID, &ident.TenantID, &ident.Email, &ident.PasswordHash, &role,
				&ident.FailedLoginAttempts, &lockedUntil,
				&resetToken, &resetExpiresAt,
				&ident.CreatedAt, &ident.UpdatedAt,
			); err != nil {
				return fmt.Errorf("failed to scan identity: %w", err)
			}

			ident.Role = authz.Role(role)
			if lockedUntil.Valid {
				ident.LockedUntil = &lockedUntil.Time
			}
			if resetToken.Valid {
				ident.ResetToken = &resetToken.String
			}
			if resetExpiresAt.Valid {
				ident.ResetExpiresAt = &resetExpiresAt.Time
			}

			idents = append(idents, &ident)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return idents, nil
}
