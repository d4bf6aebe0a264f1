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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scopeguard/scopeguard/internal/authz"
	"github.com/scopeguard/scopeguard/internal/identity"
)

const identityColumns = `id, tenant_id, email, password_hash, role,
	failed_login_attempts, locked_until,
	password_reset_token, password_reset_expires_at,
	created_at, updated_at`

// IdentityRepository implements identity.Repository
type IdentityRepository struct {
	db *DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Create creates a new identity
func (r *IdentityRepository) Create(ctx context.Context, ident *identity.Identity) error {
	ctx, cancel := r.db.withQueryTimeout(ctx)
	defer cancel()

	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO identities (
			id, tenant_id, email, password_hash, role, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		ident.ID, ident.TenantID, ident.Email, ident.PasswordHash, string(ident.Role),
		now, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 unique_violation covers the global email constraint
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return identity.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	ident.CreatedAt = now
	ident.UpdatedAt = now

	return nil
}

// GetByID retrieves an identity by ID
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*identity.Identity, error) {
	ctx, cancel := r.db.withQueryTimeout(ctx)
	defer cancel()

	row := r.db.pool.QueryRow(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE id = $1
	`, id)
	return scanIdentity(row)
}

// GetByEmail retrieves an identity by its globally unique email. The lookup
// is tenant-agnostic: it runs before any tenant is known.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	ctx, cancel := r.db.withQueryTimeout(ctx)
	defer cancel()

	row := r.db.pool.QueryRow(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE email = $1
	`, email)
	return scanIdentity(row)
}

// RecordFailedAttempt increments the failure counter and engages the lock
// when the new count reaches threshold. The increment and the conditional
// lock run in a single UPDATE so concurrent attempts against the same
// identity serialize on the row.
func (r *IdentityRepository) RecordFailedAttempt(ctx context.Context, id string, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	ctx, cancel := r.db.withQueryTimeout(ctx)
	defer cancel()

	var attempts int
	var lockedUntil sql.NullTime

	err := r.db.pool.QueryRow(ctx, `
		UPDATE identities
		SET failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE
				WHEN failed_login_attempts + 1 >= $2
				THEN now() + make_interval(secs => $3)
				ELSE locked_until
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING failed_login_attempts, locked_until
	`, id, threshold, lockFor.Seconds()).Scan(&attempts, &lockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, identity.ErrIdentityNotFound
		}
		return 0, nil, fmt.Errorf("failed to record login attempt: %w", err)
	}

	if lockedUntil.Valid {
		return attempts, &lockedUntil.Time, nil
	}
	return attempts, nil, nil
}

// ClearLockout resets the failure counter and clears the lock together
func (r *IdentityRepository) ClearLockout(ctx context.Context, id string) error {
	ctx, cancel := r.db.withQueryTimeout(ctx)
	defer cancel()

	_, err := r.db.pool.Exec(ctx, `
		UPDATE identities
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to clear lockout: %w", err)
	}
	return nil
}

// UpdatePassword replaces the password hash
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	ctx, cancel := r.db.withQueryTimeout(ctx)
	defer cancel()

	tag, err := r.db.pool.Exec(ctx, `
		UPDATE identities
		SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrIdentityNotFound
	}
	return nil
}

// UpdateRole changes the identity's role
func (r *IdentityRepository) UpdateRole(ctx context.Context, id string, role authz.Role) error {
	ctx, cancel := r.db.withQueryTimeout(ctx)
	defer cancel()

	tag, err := r.db.pool.Exec(ctx, `
		UPDATE identities
		SET role = $2, updated_at = now()
		WHERE id = $1
	`, id, string(role))
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrIdentityNotFound
	}
	return nil
}

// SetResetToken stores a reset token and its expiry together, replacing any
// previous outstanding token for the identity.
func (r *IdentityRepository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	ctx, cancel := r.db.withQueryTimeout(ctx)
	defer cancel()

	tag, err := r.db.pool.Exec(ctx, `
		UPDATE identities
		SET password_reset_token = $2, password_reset_expires_at = $3, updated_at = now()
		WHERE id = $1
	`, id, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrIdentityNotFound
	}
	return nil
}

// ConsumeResetToken matches an unexpired token, replaces the password hash,
// and clears the token and expiry in one statement. A second confirm with
// the same token matches no row and fails.
func (r *IdentityRepository) ConsumeResetToken(ctx context.Context, token, newPasswordHash string) (*identity.Identity, error) {
	ctx, cancel := r.db.withQueryTimeout(ctx)
	defer cancel()

	row := r.db.pool.QueryRow(ctx, `
		UPDATE identities
		SET password_hash = $2,
			password_reset_token = NULL,
			password_reset_expires_at = NULL,
			updated_at = now()
		WHERE password_reset_token = $1
			AND password_reset_expires_at > now()
		RETURNING `+identityColumns+`
	`, token, newPasswordHash)

	ident, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, identity.ErrIdentityNotFound) {
			return nil, identity.ErrResetTokenInvalid
		}
		return nil, err
	}
	return ident, nil
}

func scanIdentity(row pgx.Row) (*identity.Identity, error) {
	var ident identity.Identity
	var role string
	var lockedUntil, resetExpiresAt sql.NullTime
	var resetToken sql.NullString

	err := row.Scan(
		&ident.ID, &ident.TenantID, &ident.Email, &ident.PasswordHash, &role,
		&ident.FailedLoginAttempts, &lockedUntil,
		&resetToken, &resetExpiresAt,
		&ident.CreatedAt, &ident.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to scan identity: %w", err)
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

	return &ident, nil
}
