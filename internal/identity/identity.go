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
	"errors"
	"fmt"
	"time"

	"github.com/scopeguard/scopeguard/internal/authz"
)

// Domain errors
var (
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrResetTokenInvalid  = errors.New("invalid or expired reset token")
)

// LockoutError reports an attempt against an actively locked identity.
// It carries the lock expiry so callers can surface the remaining wait;
// the caller has already proven knowledge of a real account, so this is
// not an enumeration concern.
type LockoutError struct {
	Until time.Time
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account locked, retry in %s", e.Remaining().Round(time.Second))
}

// Remaining returns the time left until the lock expires.
func (e *LockoutError) Remaining() time.Duration {
	return time.Until(e.Until)
}

// Identity represents a login-capable account owned by exactly one tenant.
// TenantID is immutable after creation. Email is the globally unique login
// handle: lookups during login and password reset are tenant-agnostic.
type Identity struct {
	ID                  string
	TenantID            string
	Email               string
	PasswordHash        string
	Role                authz.Role
	FailedLoginAttempts int
	LockedUntil         *time.Time
	ResetToken          *string
	ResetExpiresAt      *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Locked reports whether the identity is under an active lockout at t.
func (i *Identity) Locked(t time.Time) bool {
	return i.LockedUntil != nil && i.LockedUntil.After(t)
}

// Repository defines the interface for identity persistence. Only point
// lookups and field updates are required; no query logic lives here.
type Repository interface {
	// Create creates a new identity
	Create(ctx context.Context, ident *Identity) error

	// GetByID retrieves an identity by ID
	GetByID(ctx context.Context, id string) (*Identity, error)

	// GetByEmail retrieves an identity by its globally unique email
	GetByEmail(ctx context.Context, email string) (*Identity, error)

	// RecordFailedAttempt increments the failure counter and, when the new
	// count reaches threshold, sets locked_until = now + lockFor, in one
	// atomic statement against the durable store, so the sequence stays
	// linearizable across concurrent server processes. It returns the new
	// counter value and the lock expiry, if one was engaged.
	RecordFailedAttempt(ctx context.Context, id string, threshold int, lockFor time.Duration) (int, *time.Time, error)

	// ClearLockout resets failed_login_attempts to 0 and clears locked_until
	ClearLockout(ctx context.Context, id string) error

	// UpdatePassword replaces the password hash
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// UpdateRole changes the identity's role
	UpdateRole(ctx context.Context, id string, role authz.Role) error

	// SetResetToken stores a reset token and its expiry together
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error

	// ConsumeResetToken atomically matches an unexpired token, replaces the
	// password hash, and clears the token and its expiry. It returns
	// ErrResetTokenInvalid when no row matches, which also makes a second
	// confirm with the same token fail.
	ConsumeResetToken(ctx context.Context, token, newPasswordHash string) (*Identity, error)
}
