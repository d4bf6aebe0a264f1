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
	"fmt"
	"strings"

	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/authz"
	"github.com/scopeguard/scopeguard/internal/id"
)

// Service provides identity-related business logic
type Service struct {
	repo        Repository
	hasher      *PasswordHasher
	guard       *LoginAttemptGuard
	auditLogger audit.Logger
}

// NewService creates a new identity service
func NewService(repo Repository, hasher *PasswordHasher, guard *LoginAttemptGuard, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		guard:       guard,
		auditLogger: auditLogger,
	}
}

// CreateIdentity creates a new identity inside an existing tenant. Used by
// registration (paired with a brand-new tenant, role tenant_admin) and by
// admin provisioning.
func (s *Service) CreateIdentity(ctx context.Context, tenantID, email, password string, role authz.Role) (*Identity, error) {
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !isStrongPassword(password) {
		return nil, ErrWeakPassword
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role: %q", role)
	}

	// Email is the globally unique login handle, checked across all tenants
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	ident := &Identity{
		ID:           id.NewUUIDv7(),
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}

	if err := s.repo.Create(ctx, ident); err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		TenantID: tenantID,
		ActorID:  ident.ID,
		Resource: "identity",
		Metadata: map[string]any{"email": email, "role": string(role)},
	})

	return ident, nil
}

// Login authenticates an identity by email and password, honoring the
// guard's two-step contract: the attempt is counted before the password is
// verified, and on success this method resets the counter and clears any
// lock that engaged on this very attempt.
//
// An unknown email proceeds without touching any counter and fails with
// the same generic ErrInvalidCredentials, so responses do not reveal
// account existence.
func (s *Service) Login(ctx context.Context, email, password string) (*Identity, error) {
	ident, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "identity_not_found"},
		})
		return nil, ErrInvalidCredentials
	}

	// Active lock: reject with remaining duration, counter untouched
	if err := s.guard.Check(ident); err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			TenantID: ident.TenantID,
			ActorID:  ident.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "locked_out"},
		})
		return nil, err
	}

	// Pessimistic count before the password check
	lockEngaged, err := s.guard.RegisterAttempt(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("failed to record login attempt: %w", err)
	}

	valid, err := s.hasher.Verify(password, ident.PasswordHash)
	if err != nil || !valid {
		if lockEngaged {
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeUserLocked,
				TenantID: ident.TenantID,
				ActorID:  ident.ID,
				Resource: "login",
				Metadata: map[string]any{audit.AttrAttempts: ident.FailedLoginAttempts},
			})
		}
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			TenantID: ident.TenantID,
			ActorID:  ident.ID,
			Resource: "login",
			Metadata: map[string]any{
				audit.AttrReason:   "invalid_password",
				audit.AttrAttempts: ident.FailedLoginAttempts,
			},
		})
		return nil, ErrInvalidCredentials
	}

	// Caller obligation half of the guard contract
	if err := s.guard.RecordSuccess(ctx, ident.ID); err != nil {
		return nil, fmt.Errorf("failed to reset login attempts: %w", err)
	}
	ident.FailedLoginAttempts = 0
	ident.LockedUntil = nil

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		TenantID: ident.TenantID,
		ActorID:  ident.ID,
		Resource: "login",
	})

	return ident, nil
}

// GetByID retrieves an identity by ID
func (s *Service) GetByID(ctx context.Context, identityID string) (*Identity, error) {
	ident, err := s.repo.GetByID(ctx, identityID)
	if err != nil {
		return nil, ErrIdentityNotFound
	}
	return ident, nil
}

// ChangeRole updates an identity's role. Tenant membership never changes;
// only login outcomes, password reset, and role changes mutate an identity.
func (s *Service) ChangeRole(ctx context.Context, identityID string, role authz.Role, changedBy string) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role: %q", role)
	}

	ident, err := s.repo.GetByID(ctx, identityID)
	if err != nil {
		return ErrIdentityNotFound
	}

	if err := s.repo.UpdateRole(ctx, ident.ID, role); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleChanged,
		TenantID: ident.TenantID,
		ActorID:  changedBy,
		Resource: ident.ID,
		Metadata: map[string]any{"old_role": string(ident.Role), "new_role": string(role)},
	})

	return nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, identityID, oldPassword, newPassword string) error {
	ident, err := s.repo.GetByID(ctx, identityID)
	if err != nil {
		return ErrIdentityNotFound
	}

	valid, err := s.hasher.Verify(oldPassword, ident.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	if !isStrongPassword(newPassword) {
		return ErrWeakPassword
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, identityID, newHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePasswordChanged,
		TenantID: ident.TenantID,
		ActorID:  identityID,
		Resource: "credentials",
	})

	return nil
}

// Helper functions
func isValidEmail(email string) bool {
	return len(email) > 3 && len(email) < 255 && strings.Count(email, "@") == 1
}

func isStrongPassword(password string) bool {
	return len(password) >= 8
}
