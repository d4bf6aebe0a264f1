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
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/scopeguard/scopeguard/internal/audit"
)

// resetTokenBytes gives a 256-bit token; base64url encoded it is 43 chars.
const resetTokenBytes = 32

// TokenDeliverer is the out-of-band delivery collaborator. The reset flow
// only produces tokens; delivery (email, SMS) is entirely the deliverer's
// responsibility.
type TokenDeliverer interface {
	Deliver(ctx context.Context, recipient, token string) error
}

// ResetFlow implements the single-use, time-boxed password reset token
// lifecycle.
type ResetFlow struct {
	repo        Repository
	hasher      *PasswordHasher
	deliverer   TokenDeliverer
	auditLogger audit.Logger
	tokenTTL    time.Duration
}

// NewResetFlow creates a new password reset flow
func NewResetFlow(repo Repository, hasher *PasswordHasher, deliverer TokenDeliverer, auditLogger audit.Logger, tokenTTL time.Duration) *ResetFlow {
	return &ResetFlow{
		repo:        repo,
		hasher:      hasher,
		deliverer:   deliverer,
		auditLogger: auditLogger,
		tokenTTL:    tokenTTL,
	}
}

// Request issues a reset token for the identity behind email and hands it
// to the deliverer. An unknown email returns (nil, nil) so the caller can
// emit the identical success message in both cases and reveal nothing
// about account existence.
func (f *ResetFlow) Request(ctx context.Context, email string) (*Identity, error) {
	ident, err := f.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil
	}

	token, err := generateResetToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiresAt := time.Now().Add(f.tokenTTL)
	if err := f.repo.SetResetToken(ctx, ident.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := f.deliverer.Deliver(ctx, ident.Email, token); err != nil {
		return nil, fmt.Errorf("failed to hand off reset token: %w", err)
	}

	f.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeResetRequested,
		TenantID: ident.TenantID,
		ActorID:  ident.ID,
		Resource: "credentials",
	})

	return ident, nil
}

// Confirm consumes a reset token: exact match plus unexpired expiry, hash
// replacement and token clearing in one atomic repository call. A second
// confirm with the same token fails with ErrResetTokenInvalid.
func (f *ResetFlow) Confirm(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrResetTokenInvalid
	}
	if !isStrongPassword(newPassword) {
		return ErrWeakPassword
	}

	newHash, err := f.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ident, err := f.repo.ConsumeResetToken(ctx, token, newHash)
	if err != nil {
		return err
	}

	f.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeResetConsumed,
		TenantID: ident.TenantID,
		ActorID:  ident.ID,
		Resource: "credentials",
	})

	return nil
}

// generateResetToken returns a high-entropy, URL-safe token.
func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
