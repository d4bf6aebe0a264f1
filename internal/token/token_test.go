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

package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-at-least-32-bytes-long!")

func newTestService() *Service {
	return NewService(testSecret, "scopeguard", 24*time.Hour, 168*time.Hour)
}

// TestPurpose: Validates that an issued pair verifies and carries the caller's identity claims.
// Scope: Unit Test
// Security: Token integrity
// Expected: Access and refresh tokens verify under their own type and expose subject, tenant, email and role.
// Test Case ID: TOK-01
func TestToken_IssuePairAndVerify(t *testing.T) {
	s := newTestService()

	pair, err := s.IssuePair("user-1", "tenant-1", "user@example.com", "tenant_admin")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := s.Verify(pair.AccessToken, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "tenant_admin", claims.Role)
	assert.Equal(t, TypeAccess, claims.TokenType)

	refreshClaims, err := s.Verify(pair.RefreshToken, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, refreshClaims.TokenType)

	// Refresh expiry extends past access expiry.
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))
}

// TestPurpose: Validates that a refresh token is rejected on the access verification path and vice versa.
// Scope: Unit Test
// Security: Token type confusion
// Expected: ErrWrongTokenType in both directions.
// Test Case ID: TOK-02
func TestToken_WrongType(t *testing.T) {
	s := newTestService()

	pair, err := s.IssuePair("user-1", "tenant-1", "user@example.com", "user")
	require.NoError(t, err)

	_, err = s.Verify(pair.RefreshToken, TypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = s.Verify(pair.AccessToken, TypeRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

// TestPurpose: Validates that expired tokens fail with the dedicated expiry error.
// Scope: Unit Test
// Security: Token lifetime enforcement
// Expected: ErrExpiredToken for a token issued with a negative TTL and for one issued with a zero TTL.
// Test Case ID: TOK-03
func TestToken_Expired(t *testing.T) {
	s := newTestService()

	signed, _, err := s.Issue("user-1", "tenant-1", "user@example.com", "user", TypeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = s.Verify(signed, TypeAccess)
	assert.ErrorIs(t, err, ErrExpiredToken)

	// A zero TTL expires at the instant of issuance; verification always
	// happens after that instant.
	signed, _, err = s.Issue("user-1", "tenant-1", "user@example.com", "user", TypeAccess, 0)
	require.NoError(t, err)

	_, err = s.Verify(signed, TypeAccess)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

// TestPurpose: Validates that tampering and foreign signatures are rejected as invalid.
// Scope: Unit Test
// Security: Signature verification
// Expected: ErrInvalidToken for a flipped payload, a token signed with another secret, and garbage input.
// Test Case ID: TOK-04
func TestToken_InvalidSignature(t *testing.T) {
	s := newTestService()

	signed, _, err := s.Issue("user-1", "tenant-1", "user@example.com", "user", TypeAccess, time.Hour)
	require.NoError(t, err)

	// Flip a character in the payload segment.
	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = s.Verify(tampered, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService([]byte("another-secret-also-32-bytes-long!!"), "scopeguard", time.Hour, time.Hour)
	foreign, _, err := other.Issue("user-1", "tenant-1", "user@example.com", "user", TypeAccess, time.Hour)
	require.NoError(t, err)

	_, err = s.Verify(foreign, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Verify("not.a.token", TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestPurpose: Validates that tokens from a different issuer are rejected even with the shared secret.
// Scope: Unit Test
// Security: Issuer binding
// Expected: ErrInvalidToken for a mismatched issuer claim.
// Test Case ID: TOK-05
func TestToken_WrongIssuer(t *testing.T) {
	s := newTestService()
	other := NewService(testSecret, "someone-else", time.Hour, time.Hour)

	signed, _, err := other.Issue("user-1", "tenant-1", "user@example.com", "user", TypeAccess, time.Hour)
	require.NoError(t, err)

	_, err = s.Verify(signed, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestPurpose: Validates the refresh exchange: a valid refresh token yields a fresh pair for the same identity.
// Scope: Unit Test
// Security: Token renewal
// Expected: New pair carries the original subject and tenant; an access token is not accepted as refresh input.
// Test Case ID: TOK-06
func TestToken_Refresh(t *testing.T) {
	s := newTestService()

	pair, err := s.IssuePair("user-1", "tenant-1", "user@example.com", "user")
	require.NoError(t, err)

	renewed, err := s.Refresh(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := s.Verify(renewed.AccessToken, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "tenant-1", claims.TenantID)

	_, err = s.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}
