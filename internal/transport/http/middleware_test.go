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

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/authz"
	"github.com/scopeguard/scopeguard/internal/token"
)

func newMiddlewareHarness() (*Handler, *token.Service) {
	tokenService := token.NewService(
		[]byte("test-secret-at-least-32-bytes-long!"),
		"scopeguard",
		time.Hour,
		24*time.Hour,
	)
	h := NewHandler(nil, nil, tokenService, nil, nil, nil, audit.NewSlogLogger())
	return h, tokenService
}

// recorderHandler records whether the wrapped handler ran and what identity
// it observed.
type recorderHandler struct {
	invoked  bool
	identity authz.IdentityContext
	hasIdent bool
}

func (p *recorderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.invoked = true
	p.identity, p.hasIdent = GetIdentity(r.Context())
	w.WriteHeader(http.StatusOK)
}

// TestPurpose: Validates that requests without a bearer token are rejected before the handler runs.
// Scope: Unit Test
// Security: Fail-closed authentication boundary
// Expected: 401 with the missing-token diagnostic; the wrapped handler is never invoked.
// Test Case ID: MID-01
func TestMiddleware_MissingToken(t *testing.T) {
	h, _ := newMiddlewareHarness()
	rec := &recorderHandler{}
	mw := h.RequestIdentityMiddleware(rec)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing bearer token")
	assert.False(t, rec.invoked, "handler must not run for unauthenticated requests")
}

// TestPurpose: Validates the public allowlist matches exact paths only.
// Scope: Unit Test
// Security: Allowlist scoping (no prefix matching)
// Expected: The listed path passes without a token; near-miss variants are rejected.
// Test Case ID: MID-02
func TestMiddleware_PublicAllowlistExactMatch(t *testing.T) {
	h, _ := newMiddlewareHarness()

	cases := []struct {
		path       string
		wantPassed bool
	}{
		{"/health", true},
		{"/api/v1/auth/login", true},
		{"/healthz", false},
		{"/health/", false},
		{"/health/../api/v1/auth/me", false},
		{"/api/v1/auth/login/extra", false},
	}

	for _, tc := range cases {
		rec := &recorderHandler{}
		mw := h.RequestIdentityMiddleware(rec)

		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		assert.Equal(t, tc.wantPassed, rec.invoked,
			"path %q: expected passed=%v", tc.path, tc.wantPassed)
		if !tc.wantPassed {
			assert.Equal(t, http.StatusUnauthorized, w.Code, "path %q", tc.path)
		}
	}
}

// TestPurpose: Validates distinct diagnostics for expired tokens, refresh tokens on the access path, and garbage tokens.
// Scope: Unit Test
// Security: Token verification failure reporting
// Expected: Each failure class returns 401 with its own message.
// Test Case ID: MID-03
func TestMiddleware_TokenFailures(t *testing.T) {
	h, tokenService := newMiddlewareHarness()

	expired, _, err := tokenService.Issue("user-1", "tenant-1", "u@example.com", "user", token.TypeAccess, -time.Minute)
	require.NoError(t, err)

	refresh, _, err := tokenService.Issue("user-1", "tenant-1", "u@example.com", "user", token.TypeRefresh, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name    string
		header  string
		message string
	}{
		{"expired", "Bearer " + expired, "token expired"},
		{"refresh as access", "Bearer " + refresh, "not an access token"},
		{"garbage", "Bearer not.a.token", "invalid token"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "missing bearer token"},
		{"empty value", "Bearer ", "missing bearer token"},
	}

	for _, tc := range cases {
		rec := &recorderHandler{}
		mw := h.RequestIdentityMiddleware(rec)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", tc.header)
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.name)
		assert.Contains(t, w.Body.String(), tc.message, tc.name)
		assert.False(t, rec.invoked, tc.name)
	}
}

// TestPurpose: Validates that an otherwise valid token without a tenant claim is rejected with its own diagnostic.
// Scope: Unit Test
// Security: Tenant claim requirement
// Expected: 401 with the missing-tenant-claim message, distinct from generic verification failure.
// Test Case ID: MID-04
func TestMiddleware_MissingTenantClaim(t *testing.T) {
	h, tokenService := newMiddlewareHarness()

	noTenant, _, err := tokenService.Issue("user-1", "", "u@example.com", "user", token.TypeAccess, time.Hour)
	require.NoError(t, err)

	rec := &recorderHandler{}
	mw := h.RequestIdentityMiddleware(rec)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+noTenant)
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token missing tenant claim")
	assert.False(t, rec.invoked)
}

// TestPurpose: Validates that a valid access token passes and its claims become the request identity.
// Scope: Unit Test
// Security: Identity propagation
// Expected: Handler runs with the subject, tenant, email and role from the token.
// Test Case ID: MID-05
func TestMiddleware_ValidToken(t *testing.T) {
	h, tokenService := newMiddlewareHarness()

	valid, _, err := tokenService.Issue("user-1", "tenant-1", "u@example.com", "tenant_admin", token.TypeAccess, time.Hour)
	require.NoError(t, err)

	rec := &recorderHandler{}
	mw := h.RequestIdentityMiddleware(rec)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+valid)
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)

	require.True(t, rec.invoked)
	require.True(t, rec.hasIdent)
	assert.Equal(t, "user-1", rec.identity.UserID)
	assert.Equal(t, "tenant-1", rec.identity.TenantID)
	assert.Equal(t, "u@example.com", rec.identity.Email)
	assert.Equal(t, authz.RoleTenantAdmin, rec.identity.Role)
}
