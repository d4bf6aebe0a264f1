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

package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/scopeguard/scopeguard/internal/audit"
)

// mockTenantRepo implements Repository for testing
type mockTenantRepo struct {
	mock.Mock
}

func (m *mockTenantRepo) Create(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id string) (*Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockTenantRepo) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockTenantRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// TestPurpose: Validates tenant creation assigns an id, defaults the plan, and persists through the repository.
// Scope: Unit Test
// Security: None
// Expected: New tenant carries a non-empty id and the free plan when none is given.
// Test Case ID: TNT-01
func TestTenant_Service_CreateTenant(t *testing.T) {
	repo := new(mockTenantRepo)
	s := NewService(repo, audit.NewSlogLogger())
	ctx := context.Background()

	repo.On("GetBySlug", ctx, "acme-corp").Return(nil, ErrTenantNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*tenant.Tenant")).Return(nil)

	created, err := s.CreateTenant(ctx, "acme-corp", "")
	assert.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "acme-corp", created.Slug)
	assert.Equal(t, PlanFree, created.Plan)

	repo.AssertExpectations(t)
}

// TestPurpose: Validates slug uniqueness and slug shape enforcement.
// Scope: Unit Test
// Security: Stable tenant addressing
// Expected: An existing slug yields ErrSlugTaken; malformed slugs are rejected before any repository access.
// Test Case ID: TNT-02
func TestTenant_Service_CreateTenant_Rejections(t *testing.T) {
	repo := new(mockTenantRepo)
	s := NewService(repo, audit.NewSlogLogger())
	ctx := context.Background()

	repo.On("GetBySlug", ctx, "taken").Return(&Tenant{ID: "t-1", Slug: "taken"}, nil)

	_, err := s.CreateTenant(ctx, "taken", "")
	assert.ErrorIs(t, err, ErrSlugTaken)

	for _, slug := range []string{"", "A-Corp", "-leading", "x", "has space", "has_underscore"} {
		_, err := s.CreateTenant(ctx, slug, "")
		assert.Error(t, err, "slug %q should be rejected", slug)
	}

	repo.AssertExpectations(t)
}

// TestPurpose: Validates tenant deletion verifies existence before deleting.
// Scope: Unit Test
// Security: None
// Expected: Unknown tenant yields ErrTenantNotFound; known tenant is deleted exactly once.
// Test Case ID: TNT-03
func TestTenant_Service_DeleteTenant(t *testing.T) {
	repo := new(mockTenantRepo)
	s := NewService(repo, audit.NewSlogLogger())
	ctx := context.Background()

	repo.On("GetByID", ctx, "missing").Return(nil, ErrTenantNotFound)
	err := s.DeleteTenant(ctx, "missing", "ops-1")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	repo.On("GetByID", ctx, "t-1").Return(&Tenant{ID: "t-1", Slug: "acme"}, nil)
	repo.On("Delete", ctx, "t-1").Return(nil).Once()
	err = s.DeleteTenant(ctx, "t-1", "ops-1")
	assert.NoError(t, err)

	repo.AssertExpectations(t)
}
