package tenant

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrSlugTaken      = errors.New("tenant slug already exists")
)

// Plan constants
const (
	PlanFree     = "free"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// Tenant represents an isolated customer organization. All identity and
// resource rows are partitioned by tenant id.
type Tenant struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines the interface for tenant storage
type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)

	// Delete hard-deletes a tenant. Owned identities are removed by the
	// storage layer's cascade, never left orphaned.
	Delete(ctx context.Context, id string) error
}
