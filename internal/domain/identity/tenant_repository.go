package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/shared"
)

// TenantRepository defines persistence operations for tenants
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*Tenant, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Tenant, error)
	Save(ctx context.Context, tenant *Tenant) error
	ExistsByName(ctx context.Context, name string) (bool, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
