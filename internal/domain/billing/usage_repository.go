package billing

import (
	"context"

	"github.com/google/uuid"
)

// UsageMeterRepository persists per-tenant monthly emission counters
type UsageMeterRepository interface {
	// Increment atomically adds n to the tenant's counter for the
	// period, creating the meter row when absent
	Increment(ctx context.Context, tenantID uuid.UUID, period Period, n int64) error

	// Get retrieves the meter for a tenant and period. A period with
	// no emissions yields a zero-count meter, not an error.
	Get(ctx context.Context, tenantID uuid.UUID, period Period) (*UsageMeter, error)

	// ListForTenant retrieves all periods with recorded usage for a
	// tenant, most recent first
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*UsageMeter, error)
}
