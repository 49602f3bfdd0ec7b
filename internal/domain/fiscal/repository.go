package fiscal

import (
	"context"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/shared"
)

// IssuerRepository defines persistence operations for issuers
type IssuerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Issuer, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Issuer, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Issuer, error)
	FindByCNPJ(ctx context.Context, tenantID uuid.UUID, cnpj string) (*Issuer, error)
	Save(ctx context.Context, issuer *Issuer) error
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}

// InvoiceRepository defines persistence operations for invoice records.
// Invoices are never deleted; terminal states are retained for audit.
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindAllForIssuer(ctx context.Context, issuerID uuid.UUID, filter shared.Filter) ([]Invoice, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
	// SaveWithLock persists status changes with an optimistic version check,
	// returning CONCURRENCY_CONFLICT when another writer got there first.
	SaveWithLock(ctx context.Context, invoice *Invoice) error
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}
