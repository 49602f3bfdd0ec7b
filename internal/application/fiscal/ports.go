package fiscal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
)

// TransmissionGateway abstracts the external signing and transmission
// toolkit. Implementations talk to the fiscal authority (or simulate it
// in homologation).
type TransmissionGateway interface {
	// Sign signs the canonical document text and returns the access key
	Sign(ctx context.Context, invoiceID uuid.UUID, documentText string) (string, error)
	// Transmit submits a signed document and returns the authority's verdict
	Transmit(ctx context.Context, invoiceID uuid.UUID, accessKey string) (TransmissionResult, error)
}

// TransmissionResult is the fiscal authority's answer to a transmission
type TransmissionResult struct {
	Authorized bool
	Protocol   string
	Reason     string
}

// IdempotencyStore remembers which invoice a tenant's idempotency key
// produced, so a retried emission returns the original record instead
// of composing a second document.
type IdempotencyStore interface {
	Get(ctx context.Context, tenantID uuid.UUID, key string) (uuid.UUID, bool, error)
	Put(ctx context.Context, tenantID uuid.UUID, key string, invoiceID uuid.UUID, ttl time.Duration) error
}

// StatusNotifier pushes lifecycle changes to tenant-registered webhooks.
// Delivery is best effort; a failed notification never fails the
// operation that caused it.
type StatusNotifier interface {
	NotifyStatusChanged(ctx context.Context, tenantID uuid.UUID, invoice *fiscal.Invoice, from, to fiscal.InvoiceStatus)
}
