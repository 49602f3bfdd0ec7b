package fiscal

import (
	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/shared"
)

// Event types for the fiscal context
const (
	EventTypeInvoiceStatusChanged = "fiscal.invoice.status_changed"
)

// InvoiceStatusChangedEvent is published when an invoice moves between
// lifecycle states
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID     `json:"invoice_id"`
	IssuerID   uuid.UUID     `json:"issuer_id"`
	FromStatus InvoiceStatus `json:"from_status"`
	ToStatus   InvoiceStatus `json:"to_status"`
	Evidence   string        `json:"evidence,omitempty"`
}

// NewInvoiceStatusChangedEvent creates a new InvoiceStatusChangedEvent.
// The tenant is not known at the aggregate level (ownership is derived
// through the issuer), so the event carries the issuer ID instead.
func NewInvoiceStatusChangedEvent(inv *Invoice, from, to InvoiceStatus, evidence string) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceStatusChanged, "Invoice", inv.ID, uuid.Nil),
		InvoiceID:       inv.ID,
		IssuerID:        inv.IssuerID,
		FromStatus:      from,
		ToStatus:        to,
		Evidence:        evidence,
	}
}
