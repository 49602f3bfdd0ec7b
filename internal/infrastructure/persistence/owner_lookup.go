package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/authz"
	"github.com/nfe-engine/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// IssuerOwnerLookup resolves which tenant owns an issuer row.
type IssuerOwnerLookup struct {
	db *gorm.DB
}

// NewIssuerOwnerLookup creates a new IssuerOwnerLookup
func NewIssuerOwnerLookup(db *gorm.DB) *IssuerOwnerLookup {
	return &IssuerOwnerLookup{db: db}
}

// Kind identifies the resource type this lookup resolves
func (l *IssuerOwnerLookup) Kind() string {
	return "issuer"
}

// Resolve returns the owning tenant of the issuer with the given ID
func (l *IssuerOwnerLookup) Resolve(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var row struct {
		TenantID uuid.UUID
	}
	err := l.db.WithContext(ctx).
		Model(&models.IssuerModel{}).
		Select("tenant_id").
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, authz.ErrOwnerNotFound
		}
		return uuid.Nil, err
	}
	return row.TenantID, nil
}

// InvoiceOwnerLookup resolves which tenant owns an invoice. Ownership is
// derived through the invoice's issuer, never stored on the invoice row.
type InvoiceOwnerLookup struct {
	db *gorm.DB
}

// NewInvoiceOwnerLookup creates a new InvoiceOwnerLookup
func NewInvoiceOwnerLookup(db *gorm.DB) *InvoiceOwnerLookup {
	return &InvoiceOwnerLookup{db: db}
}

// Kind identifies the resource type this lookup resolves
func (l *InvoiceOwnerLookup) Kind() string {
	return "invoice"
}

// Resolve returns the owning tenant of the invoice with the given ID
func (l *InvoiceOwnerLookup) Resolve(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var row struct {
		TenantID uuid.UUID
	}
	err := l.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("issuers.tenant_id AS tenant_id").
		Joins("JOIN issuers ON issuers.id = invoices.issuer_id").
		Where("invoices.id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, authz.ErrOwnerNotFound
		}
		return uuid.Nil, err
	}
	return row.TenantID, nil
}

// Ensure the lookups implement authz.OwnerLookup
var (
	_ authz.OwnerLookup = (*IssuerOwnerLookup)(nil)
	_ authz.OwnerLookup = (*InvoiceOwnerLookup)(nil)
)
