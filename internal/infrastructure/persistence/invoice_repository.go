package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/nfe-engine/backend/internal/domain/shared"
	"github.com/nfe-engine/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements fiscal.InvoiceRepository using GORM.
// Invoice rows are never deleted and history rows are append-only.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID with full status history
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiscal.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	invoice := model.ToDomain()
	history, err := r.loadHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.History = history
	return invoice, nil
}

// FindAllForIssuer finds invoices belonging to one issuer.
// History is not loaded for list queries.
func (r *GormInvoiceRepository) FindAllForIssuer(ctx context.Context, issuerID uuid.UUID, filter shared.Filter) ([]fiscal.Invoice, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("issuer_id = ?", issuerID)
	return r.findAll(query, filter)
}

// FindAllForTenant finds invoices across every issuer the tenant owns.
// Ownership is resolved through the issuers table, never stored on the invoice.
func (r *GormInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]fiscal.Invoice, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Joins("JOIN issuers ON issuers.id = invoices.issuer_id").
		Where("issuers.tenant_id = ?", tenantID)
	return r.findAll(query, filter)
}

func (r *GormInvoiceRepository) findAll(query *gorm.DB, filter shared.Filter) ([]fiscal.Invoice, error) {
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("invoices.status = ?", status)
	}

	// Apply sorting with whitelist validation to prevent SQL injection
	sortField := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order("invoices." + sortField + " " + sortOrder)

	query = applyPagination(query, filter)

	var invoiceModels []models.InvoiceModel
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]fiscal.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}

	return invoices, nil
}

// Save creates or updates an invoice and appends any new history entries
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *fiscal.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.InvoiceModelFromDomain(invoice)
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		return r.appendHistory(tx, invoice)
	})
}

// SaveWithLock persists status changes with an optimistic version check.
// The row is updated only if its stored version still matches the loaded
// aggregate; a concurrent writer that got there first leaves zero rows
// affected and the caller receives CONCURRENCY_CONFLICT.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *fiscal.Invoice) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", invoice.ID, invoice.Version).
			Updates(map[string]interface{}{
				"status":             invoice.Status,
				"access_key":         invoice.AccessKey,
				"document_code":      invoice.DocumentCode,
				"document_text":      invoice.DocumentText,
				"recipient_name":     invoice.RecipientName,
				"recipient_document": invoice.RecipientDocument,
				"total_amount":       invoice.TotalAmount,
				"version":            invoice.Version + 1,
				"updated_at":         invoice.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return r.appendHistory(tx, invoice)
	})
	if err != nil {
		return err
	}

	invoice.IncrementVersion()
	return nil
}

// CountForTenant counts invoices across every issuer the tenant owns
func (r *GormInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Joins("JOIN issuers ON issuers.id = invoices.issuer_id").
		Where("issuers.tenant_id = ?", tenantID)

	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("invoices.status = ?", status)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// appendHistory inserts history entries not yet persisted. Entry IDs are
// generated by the aggregate, so re-inserting existing rows is a no-op.
func (r *GormInvoiceRepository) appendHistory(tx *gorm.DB, invoice *fiscal.Invoice) error {
	if len(invoice.History) == 0 {
		return nil
	}

	rows := make([]models.InvoiceStatusChangeModel, len(invoice.History))
	for i, change := range invoice.History {
		rows[i].FromDomain(change)
	}

	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *GormInvoiceRepository) loadHistory(ctx context.Context, invoiceID uuid.UUID) ([]fiscal.StatusChange, error) {
	var rows []models.InvoiceStatusChangeModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("occurred_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	history := make([]fiscal.StatusChange, len(rows))
	for i, row := range rows {
		history[i] = row.ToDomain()
	}
	return history, nil
}
