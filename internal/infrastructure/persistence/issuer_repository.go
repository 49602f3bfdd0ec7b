package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/nfe-engine/backend/internal/domain/shared"
	"github.com/nfe-engine/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormIssuerRepository implements fiscal.IssuerRepository using GORM
type GormIssuerRepository struct {
	db *gorm.DB
}

// NewGormIssuerRepository creates a new GormIssuerRepository
func NewGormIssuerRepository(db *gorm.DB) *GormIssuerRepository {
	return &GormIssuerRepository{db: db}
}

// FindByID finds an issuer by its ID regardless of owning tenant.
// Callers are expected to run the ownership guard before exposing the result.
func (r *GormIssuerRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiscal.Issuer, error) {
	var model models.IssuerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds an issuer by ID constrained to the given tenant
func (r *GormIssuerRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fiscal.Issuer, error) {
	var model models.IssuerModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all issuers owned by the tenant
func (r *GormIssuerRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]fiscal.Issuer, error) {
	var issuerModels []models.IssuerModel
	query := r.db.WithContext(ctx).Model(&models.IssuerModel{}).
		Where("tenant_id = ?", tenantID)

	// Apply sorting with whitelist validation to prevent SQL injection
	sortField := ValidateSortField(filter.OrderBy, IssuerSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)

	query = applyPagination(query, filter)

	if err := query.Find(&issuerModels).Error; err != nil {
		return nil, err
	}

	issuers := make([]fiscal.Issuer, len(issuerModels))
	for i, model := range issuerModels {
		issuers[i] = *model.ToDomain()
	}

	return issuers, nil
}

// FindByCNPJ finds a tenant's issuer by its normalized CNPJ
func (r *GormIssuerRepository) FindByCNPJ(ctx context.Context, tenantID uuid.UUID, cnpj string) (*fiscal.Issuer, error) {
	var model models.IssuerModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND cnpj = ?", tenantID, fiscal.NormalizeCNPJ(cnpj)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an issuer
func (r *GormIssuerRepository) Save(ctx context.Context, issuer *fiscal.Issuer) error {
	model := models.IssuerModelFromDomain(issuer)
	return r.db.WithContext(ctx).Save(model).Error
}

// CountForTenant counts issuers owned by the tenant
func (r *GormIssuerRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.IssuerModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
