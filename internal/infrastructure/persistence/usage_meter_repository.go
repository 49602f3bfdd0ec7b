package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/billing"
	"github.com/nfe-engine/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUsageMeterRepository implements billing.UsageMeterRepository using GORM
type GormUsageMeterRepository struct {
	db *gorm.DB
}

// NewGormUsageMeterRepository creates a new GormUsageMeterRepository
func NewGormUsageMeterRepository(db *gorm.DB) *GormUsageMeterRepository {
	return &GormUsageMeterRepository{db: db}
}

// Increment atomically adds n to the tenant's counter for the period,
// creating the meter row when absent. Concurrent emissions land on the
// same row without losing counts.
func (r *GormUsageMeterRepository) Increment(ctx context.Context, tenantID uuid.UUID, period billing.Period, n int64) error {
	if n <= 0 {
		return nil
	}

	now := time.Now()
	row := models.UsageMeterModel{
		TenantID:  tenantID,
		Period:    period.String(),
		Count:     n,
		UpdatedAt: now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "period"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("usage_meters.count + ?", n),
			"updated_at": now,
		}),
	}).Create(&row).Error
}

// Get retrieves the meter for a tenant and period. A period with no
// emissions yields a zero-count meter, not an error.
func (r *GormUsageMeterRepository) Get(ctx context.Context, tenantID uuid.UUID, period billing.Period) (*billing.UsageMeter, error) {
	var model models.UsageMeterModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND period = ?", tenantID, period.String()).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return billing.NewUsageMeter(tenantID, period), nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListForTenant retrieves all periods with recorded usage for a tenant,
// most recent first
func (r *GormUsageMeterRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*billing.UsageMeter, error) {
	var rows []models.UsageMeterModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("period DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	meters := make([]*billing.UsageMeter, len(rows))
	for i, row := range rows {
		meters[i] = row.ToDomain()
	}
	return meters, nil
}
