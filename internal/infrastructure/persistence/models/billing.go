package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/billing"
)

// UsageMeterModel is the persistence model for per-tenant monthly emission
// counters. The (tenant_id, period) pair is the natural key.
type UsageMeterModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Period    string    `gorm:"type:varchar(7);primaryKey"`
	Count     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UsageMeterModel) TableName() string {
	return "usage_meters"
}

// ToDomain converts the persistence model to a domain UsageMeter.
func (m *UsageMeterModel) ToDomain() *billing.UsageMeter {
	return &billing.UsageMeter{
		TenantID:  m.TenantID,
		Period:    billing.Period(m.Period),
		Count:     m.Count,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain UsageMeter.
func (m *UsageMeterModel) FromDomain(meter *billing.UsageMeter) {
	m.TenantID = meter.TenantID
	m.Period = meter.Period.String()
	m.Count = meter.Count
	m.UpdatedAt = meter.UpdatedAt
}
