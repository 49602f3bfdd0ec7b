package billing

import (
	"time"

	"github.com/google/uuid"
)

// Period identifies one monthly metering window, formatted "2006-01"
type Period string

// PeriodOf returns the metering period containing the given instant
func PeriodOf(t time.Time) Period {
	return Period(t.UTC().Format("2006-01"))
}

// CurrentPeriod returns the metering period containing now
func CurrentPeriod() Period {
	return PeriodOf(time.Now())
}

// String returns the period in its "2006-01" form
func (p Period) String() string {
	return string(p)
}

// IsValid reports whether the period parses as a year-month
func (p Period) IsValid() bool {
	_, err := time.Parse("2006-01", string(p))
	return err == nil
}

// UsageMeter counts the documents a tenant emitted in one period. It is
// a billing aggregate, not an enforcement gate: emission is never
// blocked on the counter, the count feeds invoicing downstream.
type UsageMeter struct {
	TenantID  uuid.UUID
	Period    Period
	Count     int64
	UpdatedAt time.Time
}

// NewUsageMeter creates an empty meter for the tenant and period
func NewUsageMeter(tenantID uuid.UUID, period Period) *UsageMeter {
	return &UsageMeter{
		TenantID:  tenantID,
		Period:    period,
		UpdatedAt: time.Now(),
	}
}

// Record adds emitted documents to the meter
func (m *UsageMeter) Record(n int64) {
	if n <= 0 {
		return
	}
	m.Count += n
	m.UpdatedAt = time.Now()
}
