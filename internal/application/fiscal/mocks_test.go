package fiscal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/authz"
	"github.com/nfe-engine/backend/internal/domain/billing"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/nfe-engine/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockIssuerRepository is a mock implementation of IssuerRepository
type MockIssuerRepository struct {
	mock.Mock
}

func (m *MockIssuerRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiscal.Issuer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Issuer), args.Error(1)
}

func (m *MockIssuerRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fiscal.Issuer, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Issuer), args.Error(1)
}

func (m *MockIssuerRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]fiscal.Issuer, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]fiscal.Issuer), args.Error(1)
}

func (m *MockIssuerRepository) FindByCNPJ(ctx context.Context, tenantID uuid.UUID, cnpj string) (*fiscal.Issuer, error) {
	args := m.Called(ctx, tenantID, cnpj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Issuer), args.Error(1)
}

func (m *MockIssuerRepository) Save(ctx context.Context, issuer *fiscal.Issuer) error {
	args := m.Called(ctx, issuer)
	return args.Error(0)
}

func (m *MockIssuerRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiscal.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForIssuer(ctx context.Context, issuerID uuid.UUID, filter shared.Filter) ([]fiscal.Invoice, error) {
	args := m.Called(ctx, issuerID, filter)
	return args.Get(0).([]fiscal.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]fiscal.Invoice, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]fiscal.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *fiscal.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *fiscal.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockUsageMeterRepository is a mock implementation of UsageMeterRepository
type MockUsageMeterRepository struct {
	mock.Mock
}

func (m *MockUsageMeterRepository) Increment(ctx context.Context, tenantID uuid.UUID, period billing.Period, n int64) error {
	args := m.Called(ctx, tenantID, period, n)
	return args.Error(0)
}

func (m *MockUsageMeterRepository) Get(ctx context.Context, tenantID uuid.UUID, period billing.Period) (*billing.UsageMeter, error) {
	args := m.Called(ctx, tenantID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UsageMeter), args.Error(1)
}

func (m *MockUsageMeterRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*billing.UsageMeter, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*billing.UsageMeter), args.Error(1)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Get(ctx context.Context, tenantID uuid.UUID, key string) (uuid.UUID, bool, error) {
	args := m.Called(ctx, tenantID, key)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyStore) Put(ctx context.Context, tenantID uuid.UUID, key string, invoiceID uuid.UUID, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, key, invoiceID, ttl)
	return args.Error(0)
}

// MockGateway is a mock implementation of TransmissionGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Sign(ctx context.Context, invoiceID uuid.UUID, documentText string) (string, error) {
	args := m.Called(ctx, invoiceID, documentText)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Transmit(ctx context.Context, invoiceID uuid.UUID, accessKey string) (TransmissionResult, error) {
	args := m.Called(ctx, invoiceID, accessKey)
	return args.Get(0).(TransmissionResult), args.Error(1)
}

// MockNotifier is a mock implementation of StatusNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyStatusChanged(ctx context.Context, tenantID uuid.UUID, invoice *fiscal.Invoice, from, to fiscal.InvoiceStatus) {
	m.Called(ctx, tenantID, invoice, from, to)
}

// mapLookup resolves ownership from a fixed map, for guard wiring in tests
type mapLookup struct {
	kind   string
	owners map[uuid.UUID]uuid.UUID
}

func (l *mapLookup) Kind() string { return l.kind }

func (l *mapLookup) Resolve(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	owner, ok := l.owners[id]
	if !ok {
		return uuid.Nil, authz.ErrOwnerNotFound
	}
	return owner, nil
}

func testGuard(owners map[uuid.UUID]uuid.UUID) *authz.Guard {
	lookup := &mapLookup{kind: "resource", owners: owners}
	return authz.NewGuard(authz.NewResolver(lookup), zap.NewNop())
}

func decimalFromString(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
