package handler

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	fiscalapp "github.com/nfe-engine/backend/internal/application/fiscal"
	"github.com/nfe-engine/backend/internal/domain/authz"
	"github.com/nfe-engine/backend/internal/domain/billing"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/nfe-engine/backend/internal/domain/identity"
	"github.com/nfe-engine/backend/internal/domain/shared"
)

// In-memory fakes backing the handler tests. Services are wired for
// real; only the persistence and toolkit edges are stubbed.

type memIssuerRepo struct {
	issuers map[uuid.UUID]*fiscal.Issuer
}

func newMemIssuerRepo() *memIssuerRepo {
	return &memIssuerRepo{issuers: make(map[uuid.UUID]*fiscal.Issuer)}
}

func (m *memIssuerRepo) FindByID(_ context.Context, id uuid.UUID) (*fiscal.Issuer, error) {
	if issuer, ok := m.issuers[id]; ok {
		copy := *issuer
		return &copy, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memIssuerRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*fiscal.Issuer, error) {
	if issuer, ok := m.issuers[id]; ok && issuer.TenantID == tenantID {
		copy := *issuer
		return &copy, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memIssuerRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]fiscal.Issuer, error) {
	var out []fiscal.Issuer
	for _, issuer := range m.issuers {
		if issuer.TenantID == tenantID {
			out = append(out, *issuer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CNPJ < out[j].CNPJ })
	return out, nil
}

func (m *memIssuerRepo) FindByCNPJ(_ context.Context, tenantID uuid.UUID, cnpj string) (*fiscal.Issuer, error) {
	for _, issuer := range m.issuers {
		if issuer.TenantID == tenantID && issuer.CNPJ == cnpj {
			copy := *issuer
			return &copy, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memIssuerRepo) Save(_ context.Context, issuer *fiscal.Issuer) error {
	copy := *issuer
	m.issuers[issuer.ID] = &copy
	return nil
}

func (m *memIssuerRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) (int64, error) {
	var n int64
	for _, issuer := range m.issuers {
		if issuer.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

type memInvoiceRepo struct {
	invoices map[uuid.UUID]*fiscal.Invoice
	issuers  *memIssuerRepo
}

func newMemInvoiceRepo(issuers *memIssuerRepo) *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[uuid.UUID]*fiscal.Invoice), issuers: issuers}
}

func (m *memInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*fiscal.Invoice, error) {
	if invoice, ok := m.invoices[id]; ok {
		copy := *invoice
		copy.History = append([]fiscal.StatusChange(nil), invoice.History...)
		return &copy, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memInvoiceRepo) FindAllForIssuer(_ context.Context, issuerID uuid.UUID, _ shared.Filter) ([]fiscal.Invoice, error) {
	var out []fiscal.Invoice
	for _, invoice := range m.invoices {
		if invoice.IssuerID == issuerID {
			out = append(out, *invoice)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memInvoiceRepo) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]fiscal.Invoice, error) {
	var out []fiscal.Invoice
	for _, invoice := range m.invoices {
		issuer, err := m.issuers.FindByID(ctx, invoice.IssuerID)
		if err != nil || issuer.TenantID != tenantID {
			continue
		}
		if status, ok := filter.Filters["status"].(string); ok && invoice.Status.String() != status {
			continue
		}
		out = append(out, *invoice)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memInvoiceRepo) Save(_ context.Context, invoice *fiscal.Invoice) error {
	copy := *invoice
	copy.History = append([]fiscal.StatusChange(nil), invoice.History...)
	m.invoices[invoice.ID] = &copy
	return nil
}

func (m *memInvoiceRepo) SaveWithLock(ctx context.Context, invoice *fiscal.Invoice) error {
	current, ok := m.invoices[invoice.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != invoice.Version {
		return shared.ErrConcurrencyConflict
	}
	invoice.IncrementVersion()
	return m.Save(ctx, invoice)
}

func (m *memInvoiceRepo) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	invoices, err := m.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(invoices)), nil
}

type memUsageRepo struct {
	counts map[uuid.UUID]map[billing.Period]int64
}

func newMemUsageRepo() *memUsageRepo {
	return &memUsageRepo{counts: make(map[uuid.UUID]map[billing.Period]int64)}
}

func (m *memUsageRepo) Increment(_ context.Context, tenantID uuid.UUID, period billing.Period, n int64) error {
	if m.counts[tenantID] == nil {
		m.counts[tenantID] = make(map[billing.Period]int64)
	}
	m.counts[tenantID][period] += n
	return nil
}

func (m *memUsageRepo) Get(_ context.Context, tenantID uuid.UUID, period billing.Period) (*billing.UsageMeter, error) {
	meter := billing.NewUsageMeter(tenantID, period)
	meter.Count = m.counts[tenantID][period]
	return meter, nil
}

func (m *memUsageRepo) ListForTenant(_ context.Context, tenantID uuid.UUID) ([]*billing.UsageMeter, error) {
	var out []*billing.UsageMeter
	for period, count := range m.counts[tenantID] {
		meter := billing.NewUsageMeter(tenantID, period)
		meter.Count = count
		out = append(out, meter)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	return out, nil
}

type memTenantRepo struct {
	tenants map[uuid.UUID]*identity.Tenant
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tenants: make(map[uuid.UUID]*identity.Tenant)}
}

func (m *memTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.Tenant, error) {
	if tenant, ok := m.tenants[id]; ok {
		copy := *tenant
		return &copy, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memTenantRepo) FindByAPIKey(_ context.Context, apiKey string) (*identity.Tenant, error) {
	for _, tenant := range m.tenants {
		if tenant.APIKey == apiKey {
			copy := *tenant
			return &copy, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memTenantRepo) FindAll(_ context.Context, _ shared.Filter) ([]identity.Tenant, error) {
	var out []identity.Tenant
	for _, tenant := range m.tenants {
		out = append(out, *tenant)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memTenantRepo) Save(_ context.Context, tenant *identity.Tenant) error {
	copy := *tenant
	m.tenants[tenant.ID] = &copy
	return nil
}

func (m *memTenantRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	for _, tenant := range m.tenants {
		if tenant.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTenantRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(m.tenants)), nil
}

// issuerLookup resolves issuer ownership from the in-memory repo
type issuerLookup struct {
	issuers *memIssuerRepo
}

func (l issuerLookup) Kind() string { return "issuer" }

func (l issuerLookup) Resolve(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	issuer, err := l.issuers.FindByID(ctx, id)
	if err != nil {
		return uuid.Nil, authz.ErrOwnerNotFound
	}
	return issuer.TenantID, nil
}

// invoiceLookup resolves invoice ownership through the issuer
type invoiceLookup struct {
	invoices *memInvoiceRepo
}

func (l invoiceLookup) Kind() string { return "invoice" }

func (l invoiceLookup) Resolve(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	invoice, err := l.invoices.FindByID(ctx, id)
	if err != nil {
		return uuid.Nil, authz.ErrOwnerNotFound
	}
	issuer, err := l.invoices.issuers.FindByID(ctx, invoice.IssuerID)
	if err != nil {
		return uuid.Nil, authz.ErrOwnerNotFound
	}
	return issuer.TenantID, nil
}

type memIdempotencyStore struct {
	entries map[string]uuid.UUID
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{entries: make(map[string]uuid.UUID)}
}

func (m *memIdempotencyStore) Get(_ context.Context, tenantID uuid.UUID, key string) (uuid.UUID, bool, error) {
	id, ok := m.entries[tenantID.String()+"/"+key]
	return id, ok, nil
}

func (m *memIdempotencyStore) Put(_ context.Context, tenantID uuid.UUID, key string, invoiceID uuid.UUID, _ time.Duration) error {
	m.entries[tenantID.String()+"/"+key] = invoiceID
	return nil
}

type stubGateway struct {
	accessKey  string
	authorized bool
	protocol   string
	reason     string
}

func (g *stubGateway) Sign(_ context.Context, _ uuid.UUID, _ string) (string, error) {
	return g.accessKey, nil
}

func (g *stubGateway) Transmit(_ context.Context, _ uuid.UUID, _ string) (fiscalapp.TransmissionResult, error) {
	return fiscalapp.TransmissionResult{
		Authorized: g.authorized,
		Protocol:   g.protocol,
		Reason:     g.reason,
	}, nil
}

type nopNotifier struct{}

func (nopNotifier) NotifyStatusChanged(context.Context, uuid.UUID, *fiscal.Invoice, fiscal.InvoiceStatus, fiscal.InvoiceStatus) {
}
