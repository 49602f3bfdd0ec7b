package handler

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	fiscalapp "github.com/nfe-engine/backend/internal/application/fiscal"
	identityapp "github.com/nfe-engine/backend/internal/application/identity"
	"github.com/nfe-engine/backend/internal/domain/authz"
	"github.com/nfe-engine/backend/internal/domain/document"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/nfe-engine/backend/internal/domain/identity"
	"github.com/nfe-engine/backend/internal/interfaces/http/middleware"
	"github.com/nfe-engine/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testServer wires the full HTTP stack over in-memory persistence
type testServer struct {
	engine      *gin.Engine
	tenant      *identity.Tenant
	otherTenant *identity.Tenant
	issuerRepo  *memIssuerRepo
	invoiceRepo *memInvoiceRepo
	tenantRepo  *memTenantRepo
	usageRepo   *memUsageRepo
	gateway     *stubGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	issuerRepo := newMemIssuerRepo()
	invoiceRepo := newMemInvoiceRepo(issuerRepo)
	tenantRepo := newMemTenantRepo()
	usageRepo := newMemUsageRepo()

	tenant, err := identity.NewTenant("acme")
	require.NoError(t, err)
	require.NoError(t, tenantRepo.Save(context.Background(), tenant))

	otherTenant, err := identity.NewTenant("globex")
	require.NoError(t, err)
	require.NoError(t, tenantRepo.Save(context.Background(), otherTenant))

	logger := zap.NewNop()
	guard := authz.NewGuard(authz.NewResolver(
		issuerLookup{issuers: issuerRepo},
		invoiceLookup{invoices: invoiceRepo},
	), logger)

	composer := document.NewComposer(2,
		document.WithClock(func() time.Time {
			return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
		}),
		document.WithCodeSource(func() int64 { return 42424242 }),
	)

	gateway := &stubGateway{
		accessKey:  "35260912345678000195550010000000011042424242",
		authorized: true,
		protocol:   "135202609011200001",
	}

	emissionService := fiscalapp.NewEmissionService(
		guard, issuerRepo, invoiceRepo, usageRepo, composer,
		newMemIdempotencyStore(), nopNotifier{}, logger)
	lifecycleService := fiscalapp.NewLifecycleService(
		guard, invoiceRepo, issuerRepo, gateway, nopNotifier{}, logger)
	issuerService := fiscalapp.NewIssuerService(guard, issuerRepo, logger)
	tenantService := identityapp.NewTenantService(tenantRepo, usageRepo, logger)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.APIKeyAuth(tenantService))

	router.NewRouter(engine).
		Register(NewInvoiceHandler(emissionService, lifecycleService)).
		Register(NewIssuerHandler(issuerService, lifecycleService)).
		Register(NewTenantHandler(tenantService)).
		Register(NewSystemHandler(nil)).
		Setup()

	return &testServer{
		engine:      engine,
		tenant:      tenant,
		otherTenant: otherTenant,
		issuerRepo:  issuerRepo,
		invoiceRepo: invoiceRepo,
		tenantRepo:  tenantRepo,
		usageRepo:   usageRepo,
		gateway:     gateway,
	}
}

// seedIssuer registers an issuer under the given tenant
func (s *testServer) seedIssuer(t *testing.T, tenant *identity.Tenant) *fiscal.Issuer {
	t.Helper()
	issuer, err := fiscal.NewIssuer(tenant.ID, "12.345.678/0001-95", "Empresa Exemplo Ltda")
	require.NoError(t, err)
	issuer.UpdateAddress("Rua das Flores", "100", "Centro", "3550308", "Sao Paulo", "SP", "01000-000")
	require.NoError(t, s.issuerRepo.Save(context.Background(), issuer))
	return issuer
}
