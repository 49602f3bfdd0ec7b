package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/billing"
	"github.com/nfe-engine/backend/internal/domain/identity"
	"github.com/nfe-engine/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TenantService handles tenant account management
type TenantService struct {
	tenantRepo identity.TenantRepository
	usageRepo  billing.UsageMeterRepository
	logger     *zap.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(
	tenantRepo identity.TenantRepository,
	usageRepo billing.UsageMeterRepository,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		usageRepo:  usageRepo,
		logger:     logger,
	}
}

// TenantDTO represents tenant data returned to callers. The API key is
// only populated on creation and rotation.
type TenantDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	APIKey    string    `json:"api_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsageDTO represents one period's emission count
type UsageDTO struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}

// TenantListResult represents a paginated tenant list
type TenantListResult struct {
	Tenants  []TenantDTO `json:"tenants"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Create provisions a new tenant account and returns its API key. The
// key is shown exactly once; only rotation produces a new one.
func (s *TenantService) Create(ctx context.Context, name string) (*TenantDTO, error) {
	exists, err := s.tenantRepo.ExistsByName(ctx, name)
	if err != nil {
		s.logger.Error("Failed to check tenant name", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check name availability")
	}
	if exists {
		return nil, shared.NewDomainError("NAME_EXISTS", "Tenant name already exists")
	}

	tenant, err := identity.NewTenant(name)
	if err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to create tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create tenant")
	}

	s.logger.Info("Tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("name", tenant.Name))

	dto := toTenantDTO(tenant)
	dto.APIKey = tenant.APIKey
	return &dto, nil
}

// GetByID retrieves a tenant by ID
func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.loadTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toTenantDTO(tenant)
	return &dto, nil
}

// Authenticate resolves an API key to its tenant. Suspended tenants
// fail authentication.
func (s *TenantService) Authenticate(ctx context.Context, apiKey string) (*TenantDTO, error) {
	if apiKey == "" {
		return nil, shared.ErrUnauthorized
	}

	tenant, err := s.tenantRepo.FindByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthorized
		}
		s.logger.Error("Failed to authenticate API key", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Authentication failed")
	}
	if !tenant.IsActive() {
		return nil, shared.NewDomainError("TENANT_SUSPENDED", "Tenant account is suspended")
	}

	dto := toTenantDTO(tenant)
	return &dto, nil
}

// List retrieves a paginated list of tenants
func (s *TenantService) List(ctx context.Context, filter shared.Filter) (*TenantListResult, error) {
	tenants, err := s.tenantRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list tenants", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list tenants")
	}
	total, err := s.tenantRepo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count tenants", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count tenants")
	}

	dtos := make([]TenantDTO, len(tenants))
	for i := range tenants {
		dtos[i] = toTenantDTO(&tenants[i])
	}

	return &TenantListResult{
		Tenants:  dtos,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// RotateAPIKey replaces a tenant's API key and returns the new one
func (s *TenantService) RotateAPIKey(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.loadTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tenant.RotateAPIKey(); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to rotate API key", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to rotate API key")
	}

	s.logger.Info("Tenant API key rotated", zap.String("tenant_id", id.String()))

	dto := toTenantDTO(tenant)
	dto.APIKey = tenant.APIKey
	return &dto, nil
}

// Suspend suspends a tenant account
func (s *TenantService) Suspend(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.loadTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	tenant.Suspend()
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to suspend tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to suspend tenant")
	}

	s.logger.Info("Tenant suspended", zap.String("tenant_id", id.String()))

	dto := toTenantDTO(tenant)
	return &dto, nil
}

// Activate reactivates a suspended tenant account
func (s *TenantService) Activate(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.loadTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	tenant.Activate()
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to activate tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to activate tenant")
	}

	s.logger.Info("Tenant activated", zap.String("tenant_id", id.String()))

	dto := toTenantDTO(tenant)
	return &dto, nil
}

// GetUsage retrieves the tenant's monthly emission counts, most recent
// period first
func (s *TenantService) GetUsage(ctx context.Context, id uuid.UUID) ([]UsageDTO, error) {
	if _, err := s.loadTenant(ctx, id); err != nil {
		return nil, err
	}

	meters, err := s.usageRepo.ListForTenant(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load usage meters", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load usage")
	}

	dtos := make([]UsageDTO, len(meters))
	for i, meter := range meters {
		dtos[i] = UsageDTO{Period: meter.Period.String(), Count: meter.Count}
	}
	return dtos, nil
}

func (s *TenantService) loadTenant(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to find tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}
	return tenant, nil
}

// toTenantDTO converts a domain Tenant to TenantDTO without the API key
func toTenantDTO(tenant *identity.Tenant) TenantDTO {
	return TenantDTO{
		ID:        tenant.ID,
		Name:      tenant.Name,
		Status:    tenant.Status.String(),
		CreatedAt: tenant.CreatedAt,
		UpdatedAt: tenant.UpdatedAt,
	}
}
