package fiscal

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/authz"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/nfe-engine/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CreateIssuerInput contains input for registering an issuer profile
type CreateIssuerInput struct {
	CNPJ                  string
	LegalName             string
	TradeName             string
	CRT                   int
	StateRegistration     string
	MunicipalRegistration string
	Street                string
	Number                string
	District              string
	CityCode              string
	City                  string
	State                 string
	ZipCode               string
	Phone                 string
	Email                 string
}

// UpdateIssuerInput contains input for updating an issuer profile.
// The CNPJ and the owning tenant are immutable.
type UpdateIssuerInput struct {
	ID                    uuid.UUID
	LegalName             *string
	TradeName             *string
	CRT                   *int
	StateRegistration     *string
	MunicipalRegistration *string
	Street                *string
	Number                *string
	District              *string
	CityCode              *string
	City                  *string
	State                 *string
	ZipCode               *string
	Phone                 *string
	Email                 *string
}

// IssuerService manages issuer profiles within their owning tenant
type IssuerService struct {
	guard      *authz.Guard
	issuerRepo fiscal.IssuerRepository
	logger     *zap.Logger
}

// NewIssuerService creates a new issuer service
func NewIssuerService(
	guard *authz.Guard,
	issuerRepo fiscal.IssuerRepository,
	logger *zap.Logger,
) *IssuerService {
	return &IssuerService{
		guard:      guard,
		issuerRepo: issuerRepo,
		logger:     logger,
	}
}

// Create registers a new issuer profile under the tenant
func (s *IssuerService) Create(ctx context.Context, tenantID uuid.UUID, input CreateIssuerInput) (*IssuerDTO, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant context is required")
	}

	normalized := fiscal.NormalizeCNPJ(input.CNPJ)
	existing, err := s.issuerRepo.FindByCNPJ(ctx, tenantID, normalized)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("Failed to check issuer CNPJ", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check CNPJ availability")
	}
	if existing != nil {
		return nil, shared.NewDomainError("CNPJ_EXISTS", "An issuer with this CNPJ already exists")
	}

	issuer, err := fiscal.NewIssuer(tenantID, input.CNPJ, input.LegalName)
	if err != nil {
		return nil, err
	}

	if input.TradeName != "" {
		if err := issuer.UpdateProfile(input.LegalName, input.TradeName); err != nil {
			return nil, err
		}
	}
	if input.CRT != 0 || input.StateRegistration != "" || input.MunicipalRegistration != "" {
		crt := input.CRT
		if crt == 0 {
			crt = issuer.CRT
		}
		if err := issuer.UpdateTaxInfo(crt, input.StateRegistration, input.MunicipalRegistration); err != nil {
			return nil, err
		}
	}
	issuer.UpdateAddress(input.Street, input.Number, input.District, input.CityCode, input.City, input.State, input.ZipCode)
	issuer.UpdateContact(input.Phone, input.Email)

	if err := s.issuerRepo.Save(ctx, issuer); err != nil {
		s.logger.Error("Failed to create issuer", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create issuer")
	}

	s.logger.Info("Issuer created",
		zap.String("issuer_id", issuer.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("cnpj", issuer.CNPJ))

	dto := toIssuerDTO(issuer)
	return &dto, nil
}

// GetByID retrieves an issuer the tenant owns
func (s *IssuerService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*IssuerDTO, error) {
	if err := s.guard.Authorize(ctx, tenantID, id); err != nil {
		return nil, err
	}

	issuer, err := s.issuerRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ISSUER_NOT_FOUND", "Issuer not found")
		}
		s.logger.Error("Failed to find issuer", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find issuer")
	}

	dto := toIssuerDTO(issuer)
	return &dto, nil
}

// List retrieves a paginated list of the tenant's issuers
func (s *IssuerService) List(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (*IssuerListResult, error) {
	sharedFilter := filter.ToSharedFilter()

	issuers, err := s.issuerRepo.FindAllForTenant(ctx, tenantID, sharedFilter)
	if err != nil {
		s.logger.Error("Failed to list issuers", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list issuers")
	}
	total, err := s.issuerRepo.CountForTenant(ctx, tenantID, sharedFilter)
	if err != nil {
		s.logger.Error("Failed to count issuers", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count issuers")
	}

	dtos := make([]IssuerDTO, len(issuers))
	for i := range issuers {
		dtos[i] = toIssuerDTO(&issuers[i])
	}

	return &IssuerListResult{
		Issuers:    dtos,
		Total:      total,
		Page:       sharedFilter.Page,
		PageSize:   sharedFilter.PageSize,
		TotalPages: totalPages(total, sharedFilter.PageSize),
	}, nil
}

// Update updates an issuer profile the tenant owns
func (s *IssuerService) Update(ctx context.Context, tenantID uuid.UUID, input UpdateIssuerInput) (*IssuerDTO, error) {
	if err := s.guard.Authorize(ctx, tenantID, input.ID); err != nil {
		return nil, err
	}

	issuer, err := s.issuerRepo.FindByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ISSUER_NOT_FOUND", "Issuer not found")
		}
		s.logger.Error("Failed to find issuer", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find issuer")
	}

	if input.LegalName != nil || input.TradeName != nil {
		legalName := issuer.LegalName
		tradeName := issuer.TradeName
		if input.LegalName != nil {
			legalName = *input.LegalName
		}
		if input.TradeName != nil {
			tradeName = *input.TradeName
		}
		if err := issuer.UpdateProfile(legalName, tradeName); err != nil {
			return nil, err
		}
	}

	if input.CRT != nil || input.StateRegistration != nil || input.MunicipalRegistration != nil {
		crt := issuer.CRT
		stateReg := issuer.StateRegistration
		municipalReg := issuer.MunicipalRegistration
		if input.CRT != nil {
			crt = *input.CRT
		}
		if input.StateRegistration != nil {
			stateReg = *input.StateRegistration
		}
		if input.MunicipalRegistration != nil {
			municipalReg = *input.MunicipalRegistration
		}
		if err := issuer.UpdateTaxInfo(crt, stateReg, municipalReg); err != nil {
			return nil, err
		}
	}

	if input.Street != nil || input.Number != nil || input.District != nil ||
		input.CityCode != nil || input.City != nil || input.State != nil || input.ZipCode != nil {
		street := valueOr(input.Street, issuer.Street)
		number := valueOr(input.Number, issuer.Number)
		district := valueOr(input.District, issuer.District)
		cityCode := valueOr(input.CityCode, issuer.CityCode)
		city := valueOr(input.City, issuer.City)
		state := valueOr(input.State, issuer.State)
		zipCode := valueOr(input.ZipCode, issuer.ZipCode)
		issuer.UpdateAddress(street, number, district, cityCode, city, state, zipCode)
	}

	if input.Phone != nil || input.Email != nil {
		issuer.UpdateContact(valueOr(input.Phone, issuer.Phone), valueOr(input.Email, issuer.Email))
	}

	if err := s.issuerRepo.Save(ctx, issuer); err != nil {
		s.logger.Error("Failed to update issuer", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update issuer")
	}

	s.logger.Info("Issuer updated", zap.String("issuer_id", issuer.ID.String()))

	dto := toIssuerDTO(issuer)
	return &dto, nil
}

func valueOr(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}
