package fiscal

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/shared"
)

// Issuer represents a fiscal-document-emitting business profile.
// An issuer is exclusively owned by exactly one tenant and is never
// reassigned to another tenant after creation.
type Issuer struct {
	shared.TenantAggregateRoot
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

// NewIssuer creates a new issuer profile under the given tenant.
// The CNPJ is normalized by stripping all non-digit characters.
func NewIssuer(tenantID uuid.UUID, cnpj, legalName string) (*Issuer, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	normalized := NormalizeCNPJ(cnpj)
	if len(normalized) != 14 {
		return nil, shared.NewDomainError("INVALID_CNPJ", "CNPJ must contain exactly 14 digits")
	}
	if legalName == "" {
		return nil, shared.NewDomainError("INVALID_LEGAL_NAME", "Legal name cannot be empty")
	}
	if len(legalName) > 200 {
		return nil, shared.NewDomainError("INVALID_LEGAL_NAME", "Legal name cannot exceed 200 characters")
	}

	return &Issuer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CNPJ:                normalized,
		LegalName:           legalName,
		CRT:                 1,
	}, nil
}

// UpdateProfile updates the issuer's legal and trade names
func (i *Issuer) UpdateProfile(legalName, tradeName string) error {
	if legalName == "" {
		return shared.NewDomainError("INVALID_LEGAL_NAME", "Legal name cannot be empty")
	}
	i.LegalName = legalName
	i.TradeName = tradeName
	i.UpdatedAt = time.Now()
	return nil
}

// UpdateTaxInfo updates the issuer's tax regime and registrations
func (i *Issuer) UpdateTaxInfo(crt int, stateReg, municipalReg string) error {
	if crt < 1 || crt > 4 {
		return shared.NewDomainError("INVALID_CRT", "Tax regime code must be between 1 and 4")
	}
	i.CRT = crt
	i.StateRegistration = stateReg
	i.MunicipalRegistration = municipalReg
	i.UpdatedAt = time.Now()
	return nil
}

// UpdateAddress updates the issuer's address fields
func (i *Issuer) UpdateAddress(street, number, district, cityCode, city, state, zipCode string) {
	i.Street = street
	i.Number = number
	i.District = district
	i.CityCode = cityCode
	i.City = city
	i.State = state
	i.ZipCode = zipCode
	i.UpdatedAt = time.Now()
}

// UpdateContact updates the issuer's contact fields
func (i *Issuer) UpdateContact(phone, email string) {
	i.Phone = phone
	i.Email = email
	i.UpdatedAt = time.Now()
}

// DisplayName returns the trade name, falling back to the legal name
func (i *Issuer) DisplayName() string {
	if i.TradeName != "" {
		return i.TradeName
	}
	return i.LegalName
}

// NormalizeCNPJ strips every non-digit character from a CNPJ string
func NormalizeCNPJ(cnpj string) string {
	var b strings.Builder
	for _, r := range cnpj {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
