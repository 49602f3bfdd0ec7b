package identity

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/nfe-engine/backend/internal/domain/shared"
)

// TenantStatus represents the status of a tenant account
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
)

// IsValid checks if the status is a valid TenantStatus
func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended:
		return true
	}
	return false
}

// String returns the string representation of TenantStatus
func (s TenantStatus) String() string {
	return string(s)
}

// Tenant represents a reseller / software-house account that owns issuers.
// Non-interactive callers authenticate with the tenant's API key.
type Tenant struct {
	shared.BaseAggregateRoot
	Name   string
	APIKey string
	Status TenantStatus
}

// NewTenant creates a new tenant with a freshly generated API key
func NewTenant(name string) (*Tenant, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}

	key, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	return &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		APIKey:            key,
		Status:            TenantStatusActive,
	}, nil
}

// RotateAPIKey replaces the tenant's machine credential
func (t *Tenant) RotateAPIKey() error {
	key, err := generateAPIKey()
	if err != nil {
		return err
	}
	t.APIKey = key
	t.UpdatedAt = time.Now()
	return nil
}

// Suspend suspends the tenant account
func (t *Tenant) Suspend() {
	t.Status = TenantStatusSuspended
	t.UpdatedAt = time.Now()
}

// Activate reactivates a suspended tenant account
func (t *Tenant) Activate() {
	t.Status = TenantStatusActive
	t.UpdatedAt = time.Now()
}

// IsActive returns true if the tenant can emit documents
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "nfe_" + hex.EncodeToString(buf), nil
}
