package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CrossTenantError denies access to a resource owned by another tenant.
// The owning tenant is deliberately not exposed in the message.
type CrossTenantError struct {
	Kind       string
	ResourceID uuid.UUID
}

func (e *CrossTenantError) Error() string {
	return fmt.Sprintf("access to %s %s denied", e.Kind, e.ResourceID)
}

// UnavailableError denies access because ownership could not be
// established. Failing closed here is intentional: an unreachable
// lookup must not open a hole in tenant isolation.
type UnavailableError struct {
	ResourceID uuid.UUID
	Err        error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("ownership of %s could not be established", e.ResourceID)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Guard enforces tenant isolation on resource access. Every denial is
// logged for audit with the requesting tenant, the resource and the
// reason.
type Guard struct {
	resolver *Resolver
	logger   *zap.Logger
}

// NewGuard creates a guard over the given resolver
func NewGuard(resolver *Resolver, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{resolver: resolver, logger: logger}
}

// Authorize checks that the requesting tenant may access the resource.
// A nil tenant ID means the call carries no tenant context (internal or
// administrative access) and is allowed. A resource no lookup knows is
// allowed through so the operation can fail later with its own
// not-found semantics instead of a misleading denial.
func (g *Guard) Authorize(ctx context.Context, tenantID, resourceID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return nil
	}

	ownership, err := g.resolver.Resolve(ctx, resourceID)
	if err != nil {
		if errors.Is(err, ErrOwnerNotFound) {
			return nil
		}
		g.logger.Warn("tenant access denied, ownership lookup failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("resource_id", resourceID.String()),
			zap.Error(err),
		)
		return &UnavailableError{ResourceID: resourceID, Err: err}
	}

	if ownership.TenantID != tenantID {
		g.logger.Warn("cross-tenant access denied",
			zap.String("tenant_id", tenantID.String()),
			zap.String("resource_kind", ownership.Kind),
			zap.String("resource_id", resourceID.String()),
		)
		return &CrossTenantError{Kind: ownership.Kind, ResourceID: resourceID}
	}

	return nil
}
