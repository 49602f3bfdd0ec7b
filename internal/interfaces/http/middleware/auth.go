package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/nfe-engine/backend/internal/application/identity"
	"github.com/nfe-engine/backend/internal/domain/shared"
	"github.com/nfe-engine/backend/internal/interfaces/http/dto"
)

// APIKeyHeader carries the tenant's machine credential
const APIKeyHeader = "X-API-Key"

// Context keys set by the tenant auth middleware
const (
	TenantIDKey   = "tenant_id"
	TenantNameKey = "tenant_name"
)

// TenantAuthenticator resolves an API key to a tenant account
type TenantAuthenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*identityapp.TenantDTO, error)
}

// APIKeyAuth resolves the X-API-Key header into tenant context. A
// request without a key passes through with no tenant context; guarded
// operations then run with administrative scope. A key that is present
// but invalid is rejected here.
func APIKeyAuth(authenticator TenantAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(APIKeyHeader)
		if apiKey == "" {
			c.Next()
			return
		}

		tenant, err := authenticator.Authenticate(c.Request.Context(), apiKey)
		if err != nil {
			status, code, message := classifyAuthError(err)
			c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, c.GetString("request_id")))
			return
		}

		c.Set(TenantIDKey, tenant.ID.String())
		c.Set(TenantNameKey, tenant.Name)
		c.Next()
	}
}

func classifyAuthError(err error) (int, string, string) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case "UNAUTHORIZED":
			return http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid API key"
		case "TENANT_SUSPENDED":
			return http.StatusForbidden, dto.ErrCodeTenantSuspended, domainErr.Message
		}
	}
	return http.StatusInternalServerError, dto.ErrCodeInternal, "Authentication failed"
}

// GetTenantID returns the authenticated tenant's ID, or uuid.Nil when
// the request carries no tenant context
func GetTenantID(c *gin.Context) uuid.UUID {
	raw := c.GetString(TenantIDKey)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// RequireTenant aborts requests that did not authenticate as a tenant.
// Used on routes where administrative (no tenant) scope makes no sense.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetTenantID(c) == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "API key is required", c.GetString("request_id")))
			return
		}
		c.Next()
	}
}
