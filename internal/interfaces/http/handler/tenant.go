package handler

import (
	"github.com/gin-gonic/gin"
	identityapp "github.com/nfe-engine/backend/internal/application/identity"
	"github.com/nfe-engine/backend/internal/domain/shared"
	"github.com/nfe-engine/backend/internal/interfaces/http/dto"
	"github.com/nfe-engine/backend/internal/interfaces/http/middleware"
)

// TenantHandler handles tenant account HTTP requests. Account
// provisioning and suspension are administrative operations; usage and
// profile reads serve the authenticated tenant itself.
type TenantHandler struct {
	BaseHandler
	tenantService *identityapp.TenantService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantService *identityapp.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

// RegisterRoutes registers tenant routes
func (h *TenantHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tenants := rg.Group("/tenants")
	{
		tenants.POST("", h.Create)
		tenants.GET("", h.List)
		tenants.GET("/me", middleware.RequireTenant(), h.Me)
		tenants.GET("/usage", middleware.RequireTenant(), h.Usage)
		tenants.GET("/:id", h.Get)
		tenants.POST("/:id/rotate-key", h.RotateAPIKey)
		tenants.POST("/:id/suspend", h.Suspend)
		tenants.POST("/:id/activate", h.Activate)
	}
}

// CreateTenantRequest is the tenant provisioning body
type CreateTenantRequest struct {
	Name string `json:"name" binding:"required,min=2,max=200"`
}

// Create provisions a new tenant account. The response carries the API
// key exactly once.
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tenant, err := h.tenantService.Create(c.Request.Context(), req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, tenant)
}

// Get returns one tenant account
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// Me returns the authenticated tenant's own account
func (h *TenantHandler) Me(c *gin.Context) {
	tenant, err := h.tenantService.GetByID(c.Request.Context(), getTenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// List returns tenant accounts, paginated
func (h *TenantHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}

	result, err := h.tenantService.List(c.Request.Context(), shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Tenants, result.Total, result.Page, result.PageSize)
}

// RotateAPIKey replaces a tenant's API key and returns the new one
func (h *TenantHandler) RotateAPIKey(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.RotateAPIKey(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// Suspend suspends a tenant account
func (h *TenantHandler) Suspend(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.Suspend(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// Activate reactivates a suspended tenant account
func (h *TenantHandler) Activate(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// Usage returns the authenticated tenant's monthly emission counts
func (h *TenantHandler) Usage(c *gin.Context) {
	usage, err := h.tenantService.GetUsage(c.Request.Context(), getTenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, usage)
}
