package handler

import (
	"github.com/gin-gonic/gin"
	fiscalapp "github.com/nfe-engine/backend/internal/application/fiscal"
	"github.com/nfe-engine/backend/internal/interfaces/http/dto"
	"github.com/nfe-engine/backend/internal/interfaces/http/middleware"
)

// IssuerHandler handles issuer profile HTTP requests
type IssuerHandler struct {
	BaseHandler
	issuerService    *fiscalapp.IssuerService
	lifecycleService *fiscalapp.LifecycleService
}

// NewIssuerHandler creates a new issuer handler
func NewIssuerHandler(issuerService *fiscalapp.IssuerService, lifecycleService *fiscalapp.LifecycleService) *IssuerHandler {
	return &IssuerHandler{
		issuerService:    issuerService,
		lifecycleService: lifecycleService,
	}
}

// RegisterRoutes registers issuer routes
func (h *IssuerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	issuers := rg.Group("/issuers")
	issuers.Use(middleware.RequireTenant())
	{
		issuers.POST("", h.Create)
		issuers.GET("", h.List)
		issuers.GET("/:id", h.Get)
		issuers.PUT("/:id", h.Update)
		issuers.GET("/:id/invoices", h.ListInvoices)
	}
}

// CreateIssuerRequest is the issuer registration body
type CreateIssuerRequest struct {
	CNPJ                  string `json:"cnpj" binding:"required"`
	LegalName             string `json:"legal_name" binding:"required"`
	TradeName             string `json:"trade_name"`
	CRT                   int    `json:"crt" binding:"omitempty,min=1,max=4"`
	StateRegistration     string `json:"state_registration"`
	MunicipalRegistration string `json:"municipal_registration"`
	Street                string `json:"street"`
	Number                string `json:"number"`
	District              string `json:"district"`
	CityCode              string `json:"city_code"`
	City                  string `json:"city"`
	State                 string `json:"state" binding:"omitempty,len=2"`
	ZipCode               string `json:"zip_code"`
	Phone                 string `json:"phone"`
	Email                 string `json:"email" binding:"omitempty,email"`
}

// UpdateIssuerRequest is the issuer update body. The CNPJ is immutable.
type UpdateIssuerRequest struct {
	LegalName             *string `json:"legal_name"`
	TradeName             *string `json:"trade_name"`
	CRT                   *int    `json:"crt" binding:"omitempty,min=1,max=4"`
	StateRegistration     *string `json:"state_registration"`
	MunicipalRegistration *string `json:"municipal_registration"`
	Street                *string `json:"street"`
	Number                *string `json:"number"`
	District              *string `json:"district"`
	CityCode              *string `json:"city_code"`
	City                  *string `json:"city"`
	State                 *string `json:"state" binding:"omitempty,len=2"`
	ZipCode               *string `json:"zip_code"`
	Phone                 *string `json:"phone"`
	Email                 *string `json:"email" binding:"omitempty,email"`
}

// Create registers a new issuer profile under the authenticated tenant
func (h *IssuerHandler) Create(c *gin.Context) {
	var req CreateIssuerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	issuer, err := h.issuerService.Create(c.Request.Context(), getTenantID(c), fiscalapp.CreateIssuerInput{
		CNPJ:                  req.CNPJ,
		LegalName:             req.LegalName,
		TradeName:             req.TradeName,
		CRT:                   req.CRT,
		StateRegistration:     req.StateRegistration,
		MunicipalRegistration: req.MunicipalRegistration,
		Street:                req.Street,
		Number:                req.Number,
		District:              req.District,
		CityCode:              req.CityCode,
		City:                  req.City,
		State:                 req.State,
		ZipCode:               req.ZipCode,
		Phone:                 req.Phone,
		Email:                 req.Email,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, issuer)
}

// Get returns one issuer the tenant owns
func (h *IssuerHandler) Get(c *gin.Context) {
	issuerID, ok := h.pathID(c)
	if !ok {
		return
	}

	issuer, err := h.issuerService.GetByID(c.Request.Context(), getTenantID(c), issuerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, issuer)
}

// List returns the tenant's issuers, paginated
func (h *IssuerHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	result, err := h.issuerService.List(c.Request.Context(), getTenantID(c), fiscalapp.InvoiceFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		SortBy:   req.OrderBy,
		SortDir:  req.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Issuers, result.Total, result.Page, result.PageSize)
}

// Update changes an issuer profile the tenant owns
func (h *IssuerHandler) Update(c *gin.Context) {
	issuerID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req UpdateIssuerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	issuer, err := h.issuerService.Update(c.Request.Context(), getTenantID(c), fiscalapp.UpdateIssuerInput{
		ID:                    issuerID,
		LegalName:             req.LegalName,
		TradeName:             req.TradeName,
		CRT:                   req.CRT,
		StateRegistration:     req.StateRegistration,
		MunicipalRegistration: req.MunicipalRegistration,
		Street:                req.Street,
		Number:                req.Number,
		District:              req.District,
		CityCode:              req.CityCode,
		City:                  req.City,
		State:                 req.State,
		ZipCode:               req.ZipCode,
		Phone:                 req.Phone,
		Email:                 req.Email,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, issuer)
}

// ListInvoices returns one issuer's invoices, paginated
func (h *IssuerHandler) ListInvoices(c *gin.Context) {
	issuerID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	result, err := h.lifecycleService.ListForIssuer(c.Request.Context(), getTenantID(c), issuerID, fiscalapp.InvoiceFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		SortBy:   req.OrderBy,
		SortDir:  req.OrderDir,
		Status:   req.Status,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Invoices, result.Total, result.Page, result.PageSize)
}
