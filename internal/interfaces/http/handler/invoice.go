package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	fiscalapp "github.com/nfe-engine/backend/internal/application/fiscal"
	"github.com/nfe-engine/backend/internal/domain/document"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/nfe-engine/backend/internal/interfaces/http/dto"
	"github.com/nfe-engine/backend/internal/interfaces/http/middleware"
)

// IdempotencyKeyHeader lets a client replay an emission safely
const IdempotencyKeyHeader = "Idempotency-Key"

// InvoiceHandler handles invoice emission and lifecycle HTTP requests
type InvoiceHandler struct {
	BaseHandler
	emissionService  *fiscalapp.EmissionService
	lifecycleService *fiscalapp.LifecycleService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(emissionService *fiscalapp.EmissionService, lifecycleService *fiscalapp.LifecycleService) *InvoiceHandler {
	return &InvoiceHandler{
		emissionService:  emissionService,
		lifecycleService: lifecycleService,
	}
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	invoices.Use(middleware.RequireTenant())
	{
		invoices.POST("", h.Emit)
		invoices.GET("", h.List)
		invoices.GET("/:id", h.Get)
		invoices.GET("/:id/document", h.GetDocument)
		invoices.POST("/:id/transitions", h.Transition)
		invoices.POST("/:id/transmit", h.Transmit)
		invoices.POST("/:id/cancel", h.Cancel)
	}
}

// EmitInvoiceRequest is the emission request body. The document fields
// are inlined from the domain emission request.
type EmitInvoiceRequest struct {
	IssuerID string `json:"issuer_id" binding:"required,uuid"`
	document.EmissionRequest
}

// Emit composes a fiscal document and opens its lifecycle record
func (h *InvoiceHandler) Emit(c *gin.Context) {
	var req EmitInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	issuerID, err := uuid.Parse(req.IssuerID)
	if err != nil {
		h.BadRequest(c, "Invalid issuer ID")
		return
	}

	result, err := h.emissionService.Emit(c.Request.Context(), getTenantID(c), fiscalapp.EmitInput{
		IssuerID:       issuerID,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
		Request:        &req.EmissionRequest,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// List returns the tenant's invoices, paginated
func (h *InvoiceHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	result, err := h.lifecycleService.List(c.Request.Context(), getTenantID(c), fiscalapp.InvoiceFilter{
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

// Get returns one invoice with its full status history
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.pathID(c)
	if !ok {
		return
	}

	invoice, err := h.lifecycleService.Get(c.Request.Context(), getTenantID(c), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// DocumentResponse carries the canonical document text of an invoice
type DocumentResponse struct {
	InvoiceID    uuid.UUID `json:"invoice_id"`
	DocumentText string    `json:"document_text"`
}

// GetDocument returns the canonical document text of an invoice
func (h *InvoiceHandler) GetDocument(c *gin.Context) {
	invoiceID, ok := h.pathID(c)
	if !ok {
		return
	}

	text, err := h.lifecycleService.GetDocumentText(c.Request.Context(), getTenantID(c), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, DocumentResponse{InvoiceID: invoiceID, DocumentText: text})
}

// TransitionRequest moves an invoice to a target lifecycle status
type TransitionRequest struct {
	Target    string `json:"target" binding:"required"`
	Evidence  string `json:"evidence"`
	AccessKey string `json:"access_key"`
}

// Transition applies one lifecycle transition, typically driven by an
// external toolkit callback
func (h *InvoiceHandler) Transition(c *gin.Context) {
	invoiceID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	target := fiscal.InvoiceStatus(req.Target)
	if !target.IsValid() {
		h.BadRequest(c, "Unknown target status: "+req.Target)
		return
	}

	invoice, err := h.lifecycleService.Transition(c.Request.Context(), getTenantID(c), fiscalapp.TransitionInput{
		InvoiceID: invoiceID,
		Target:    target,
		Evidence:  req.Evidence,
		AccessKey: req.AccessKey,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Transmit signs and transmits an invoice through the toolkit
func (h *InvoiceHandler) Transmit(c *gin.Context) {
	invoiceID, ok := h.pathID(c)
	if !ok {
		return
	}

	invoice, err := h.lifecycleService.Transmit(c.Request.Context(), getTenantID(c), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// CancelRequest carries the cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Cancel cancels an authorized invoice
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	invoiceID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Cancellation reason is required")
		return
	}

	invoice, err := h.lifecycleService.Cancel(c.Request.Context(), getTenantID(c), invoiceID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

func (h *BaseHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}
