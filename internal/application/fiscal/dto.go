package fiscal

import (
	"time"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/document"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/nfe-engine/backend/internal/domain/shared"
)

// EmitInput carries one emission request through the application layer
type EmitInput struct {
	IssuerID       uuid.UUID
	IdempotencyKey string
	Request        *document.EmissionRequest
}

// EmitResult is the outcome of an emission
type EmitResult struct {
	Invoice      InvoiceDTO `json:"invoice"`
	DocumentText string     `json:"document_text"`
	// Replayed is true when the idempotency key matched a previous
	// emission and no new document was composed
	Replayed bool `json:"replayed"`
}

// TransitionInput moves an invoice through its lifecycle
type TransitionInput struct {
	InvoiceID uuid.UUID
	Target    fiscal.InvoiceStatus
	Evidence  string
	AccessKey string
}

// InvoiceDTO represents invoice data returned to callers
type InvoiceDTO struct {
	ID                uuid.UUID         `json:"id"`
	IssuerID          uuid.UUID         `json:"issuer_id"`
	Series            int               `json:"series"`
	Number            int               `json:"number"`
	Status            string            `json:"status"`
	AccessKey         string            `json:"access_key,omitempty"`
	DocumentCode      int64             `json:"document_code"`
	RecipientName     string            `json:"recipient_name"`
	RecipientDocument string            `json:"recipient_document"`
	TotalAmount       string            `json:"total_amount"`
	History           []StatusChangeDTO `json:"history,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// StatusChangeDTO represents one lifecycle history entry
type StatusChangeDTO struct {
	Status     string    `json:"status"`
	Evidence   string    `json:"evidence,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// IssuerDTO represents issuer data returned to callers
type IssuerDTO struct {
	ID                    uuid.UUID `json:"id"`
	TenantID              uuid.UUID `json:"tenant_id"`
	CNPJ                  string    `json:"cnpj"`
	LegalName             string    `json:"legal_name"`
	TradeName             string    `json:"trade_name,omitempty"`
	CRT                   int       `json:"crt"`
	StateRegistration     string    `json:"state_registration,omitempty"`
	MunicipalRegistration string    `json:"municipal_registration,omitempty"`
	Street                string    `json:"street,omitempty"`
	Number                string    `json:"number,omitempty"`
	District              string    `json:"district,omitempty"`
	CityCode              string    `json:"city_code,omitempty"`
	City                  string    `json:"city,omitempty"`
	State                 string    `json:"state,omitempty"`
	ZipCode               string    `json:"zip_code,omitempty"`
	Phone                 string    `json:"phone,omitempty"`
	Email                 string    `json:"email,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// InvoiceFilter represents filter options for querying invoices
type InvoiceFilter struct {
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
	Status   string
}

// ToSharedFilter converts InvoiceFilter to shared.Filter
func (f InvoiceFilter) ToSharedFilter() shared.Filter {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	filter := shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  f.SortBy,
		OrderDir: f.SortDir,
	}
	if f.Status != "" {
		filter.Filters = map[string]interface{}{"status": f.Status}
	}
	return filter
}

// InvoiceListResult represents a paginated invoice list
type InvoiceListResult struct {
	Invoices   []InvoiceDTO `json:"invoices"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

// IssuerListResult represents a paginated issuer list
type IssuerListResult struct {
	Issuers    []IssuerDTO `json:"issuers"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// toInvoiceDTO converts a domain Invoice to InvoiceDTO
func toInvoiceDTO(inv *fiscal.Invoice, withHistory bool) InvoiceDTO {
	dto := InvoiceDTO{
		ID:                inv.ID,
		IssuerID:          inv.IssuerID,
		Series:            inv.Series,
		Number:            inv.Number,
		Status:            inv.Status.String(),
		AccessKey:         inv.AccessKey,
		DocumentCode:      inv.DocumentCode,
		RecipientName:     inv.RecipientName,
		RecipientDocument: inv.RecipientDocument,
		TotalAmount:       inv.TotalAmount.StringFixed(2),
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
	if withHistory {
		dto.History = make([]StatusChangeDTO, len(inv.History))
		for i, change := range inv.History {
			dto.History[i] = StatusChangeDTO{
				Status:     change.Status.String(),
				Evidence:   change.Evidence,
				OccurredAt: change.OccurredAt,
			}
		}
	}
	return dto
}

// toIssuerDTO converts a domain Issuer to IssuerDTO
func toIssuerDTO(issuer *fiscal.Issuer) IssuerDTO {
	return IssuerDTO{
		ID:                    issuer.ID,
		TenantID:              issuer.TenantID,
		CNPJ:                  issuer.CNPJ,
		LegalName:             issuer.LegalName,
		TradeName:             issuer.TradeName,
		CRT:                   issuer.CRT,
		StateRegistration:     issuer.StateRegistration,
		MunicipalRegistration: issuer.MunicipalRegistration,
		Street:                issuer.Street,
		Number:                issuer.Number,
		District:              issuer.District,
		CityCode:              issuer.CityCode,
		City:                  issuer.City,
		State:                 issuer.State,
		ZipCode:               issuer.ZipCode,
		Phone:                 issuer.Phone,
		Email:                 issuer.Email,
		CreatedAt:             issuer.CreatedAt,
		UpdatedAt:             issuer.UpdatedAt,
	}
}

func totalPages(total int64, pageSize int) int {
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}
