package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/shopspring/decimal"
)

// IssuerModel is the persistence model for the Issuer domain entity.
type IssuerModel struct {
	TenantAggregateModel
	CNPJ                  string `gorm:"type:varchar(14);not null;index"`
	LegalName             string `gorm:"type:varchar(200);not null"`
	TradeName             string `gorm:"type:varchar(200)"`
	CRT                   int    `gorm:"not null;default:1"`
	StateRegistration     string `gorm:"type:varchar(20)"`
	MunicipalRegistration string `gorm:"type:varchar(20)"`
	Street                string `gorm:"type:varchar(200)"`
	Number                string `gorm:"type:varchar(20)"`
	District              string `gorm:"type:varchar(100)"`
	CityCode              string `gorm:"type:varchar(10)"`
	City                  string `gorm:"type:varchar(100)"`
	State                 string `gorm:"type:varchar(2)"`
	ZipCode               string `gorm:"type:varchar(10)"`
	Phone                 string `gorm:"type:varchar(20)"`
	Email                 string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (IssuerModel) TableName() string {
	return "issuers"
}

// ToDomain converts the persistence model to a domain Issuer entity.
func (m *IssuerModel) ToDomain() *fiscal.Issuer {
	issuer := &fiscal.Issuer{
		CNPJ:                  m.CNPJ,
		LegalName:             m.LegalName,
		TradeName:             m.TradeName,
		CRT:                   m.CRT,
		StateRegistration:     m.StateRegistration,
		MunicipalRegistration: m.MunicipalRegistration,
		Street:                m.Street,
		Number:                m.Number,
		District:              m.District,
		CityCode:              m.CityCode,
		City:                  m.City,
		State:                 m.State,
		ZipCode:               m.ZipCode,
		Phone:                 m.Phone,
		Email:                 m.Email,
	}
	m.PopulateTenantAggregateRoot(&issuer.TenantAggregateRoot)
	return issuer
}

// FromDomain populates the persistence model from a domain Issuer entity.
func (m *IssuerModel) FromDomain(i *fiscal.Issuer) {
	m.FromDomainTenantAggregateRoot(i.TenantAggregateRoot)
	m.CNPJ = i.CNPJ
	m.LegalName = i.LegalName
	m.TradeName = i.TradeName
	m.CRT = i.CRT
	m.StateRegistration = i.StateRegistration
	m.MunicipalRegistration = i.MunicipalRegistration
	m.Street = i.Street
	m.Number = i.Number
	m.District = i.District
	m.CityCode = i.CityCode
	m.City = i.City
	m.State = i.State
	m.ZipCode = i.ZipCode
	m.Phone = i.Phone
	m.Email = i.Email
}

// IssuerModelFromDomain creates a new persistence model from a domain Issuer entity.
func IssuerModelFromDomain(i *fiscal.Issuer) *IssuerModel {
	m := &IssuerModel{}
	m.FromDomain(i)
	return m
}

// InvoiceModel is the persistence model for the Invoice domain entity.
// Tenant ownership is derived through the issuer, never stored here.
type InvoiceModel struct {
	AggregateModel
	IssuerID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	Series            int                  `gorm:"not null"`
	Number            int                  `gorm:"not null"`
	Status            fiscal.InvoiceStatus `gorm:"type:varchar(20);not null;default:'CREATED';index"`
	AccessKey         string               `gorm:"type:varchar(44)"`
	DocumentCode      int64                `gorm:"not null;default:0"`
	DocumentText      string               `gorm:"type:text"`
	RecipientName     string               `gorm:"type:varchar(200)"`
	RecipientDocument string               `gorm:"type:varchar(14)"`
	TotalAmount       decimal.Decimal      `gorm:"type:decimal(15,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
// Note: History must be loaded separately by the repository.
func (m *InvoiceModel) ToDomain() *fiscal.Invoice {
	invoice := &fiscal.Invoice{
		IssuerID:          m.IssuerID,
		Series:            m.Series,
		Number:            m.Number,
		Status:            m.Status,
		History:           make([]fiscal.StatusChange, 0),
		AccessKey:         m.AccessKey,
		DocumentCode:      m.DocumentCode,
		DocumentText:      m.DocumentText,
		RecipientName:     m.RecipientName,
		RecipientDocument: m.RecipientDocument,
		TotalAmount:       m.TotalAmount,
	}
	m.PopulateAggregateRoot(&invoice.BaseAggregateRoot)
	return invoice
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(i *fiscal.Invoice) {
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	m.IssuerID = i.IssuerID
	m.Series = i.Series
	m.Number = i.Number
	m.Status = i.Status
	m.AccessKey = i.AccessKey
	m.DocumentCode = i.DocumentCode
	m.DocumentText = i.DocumentText
	m.RecipientName = i.RecipientName
	m.RecipientDocument = i.RecipientDocument
	m.TotalAmount = i.TotalAmount
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(i *fiscal.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(i)
	return m
}

// InvoiceStatusChangeModel is the persistence model for one append-only
// entry of an invoice's status history.
type InvoiceStatusChangeModel struct {
	ID         uuid.UUID            `gorm:"type:uuid;primary_key"`
	InvoiceID  uuid.UUID            `gorm:"type:uuid;not null;index"`
	Status     fiscal.InvoiceStatus `gorm:"type:varchar(20);not null"`
	Evidence   string               `gorm:"type:text"`
	OccurredAt time.Time            `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InvoiceStatusChangeModel) TableName() string {
	return "invoice_status_changes"
}

// ToDomain converts the persistence model to a domain StatusChange.
func (m *InvoiceStatusChangeModel) ToDomain() fiscal.StatusChange {
	return fiscal.StatusChange{
		ID:         m.ID,
		InvoiceID:  m.InvoiceID,
		Status:     m.Status,
		Evidence:   m.Evidence,
		OccurredAt: m.OccurredAt,
	}
}

// FromDomain populates the persistence model from a domain StatusChange.
func (m *InvoiceStatusChangeModel) FromDomain(sc fiscal.StatusChange) {
	m.ID = sc.ID
	m.InvoiceID = sc.InvoiceID
	m.Status = sc.Status
	m.Evidence = sc.Evidence
	m.OccurredAt = sc.OccurredAt
}
