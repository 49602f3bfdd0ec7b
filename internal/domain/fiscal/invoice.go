package fiscal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the transmission lifecycle state of an invoice
type InvoiceStatus string

const (
	StatusCreated      InvoiceStatus = "CREATED"
	StatusSigned       InvoiceStatus = "SIGNED"
	StatusTransmitting InvoiceStatus = "TRANSMITTING"
	StatusAuthorized   InvoiceStatus = "AUTHORIZED"
	StatusRejected     InvoiceStatus = "REJECTED"
	StatusCanceled     InvoiceStatus = "CANCELED"
	StatusError        InvoiceStatus = "ERROR"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusSigned, StatusTransmitting, StatusAuthorized,
		StatusRejected, StatusCanceled, StatusError:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case StatusCreated:
		return target == StatusSigned || target == StatusError
	case StatusSigned:
		return target == StatusTransmitting || target == StatusError
	case StatusTransmitting:
		return target == StatusAuthorized || target == StatusRejected || target == StatusError
	case StatusAuthorized:
		// Post-authorization cancellation is the only way out of a settled state
		return target == StatusCanceled
	case StatusRejected, StatusCanceled, StatusError:
		return false
	}
	return false
}

// IsTerminal returns true if no further transition is allowed from this status
func (s InvoiceStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCanceled, StatusError:
		return true
	}
	return false
}

// StatusChange is one append-only entry in an invoice's status history
type StatusChange struct {
	ID         uuid.UUID
	InvoiceID  uuid.UUID
	Status     InvoiceStatus
	Evidence   string
	OccurredAt time.Time
}

// Invoice tracks one fiscal document across its transmission lifecycle.
// Tenant ownership is always derived through the issuer and deliberately
// not stored on the invoice itself, so the two can never diverge.
type Invoice struct {
	shared.BaseAggregateRoot
	IssuerID          uuid.UUID
	Series            int
	Number            int
	Status            InvoiceStatus
	History           []StatusChange
	AccessKey         string
	DocumentCode      int64
	DocumentText      string
	RecipientName     string
	RecipientDocument string
	TotalAmount       decimal.Decimal
}

// NewInvoice creates an invoice record in CREATED state with its first
// history entry seeded
func NewInvoice(issuerID uuid.UUID, series, number int) (*Invoice, error) {
	if issuerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ISSUER", "Issuer ID cannot be empty")
	}
	if series <= 0 {
		return nil, shared.NewDomainError("INVALID_SERIES", "Series must be positive")
	}
	if number <= 0 {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Number must be positive")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		IssuerID:          issuerID,
		Series:            series,
		Number:            number,
		Status:            StatusCreated,
		History:           make([]StatusChange, 0, 1),
		TotalAmount:       decimal.Zero,
	}
	inv.appendHistory(StatusCreated, "")
	return inv, nil
}

// AttachDocument stores the composed canonical text and its generated code
func (i *Invoice) AttachDocument(code int64, text string, total decimal.Decimal) {
	i.DocumentCode = code
	i.DocumentText = text
	i.TotalAmount = total
	i.UpdatedAt = time.Now()
}

// SetRecipient stores the recipient snapshot used for listing and auditing
func (i *Invoice) SetRecipient(name, document string) {
	i.RecipientName = name
	i.RecipientDocument = document
	i.UpdatedAt = time.Now()
}

// TransitionTo moves the invoice to the target status, appending a history
// entry. An illegal transition leaves the record unchanged.
func (i *Invoice) TransitionTo(target InvoiceStatus, evidence string) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Unknown target status %q", string(target)))
	}
	if !i.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot transition invoice from %s to %s", i.Status, target))
	}

	from := i.Status
	i.Status = target
	i.appendHistory(target, evidence)
	i.UpdatedAt = time.Now()

	i.AddDomainEvent(NewInvoiceStatusChangedEvent(i, from, target, evidence))
	return nil
}

// Sign records the toolkit's signature result
func (i *Invoice) Sign(accessKey string) error {
	if err := i.TransitionTo(StatusSigned, ""); err != nil {
		return err
	}
	i.AccessKey = accessKey
	return nil
}

// IsTerminal returns true if the invoice is in a terminal state
func (i *Invoice) IsTerminal() bool {
	return i.Status.IsTerminal()
}

// LastChange returns the most recent history entry, or nil for a record
// that was loaded without its history
func (i *Invoice) LastChange() *StatusChange {
	if len(i.History) == 0 {
		return nil
	}
	return &i.History[len(i.History)-1]
}

func (i *Invoice) appendHistory(status InvoiceStatus, evidence string) {
	i.History = append(i.History, StatusChange{
		ID:         uuid.New(),
		InvoiceID:  i.ID,
		Status:     status,
		Evidence:   evidence,
		OccurredAt: time.Now(),
	})
}
