package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Defaults substituted for absent optional request fields
const (
	DefaultOperationNature = "Venda de Mercadoria"
	DefaultPaymentMethod   = "01"
	DefaultAdditionalInfo  = "Nota Fiscal emitida via NFe Engine"
	DefaultUnit            = "UN"
	DefaultEAN             = "SEM GTIN"
	DefaultNCM             = "00000000"
	DefaultCFOP            = "5102"
	DefaultCSOSN           = "102"
	DefaultCSTPIS          = "99"
	DefaultCSTCOFINS       = "99"
)

// FieldError carries field-level detail for a validation failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates one or more field errors found in an
// emission request. The request is rejected as a whole; no partial
// composition ever happens.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid emission request"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid emission request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Address is an optional recipient address block
type Address struct {
	Street   string `json:"street"`
	Number   string `json:"number"`
	District string `json:"district"`
	CityCode string `json:"cityCode"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
}

// Recipient identifies the invoice recipient, a person (CPF) or a
// company (CNPJ). When both identifiers are supplied the CPF wins.
type Recipient struct {
	Name    string   `json:"name"`
	CPF     string   `json:"cpf"`
	CNPJ    string   `json:"cnpj"`
	Address *Address `json:"address,omitempty"`
}

// Document returns the recipient's tax identifier, preferring the CPF
func (r Recipient) Document() string {
	if r.CPF != "" {
		return r.CPF
	}
	return r.CNPJ
}

// LineItem is one product/service entry on an emission request. The
// quantity, unit price and description fields accept a legacy alias;
// the canonical name always wins when both are present.
type LineItem struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Descricao   string `json:"descricao"` // alias of Description
	EAN         string `json:"ean"`
	NCM         string `json:"ncm"`
	CFOP        string `json:"cfop"`
	Unit        string `json:"unit"`

	Quantity   *decimal.Decimal `json:"quantity"`
	Quantidade *decimal.Decimal `json:"quantidade"` // alias of Quantity

	UnitPrice     *decimal.Decimal `json:"unitPrice"`
	ValorUnitario *decimal.Decimal `json:"valorUnitario"` // alias of UnitPrice

	CSOSN     string `json:"csosn"`
	CSTPIS    string `json:"cstPIS"`
	CSTCOFINS string `json:"cstCOFINS"`
}

// EffectiveDescription resolves the description alias pair
func (i LineItem) EffectiveDescription() string {
	if i.Description != "" {
		return i.Description
	}
	return i.Descricao
}

// EffectiveQuantity resolves the quantity alias pair, defaulting to zero
func (i LineItem) EffectiveQuantity() decimal.Decimal {
	if i.Quantity != nil {
		return *i.Quantity
	}
	if i.Quantidade != nil {
		return *i.Quantidade
	}
	return decimal.Zero
}

// EffectiveUnitPrice resolves the unit price alias pair, defaulting to zero
func (i LineItem) EffectiveUnitPrice() decimal.Decimal {
	if i.UnitPrice != nil {
		return *i.UnitPrice
	}
	if i.ValorUnitario != nil {
		return *i.ValorUnitario
	}
	return decimal.Zero
}

// EmissionRequest describes one document to emit. It is ephemeral input:
// nothing here is persisted beyond the composition call.
type EmissionRequest struct {
	Series          int    `json:"series"`
	Number          int    `json:"number"`
	OperationNature string `json:"operationNature"`
	FinalConsumer   bool   `json:"finalConsumer"`
	PaymentMethod   string `json:"paymentMethod"`
	AdditionalInfo  string `json:"additionalInfo"`

	Recipient Recipient `json:"recipient"`

	Items    []LineItem `json:"items"`
	Produtos []LineItem `json:"produtos"` // alias of Items
}

// EffectiveItems resolves the item list alias pair, preserving input order
func (r *EmissionRequest) EffectiveItems() []LineItem {
	if r.Items != nil {
		return r.Items
	}
	return r.Produtos
}

// Validate checks the request's field-level constraints. Negative
// quantities or prices are rejected, never silently clamped.
func (r *EmissionRequest) Validate() error {
	verr := &ValidationError{}

	if r.Series < 0 {
		verr.add("series", "must not be negative")
	}
	if r.Number < 0 {
		verr.add("number", "must not be negative")
	}
	if r.Recipient.Name == "" {
		verr.add("recipient.name", "is required")
	}
	if r.Recipient.Document() == "" {
		verr.add("recipient", "cpf or cnpj is required")
	}

	for idx, item := range r.EffectiveItems() {
		prefix := "items[" + strconv.Itoa(idx) + "]"
		if item.EffectiveDescription() == "" {
			verr.add(prefix+".description", "is required")
		}
		if item.EffectiveQuantity().IsNegative() {
			verr.add(prefix+".quantity", fmt.Sprintf("must not be negative, got %s", item.EffectiveQuantity()))
		}
		if item.EffectiveUnitPrice().IsNegative() {
			verr.add(prefix+".unitPrice", fmt.Sprintf("must not be negative, got %s", item.EffectiveUnitPrice()))
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}
