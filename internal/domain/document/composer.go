package document

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/nfe-engine/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Protocol constants fixed by the layout version this engine targets
const (
	ProtocolVersion = "4.00"
	ProcessVersion  = "NFe Engine v1.0"

	modelNFe        = "55"
	countryCode     = "1058"
	countryName     = "BRASIL"
	maxDocumentCode = 100000000
)

// NewCompositionError creates an error for an issuer profile or request
// that cannot produce a document. Composition is all-or-nothing: this is
// raised before any text is emitted.
func NewCompositionError(message string) *shared.DomainError {
	return shared.NewDomainError("COMPOSITION_FAILED", message)
}

// Composer builds the canonical section-based document from an emission
// request and an issuer profile. It is deterministic except for the
// per-call document code and the emission timestamp, both injectable for
// tests. No uniqueness guarantee is made on the document code.
type Composer struct {
	ambiente int
	now      func() time.Time
	code     func() int64
}

// Option configures a Composer
type Option func(*Composer)

// WithClock overrides the emission timestamp source
func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// WithCodeSource overrides the document code source
func WithCodeSource(code func() int64) Option {
	return func(c *Composer) { c.code = code }
}

// NewComposer creates a Composer for the given transmission environment
// (1 = production, 2 = homologation)
func NewComposer(ambiente int, opts ...Option) *Composer {
	c := &Composer{
		ambiente: ambiente,
		now:      time.Now,
		code:     func() int64 { return rand.Int63n(maxDocumentCode) },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose builds the canonical document for the request under the given
// issuer profile. Line items keep their input order; each one produces
// exactly four sections regardless of how many tax fields were defaulted.
func (c *Composer) Compose(req *EmissionRequest, issuer *fiscal.Issuer) (*ComposedDocument, error) {
	if issuer == nil {
		return nil, NewCompositionError("Issuer profile is required")
	}
	if issuer.CNPJ == "" {
		return nil, NewCompositionError("Issuer CNPJ is required")
	}
	if issuer.LegalName == "" {
		return nil, NewCompositionError("Issuer legal name is required")
	}
	if req.Recipient.Document() == "" {
		return nil, NewCompositionError("Recipient tax identifier (CPF or CNPJ) is required")
	}

	items := req.EffectiveItems()
	totals := CalculateTotals(items)

	doc := &ComposedDocument{
		ID:        uuid.New(),
		Code:      c.code(),
		EmittedAt: c.now(),
	}

	doc.Sections = append(doc.Sections, c.headerSection())
	doc.Sections = append(doc.Sections, c.identificationSection(req, doc))
	doc.Sections = append(doc.Sections, c.emitterSection(issuer))
	doc.Sections = append(doc.Sections, c.recipientSection(req.Recipient))
	for idx, item := range items {
		doc.Sections = append(doc.Sections, c.itemSections(idx, item)...)
	}
	doc.Sections = append(doc.Sections, c.totalsSection(totals))
	doc.Sections = append(doc.Sections, c.paymentSection(req, totals))
	doc.Sections = append(doc.Sections, c.notesSection(req))

	return doc, nil
}

func (c *Composer) headerSection() Section {
	s := Section{Name: "infNFe"}
	s.add("versao", ProtocolVersion)
	return s
}

func (c *Composer) identificationSection(req *EmissionRequest, doc *ComposedDocument) Section {
	series := req.Series
	if series == 0 {
		series = 1
	}
	number := req.Number
	if number == 0 {
		number = 1
	}
	nature := req.OperationNature
	if nature == "" {
		nature = DefaultOperationNature
	}

	s := Section{Name: "Identificacao"}
	s.add("cNF", strconv.FormatInt(doc.Code, 10))
	s.add("natOp", nature)
	s.add("mod", modelNFe)
	s.add("serie", strconv.Itoa(series))
	s.add("nNF", strconv.Itoa(number))
	s.add("dhEmi", doc.EmittedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	s.add("tpNF", "1")
	s.add("idDest", "1")
	s.add("tpAmb", strconv.Itoa(c.ambiente))
	s.add("tpImp", "1")
	s.add("tpEmis", "1")
	s.add("finNFe", "1")
	s.add("indFinal", boolFlag(req.FinalConsumer))
	s.add("indPres", "1")
	s.add("procEmi", "0")
	s.add("verProc", ProcessVersion)
	return s
}

func (c *Composer) emitterSection(issuer *fiscal.Issuer) Section {
	number := issuer.Number
	if number == "" {
		number = "SN"
	}

	s := Section{Name: "Emitente"}
	s.add("CRT", strconv.Itoa(issuer.CRT))
	s.add("CNPJCPF", issuer.CNPJ)
	s.add("xNome", issuer.LegalName)
	s.add("xFant", issuer.DisplayName())
	s.add("IE", issuer.StateRegistration)
	s.add("IM", issuer.MunicipalRegistration)
	s.add("xLgr", issuer.Street)
	s.add("nro", number)
	s.add("xBairro", issuer.District)
	s.add("cMun", issuer.CityCode)
	s.add("xMun", issuer.City)
	s.add("UF", issuer.State)
	s.add("CEP", issuer.ZipCode)
	s.add("cPais", countryCode)
	s.add("xPais", countryName)
	s.add("Fone", issuer.Phone)
	return s
}

func (c *Composer) recipientSection(r Recipient) Section {
	s := Section{Name: "Destinatario"}
	s.add("CNPJCPF", r.Document())
	s.add("xNome", r.Name)
	s.add("indIEDest", "9")
	if r.Address != nil {
		number := r.Address.Number
		if number == "" {
			number = "SN"
		}
		s.add("xLgr", r.Address.Street)
		s.add("nro", number)
		s.add("xBairro", r.Address.District)
		s.add("cMun", r.Address.CityCode)
		s.add("xMun", r.Address.City)
		s.add("UF", r.Address.State)
		s.add("CEP", r.Address.ZipCode)
		s.add("cPais", countryCode)
		s.add("xPais", countryName)
	}
	return s
}

// itemSections builds the four-section group for one line item. The
// index is 1-based and zero-padded to three digits.
func (c *Composer) itemSections(idx int, item LineItem) []Section {
	suffix := fmt.Sprintf("%03d", idx+1)

	code := item.Code
	if code == "" {
		code = strconv.Itoa(idx + 1)
	}
	quantity := FormatQuantity(item.EffectiveQuantity())
	unitPrice := FormatAmount(item.EffectiveUnitPrice())
	lineTotal := FormatAmount(LineTotal(item).Round(2))

	product := Section{Name: "Produto" + suffix}
	product.add("cProd", code)
	product.add("cEAN", defaultString(item.EAN, DefaultEAN))
	product.add("xProd", item.EffectiveDescription())
	product.add("NCM", defaultString(item.NCM, DefaultNCM))
	product.add("CFOP", defaultString(item.CFOP, DefaultCFOP))
	product.add("uCom", defaultString(item.Unit, DefaultUnit))
	product.add("qCom", quantity)
	product.add("vUnCom", unitPrice)
	product.add("vProd", lineTotal)
	product.add("uTrib", defaultString(item.Unit, DefaultUnit))
	product.add("qTrib", quantity)
	product.add("vUnTrib", unitPrice)
	product.add("indTot", "1")
	product.add("cEANTrib", DefaultEAN)

	icms := Section{Name: "ICMS" + suffix}
	icms.add("orig", "0")
	icms.add("CSOSN", defaultString(item.CSOSN, DefaultCSOSN))

	pis := Section{Name: "PIS" + suffix}
	pis.add("CST", defaultString(item.CSTPIS, DefaultCSTPIS))
	pis.add("vBC", "0.00")
	pis.add("pPIS", "0.00")
	pis.add("vPIS", "0.00")

	cofins := Section{Name: "COFINS" + suffix}
	cofins.add("CST", defaultString(item.CSTCOFINS, DefaultCSTCOFINS))
	cofins.add("vBC", "0.00")
	cofins.add("pCOFINS", "0.00")
	cofins.add("vCOFINS", "0.00")

	return []Section{product, icms, pis, cofins}
}

func (c *Composer) totalsSection(totals Totals) Section {
	zero := FormatAmount(decimal.Zero)

	s := Section{Name: "Total"}
	s.add("vBC", zero)
	s.add("vICMS", zero)
	s.add("vBCST", zero)
	s.add("vST", zero)
	s.add("vProd", FormatAmount(totals.VProd))
	s.add("vFrete", zero)
	s.add("vSeg", zero)
	s.add("vDesc", zero)
	s.add("vII", zero)
	s.add("vIPI", zero)
	s.add("vPIS", zero)
	s.add("vCOFINS", zero)
	s.add("vOutro", zero)
	s.add("vNF", FormatAmount(totals.VNF))
	return s
}

func (c *Composer) paymentSection(req *EmissionRequest, totals Totals) Section {
	s := Section{Name: "pag001"}
	s.add("tPag", defaultString(req.PaymentMethod, DefaultPaymentMethod))
	s.add("vPag", FormatAmount(totals.VPag))
	return s
}

func (c *Composer) notesSection(req *EmissionRequest) Section {
	s := Section{Name: "DadosAdicionais"}
	s.add("infCpl", defaultString(req.AdditionalInfo, DefaultAdditionalInfo))
	return s
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
