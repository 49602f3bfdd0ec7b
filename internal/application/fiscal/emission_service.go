package fiscal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/authz"
	"github.com/nfe-engine/backend/internal/domain/billing"
	"github.com/nfe-engine/backend/internal/domain/document"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/nfe-engine/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// idempotencyTTL bounds how long an emission key replays the original
// invoice. Retries arrive within seconds; a day is generous.
const idempotencyTTL = 24 * time.Hour

// EmissionService orchestrates document emission: authorization,
// idempotent replay, request validation, composition and the initial
// invoice record.
type EmissionService struct {
	guard       *authz.Guard
	issuerRepo  fiscal.IssuerRepository
	invoiceRepo fiscal.InvoiceRepository
	usageRepo   billing.UsageMeterRepository
	composer    *document.Composer
	idempotency IdempotencyStore
	notifier    StatusNotifier
	logger      *zap.Logger
}

// NewEmissionService creates a new emission service
func NewEmissionService(
	guard *authz.Guard,
	issuerRepo fiscal.IssuerRepository,
	invoiceRepo fiscal.InvoiceRepository,
	usageRepo billing.UsageMeterRepository,
	composer *document.Composer,
	idempotency IdempotencyStore,
	notifier StatusNotifier,
	logger *zap.Logger,
) *EmissionService {
	return &EmissionService{
		guard:       guard,
		issuerRepo:  issuerRepo,
		invoiceRepo: invoiceRepo,
		usageRepo:   usageRepo,
		composer:    composer,
		idempotency: idempotency,
		notifier:    notifier,
		logger:      logger,
	}
}

// Emit composes a document for the issuer and opens its lifecycle
// record in CREATED state. When the input carries an idempotency key
// already seen for this tenant, the original invoice is returned and
// nothing new is composed.
func (s *EmissionService) Emit(ctx context.Context, tenantID uuid.UUID, input EmitInput) (*EmitResult, error) {
	if input.Request == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Emission request body is required")
	}

	if err := s.guard.Authorize(ctx, tenantID, input.IssuerID); err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" {
		invoiceID, found, err := s.idempotency.Get(ctx, tenantID, input.IdempotencyKey)
		if err != nil {
			s.logger.Warn("Idempotency lookup failed, proceeding without replay",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		} else if found {
			return s.replay(ctx, invoiceID)
		}
	}

	if err := input.Request.Validate(); err != nil {
		return nil, err
	}
	if len(input.Request.EffectiveItems()) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one line item is required")
	}

	issuer, err := s.issuerRepo.FindByID(ctx, input.IssuerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ISSUER_NOT_FOUND", "Issuer not found")
		}
		s.logger.Error("Failed to load issuer", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load issuer")
	}

	doc, err := s.composer.Compose(input.Request, issuer)
	if err != nil {
		return nil, err
	}

	series := input.Request.Series
	if series == 0 {
		series = 1
	}
	number := input.Request.Number
	if number == 0 {
		number = 1
	}

	invoice, err := fiscal.NewInvoice(issuer.ID, series, number)
	if err != nil {
		return nil, err
	}
	text := doc.Render()
	totals := document.CalculateTotals(input.Request.EffectiveItems())
	invoice.AttachDocument(doc.Code, text, totals.VNF)
	invoice.SetRecipient(input.Request.Recipient.Name, input.Request.Recipient.Document())

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		s.logger.Error("Failed to save invoice", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save invoice")
	}

	if input.IdempotencyKey != "" {
		if err := s.idempotency.Put(ctx, tenantID, input.IdempotencyKey, invoice.ID, idempotencyTTL); err != nil {
			s.logger.Warn("Failed to record idempotency key",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(err))
		}
	}

	// Metering is best effort: billing must never block emission
	if err := s.usageRepo.Increment(ctx, issuer.TenantID, billing.CurrentPeriod(), 1); err != nil {
		s.logger.Warn("Failed to record emission usage",
			zap.String("tenant_id", issuer.TenantID.String()),
			zap.Error(err))
	}

	s.notifier.NotifyStatusChanged(ctx, issuer.TenantID, invoice, "", fiscal.StatusCreated)

	s.logger.Info("Document emitted",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("issuer_id", issuer.ID.String()),
		zap.Int64("document_code", doc.Code))

	return &EmitResult{
		Invoice:      toInvoiceDTO(invoice, true),
		DocumentText: text,
	}, nil
}

func (s *EmissionService) replay(ctx context.Context, invoiceID uuid.UUID) (*EmitResult, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice behind idempotency key no longer exists")
		}
		s.logger.Error("Failed to replay invoice", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load invoice")
	}
	return &EmitResult{
		Invoice:      toInvoiceDTO(invoice, true),
		DocumentText: invoice.DocumentText,
		Replayed:     true,
	}, nil
}
