package fiscal

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nfe-engine/backend/internal/domain/authz"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"github.com/nfe-engine/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LifecycleService tracks invoices through their transmission lifecycle.
// All writes go through optimistic locking; a losing writer retries once
// against the fresh version before giving up.
type LifecycleService struct {
	guard       *authz.Guard
	invoiceRepo fiscal.InvoiceRepository
	issuerRepo  fiscal.IssuerRepository
	gateway     TransmissionGateway
	notifier    StatusNotifier
	logger      *zap.Logger
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(
	guard *authz.Guard,
	invoiceRepo fiscal.InvoiceRepository,
	issuerRepo fiscal.IssuerRepository,
	gateway TransmissionGateway,
	notifier StatusNotifier,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		guard:       guard,
		invoiceRepo: invoiceRepo,
		issuerRepo:  issuerRepo,
		gateway:     gateway,
		notifier:    notifier,
		logger:      logger,
	}
}

// Get retrieves an invoice with its full status history
func (s *LifecycleService) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceDTO, error) {
	if err := s.guard.Authorize(ctx, tenantID, invoiceID); err != nil {
		return nil, err
	}

	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	dto := toInvoiceDTO(invoice, true)
	return &dto, nil
}

// GetDocumentText retrieves the canonical document text of an invoice
func (s *LifecycleService) GetDocumentText(ctx context.Context, tenantID, invoiceID uuid.UUID) (string, error) {
	if err := s.guard.Authorize(ctx, tenantID, invoiceID); err != nil {
		return "", err
	}

	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	return invoice.DocumentText, nil
}

// List retrieves a paginated list of the tenant's invoices
func (s *LifecycleService) List(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (*InvoiceListResult, error) {
	sharedFilter := filter.ToSharedFilter()

	invoices, err := s.invoiceRepo.FindAllForTenant(ctx, tenantID, sharedFilter)
	if err != nil {
		s.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list invoices")
	}
	total, err := s.invoiceRepo.CountForTenant(ctx, tenantID, sharedFilter)
	if err != nil {
		s.logger.Error("Failed to count invoices", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count invoices")
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = toInvoiceDTO(&invoices[i], false)
	}

	return &InvoiceListResult{
		Invoices:   dtos,
		Total:      total,
		Page:       sharedFilter.Page,
		PageSize:   sharedFilter.PageSize,
		TotalPages: totalPages(total, sharedFilter.PageSize),
	}, nil
}

// ListForIssuer retrieves a paginated list of one issuer's invoices
func (s *LifecycleService) ListForIssuer(ctx context.Context, tenantID, issuerID uuid.UUID, filter InvoiceFilter) (*InvoiceListResult, error) {
	if err := s.guard.Authorize(ctx, tenantID, issuerID); err != nil {
		return nil, err
	}

	sharedFilter := filter.ToSharedFilter()
	invoices, err := s.invoiceRepo.FindAllForIssuer(ctx, issuerID, sharedFilter)
	if err != nil {
		s.logger.Error("Failed to list invoices for issuer", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list invoices")
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = toInvoiceDTO(&invoices[i], false)
	}

	return &InvoiceListResult{
		Invoices:   dtos,
		Total:      int64(len(dtos)),
		Page:       sharedFilter.Page,
		PageSize:   sharedFilter.PageSize,
		TotalPages: totalPages(int64(len(dtos)), sharedFilter.PageSize),
	}, nil
}

// Transition moves an invoice to the target status. The change is
// written with an optimistic version check and retried once on a
// conflict; after a retry the transition is re-validated against the
// fresh state, so two racing writers can never both win.
func (s *LifecycleService) Transition(ctx context.Context, tenantID uuid.UUID, input TransitionInput) (*InvoiceDTO, error) {
	if err := s.guard.Authorize(ctx, tenantID, input.InvoiceID); err != nil {
		return nil, err
	}

	invoice, err := s.loadInvoice(ctx, input.InvoiceID)
	if err != nil {
		return nil, err
	}

	from := invoice.Status
	if err := s.apply(invoice, input); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Error("Failed to save invoice transition", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save invoice")
		}

		// Lost the race: reload and re-validate against the winner's state
		invoice, err = s.loadInvoice(ctx, input.InvoiceID)
		if err != nil {
			return nil, err
		}
		from = invoice.Status
		if err := s.apply(invoice, input); err != nil {
			return nil, err
		}
		if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
			s.logger.Error("Failed to save invoice transition after retry", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save invoice")
		}
	}

	s.notify(ctx, invoice, from)

	s.logger.Info("Invoice transitioned",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("from", from.String()),
		zap.String("to", invoice.Status.String()))

	dto := toInvoiceDTO(invoice, true)
	return &dto, nil
}

// Transmit runs the sign-and-transmit flow against the external
// toolkit: CREATED -> SIGNED -> TRANSMITTING -> authority verdict.
func (s *LifecycleService) Transmit(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceDTO, error) {
	if err := s.guard.Authorize(ctx, tenantID, invoiceID); err != nil {
		return nil, err
	}

	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != fiscal.StatusCreated {
		return nil, shared.NewDomainError("INVALID_TRANSITION",
			"Only invoices in CREATED state can be transmitted")
	}

	accessKey, err := s.gateway.Sign(ctx, invoice.ID, invoice.DocumentText)
	if err != nil {
		s.fail(ctx, invoice, err.Error())
		return nil, shared.NewDomainError("SIGNING_FAILED", "Document signing failed")
	}
	if err := invoice.Sign(accessKey); err != nil {
		return nil, err
	}
	if err := invoice.TransitionTo(fiscal.StatusTransmitting, ""); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		s.logger.Error("Failed to save invoice before transmission", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save invoice")
	}
	s.notify(ctx, invoice, fiscal.StatusCreated)

	result, err := s.gateway.Transmit(ctx, invoice.ID, accessKey)
	if err != nil {
		s.fail(ctx, invoice, err.Error())
		return nil, shared.NewDomainError("TRANSMISSION_FAILED", "Document transmission failed")
	}

	from := invoice.Status
	if result.Authorized {
		err = invoice.TransitionTo(fiscal.StatusAuthorized, result.Protocol)
	} else {
		err = invoice.TransitionTo(fiscal.StatusRejected, result.Reason)
	}
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		s.logger.Error("Failed to save transmission verdict", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save invoice")
	}
	s.notify(ctx, invoice, from)

	s.logger.Info("Invoice transmitted",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("status", invoice.Status.String()))

	dto := toInvoiceDTO(invoice, true)
	return &dto, nil
}

// Cancel cancels an authorized invoice
func (s *LifecycleService) Cancel(ctx context.Context, tenantID, invoiceID uuid.UUID, reason string) (*InvoiceDTO, error) {
	return s.Transition(ctx, tenantID, TransitionInput{
		InvoiceID: invoiceID,
		Target:    fiscal.StatusCanceled,
		Evidence:  reason,
	})
}

func (s *LifecycleService) apply(invoice *fiscal.Invoice, input TransitionInput) error {
	if input.Target == fiscal.StatusSigned {
		if err := invoice.Sign(input.AccessKey); err != nil {
			return err
		}
		return nil
	}
	return invoice.TransitionTo(input.Target, input.Evidence)
}

// fail moves the invoice to ERROR, best effort: the caller already has
// a failure to report and a second one must not mask it
func (s *LifecycleService) fail(ctx context.Context, invoice *fiscal.Invoice, evidence string) {
	from := invoice.Status
	if err := invoice.TransitionTo(fiscal.StatusError, evidence); err != nil {
		return
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		s.logger.Error("Failed to record invoice error state",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
		return
	}
	s.notify(ctx, invoice, from)
}

func (s *LifecycleService) notify(ctx context.Context, invoice *fiscal.Invoice, from fiscal.InvoiceStatus) {
	issuer, err := s.issuerRepo.FindByID(ctx, invoice.IssuerID)
	if err != nil {
		s.logger.Warn("Skipping status notification, issuer lookup failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
		return
	}
	s.notifier.NotifyStatusChanged(ctx, issuer.TenantID, invoice, from, invoice.Status)
}

func (s *LifecycleService) loadInvoice(ctx context.Context, id uuid.UUID) (*fiscal.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
		}
		s.logger.Error("Failed to load invoice", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load invoice")
	}
	return invoice, nil
}
