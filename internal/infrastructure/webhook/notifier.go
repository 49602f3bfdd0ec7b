package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	appfiscal "github.com/nfe-engine/backend/internal/application/fiscal"
	"github.com/nfe-engine/backend/internal/domain/fiscal"
	"go.uber.org/zap"
)

// EndpointResolver returns the webhook URL registered for a tenant.
// An empty URL means the tenant receives no notifications.
type EndpointResolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// StaticEndpointResolver sends every tenant's notifications to one URL.
// Useful for single-consumer deployments and testing.
type StaticEndpointResolver struct {
	URL string
}

// Resolve returns the configured URL for any tenant
func (r StaticEndpointResolver) Resolve(_ context.Context, _ uuid.UUID) (string, error) {
	return r.URL, nil
}

// Config holds webhook delivery settings
type Config struct {
	Timeout    time.Duration
	MaxRetries int
}

// statusChangedPayload is the JSON body delivered to webhook consumers
type statusChangedPayload struct {
	Event      string    `json:"event"`
	TenantID   uuid.UUID `json:"tenant_id"`
	InvoiceID  uuid.UUID `json:"invoice_id"`
	IssuerID   uuid.UUID `json:"issuer_id"`
	Series     int       `json:"series"`
	Number     int       `json:"number"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	AccessKey  string    `json:"access_key,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier delivers invoice lifecycle changes to tenant-registered
// webhooks. Delivery is best effort: failures are logged and retried a
// bounded number of times, never propagated to the caller.
type Notifier struct {
	resolver   EndpointResolver
	httpClient *http.Client
	maxRetries int
	logger     *zap.Logger
}

// NewNotifier creates a new webhook notifier
func NewNotifier(resolver EndpointResolver, cfg Config, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}

	return &Notifier{
		resolver:   resolver,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: retries,
		logger:     logger,
	}
}

// NotifyStatusChanged posts the status change to the tenant's endpoint
func (n *Notifier) NotifyStatusChanged(ctx context.Context, tenantID uuid.UUID, invoice *fiscal.Invoice, from, to fiscal.InvoiceStatus) {
	url, err := n.resolver.Resolve(ctx, tenantID)
	if err != nil {
		n.logger.Warn("Failed to resolve webhook endpoint",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return
	}
	if url == "" {
		return
	}

	payload := statusChangedPayload{
		Event:      "invoice.status_changed",
		TenantID:   tenantID,
		InvoiceID:  invoice.ID,
		IssuerID:   invoice.IssuerID,
		Series:     invoice.Series,
		Number:     invoice.Number,
		FromStatus: from.String(),
		ToStatus:   to.String(),
		AccessKey:  invoice.AccessKey,
		OccurredAt: time.Now(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("Failed to encode webhook payload", zap.Error(err))
		return
	}

	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		if err := n.deliver(ctx, url, body); err != nil {
			n.logger.Warn("Webhook delivery failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("invoice_id", invoice.ID.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		return
	}

	n.logger.Error("Webhook delivery exhausted retries",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.Int("attempts", n.maxRetries))
}

func (n *Notifier) deliver(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// NopNotifier drops every notification. Used when webhooks are disabled.
type NopNotifier struct{}

// NotifyStatusChanged does nothing
func (NopNotifier) NotifyStatusChanged(context.Context, uuid.UUID, *fiscal.Invoice, fiscal.InvoiceStatus, fiscal.InvoiceStatus) {
}

// Ensure both notifiers implement StatusNotifier
var (
	_ appfiscal.StatusNotifier = (*Notifier)(nil)
	_ appfiscal.StatusNotifier = NopNotifier{}
)
