package toolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	appfiscal "github.com/nfe-engine/backend/internal/application/fiscal"
)

// HTTPGateway talks to a remote signing and transmission toolkit over
// HTTP. The toolkit holds the issuer certificates and the connection to
// the fiscal authority; this adapter only moves documents and verdicts.
type HTTPGateway struct {
	config     *Config
	httpClient *http.Client
}

// NewHTTPGateway creates a new toolkit HTTP adapter
func NewHTTPGateway(config *Config) (*HTTPGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	return &HTTPGateway{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

type signRequest struct {
	InvoiceID    string `json:"invoice_id"`
	DocumentText string `json:"document_text"`
}

type signResponse struct {
	AccessKey string `json:"access_key"`
	Error     string `json:"error,omitempty"`
}

type transmitRequest struct {
	InvoiceID string `json:"invoice_id"`
	AccessKey string `json:"access_key"`
}

type transmitResponse struct {
	Authorized bool   `json:"authorized"`
	Protocol   string `json:"protocol,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Sign sends the canonical document text for signing and returns the
// access key assigned by the toolkit
func (g *HTTPGateway) Sign(ctx context.Context, invoiceID uuid.UUID, documentText string) (string, error) {
	var resp signResponse
	err := g.post(ctx, "/v1/sign", signRequest{
		InvoiceID:    invoiceID.String(),
		DocumentText: documentText,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("toolkit rejected signing: %s", resp.Error)
	}
	if resp.AccessKey == "" {
		return "", fmt.Errorf("toolkit returned an empty access key")
	}
	return resp.AccessKey, nil
}

// Transmit submits a signed document and returns the authority's verdict
func (g *HTTPGateway) Transmit(ctx context.Context, invoiceID uuid.UUID, accessKey string) (appfiscal.TransmissionResult, error) {
	var resp transmitResponse
	err := g.post(ctx, "/v1/transmit", transmitRequest{
		InvoiceID: invoiceID.String(),
		AccessKey: accessKey,
	}, &resp)
	if err != nil {
		return appfiscal.TransmissionResult{}, err
	}
	if resp.Error != "" {
		return appfiscal.TransmissionResult{}, fmt.Errorf("toolkit transmission failed: %s", resp.Error)
	}
	return appfiscal.TransmissionResult{
		Authorized: resp.Authorized,
		Protocol:   resp.Protocol,
		Reason:     resp.Reason,
	}, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode toolkit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build toolkit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	httpResp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("toolkit request failed: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read toolkit response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("toolkit returned status %d: %s", httpResp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode toolkit response: %w", err)
	}
	return nil
}

// Ensure HTTPGateway implements TransmissionGateway
var _ appfiscal.TransmissionGateway = (*HTTPGateway)(nil)
