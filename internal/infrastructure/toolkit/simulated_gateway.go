package toolkit

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	appfiscal "github.com/nfe-engine/backend/internal/application/fiscal"
)

const accessKeyLength = 44

// SimulatedGateway signs and authorizes documents locally, standing in
// for the real toolkit in homologation and development. Access keys are
// derived from the document content, so the same document always yields
// the same key.
type SimulatedGateway struct {
	now func() time.Time
}

// SimulatedGatewayOption configures a SimulatedGateway
type SimulatedGatewayOption func(*SimulatedGateway)

// WithClock overrides the protocol timestamp source
func WithClock(now func() time.Time) SimulatedGatewayOption {
	return func(g *SimulatedGateway) {
		g.now = now
	}
}

// NewSimulatedGateway creates a new simulated gateway
func NewSimulatedGateway(opts ...SimulatedGatewayOption) *SimulatedGateway {
	g := &SimulatedGateway{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Sign derives a 44-digit access key from the document text
func (g *SimulatedGateway) Sign(_ context.Context, invoiceID uuid.UUID, documentText string) (string, error) {
	if documentText == "" {
		return "", fmt.Errorf("cannot sign an empty document")
	}

	sum := sha256.Sum256(append(invoiceID[:], []byte(documentText)...))

	var b strings.Builder
	b.Grow(accessKeyLength)
	for _, by := range sum {
		b.WriteByte('0' + by%10)
		if b.Len() == accessKeyLength {
			break
		}
	}
	// 32 hash bytes cover the 44 digits by reusing the tail
	for i := 0; b.Len() < accessKeyLength; i++ {
		b.WriteByte('0' + sum[i%len(sum)]/10%10)
	}
	return b.String(), nil
}

// Transmit authorizes every well-formed submission with a simulated
// authority protocol number
func (g *SimulatedGateway) Transmit(_ context.Context, invoiceID uuid.UUID, accessKey string) (appfiscal.TransmissionResult, error) {
	if len(accessKey) != accessKeyLength {
		return appfiscal.TransmissionResult{
			Authorized: false,
			Reason:     fmt.Sprintf("access key must have %d digits", accessKeyLength),
		}, nil
	}

	return appfiscal.TransmissionResult{
		Authorized: true,
		Protocol:   fmt.Sprintf("135%s%s", g.now().Format("20060102150405"), accessKey[:6]),
	}, nil
}

// Ensure SimulatedGateway implements TransmissionGateway
var _ appfiscal.TransmissionGateway = (*SimulatedGateway)(nil)
