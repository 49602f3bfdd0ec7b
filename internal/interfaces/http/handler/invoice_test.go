package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nfe-engine/backend/internal/domain/identity"
	"github.com/nfe-engine/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emitBody(issuerID string) map[string]any {
	return map[string]any{
		"issuer_id": issuerID,
		"recipient": map[string]any{
			"name": "Maria Silva",
			"cpf":  "12345678909",
		},
		"items": []map[string]any{
			{"description": "Cafe Torrado 500g", "quantity": 2, "unitPrice": 10.50},
		},
	}
}

func (s *testServer) do(method, path string, tenant *identity.Tenant, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tenant != nil {
		req.Header.Set(middleware.APIKeyHeader, tenant.APIKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected a success envelope, got %s", w.Body.String())
	return envelope.Data
}

func TestInvoiceEmit(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)

	w := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, emitBody(issuer.ID.String()), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	invoice := data["invoice"].(map[string]any)
	assert.Equal(t, "CREATED", invoice["status"])
	assert.Equal(t, "21.00", invoice["total_amount"])
	assert.Contains(t, data["document_text"], "[infNFe]")
	assert.Contains(t, data["document_text"], "vNF=21.00")
}

func TestInvoiceEmit_IdempotentReplay(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)
	headers := map[string]string{IdempotencyKeyHeader: "emit-once"}

	first := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, emitBody(issuer.ID.String()), headers)
	require.Equal(t, http.StatusCreated, first.Code)
	firstID := decodeData(t, first)["invoice"].(map[string]any)["id"]

	second := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, emitBody(issuer.ID.String()), headers)
	require.Equal(t, http.StatusOK, second.Code)
	secondData := decodeData(t, second)
	assert.Equal(t, true, secondData["replayed"])
	assert.Equal(t, firstID, secondData["invoice"].(map[string]any)["id"])
}

func TestInvoiceEmit_ValidationFailure(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)

	body := emitBody(issuer.ID.String())
	body["recipient"] = map[string]any{"cpf": "12345678909"} // no name
	w := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_VALIDATION")
	assert.Contains(t, w.Body.String(), "recipient.name")
}

func TestInvoiceEmit_CrossTenantDenied(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)

	w := s.do(http.MethodPost, "/api/v1/invoices", s.otherTenant, emitBody(issuer.ID.String()), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
	// The owning tenant is never revealed
	assert.NotContains(t, w.Body.String(), s.tenant.ID.String())
}

func TestInvoiceEmit_RequiresAPIKey(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)

	w := s.do(http.MethodPost, "/api/v1/invoices", nil, emitBody(issuer.ID.String()), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInvoiceGet_WithHistory(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)

	created := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, emitBody(issuer.ID.String()), nil)
	require.Equal(t, http.StatusCreated, created.Code)
	invoiceID := decodeData(t, created)["invoice"].(map[string]any)["id"].(string)

	w := s.do(http.MethodGet, "/api/v1/invoices/"+invoiceID, s.tenant, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "CREATED", data["status"])
	history := data["history"].([]any)
	require.Len(t, history, 1)
	assert.Equal(t, "CREATED", history[0].(map[string]any)["status"])
}

func TestInvoiceGetDocument(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)

	created := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, emitBody(issuer.ID.String()), nil)
	invoiceID := decodeData(t, created)["invoice"].(map[string]any)["id"].(string)

	w := s.do(http.MethodGet, "/api/v1/invoices/"+invoiceID+"/document", s.tenant, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Contains(t, data["document_text"], "[Emitente]")
	assert.Contains(t, data["document_text"], "[Destinatario]")
}

func TestInvoiceList_FiltersByStatus(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, emitBody(issuer.ID.String()), nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(http.MethodGet, "/api/v1/invoices?status=CREATED", s.tenant, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []any `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
	assert.Equal(t, int64(2), envelope.Meta.Total)

	w = s.do(http.MethodGet, "/api/v1/invoices?status=AUTHORIZED", s.tenant, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data)
}

func TestInvoiceTransmit_Authorized(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)

	created := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, emitBody(issuer.ID.String()), nil)
	invoiceID := decodeData(t, created)["invoice"].(map[string]any)["id"].(string)

	w := s.do(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/transmit", s.tenant, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "AUTHORIZED", data["status"])
	assert.Equal(t, s.gateway.accessKey, data["access_key"])
}

func TestInvoiceTransmit_Rejected(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)
	s.gateway.authorized = false
	s.gateway.reason = "Rejeicao: CNPJ do emitente invalido"

	created := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, emitBody(issuer.ID.String()), nil)
	invoiceID := decodeData(t, created)["invoice"].(map[string]any)["id"].(string)

	w := s.do(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/transmit", s.tenant, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "REJECTED", data["status"])
}

func TestInvoiceTransition_InvalidTarget(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)

	created := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, emitBody(issuer.ID.String()), nil)
	invoiceID := decodeData(t, created)["invoice"].(map[string]any)["id"].(string)

	// CREATED cannot jump straight to AUTHORIZED
	w := s.do(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/transitions", s.tenant,
		map[string]any{"target": "AUTHORIZED"}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INVALID_TRANSITION")
}

func TestInvoiceTransition_UnknownTarget(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)

	created := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, emitBody(issuer.ID.String()), nil)
	invoiceID := decodeData(t, created)["invoice"].(map[string]any)["id"].(string)

	w := s.do(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/transitions", s.tenant,
		map[string]any{"target": "SHIPPED"}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceCancel_AfterAuthorization(t *testing.T) {
	s := newTestServer(t)
	issuer := s.seedIssuer(t, s.tenant)

	created := s.do(http.MethodPost, "/api/v1/invoices", s.tenant, emitBody(issuer.ID.String()), nil)
	invoiceID := decodeData(t, created)["invoice"].(map[string]any)["id"].(string)

	transmit := s.do(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/transmit", s.tenant, nil, nil)
	require.Equal(t, http.StatusOK, transmit.Code)

	w := s.do(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/cancel", s.tenant,
		map[string]any{"reason": "Pedido cancelado pelo cliente"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "CANCELED", data["status"])
}

func TestInvoiceGet_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.seedIssuer(t, s.tenant)

	w := s.do(http.MethodGet, "/api/v1/invoices/00000000-0000-0000-0000-000000000099", s.tenant, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
}
