package fiscal

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInvoice(t *testing.T) *Invoice {
	inv, err := NewInvoice(uuid.New(), 1, 1234)
	require.NoError(t, err)
	return inv
}

func TestInvoiceStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  InvoiceStatus
		isValid bool
	}{
		{StatusCreated, true},
		{StatusSigned, true},
		{StatusTransmitting, true},
		{StatusAuthorized, true},
		{StatusRejected, true},
		{StatusCanceled, true},
		{StatusError, true},
		{InvoiceStatus("INVALID"), false},
		{InvoiceStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestInvoiceStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     InvoiceStatus
		to       InvoiceStatus
		canTrans bool
	}{
		// From CREATED
		{StatusCreated, StatusSigned, true},
		{StatusCreated, StatusError, true},
		{StatusCreated, StatusTransmitting, false},
		{StatusCreated, StatusAuthorized, false},
		{StatusCreated, StatusCanceled, false},
		// From SIGNED
		{StatusSigned, StatusTransmitting, true},
		{StatusSigned, StatusError, true},
		{StatusSigned, StatusAuthorized, false},
		{StatusSigned, StatusCreated, false},
		// From TRANSMITTING
		{StatusTransmitting, StatusAuthorized, true},
		{StatusTransmitting, StatusRejected, true},
		{StatusTransmitting, StatusError, true},
		{StatusTransmitting, StatusCanceled, false},
		{StatusTransmitting, StatusSigned, false},
		// From AUTHORIZED (post-authorization cancel only)
		{StatusAuthorized, StatusCanceled, true},
		{StatusAuthorized, StatusRejected, false},
		{StatusAuthorized, StatusError, false},
		{StatusAuthorized, StatusSigned, false},
		// Terminal states
		{StatusRejected, StatusCreated, false},
		{StatusRejected, StatusError, false},
		{StatusCanceled, StatusCreated, false},
		{StatusCanceled, StatusAuthorized, false},
		{StatusError, StatusCreated, false},
		{StatusError, StatusSigned, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestInvoiceStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusCreated.IsTerminal())
	assert.False(t, StatusSigned.IsTerminal())
	assert.False(t, StatusTransmitting.IsTerminal())
	assert.False(t, StatusAuthorized.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
	assert.True(t, StatusError.IsTerminal())
}

func TestNewInvoice(t *testing.T) {
	issuerID := uuid.New()

	t.Run("creates invoice in CREATED state with seeded history", func(t *testing.T) {
		inv, err := NewInvoice(issuerID, 1, 42)
		require.NoError(t, err)
		require.NotNil(t, inv)

		assert.Equal(t, issuerID, inv.IssuerID)
		assert.Equal(t, 1, inv.Series)
		assert.Equal(t, 42, inv.Number)
		assert.Equal(t, StatusCreated, inv.Status)
		require.Len(t, inv.History, 1)
		assert.Equal(t, StatusCreated, inv.History[0].Status)
		assert.True(t, inv.TotalAmount.IsZero())
		assert.Equal(t, 1, inv.GetVersion())
	})

	t.Run("fails with nil issuer", func(t *testing.T) {
		_, err := NewInvoice(uuid.Nil, 1, 1)
		require.Error(t, err)
	})

	t.Run("fails with non-positive series", func(t *testing.T) {
		_, err := NewInvoice(issuerID, 0, 1)
		require.Error(t, err)
	})

	t.Run("fails with non-positive number", func(t *testing.T) {
		_, err := NewInvoice(issuerID, 1, 0)
		require.Error(t, err)
	})
}

func TestInvoice_TransitionTo(t *testing.T) {
	t.Run("rejects CREATED to AUTHORIZED", func(t *testing.T) {
		inv := createTestInvoice(t)
		err := inv.TransitionTo(StatusAuthorized, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot transition")
		assert.Equal(t, StatusCreated, inv.Status)
		assert.Len(t, inv.History, 1)
	})

	t.Run("full happy path appends 5 history entries", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.TransitionTo(StatusSigned, ""))
		require.NoError(t, inv.TransitionTo(StatusTransmitting, ""))
		require.NoError(t, inv.TransitionTo(StatusAuthorized, "protocol 135240000000001"))
		require.NoError(t, inv.TransitionTo(StatusCanceled, "customer request"))

		assert.Equal(t, StatusCanceled, inv.Status)
		require.Len(t, inv.History, 5)
		assert.Equal(t, StatusCreated, inv.History[0].Status)
		assert.Equal(t, StatusSigned, inv.History[1].Status)
		assert.Equal(t, StatusTransmitting, inv.History[2].Status)
		assert.Equal(t, StatusAuthorized, inv.History[3].Status)
		assert.Equal(t, StatusCanceled, inv.History[4].Status)
		assert.Equal(t, "customer request", inv.History[4].Evidence)
	})

	t.Run("post-authorization cancel succeeds and appends one entry", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.TransitionTo(StatusSigned, ""))
		require.NoError(t, inv.TransitionTo(StatusTransmitting, ""))
		require.NoError(t, inv.TransitionTo(StatusAuthorized, ""))

		before := len(inv.History)
		require.NoError(t, inv.TransitionTo(StatusCanceled, ""))
		assert.Len(t, inv.History, before+1)
	})

	t.Run("rejection evidence is recorded", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.TransitionTo(StatusSigned, ""))
		require.NoError(t, inv.TransitionTo(StatusTransmitting, ""))
		require.NoError(t, inv.TransitionTo(StatusRejected, "Rejeicao: CNPJ do emitente invalido"))

		last := inv.LastChange()
		require.NotNil(t, last)
		assert.Equal(t, StatusRejected, last.Status)
		assert.Equal(t, "Rejeicao: CNPJ do emitente invalido", last.Evidence)
	})

	t.Run("no transition out of terminal states", func(t *testing.T) {
		for _, terminal := range []InvoiceStatus{StatusRejected, StatusCanceled, StatusError} {
			inv := createTestInvoice(t)
			inv.Status = terminal
			for _, target := range []InvoiceStatus{StatusCreated, StatusSigned, StatusTransmitting, StatusAuthorized, StatusCanceled} {
				err := inv.TransitionTo(target, "")
				assert.Error(t, err, "expected %s -> %s to fail", terminal, target)
			}
		}
	})

	t.Run("rejects unknown target status", func(t *testing.T) {
		inv := createTestInvoice(t)
		err := inv.TransitionTo(InvoiceStatus("BOGUS"), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown target status")
	})

	t.Run("publishes status changed event", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.TransitionTo(StatusSigned, ""))

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeInvoiceStatusChanged, events[0].EventType())

		event, ok := events[0].(*InvoiceStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, StatusCreated, event.FromStatus)
		assert.Equal(t, StatusSigned, event.ToStatus)
	})
}

func TestInvoice_Sign(t *testing.T) {
	inv := createTestInvoice(t)
	require.NoError(t, inv.Sign("35240112345678000195550010000000421000000427"))

	assert.Equal(t, StatusSigned, inv.Status)
	assert.Equal(t, "35240112345678000195550010000000421000000427", inv.AccessKey)
}

func TestInvoice_AttachDocument(t *testing.T) {
	inv := createTestInvoice(t)
	inv.AttachDocument(12345678, "[infNFe]\nversao=4.00\n", decimal.RequireFromString("21.00"))

	assert.Equal(t, int64(12345678), inv.DocumentCode)
	assert.Contains(t, inv.DocumentText, "versao=4.00")
	assert.Equal(t, "21.00", inv.TotalAmount.StringFixed(2))
}
