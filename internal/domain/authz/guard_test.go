package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLookup struct {
	kind   string
	owners map[uuid.UUID]uuid.UUID
	err    error
	calls  int
}

func (s *stubLookup) Kind() string { return s.kind }

func (s *stubLookup) Resolve(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	s.calls++
	if s.err != nil {
		return uuid.Nil, s.err
	}
	owner, ok := s.owners[id]
	if !ok {
		return uuid.Nil, ErrOwnerNotFound
	}
	return owner, nil
}

func TestResolver_Resolve(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	issuerID := uuid.New()
	invoiceID := uuid.New()

	t.Run("first lookup wins and short-circuits", func(t *testing.T) {
		issuers := &stubLookup{kind: "issuer", owners: map[uuid.UUID]uuid.UUID{issuerID: tenantA}}
		invoices := &stubLookup{kind: "invoice", owners: map[uuid.UUID]uuid.UUID{invoiceID: tenantB}}
		resolver := NewResolver(issuers, invoices)

		ownership, err := resolver.Resolve(context.Background(), issuerID)
		require.NoError(t, err)
		assert.Equal(t, "issuer", ownership.Kind)
		assert.Equal(t, tenantA, ownership.TenantID)
		assert.Equal(t, 0, invoices.calls)
	})

	t.Run("falls through not-found to the next kind", func(t *testing.T) {
		issuers := &stubLookup{kind: "issuer", owners: map[uuid.UUID]uuid.UUID{}}
		invoices := &stubLookup{kind: "invoice", owners: map[uuid.UUID]uuid.UUID{invoiceID: tenantB}}
		resolver := NewResolver(issuers, invoices)

		ownership, err := resolver.Resolve(context.Background(), invoiceID)
		require.NoError(t, err)
		assert.Equal(t, "invoice", ownership.Kind)
		assert.Equal(t, tenantB, ownership.TenantID)
		assert.Equal(t, 1, issuers.calls)
	})

	t.Run("unknown id in every kind", func(t *testing.T) {
		resolver := NewResolver(
			&stubLookup{kind: "issuer", owners: map[uuid.UUID]uuid.UUID{}},
			&stubLookup{kind: "invoice", owners: map[uuid.UUID]uuid.UUID{}},
		)

		_, err := resolver.Resolve(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrOwnerNotFound)
	})

	t.Run("lookup failure aborts instead of falling through", func(t *testing.T) {
		boom := errors.New("connection refused")
		issuers := &stubLookup{kind: "issuer", err: boom}
		invoices := &stubLookup{kind: "invoice", owners: map[uuid.UUID]uuid.UUID{invoiceID: tenantB}}
		resolver := NewResolver(issuers, invoices)

		_, err := resolver.Resolve(context.Background(), invoiceID)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrOwnerNotFound)

		var lerr *LookupError
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, "issuer", lerr.Kind)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, invoices.calls)
	})
}

func TestGuard_Authorize(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	issuerID := uuid.New()

	newGuard := func(lookups ...OwnerLookup) *Guard {
		return NewGuard(NewResolver(lookups...), zap.NewNop())
	}

	t.Run("owner is allowed", func(t *testing.T) {
		guard := newGuard(&stubLookup{kind: "issuer", owners: map[uuid.UUID]uuid.UUID{issuerID: tenantA}})
		assert.NoError(t, guard.Authorize(context.Background(), tenantA, issuerID))
	})

	t.Run("other tenant is denied", func(t *testing.T) {
		guard := newGuard(&stubLookup{kind: "issuer", owners: map[uuid.UUID]uuid.UUID{issuerID: tenantA}})

		err := guard.Authorize(context.Background(), tenantB, issuerID)
		require.Error(t, err)

		var denied *CrossTenantError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, "issuer", denied.Kind)
		assert.Equal(t, issuerID, denied.ResourceID)
		assert.NotContains(t, denied.Error(), tenantA.String())
	})

	t.Run("no tenant context is allowed", func(t *testing.T) {
		guard := newGuard(&stubLookup{kind: "issuer", owners: map[uuid.UUID]uuid.UUID{issuerID: tenantA}})
		assert.NoError(t, guard.Authorize(context.Background(), uuid.Nil, issuerID))
	})

	t.Run("unknown resource is allowed through", func(t *testing.T) {
		guard := newGuard(&stubLookup{kind: "issuer", owners: map[uuid.UUID]uuid.UUID{}})
		assert.NoError(t, guard.Authorize(context.Background(), tenantA, uuid.New()))
	})

	t.Run("lookup failure denies", func(t *testing.T) {
		guard := newGuard(&stubLookup{kind: "issuer", err: errors.New("timeout")})

		err := guard.Authorize(context.Background(), tenantA, issuerID)
		require.Error(t, err)

		var unavailable *UnavailableError
		assert.ErrorAs(t, err, &unavailable)
	})
}
