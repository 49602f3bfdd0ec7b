package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_GetPut(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("unknown key misses", func(t *testing.T) {
		_, found, err := store.Get(ctx, tenantID, "unknown")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("put then get returns the invoice", func(t *testing.T) {
		invoiceID := uuid.New()
		require.NoError(t, store.Put(ctx, tenantID, "emit-1", invoiceID, time.Hour))

		got, found, err := store.Get(ctx, tenantID, "emit-1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, invoiceID, got)
	})

	t.Run("keys are scoped per tenant", func(t *testing.T) {
		invoiceID := uuid.New()
		otherTenant := uuid.New()
		require.NoError(t, store.Put(ctx, tenantID, "shared-key", invoiceID, time.Hour))

		_, found, err := store.Get(ctx, otherTenant, "shared-key")
		require.NoError(t, err)
		assert.False(t, found, "another tenant must not see the key")
	})

	t.Run("expired key misses", func(t *testing.T) {
		invoiceID := uuid.New()
		require.NoError(t, store.Put(ctx, tenantID, "short", invoiceID, 10*time.Millisecond))

		time.Sleep(20 * time.Millisecond)

		_, found, err := store.Get(ctx, tenantID, "short")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	tenantID := uuid.New()

	store.Put(ctx, tenantID, "short-lived-1", uuid.New(), 10*time.Millisecond)
	store.Put(ctx, tenantID, "short-lived-2", uuid.New(), 10*time.Millisecond)
	store.Put(ctx, tenantID, "long-lived", uuid.New(), time.Hour)

	assert.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())

	_, found, err := store.Get(ctx, tenantID, "long-lived")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestInMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	const numGoroutines = 100

	done := make(chan struct{}, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			store.Put(ctx, tenantID, "emit", uuid.New(), time.Hour)
			store.Get(ctx, tenantID, "emit")
		}(i)
	}
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	_, found, err := store.Get(ctx, tenantID, "emit")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
