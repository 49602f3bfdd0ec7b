package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	appfiscal "github.com/nfe-engine/backend/internal/application/fiscal"
)

// entry maps one idempotency key to the invoice it produced
type entry struct {
	invoiceID uuid.UUID
	expiresAt time.Time
}

// InMemoryIdempotencyStore keeps emission idempotency keys in a local map.
// Suitable for single-instance deployments and testing.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a new in-memory idempotency store.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Get returns the invoice previously recorded for the tenant's key
func (s *InMemoryIdempotencyStore) Get(_ context.Context, tenantID uuid.UUID, key string) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[storeKey(tenantID, key)]
	if !exists || time.Now().After(e.expiresAt) {
		return uuid.Nil, false, nil
	}
	return e.invoiceID, true, nil
}

// Put records which invoice the tenant's key produced
func (s *InMemoryIdempotencyStore) Put(_ context.Context, tenantID uuid.UUID, key string, invoiceID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[storeKey(tenantID, key)] = entry{
		invoiceID: invoiceID,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// storeKey scopes keys per tenant so two tenants can reuse the same key
func storeKey(tenantID uuid.UUID, key string) string {
	return tenantID.String() + ":" + key
}

// Ensure InMemoryIdempotencyStore implements IdempotencyStore
var _ appfiscal.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
