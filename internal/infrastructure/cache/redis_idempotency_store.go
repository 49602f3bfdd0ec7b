package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	appfiscal "github.com/nfe-engine/backend/internal/application/fiscal"
	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyStore keeps emission idempotency keys in Redis, for
// deployments where multiple instances share idempotency state.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisIdempotencyStore creates a new Redis-based idempotency store
func NewRedisIdempotencyStore(cfg RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: "emission:idempotency:",
	}, nil
}

// NewRedisIdempotencyStoreWithClient creates a store with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = "emission:idempotency:"
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the invoice previously recorded for the tenant's key
func (s *RedisIdempotencyStore) Get(ctx context.Context, tenantID uuid.UUID, key string) (uuid.UUID, bool, error) {
	value, err := s.client.Get(ctx, s.key(tenantID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to look up idempotency key: %w", err)
	}

	invoiceID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt idempotency entry: %w", err)
	}
	return invoiceID, true, nil
}

// Put records which invoice the tenant's key produced. SetNX keeps the
// first writer's invoice when two emissions race on the same key.
func (s *RedisIdempotencyStore) Put(ctx context.Context, tenantID uuid.UUID, key string, invoiceID uuid.UUID, ttl time.Duration) error {
	if err := s.client.SetNX(ctx, s.key(tenantID, key), invoiceID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

func (s *RedisIdempotencyStore) key(tenantID uuid.UUID, key string) string {
	return s.keyPrefix + tenantID.String() + ":" + key
}

// Ensure RedisIdempotencyStore implements IdempotencyStore
var _ appfiscal.IdempotencyStore = (*RedisIdempotencyStore)(nil)
