package cache

import (
	"fmt"

	appfiscal "github.com/nfe-engine/backend/internal/application/fiscal"
	"github.com/nfe-engine/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory creates the emission idempotency store based
// on configuration. Redis is used when enabled so replay detection
// survives restarts and is shared across instances; otherwise a local
// in-memory store serves single-instance deployments.
type IdempotencyStoreFactory struct {
	redisConfig     config.RedisConfig
	logger          *zap.Logger
	allowLocalStore bool
}

// IdempotencyStoreFactoryOption configures the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithLocalFallback controls whether to fall back to the in-memory
// store when Redis is unavailable. Default is true.
func WithLocalFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowLocalStore = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig:     cfg,
		logger:          zap.NewNop(),
		allowLocalStore: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore creates the idempotency store. When Redis is enabled it
// is tried first; failure falls back to the in-memory store unless the
// fallback was disabled.
func (f *IdempotencyStoreFactory) CreateStore() (appfiscal.IdempotencyStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("Using Redis idempotency store",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port))
		return store, nil
	}

	if !f.allowLocalStore {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	// Replay detection degrades to per-instance scope
	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
		zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}
