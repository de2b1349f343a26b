package cache

import (
	"context"
	"fmt"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the idempotency store and receipt locker. Both are backed
// by Redis when it is enabled and reachable, otherwise by process memory.
type Factory struct {
	redisConfig           config.RedisConfig
	lockTTL               time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                redis.UniversalClient
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-memory state. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// WithLockTTL sets the expiry of distributed locks
func WithLockTTL(ttl time.Duration) FactoryOption {
	return func(f *Factory) {
		f.lockTTL = ttl
	}
}

// WithClient injects an existing Redis client instead of dialing one
func WithClient(client redis.UniversalClient) FactoryOption {
	return func(f *Factory) {
		f.client = client
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect dials Redis when enabled. A failed ping either falls back to
// memory or is returned, depending on WithInMemoryFallback.
func (f *Factory) Connect(ctx context.Context) error {
	if f.client != nil || !f.redisConfig.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !f.allowInMemoryFallback {
			return fmt.Errorf("redis required but unavailable at %s: %w", f.redisConfig.Addr(), err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory locks and idempotency keys. "+
			"Running more than one instance is unsafe in this mode.",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Error(err),
		)
		return nil
	}

	f.client = client
	f.logger.Info("Connected to Redis", zap.String("addr", f.redisConfig.Addr()))
	return nil
}

// Distributed reports whether Redis backs the created components
func (f *Factory) Distributed() bool {
	return f.client != nil
}

// IdempotencyStore creates the store for idempotent POSTs
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	if f.client != nil {
		return NewRedisIdempotencyStore(f.client, "")
	}
	return NewInMemoryIdempotencyStore()
}

// ReceiptLocker creates the per-receipt lock used by the ledger services
func (f *Factory) ReceiptLocker() appledger.ReceiptLocker {
	if f.client != nil {
		return NewRedisLocker(f.client, f.lockTTL, f.logger.Named("locker"))
	}
	return NewInMemoryLocker()
}

// Ping checks Redis health. Always nil in memory mode.
func (f *Factory) Ping(ctx context.Context) error {
	if f.client == nil {
		return nil
	}
	return f.client.Ping(ctx).Err()
}

// Close closes the Redis client if one was opened
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
