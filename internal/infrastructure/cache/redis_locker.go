package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockPrefix = "ledger:lock:"
	lockRetryInterval = 25 * time.Millisecond
)

// unlockScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another instance is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a ReceiptLocker shared by every instance. A lock expires
// after ttl so a crashed holder cannot block a receipt forever.
type RedisLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisLocker creates a locker on an existing client
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client:    client,
		keyPrefix: defaultLockPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

// Lock polls SET NX PX until it wins, the timeout elapses or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(timeout)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, appledger.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(min(wait, lockRetryInterval)):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled.
			unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := unlockScript.Run(unlockCtx, l.client, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("failed to release redis lock",
					zap.String("key", key),
					zap.Error(err),
				)
			}
		})
	}, nil
}

var _ appledger.ReceiptLocker = (*RedisLocker)(nil)
