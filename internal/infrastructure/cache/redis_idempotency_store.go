package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyPrefix = "ledger:idempotency:"

// RedisIdempotencyStore shares idempotency keys between every instance of
// the service. Records are stored as JSON under keyPrefix+key.
type RedisIdempotencyStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store on an existing client
func NewRedisIdempotencyStore(client redis.UniversalClient, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultIdempotencyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Reserve claims key with SET NX. A concurrent duplicate loses the race and
// gets the winner's record back.
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (*shared.IdempotencyRecord, bool, error) {
	payload, err := json.Marshal(shared.IdempotencyRecord{
		Key:         key,
		Fingerprint: fingerprint,
		State:       shared.IdempotencyInFlight,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode idempotency record: %w", err)
	}

	// The winner may expire between SETNX and GET; one retry covers it.
	for range 2 {
		ok, err := s.client.SetNX(ctx, s.keyPrefix+key, payload, ttl).Result()
		if err != nil {
			return nil, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if ok {
			return nil, true, nil
		}

		existing, err := s.get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	return nil, false, fmt.Errorf("idempotency key %s kept expiring during reservation", key)
}

// Complete overwrites the reservation with the final response
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, statusCode int, body []byte, ttl time.Duration) error {
	record, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	if record == nil {
		record = &shared.IdempotencyRecord{Key: key, CreatedAt: time.Now().UTC()}
	}
	record.State = shared.IdempotencyCompleted
	record.StatusCode = statusCode
	record.Body = body

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

// Release deletes key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close is a no-op; the client is owned by the Factory
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

func (s *RedisIdempotencyStore) get(ctx context.Context, key string) (*shared.IdempotencyRecord, error) {
	raw, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var record shared.IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("corrupt idempotency record %s: %w", key, err)
	}
	return &record, nil
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
