package shared

import (
	"context"
	"time"
)

// IdempotencyState is the lifecycle of a client-supplied idempotency key
type IdempotencyState string

const (
	IdempotencyInFlight  IdempotencyState = "IN_FLIGHT"
	IdempotencyCompleted IdempotencyState = "COMPLETED"
)

// IdempotencyRecord is what a store remembers about one key
type IdempotencyRecord struct {
	Key         string           `json:"key"`
	Fingerprint string           `json:"fingerprint"`
	State       IdempotencyState `json:"state"`
	StatusCode  int              `json:"status_code,omitempty"`
	Body        []byte           `json:"body,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// IdempotencyStore remembers which mutating requests were already executed
// so a retried POST returns the first response instead of charging twice.
type IdempotencyStore interface {
	// Reserve claims key for a new request. When the key already exists the
	// existing record is returned and reserved is false.
	Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (existing *IdempotencyRecord, reserved bool, err error)

	// Complete stores the final response for a reserved key
	Complete(ctx context.Context, key string, statusCode int, body []byte, ttl time.Duration) error

	// Release forgets a reserved key so the client may retry (used when the
	// request failed with a retryable error or a server error)
	Release(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}
