package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
)

// ErrLockTimeout is returned by a ReceiptLocker when the wait is exhausted
var ErrLockTimeout = errors.New("lock wait timed out")

// ReceiptLocker serializes balance mutations per key across the deployment
type ReceiptLocker interface {
	// Lock blocks until key is held, the timeout elapses (ErrLockTimeout) or
	// ctx is done. The returned func releases the lock and is safe to call twice.
	Lock(ctx context.Context, key string, timeout time.Duration) (func(), error)
}

// ReceiptLockKey is the lock key guarding one receipt's balance
func ReceiptLockKey(id uuid.UUID) string {
	return "receipt:" + id.String()
}

// PaymentLockKey is the lock key guarding the distribution of one payment
func PaymentLockKey(id uuid.UUID) string {
	return "payment:" + id.String()
}

// lockError maps a lock wait timeout to a retryable ConcurrencyConflict
func lockError(err error, key string) error {
	if errors.Is(err, ErrLockTimeout) {
		return ledger.NewConcurrencyConflict("timed out waiting for %s", key)
	}
	return fmt.Errorf("failed to acquire %s: %w", key, err)
}

// heldLocks releases locks in reverse acquisition order
type heldLocks []func()

func (h *heldLocks) add(unlock func()) {
	*h = append(*h, unlock)
}

func (h *heldLocks) releaseAll() {
	for i := len(*h) - 1; i >= 0; i-- {
		(*h)[i]()
	}
	*h = nil
}
