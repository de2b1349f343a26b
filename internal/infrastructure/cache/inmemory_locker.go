package cache

import (
	"context"
	"sync"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
)

type lockSlot struct {
	held chan struct{}
	refs int
}

// InMemoryLocker serializes callers per key inside one process
type InMemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

// NewInMemoryLocker creates an empty locker
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{slots: make(map[string]*lockSlot)}
}

// Lock waits for key up to timeout
func (l *InMemoryLocker) Lock(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	slot := l.acquireSlot(key)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot.held <- struct{}{}:
	case <-timer.C:
		l.releaseSlot(key, slot)
		return nil, appledger.ErrLockTimeout
	case <-ctx.Done():
		l.releaseSlot(key, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.held
			l.releaseSlot(key, slot)
		})
	}, nil
}

func (l *InMemoryLocker) acquireSlot(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{held: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *InMemoryLocker) releaseSlot(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// Keys returns how many keys are held or awaited
func (l *InMemoryLocker) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

var _ appledger.ReceiptLocker = (*InMemoryLocker)(nil)
