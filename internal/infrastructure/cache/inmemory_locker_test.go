package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLocker_SerializesSameKey(t *testing.T) {
	locker := NewInMemoryLocker()
	ctx := context.Background()

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "receipt:r-1", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxSeen.Load())
	assert.Zero(t, locker.Keys(), "idle keys are dropped")
}

func TestInMemoryLocker_IndependentKeys(t *testing.T) {
	locker := NewInMemoryLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "receipt:a", time.Second)
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := locker.Lock(ctx, "receipt:b", 10*time.Millisecond)
	require.NoError(t, err)
	unlockB()
}

func TestInMemoryLocker_Timeout(t *testing.T) {
	locker := NewInMemoryLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "payment:p-1", time.Second)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "payment:p-1", 20*time.Millisecond)
	assert.ErrorIs(t, err, appledger.ErrLockTimeout)

	unlock()
	unlock()

	unlock, err = locker.Lock(ctx, "payment:p-1", 20*time.Millisecond)
	require.NoError(t, err, "double unlock must not corrupt the slot")
	unlock()
	assert.Zero(t, locker.Keys())
}

func TestInMemoryLocker_ContextCancelled(t *testing.T) {
	locker := NewInMemoryLocker()

	unlock, err := locker.Lock(context.Background(), "receipt:r-9", time.Second)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Lock(ctx, "receipt:r-9", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
