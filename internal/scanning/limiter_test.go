package scanning

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_MinimumCapacity(t *testing.T) {
	l := NewLimiter("hosts", 0)
	assert.Equal(t, 1, l.Capacity())
	assert.Equal(t, "hosts", l.Name())

	l = NewLimiter("hosts", -5)
	assert.Equal(t, 1, l.Capacity())
}

func TestLimiter_PeakNeverExceedsCapacity(t *testing.T) {
	const capacity = 4
	l := NewLimiter("ports", capacity)

	var observedMax atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !assert.NoError(t, l.Acquire(context.Background())) {
				return
			}
			defer l.Release()

			n := int64(l.InFlight())
			for {
				m := observedMax.Load()
				if n <= m || observedMax.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, l.Peak(), capacity)
	assert.LessOrEqual(t, int(observedMax.Load()), capacity)
	assert.Equal(t, capacity, l.Peak(), "50 contending tasks should saturate the limiter")
	assert.Equal(t, 0, l.InFlight())
}

func TestLimiter_AcquireBlocksUntilRelease(t *testing.T) {
	l := NewLimiter("hosts", 1)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Acquire(ctx), "second acquire should time out while the slot is held")

	l.Release()
	require.NoError(t, l.Acquire(context.Background()))
	l.Release()
}

func TestLimiter_AcquireAfterCancel(t *testing.T) {
	l := NewLimiter("hosts", 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, l.InFlight())
	assert.Equal(t, 0, l.Peak())
}
