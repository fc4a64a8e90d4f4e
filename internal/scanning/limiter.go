package scanning

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds how many probe tasks run at once. Every successful Acquire
// must be paired with exactly one Release.
type Limiter struct {
	name     string
	capacity int
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewLimiter creates a limiter with the given capacity; values below 1 are
// raised to 1.
func NewLimiter(name string, capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		name:     name,
		capacity: capacity,
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	n := l.inFlight.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return nil
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// Name returns the limiter's label.
func (l *Limiter) Name() string { return l.name }

// Capacity returns the maximum number of concurrent holders.
func (l *Limiter) Capacity() int { return l.capacity }

// InFlight returns the current number of holders.
func (l *Limiter) InFlight() int { return int(l.inFlight.Load()) }

// Peak returns the highest number of simultaneous holders observed.
func (l *Limiter) Peak() int { return int(l.peak.Load()) }
