package klei

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate admits at most K concurrent operations of one pipeline stage. Waiters
// are admitted in arrival order.
type Gate struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

func NewGate(k int) *Gate {
	if k < 1 {
		k = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(k))}
}

// Acquire blocks until a permit is available or ctx is done. Every successful
// Acquire must be paired with a deferred Release.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.inFlight.Add(1)
	return nil
}

func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// InFlight returns the number of permits currently held.
func (g *Gate) InFlight() int { return int(g.inFlight.Load()) }
