package capability

import "context"

// Gate bounds how many capability calls may be in flight at once. The model
// backends hold weights in accelerator memory; unbounded concurrent
// invocation risks out-of-memory failure there, so every caller acquires a
// slot first. Waiters queue on the channel and are released in runtime
// wakeup order; acquisition honors context cancellation.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate admitting up to size concurrent calls.
func NewGate(size int) *Gate {
	if size <= 0 {
		size = 1
	}
	return &Gate{slots: make(chan struct{}, size)}
}

// Acquire blocks until a slot is free or the context is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired with Acquire.
func (g *Gate) Release() {
	<-g.slots
}

// InFlight reports how many slots are currently held.
func (g *Gate) InFlight() int {
	return len(g.slots)
}

// Size reports the gate capacity.
func (g *Gate) Size() int {
	return cap(g.slots)
}
