package instrument

import (
	"context"
	"fmt"
	"time"
)

// Gate serializes device commands on one session. At most one command
// is in flight; a second caller waits up to the configured timeout and
// is then rejected as busy rather than interleaving on the wire.
type Gate struct {
	slot    chan struct{}
	timeout time.Duration
}

// NewGate creates a Gate with the given contention timeout.
func NewGate(timeout time.Duration) *Gate {
	return &Gate{
		slot:    make(chan struct{}, 1),
		timeout: timeout,
	}
}

// Acquire claims the command slot, waiting up to the gate timeout.
// Returns ErrBusy when the slot stays occupied, or the context error
// when the caller is cancelled while waiting.
func (g *Gate) Acquire(ctx context.Context) error {
	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case g.slot <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: no slot within %v", ErrBusy, g.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the command slot.
func (g *Gate) Release() {
	select {
	case <-g.slot:
	default:
		// Releasing an unheld gate is a programming error; keep it
		// from blocking forever.
	}
}
