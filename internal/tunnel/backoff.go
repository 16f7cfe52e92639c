package tunnel

import (
	"time"

	"github.com/prototypeforge/dimensiondoor/internal/protocol"
)

// backoff tracks the delay before the next reconnection attempt. The
// schedule is deterministic: doubling from BackoffInitial up to
// BackoffMax, with no randomness, so the reconnect timing is exactly
// reproducible in tests.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: protocol.BackoffInitial}
}

// next returns the delay to wait before the next attempt and advances the
// schedule for the attempt after that.
func (b *backoff) next() time.Duration {
	delay := b.current
	doubled := b.current * protocol.BackoffMultiplier
	if doubled > protocol.BackoffMax {
		doubled = protocol.BackoffMax
	}
	b.current = doubled
	return delay
}

// reset returns the schedule to its initial delay. Called after a
// connection reaches the running state (a welcome frame was received).
func (b *backoff) reset() {
	b.current = protocol.BackoffInitial
}
