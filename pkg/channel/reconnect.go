package channel

import (
	"math/rand"
	"time"
)

// maxJitter is the upper bound of the random delay added to each
// reconnect attempt, so many clients dropped by the same outage do not
// reconnect in lockstep.
const maxJitter = time.Second

// ReconnectPolicy computes reconnection delays: exponential backoff from
// BaseDelay, capped at MaxDelay, with up to maxJitter of random spread.
// Past MaxAttempts the policy reports exhaustion instead of a delay.
type ReconnectPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int

	jitterFn func() time.Duration
}

// NewReconnectPolicy creates a policy with the given bounds.
func NewReconnectPolicy(base, max time.Duration, maxAttempts int) *ReconnectPolicy {
	return &ReconnectPolicy{
		BaseDelay:   base,
		MaxDelay:    max,
		MaxAttempts: maxAttempts,
		jitterFn: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		},
	}
}

// NextDelay returns the delay before the given 1-based attempt. The
// second return value is false once the attempt budget is exhausted;
// callers must not retry past that point without an explicit reset.
func (p *ReconnectPolicy) NextDelay(attempt int) (time.Duration, bool) {
	if attempt < 1 || attempt > p.MaxAttempts {
		return 0, false
	}

	backoff := p.BaseDelay
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= p.MaxDelay {
			backoff = p.MaxDelay
			break
		}
	}

	delay := backoff + p.jitterFn()
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay, true
}
