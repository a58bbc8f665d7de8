package tmi

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// reconnectBackoff computes the delay before each reconnection attempt: the
// Nth attempt waits min(interval*decay^(N-1), max).
type reconnectBackoff struct {
	b   *backoff.ExponentialBackOff
	max time.Duration
}

func newReconnectBackoff(interval, max time.Duration, decay float64) *reconnectBackoff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = max
	b.Multiplier = decay
	b.RandomizationFactor = 0
	b.Reset()
	return &reconnectBackoff{b: b, max: max}
}

func (r *reconnectBackoff) Next() time.Duration {
	d := r.b.NextBackOff()
	if d > r.max {
		d = r.max
	}
	return d
}

func (r *reconnectBackoff) Reset() {
	r.b.Reset()
}
