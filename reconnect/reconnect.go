// Package reconnect implements the backoff policies the Dispatcher uses
// between attempts to re-establish a lost connection.
package reconnect

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// minInterval floors every policy's delay to prevent a busy reconnect
// loop against a server that is immediately and permanently refusing
// connections.
const minInterval = time.Microsecond

// Policy produces the delay to wait before the Nth reconnect attempt.
// Next is called once per failed attempt; the first call corresponds to
// the first retry after an initial connection attempt has already
// failed, so the caller never waits before trying to connect the first
// time.
type Policy interface {
	// Next returns how long to sleep before the next reconnect attempt.
	Next() time.Duration
	// Reset is called once a connection attempt succeeds, so the policy
	// starts over (e.g. an exponential backoff's interval collapses
	// back to its minimum) the next time the connection is lost.
	Reset()
}

// Fixed always waits the same duration between attempts.
type Fixed struct {
	Interval time.Duration
}

// NewFixed builds a Fixed policy, flooring interval at minInterval.
func NewFixed(interval time.Duration) Fixed {
	if interval < minInterval {
		interval = minInterval
	}
	return Fixed{Interval: interval}
}

func (f Fixed) Next() time.Duration { return f.Interval }

func (Fixed) Reset() {}

// ExponentialBackoff grows the delay geometrically between Min and Max,
// with multiplicative jitter in [1-RandomizationFactor, 1+RandomizationFactor],
// backed by github.com/cenkalti/backoff/v4's ExponentialBackOff.
type ExponentialBackoff struct {
	Min                 time.Duration
	Max                 time.Duration
	Multiplier          float64
	RandomizationFactor float64

	backoff *backoff.ExponentialBackOff
}

// NewExponentialBackoff builds an ExponentialBackoff policy. min is
// floored at minInterval; a zero or negative multiplier defaults to
// backoff.DefaultMultiplier (1.5), backoff.ExponentialBackOff's own default.
func NewExponentialBackoff(min, max time.Duration, multiplier, randomizationFactor float64) *ExponentialBackoff {
	if min < minInterval {
		min = minInterval
	}
	if multiplier <= 0 {
		multiplier = backoff.DefaultMultiplier
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     min,
		RandomizationFactor: randomizationFactor,
		Multiplier:          multiplier,
		MaxInterval:         max,
		MaxElapsedTime:      0, // the dispatcher owns whether to give up, not the backoff policy
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	return &ExponentialBackoff{
		Min:                 min,
		Max:                 max,
		Multiplier:          multiplier,
		RandomizationFactor: randomizationFactor,
		backoff:             b,
	}
}

func (e *ExponentialBackoff) Next() time.Duration {
	d := e.backoff.NextBackOff()
	if d < minInterval {
		return minInterval
	}
	return d
}

func (e *ExponentialBackoff) Reset() { e.backoff.Reset() }

// Disabled never reconnects: Next is never called by a Dispatcher
// configured without a reconnect policy, but a zero-value Disabled still
// behaves safely if it is.
type Disabled struct{}

func (Disabled) Next() time.Duration { return 0 }

func (Disabled) Reset() {}
