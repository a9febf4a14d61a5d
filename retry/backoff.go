package retry

import (
	"math/rand/v2"
	"time"
)

// Default backoff parameters, matching the shape of the usual client-side
// retry budget: a few quick retries first, then progressively longer waits.
const (
	DefaultBaseDelay = 20 * time.Millisecond
	DefaultMaxDelay  = 2 * time.Second
	DefaultAttempts  = 10
)

// Backoff decides how long to wait before the next retry attempt, and when to
// stop retrying altogether.
type Backoff interface {
	// NextDelay returns the delay to sleep after the given zero-based failed
	// attempt. It returns false when the attempt budget is exhausted and the
	// operation must give up.
	NextDelay(attempt int) (time.Duration, bool)
}

// Exponential is a jittered exponential backoff with a bounded number of
// attempts. The delay after attempt n is drawn uniformly from
// [0, min(base<<n, max)].
type Exponential struct {
	base     time.Duration
	max      time.Duration
	attempts int
}

var _ Backoff = Exponential{}

// NewExponential returns an Exponential backoff. Non-positive arguments fall
// back to the package defaults.
func NewExponential(base, maxDelay time.Duration, attempts int) Exponential {
	if base <= 0 {
		base = DefaultBaseDelay
	}

	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	return Exponential{base: base, max: maxDelay, attempts: attempts}
}

// NextDelay implements the Backoff interface.
func (e Exponential) NextDelay(attempt int) (time.Duration, bool) {
	if attempt+1 >= e.attempts {
		return 0, false
	}

	delay := e.max
	if shifted := e.base << uint(attempt); shifted > 0 && shifted < e.max {
		delay = shifted
	}

	// Full jitter keeps concurrent retries from synchronizing.
	return time.Duration(rand.Int64N(int64(delay) + 1)), true
}

// Fixed is a Backoff with a constant delay and a bounded number of attempts.
// A zero delay makes retries immediate, which is convenient in tests.
type Fixed struct {
	// Delay is the constant delay between attempts.
	Delay time.Duration
	// Attempts is the total attempt budget.
	Attempts int
}

var _ Backoff = Fixed{}

// NextDelay implements the Backoff interface.
func (f Fixed) NextDelay(attempt int) (time.Duration, bool) {
	if attempt+1 >= f.Attempts {
		return 0, false
	}

	return f.Delay, true
}
