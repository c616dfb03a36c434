package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// ExponentialBackoff doubles the delay after every attempt up to a cap and
// spreads delays with jitter.
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	maxAttempts  int     // -1 retries forever, 0 never retries
	jitter       float64 // 0.1 means +/- 10%
	random       func() float64
}

var _ dlsync.BackoffStrategy = (*ExponentialBackoff)(nil)

// BackoffOption configures an ExponentialBackoff.
type BackoffOption func(*ExponentialBackoff)

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.initialDelay = d }
}

// WithMaxDelay caps the delay between attempts.
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.maxDelay = d }
}

// WithMultiplier sets the growth factor between attempts.
func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.multiplier = m }
}

// WithJitter sets the jitter fraction. Zero disables jitter.
func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.jitter = j }
}

// WithRandom replaces the [0,1) source used for jitter.
func WithRandom(f func() float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.random = f }
}

// NewExponentialBackoff creates a strategy allowing maxAttempts retries.
func NewExponentialBackoff(maxAttempts int, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: dlsync.DefaultRetryInitialDelay,
		maxDelay:     dlsync.DefaultRetryMaxDelay,
		multiplier:   2.0,
		maxAttempts:  maxAttempts,
		jitter:       0.1,
		random:       rand.Float64,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NextDelay returns initialDelay * multiplier^attempt, capped at maxDelay,
// then scaled by a random factor in [1-jitter, 1+jitter).
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt))
	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}
	if b.jitter > 0 {
		delay *= 1 + b.jitter*(2*b.random()-1)
	}
	return time.Duration(delay)
}

// MaxAttempts returns the number of retries allowed.
func (b *ExponentialBackoff) MaxAttempts() int {
	return b.maxAttempts
}
