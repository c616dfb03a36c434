package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff_NextDelay(t *testing.T) {
	b := NewExponentialBackoff(5,
		WithInitialDelay(100*time.Millisecond),
		WithMaxDelay(time.Second),
		WithJitter(0),
	)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{10, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
	assert.Equal(t, 5, b.MaxAttempts())
}

func TestExponentialBackoff_Jitter(t *testing.T) {
	tests := []struct {
		name   string
		random float64
		want   time.Duration
	}{
		{"low end", 0, 80 * time.Millisecond},
		{"midpoint", 0.5, 100 * time.Millisecond},
		{"high end", 0.75, 110 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewExponentialBackoff(1,
				WithInitialDelay(100*time.Millisecond),
				WithJitter(0.2),
				WithRandom(func() float64 { return tt.random }),
			)
			assert.Equal(t, tt.want, b.NextDelay(0))
		})
	}
}

func TestExponentialBackoff_Multiplier(t *testing.T) {
	b := NewExponentialBackoff(3, WithInitialDelay(10*time.Millisecond), WithMultiplier(3), WithJitter(0))
	assert.Equal(t, 90*time.Millisecond, b.NextDelay(2))
}
