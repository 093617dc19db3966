package reconnect_test

import (
	"testing"
	"time"

	"github.com/horus-robotics/horus/reconnect"
	"github.com/stretchr/testify/assert"
)

func TestBackoffZeroAttempt(t *testing.T) {
	assert.Equal(t, time.Duration(0), reconnect.Default().BackoffDelay(0))
}

func TestBackoffIncreases(t *testing.T) {
	s := reconnect.Testing()
	d1, d2, d3 := s.BackoffDelay(1), s.BackoffDelay(2), s.BackoffDelay(3)
	// Testing() has Jitter disabled, so these are exact.
	assert.Less(t, d1, d2)
	assert.Less(t, d2, d3)
}

// S4 from spec §8.
func TestBackoffCapScenario(t *testing.T) {
	s := reconnect.Strategy{
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
		MaxRetries:     0,
		Jitter:         false,
	}
	assert.Equal(t, time.Second, s.BackoffDelay(1))
	assert.Equal(t, 2*time.Second, s.BackoffDelay(2))
	assert.Equal(t, 4*time.Second, s.BackoffDelay(3))
	assert.Equal(t, 5*time.Second, s.BackoffDelay(100))
}

// Property 3: monotonicity and cap, accounting for jitter.
func TestBackoffMonotonicityAndCapWithJitter(t *testing.T) {
	s := reconnect.Strategy{
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		Multiplier:     2.0,
		MaxRetries:     0,
		Jitter:         true,
	}
	for k := 1; k < 20; k++ {
		d := s.BackoffDelay(k)
		assert.LessOrEqual(t, d, time.Duration(float64(s.MaxBackoff)*1.2)+time.Millisecond)
	}
	// k1 < k2 => delay(k1) <= delay(k2)*1.2, allowing for jitter noise.
	for k := 1; k < 10; k++ {
		d1, d2 := s.BackoffDelay(k), s.BackoffDelay(k+1)
		assert.LessOrEqual(t, d1, time.Duration(float64(d2)*1.2)+time.Millisecond)
	}
}

func TestMaxRetries(t *testing.T) {
	s := reconnect.Strategy{MaxRetries: 3}
	assert.True(t, s.ShouldRetry(0))
	assert.True(t, s.ShouldRetry(1))
	assert.True(t, s.ShouldRetry(2))
	assert.False(t, s.ShouldRetry(3))
	assert.False(t, s.ShouldRetry(4))
}

func TestInfiniteRetries(t *testing.T) {
	s := reconnect.Production()
	assert.True(t, s.ShouldRetry(0))
	assert.True(t, s.ShouldRetry(100))
	assert.True(t, s.ShouldRetry(1000))
}

func TestContextStateTransitions(t *testing.T) {
	ctx := reconnect.NewContext(reconnect.Testing())
	assert.Equal(t, reconnect.HealthConnected, ctx.Health())
	assert.Equal(t, 0, ctx.Attempt())

	ctx.BeginReconnect()
	assert.Equal(t, reconnect.HealthReconnecting, ctx.Health())
	assert.Equal(t, 1, ctx.Attempt())

	ctx.MarkConnected()
	assert.Equal(t, reconnect.HealthConnected, ctx.Health())
	assert.Equal(t, 0, ctx.Attempt())

	ctx.BeginReconnect()
	ctx.MarkFailed()
	assert.Equal(t, reconnect.HealthFailed, ctx.Health())
	assert.Equal(t, 1, ctx.Attempt())
}
