// Package reconnect implements the bounded/unbounded exponential-backoff
// retry policy applied to every network transport (spec §4.2). Strategies
// hold no I/O: callers drive ReconnectContext's state machine from their
// own transport events and only call backoff_delay/should_retry/WaitBackoff.
//
// Grounded on original_source/horus_core/src/communication/network/reconnect.rs.
package reconnect

import (
	"math/rand"
	"sync"
	"time"
)

// Strategy is immutable once constructed; safe to share across goroutines.
type Strategy struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	MaxRetries     int // 0 = infinite
	Jitter         bool
}

// Default mirrors the original's 100ms -> 30s, x2, 10 tries.
func Default() Strategy {
	return Strategy{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		MaxRetries:     10,
		Jitter:         true,
	}
}

// Production is long-backoff, infinite-retry: 500ms -> 60s, x2.
func Production() Strategy {
	return Strategy{
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     60 * time.Second,
		Multiplier:     2.0,
		MaxRetries:     0,
		Jitter:         true,
	}
}

// Testing is short-backoff, few-retry: 10ms -> 500ms, x1.5, 3 tries, no jitter.
func Testing() Strategy {
	return Strategy{
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
		Multiplier:     1.5,
		MaxRetries:     3,
		Jitter:         false,
	}
}

// BackoffDelay computes min(initial*multiplier^(attempt-1), max), with
// attempt 0 always returning zero and, when Jitter is set, a further ±20%
// randomization (spec property 3). The multiplier^(attempt-1) growth is
// applied by repeated multiplication against MaxBackoff, bailing out as
// soon as the running delay reaches the cap (or overflows time.Duration's
// int64 range, which a large enough attempt would otherwise wrap
// negative) rather than computing the full power in float64 first and
// capping afterward — attempt=100 must still return exactly MaxBackoff.
func (s Strategy) BackoffDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := s.InitialBackoff
	for i := 1; i < attempt; i++ {
		if delay >= s.MaxBackoff {
			delay = s.MaxBackoff
			break
		}
		scaled := float64(delay) * s.Multiplier
		if scaled <= 0 || scaled > float64(s.MaxBackoff) {
			delay = s.MaxBackoff
			break
		}
		delay = time.Duration(scaled)
	}
	if delay > s.MaxBackoff {
		delay = s.MaxBackoff
	}
	if !s.Jitter {
		return delay
	}
	factor := 0.8 + rand.Float64()*0.4 // [0.8, 1.2)
	return time.Duration(float64(delay) * factor)
}

// ShouldRetry reports whether attempt has not yet exhausted MaxRetries.
func (s Strategy) ShouldRetry(attempt int) bool {
	return s.MaxRetries == 0 || attempt < s.MaxRetries
}

// Health is the per-connection state reported by ReconnectContext.
type Health int

const (
	HealthConnected Health = iota
	HealthReconnecting
	HealthFailed
)

func (h Health) String() string {
	switch h {
	case HealthConnected:
		return "connected"
	case HealthReconnecting:
		return "reconnecting"
	case HealthFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Context tracks the mutable reconnection state machine for one connection.
// Safe for concurrent use: transport-event callbacks and the connection's
// own goroutine may call into it from different goroutines.
type Context struct {
	mu       sync.Mutex
	strategy Strategy
	attempt  int
	health   Health
}

func NewContext(strategy Strategy) *Context {
	return &Context{strategy: strategy, health: HealthConnected}
}

// BeginReconnect increments the attempt counter and marks Reconnecting.
func (c *Context) BeginReconnect() {
	c.mu.Lock()
	c.attempt++
	c.health = HealthReconnecting
	c.mu.Unlock()
}

// MarkConnected resets the attempt counter and marks Connected.
func (c *Context) MarkConnected() {
	c.mu.Lock()
	c.attempt = 0
	c.health = HealthConnected
	c.mu.Unlock()
}

// MarkFailed marks Failed without resetting the attempt counter.
func (c *Context) MarkFailed() {
	c.mu.Lock()
	c.health = HealthFailed
	c.mu.Unlock()
}

func (c *Context) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

func (c *Context) Health() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health
}

// BackoffDelay returns the strategy's delay for the current attempt.
func (c *Context) BackoffDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strategy.BackoffDelay(c.attempt)
}

// ShouldRetry reports whether the current attempt count permits another try.
func (c *Context) ShouldRetry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strategy.ShouldRetry(c.attempt)
}

// WaitBackoff blocks for the full BackoffDelay() and cannot be cancelled;
// a caller that needs a cancellable wait selects on a timer built from
// BackoffDelay directly. This helper is for the common fire-and-forget
// case (transport reconnect loops running on their own goroutine, per
// spec §5).
func (c *Context) WaitBackoff() {
	d := c.BackoffDelay()
	if d > 0 {
		time.Sleep(d)
	}
}
