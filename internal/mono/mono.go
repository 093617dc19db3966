// Package mono provides a monotonic nanosecond clock for latency
// measurement: Hub publish/consume IPC timings read from here instead of
// time.Now(), so a wall-clock step (NTP, DST) never perturbs a measured
// duration.
package mono

import "time"

var epoch = time.Now()

// NanoTime returns nanoseconds elapsed since package init. The teacher
// reads runtime.nanotime directly via a go:linkname hack; we get the same
// monotonic guarantee, portably, off of time.Since and the monotonic
// reading every time.Time already carries.
func NanoTime() int64 { return int64(time.Since(epoch)) }

// Since is a convenience wrapper returning a time.Duration directly.
func Since(start int64) time.Duration { return time.Duration(NanoTime() - start) }
