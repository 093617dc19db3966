package hk_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/horus-robotics/horus/internal/hk"
	"github.com/stretchr/testify/assert"
)

func TestHousekeeperRunsRegisteredCallback(t *testing.T) {
	h := hk.New()
	go h.Run()
	h.WaitStarted()
	defer h.Stop()

	var calls int32
	h.Reg("probe", func() time.Duration {
		atomic.AddInt32(&calls, 1)
		return 10 * time.Millisecond
	}, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, time.Second, 5*time.Millisecond)
}

func TestHousekeeperUnreg(t *testing.T) {
	h := hk.New()
	go h.Run()
	h.WaitStarted()
	defer h.Stop()

	var calls int32
	h.Reg("probe", func() time.Duration {
		atomic.AddInt32(&calls, 1)
		return 5 * time.Millisecond
	}, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, time.Second, 2*time.Millisecond)
	h.Unreg("probe")
	n := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), n+1, "callback kept firing after Unreg")
}
