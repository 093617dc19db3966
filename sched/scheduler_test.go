package sched_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/horus-robotics/horus/config"
	"github.com/horus-robotics/horus/internal/nlog"
	"github.com/horus-robotics/horus/node"
	"github.com/horus-robotics/horus/sched"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNode struct {
	node.BaseNode
	name  string
	ticks atomic.Int32
}

func (n *countingNode) Name() string { return n.name }
func (n *countingNode) Tick(ctx context.Context, info *node.Info) {
	n.ticks.Add(1)
}

func TestRunForTicksEachNode(t *testing.T) {
	cfg := config.Standard()
	cfg.Timing.GlobalRateHz = 1000
	s := sched.New(cfg, nlog.New(nil))

	n := &countingNode{name: "cam"}
	s.Register(n, 0, false)

	err := s.RunFor(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)
	assert.Greater(t, n.ticks.Load(), int32(0))
}

type panickingNode struct {
	node.BaseNode
}

func (panickingNode) Name() string { return "crasher" }
func (panickingNode) Tick(ctx context.Context, info *node.Info) {
	panic("boom")
}

// S5 from spec §8: circuit breaker opens after max_failures and the node
// stops ticking.
func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cfg := config.Standard()
	cfg.Timing.GlobalRateHz = 2000
	cfg.Fault.MaxFailures = 3
	cfg.Fault.AutoRestart = false
	s := sched.New(cfg, nlog.New(nil))
	s.Register(panickingNode{}, 0, false)

	err := s.RunFor(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)

	perr := s.PolicyErrorFor("crasher")
	assert.Error(t, perr)
}

type countingPanicNode struct {
	node.BaseNode
	ticks atomic.Int32
}

func (n *countingPanicNode) Name() string { return "probe-crasher" }
func (n *countingPanicNode) Tick(ctx context.Context, info *node.Info) {
	n.ticks.Add(1)
	panic("boom")
}

// Testable Property 9 from spec §8: once the breaker opens and restart
// delay elapses, AutoRestart grants exactly one probe tick, not
// MaxFailures-1 free ticks before re-gating.
func TestCircuitBreakerProbeIsSingleTickOnAutoRestart(t *testing.T) {
	cfg := config.Standard()
	cfg.Timing.GlobalRateHz = 4000
	cfg.Fault.MaxFailures = 10
	cfg.Fault.AutoRestart = true
	cfg.Fault.RestartDelayMs = 15
	s := sched.New(cfg, nlog.New(nil))

	n := &countingPanicNode{}
	s.Register(n, 0, false)

	err := s.RunFor(context.Background(), 75*time.Millisecond)
	require.NoError(t, err)

	// A still-panicking node re-accumulating MaxFailures per restart
	// window (the unfixed behavior) would tick ~10x per window here;
	// one probe tick per window keeps the total well under that.
	assert.Less(t, n.ticks.Load(), int32(30),
		"a still-panicking node must get at most one probe tick per restart window")
}

type twoBandNode struct {
	node.BaseNode
	name     string
	priority uint8
	order    *[]string
}

func (n *twoBandNode) Name() string { return n.name }
func (n *twoBandNode) Tick(ctx context.Context, info *node.Info) {
	*n.order = append(*n.order, n.name)
}

func TestSequentialRunsInPriorityOrder(t *testing.T) {
	cfg := config.Standard()
	cfg.Timing.GlobalRateHz = 0 // run as fast as possible; only the first tick's order is checked
	cfg.Execution = config.Sequential
	s := sched.New(cfg, nlog.New(nil))

	var order []string
	s.Register(&twoBandNode{name: "second", priority: 5, order: &order}, 5, false)
	s.Register(&twoBandNode{name: "first", priority: 1, order: &order}, 1, false)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	_ = s.Run(ctx)

	require.NotEmpty(t, order)
	assert.Equal(t, "first", order[0])
}
