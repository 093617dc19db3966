// Package sched is the cooperative, priority-ordered node scheduler
// (spec §4.8): a preset-driven tick loop that invokes each registered
// node under a chosen execution model with rate control, circuit
// breaker, deadline monitoring, watchdog, and auto-restart.
//
// Grounded on the teacher's xact/xreg registry (name-keyed registration,
// lifecycle states, a run loop driven from one goroutine) combined with
// internal/hk's periodic-callback pattern for the stalled-node sweep (spec
// §4.10 Housekeeper), and on golang.org/x/sync/errgroup (already in the
// teacher's own dependency chain, promoted here to a direct dependency)
// for the Parallel execution mode's priority-band barrier.
package sched

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/horus-robotics/horus/config"
	"github.com/horus-robotics/horus/internal/cos"
	"github.com/horus-robotics/horus/internal/debug"
	"github.com/horus-robotics/horus/internal/hk"
	"github.com/horus-robotics/horus/internal/nlog"
	"github.com/horus-robotics/horus/internal/rtprio"
	"github.com/horus-robotics/horus/node"
	"golang.org/x/sync/errgroup"
)

// stalledSweepInterval is the coarse, unsynchronized cadence at which the
// housekeeper logs nodes still flagged Stalled, independent of each
// node's own tick rate (spec §4.10 "a coarser, unsynchronized cadence").
const stalledSweepInterval = time.Second

// breaker is one node's circuit-breaker/auto-restart bookkeeping.
type breaker struct {
	failures  int
	open      bool
	restartAt time.Time
	probing   bool // true for the single tick following restartAt elapsing
}

type registration struct {
	n        node.Node
	priority uint8
	logging  bool
	info     *node.Info
	breaker  breaker
	stalled  bool
}

// Scheduler owns the registered node set and drives their lifecycle
// callbacks from a single tick loop (or, in Parallel mode, a bounded
// worker pool synchronized at priority-band boundaries). Not safe for
// concurrent Register calls once Run has started; register every node
// up front (spec "Nodes may be added at any point before the run
// begins").
type Scheduler struct {
	cfg config.Scheduler
	log *nlog.Logger

	mu      sync.Mutex
	regs    []*registration
	sorted  bool
	stopCh  chan struct{}
	stopped bool
}

// New constructs a Scheduler from cfg, logging through log. If log has no
// run ID stamped yet, New stamps a freshly generated one so every record
// this run emits can be told apart from another horus process sharing the
// same host's logs (spec SPEC_FULL §3 "Run ID").
//
// If cfg.Realtime asks for a scheduling class or locked memory, New
// applies it to the current process immediately; a failure (commonly a
// missing CAP_SYS_NICE/CAP_IPC_LOCK off a production robot host) is
// logged and otherwise ignored rather than failing construction.
func New(cfg config.Scheduler, log *nlog.Logger) *Scheduler {
	if log != nil && log.RunID() == "" {
		log.SetRunID(cos.GenRunID())
	}
	if cfg.Realtime.RTSchedulingClass != "" || cfg.Realtime.MemoryLocking {
		if err := rtprio.Apply(cfg.Realtime); err != nil && log != nil {
			log.Warnf("scheduler", "realtime knobs not applied: %v", err)
		}
	}
	return &Scheduler{cfg: cfg, log: log, stopCh: make(chan struct{})}
}

// stalledNodeSweep logs every currently-Stalled node once per
// stalledSweepInterval, independent of the main tick loop, so a node
// stuck well below its own tick rate still gets periodic visibility.
func (s *Scheduler) stalledNodeSweep() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log != nil {
		for _, r := range s.regs {
			if r.stalled {
				s.log.Warnf(r.n.Name(), "still stalled (last tick %s)", r.info.Stats().LastTickDur)
			}
		}
	}
	return stalledSweepInterval
}

// Register moves node n into the scheduler under priority (lower runs
// earlier) with logging controlling whether its NodeInfo attaches a
// structured log sink to every pub/sub call (spec "Scheduler::register").
func (s *Scheduler) Register(n node.Node, priority uint8, logging bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var log *nlog.Logger
	if logging {
		log = s.log
	}
	s.regs = append(s.regs, &registration{
		n: n, priority: priority, logging: logging,
		info: node.NewInfo(n.Name(), log),
	})
	s.sorted = false
}

// sortOnce assumes the caller already holds s.mu (its call site is inside
// a locked section of run()).
func (s *Scheduler) sortOnce() {
	debug.AssertMutexLocked(&s.mu)
	if s.sorted {
		return
	}
	sort.SliceStable(s.regs, func(i, j int) bool { return s.regs[i].priority < s.regs[j].priority })
	s.sorted = true
}

// Stop requests a graceful shutdown: the current tick finishes, every
// node's Shutdown is invoked, then Run/RunFor/TickAll return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
}

// TickAll runs the scheduler until Stop is called or ctx is cancelled.
func (s *Scheduler) TickAll(ctx context.Context) error {
	return s.run(ctx, 0)
}

// Run is a synonym for TickAll (spec "run() is a synonym for tick_all").
func (s *Scheduler) Run(ctx context.Context) error { return s.TickAll(ctx) }

// RunFor runs until the wall-clock budget d elapses, Stop is called, or
// ctx is cancelled, whichever comes first.
func (s *Scheduler) RunFor(ctx context.Context, d time.Duration) error {
	return s.run(ctx, d)
}

func (s *Scheduler) run(ctx context.Context, budget time.Duration) error {
	s.mu.Lock()
	if err := s.initNodes(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.sortOnce()
	s.mu.Unlock()

	housekeeper := hk.New()
	housekeeper.Reg("stalled-sweep", s.stalledNodeSweep, stalledSweepInterval)
	go housekeeper.Run()
	defer housekeeper.Stop()

	deadline := time.Time{}
	if budget > 0 {
		deadline = time.Now().Add(budget)
	}
	interval := s.cfg.TickInterval()

	for {
		select {
		case <-ctx.Done():
			s.shutdownNodes(ctx)
			return ctx.Err()
		case <-s.stopCh:
			s.shutdownNodes(ctx)
			return nil
		default:
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			s.shutdownNodes(ctx)
			return nil
		}

		tickStart := time.Now()
		s.tickOnce(ctx)

		if s.allNonRecoverable() {
			s.shutdownNodes(ctx)
			return fmt.Errorf("scheduler: every registered node has entered a non-recoverable state")
		}

		if s.cfg.Execution != config.JITOptimized && interval > 0 {
			elapsed := time.Since(tickStart)
			if elapsed < interval {
				select {
				case <-time.After(interval - elapsed):
				case <-ctx.Done():
					s.shutdownNodes(ctx)
					return ctx.Err()
				case <-s.stopCh:
					s.shutdownNodes(ctx)
					return nil
				}
			}
		}
	}
}

func (s *Scheduler) initNodes(ctx context.Context) error {
	for _, r := range s.regs {
		r.info.SetState(node.Initializing)
		if err := r.n.Init(ctx, r.info); err != nil {
			r.info.SetState(node.Errored)
			if s.log != nil {
				s.log.Errorf(r.n.Name(), "init failed: %v", err)
			}
			continue
		}
		r.info.SetState(node.Running)
	}
	return nil
}

func (s *Scheduler) shutdownNodes(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regs {
		r.info.SetState(node.Stopping)
		if err := r.n.Shutdown(ctx, r.info); err != nil && s.log != nil {
			s.log.Errorf(r.n.Name(), "shutdown failed: %v", err)
		}
		r.info.SetState(node.Stopped)
	}
}

func (s *Scheduler) allNonRecoverable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regs {
		st := r.info.State()
		if st != node.Errored && st != node.Crashed {
			return false
		}
	}
	return len(s.regs) > 0
}

func (s *Scheduler) tickOnce(ctx context.Context) {
	s.mu.Lock()
	bands := bandByPriority(s.regs)
	s.mu.Unlock()

	switch s.cfg.Execution {
	case config.Parallel:
		for _, band := range bands {
			s.runBandParallel(ctx, band)
		}
	default: // Sequential and JITOptimized both run strictly in order;
		// JITOptimized is a latency-only stub (spec "fallback is Sequential").
		for _, band := range bands {
			for _, r := range band {
				s.tickNode(ctx, r)
			}
		}
	}
}

// bandByPriority groups registrations into priority-ordered bands, each
// band containing all nodes sharing one priority value, in ascending
// priority order — the unit of concurrency for Parallel mode (spec
// "nodes within the same priority band run concurrently ... a barrier
// at band boundaries").
func bandByPriority(regs []*registration) [][]*registration {
	var bands [][]*registration
	var cur []*registration
	var curPriority uint8
	first := true
	for _, r := range regs {
		if first || r.priority != curPriority {
			if len(cur) > 0 {
				bands = append(bands, cur)
			}
			cur = nil
			curPriority = r.priority
			first = false
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		bands = append(bands, cur)
	}
	return bands
}

func (s *Scheduler) runBandParallel(ctx context.Context, band []*registration) {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range band {
		r := r
		g.Go(func() error {
			s.tickNode(gctx, r)
			return nil
		})
	}
	_ = g.Wait()
}

// tickNode runs the circuit-breaker gate, invokes Tick under panic
// recovery, records timing, and applies the failure/watchdog/auto-
// restart policy (spec §4.8 "Tick loop"). Once restartAt elapses the
// node gets exactly one probe tick (spec §4.8 "one probe tick; success
// closes the breaker, failure re-opens"): the breaker stays open for
// every other caller until that single tick's outcome is known, so a
// still-panicking node is re-gated immediately instead of ticking freely
// until MaxFailures re-accumulates.
func (s *Scheduler) tickNode(ctx context.Context, r *registration) {
	if s.cfg.Fault.CircuitBreakerEnabled && r.breaker.open {
		if s.cfg.Fault.AutoRestart && !r.breaker.probing && !r.breaker.restartAt.IsZero() && time.Now().After(r.breaker.restartAt) {
			r.breaker.probing = true
			r.info.SetState(node.Running)
		} else {
			return
		}
	}
	if r.info.State() != node.Running {
		return
	}

	start := time.Now()
	failed := s.invokeTick(ctx, r)
	dur := time.Since(start)
	r.info.RecordTick(dur)

	if s.cfg.Realtime.WatchdogEnabled && s.cfg.Realtime.WatchdogTimeoutMs > 0 {
		if dur > time.Duration(s.cfg.Realtime.WatchdogTimeoutMs)*time.Millisecond {
			r.stalled = true
			if s.log != nil {
				s.log.Warnf(r.n.Name(), "tick duration %s exceeded watchdog timeout", dur)
			}
		}
	}

	if r.breaker.probing {
		r.breaker.probing = false
		if failed {
			s.reopenAfterFailedProbe(r)
		} else {
			r.breaker.open = false
			r.breaker.failures = 0
			if s.log != nil {
				s.log.Infof(r.n.Name(), "circuit breaker closed after successful probe")
			}
		}
		return
	}

	if failed {
		s.recordFailure(r)
	}
}

// reopenAfterFailedProbe re-opens the breaker immediately on a failed
// probe tick, bypassing MaxFailures: the probe itself is the "one more
// chance", not the start of a new failure count toward the threshold.
func (s *Scheduler) reopenAfterFailedProbe(r *registration) {
	r.breaker.failures++
	r.breaker.open = true
	if r.info.State() != node.Crashed {
		r.info.SetState(node.Errored)
	}
	if s.log != nil {
		s.log.Warnf(r.n.Name(), "circuit breaker probe failed, reopening")
	}
	if s.cfg.Fault.AutoRestart {
		r.breaker.restartAt = time.Now().Add(time.Duration(s.cfg.Fault.RestartDelayMs) * time.Millisecond)
	}
}

// invokeTick calls node Tick, converting a panic into a recorded failure
// so one node can never abort the scheduler loop (spec "catching panics
// ... so one node cannot abort the loop").
func (s *Scheduler) invokeTick(ctx context.Context, r *registration) (failed bool) {
	defer func() {
		if rec := recover(); rec != nil {
			failed = true
			r.info.SetState(node.Crashed)
			if s.log != nil {
				s.log.Errorf(r.n.Name(), "panic in tick: %v", rec)
			}
		}
	}()
	r.n.Tick(ctx, r.info)
	return false
}

func (s *Scheduler) recordFailure(r *registration) {
	r.breaker.failures++
	if !s.cfg.Fault.CircuitBreakerEnabled || s.cfg.Fault.MaxFailures <= 0 {
		return
	}
	if r.breaker.failures >= s.cfg.Fault.MaxFailures {
		r.breaker.open = true
		if r.info.State() != node.Crashed {
			r.info.SetState(node.Errored)
		}
		if s.log != nil {
			s.log.Warnf(r.n.Name(), "circuit breaker open after %d failures", r.breaker.failures)
		}
		if s.cfg.Fault.AutoRestart {
			r.breaker.restartAt = time.Now().Add(time.Duration(s.cfg.Fault.RestartDelayMs) * time.Millisecond)
		}
	}
}

// PolicyErrorFor reports a PolicyError describing why node name currently
// cannot tick, or nil if it is running normally. Used by diagnostics and
// tests rather than the hot tick path.
func (s *Scheduler) PolicyErrorFor(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regs {
		if r.n.Name() != name {
			continue
		}
		if r.breaker.open {
			return cos.NewPolicyError(name, "circuit-open")
		}
		if r.stalled {
			return cos.NewPolicyError(name, "watchdog-timeout")
		}
		return nil
	}
	return cos.NewErrNotFound("node %q", name)
}
