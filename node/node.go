// Package node defines the capability-set Node contract the scheduler
// drives (spec §4.8), plus NodeInfo, the per-node runtime context passed
// into every lifecycle callback (spec §3 "NodeInfo").
//
// Grounded on the teacher's xact/xreg Xaction interface (name/init/run/
// stop capability set invoked by a registry) and on cmn/nlog for the log
// sink NodeInfo exposes to user code.
package node

import (
	"context"
	"sync"
	"time"

	"github.com/horus-robotics/horus/internal/mono"
	"github.com/horus-robotics/horus/internal/nlog"
)

// TopicMeta describes one topic a node declares it publishes or
// subscribes to, for introspection/tooling (spec "declared_publishers()
// → set, declared_subscribers() → set").
type TopicMeta struct {
	Name string
	Kind string // "hub" or "link"
}

// Node is a capability set, not an inheritance hierarchy: implementers
// provide Name/Tick and may embed BaseNode to inherit no-op defaults for
// Init/Shutdown/GetPublishers/GetSubscribers (spec "init and shutdown
// have default no-op behaviors").
type Node interface {
	Name() string
	Init(ctx context.Context, info *Info) error
	Tick(ctx context.Context, info *Info)
	Shutdown(ctx context.Context, info *Info) error
	GetPublishers() []TopicMeta
	GetSubscribers() []TopicMeta
}

// BaseNode supplies the default no-op Init/Shutdown/GetPublishers/
// GetSubscribers bodies; embed it in a concrete node type and override
// only Name and Tick.
type BaseNode struct{}

func (BaseNode) Init(context.Context, *Info) error     { return nil }
func (BaseNode) Shutdown(context.Context, *Info) error { return nil }
func (BaseNode) GetPublishers() []TopicMeta            { return nil }
func (BaseNode) GetSubscribers() []TopicMeta           { return nil }

// Lifecycle is the scheduler-tracked state machine for one node (spec §3
// "Uninitialized -> Initializing -> Running (<-> Paused) -> Stopping ->
// Stopped, with Error/Crashed as exceptional sinks").
type Lifecycle int

const (
	Uninitialized Lifecycle = iota
	Initializing
	Running
	Paused
	Stopping
	Stopped
	Errored
	Crashed
)

func (l Lifecycle) String() string {
	switch l {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Errored:
		return "errored"
	case Crashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Info is the per-node context carried into every lifecycle callback:
// stable name, current lifecycle state, a structured log sink, a custom
// key-value store, and tick/IPC timing accumulators (spec §3 "NodeInfo").
// It implements hub.LogSink so Hub/Link calls can attach pub/sub IPC
// events to this node's trace without either package importing the
// other.
type Info struct {
	name  string
	log   *nlog.Logger
	mu    sync.Mutex
	state Lifecycle
	kv    map[string]any

	tickCount   uint64
	tickNanos   int64 // cumulative tick duration
	ipcCount    uint64
	ipcNanos    int64 // cumulative pub/sub IPC duration
	lastTickDur time.Duration
}

// NewInfo constructs the per-node context used by the scheduler.
func NewInfo(name string, log *nlog.Logger) *Info {
	return &Info{name: name, log: log, state: Uninitialized, kv: make(map[string]any)}
}

func (i *Info) Name() string { return i.name }

func (i *Info) State() Lifecycle {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

func (i *Info) setState(s Lifecycle) {
	i.mu.Lock()
	i.state = s
	i.mu.Unlock()
}

// SetState is exported for the scheduler package, which owns the
// lifecycle transitions; user node code should treat Info as read-mostly.
func (i *Info) SetState(s Lifecycle) { i.setState(s) }

// Set/Get store arbitrary scalar key-value data a node wants to carry
// across ticks (spec "custom key-value storage").
func (i *Info) Set(key string, val any) {
	i.mu.Lock()
	i.kv[key] = val
	i.mu.Unlock()
}

func (i *Info) Get(key string) (any, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, ok := i.kv[key]
	return v, ok
}

// Logf emits a user message through the node's log sink at Info severity.
func (i *Info) Logf(format string, args ...any) {
	if i.log != nil {
		i.log.Infof(i.name, format, args...)
	}
}

func (i *Info) Warnf(format string, args ...any) {
	if i.log != nil {
		i.log.Warnf(i.name, format, args...)
	}
}

func (i *Info) Errorf(format string, args ...any) {
	if i.log != nil {
		i.log.Errorf(i.name, format, args...)
	}
}

// Pub/Sub satisfy hub.LogSink: every Hub/Link IPC call given this Info
// attaches its measured pure-IPC duration to the node's accumulator and
// (if the per-node logging flag is on) to the structured log stream.
func (i *Info) Pub(topicName string, dur time.Duration) {
	i.recordIPC(dur)
	if i.log != nil {
		i.log.Pub(i.name, topicName, dur, "")
	}
}

func (i *Info) Sub(topicName string, dur time.Duration) {
	i.recordIPC(dur)
	if i.log != nil {
		i.log.Sub(i.name, topicName, dur, "")
	}
}

func (i *Info) recordIPC(dur time.Duration) {
	i.mu.Lock()
	i.ipcCount++
	i.ipcNanos += int64(dur)
	i.mu.Unlock()
}

// RecordTick accumulates one tick's measured duration; called by the
// scheduler after every Tick invocation.
func (i *Info) RecordTick(dur time.Duration) {
	i.mu.Lock()
	i.tickCount++
	i.tickNanos += int64(dur)
	i.lastTickDur = dur
	i.mu.Unlock()
}

// TickStats is a point-in-time snapshot of this node's tick/IPC counters.
type TickStats struct {
	TickCount   uint64
	TickNanos   int64
	IPCCount    uint64
	IPCNanos    int64
	LastTickDur time.Duration
}

func (i *Info) Stats() TickStats {
	i.mu.Lock()
	defer i.mu.Unlock()
	return TickStats{
		TickCount:   i.tickCount,
		TickNanos:   i.tickNanos,
		IPCCount:    i.ipcCount,
		IPCNanos:    i.ipcNanos,
		LastTickDur: i.lastTickDur,
	}
}

// StartTimer is a small convenience for node/scheduler code timing a
// span against the monotonic clock without importing internal/mono
// directly.
func StartTimer() int64 { return mono.NanoTime() }
