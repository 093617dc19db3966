// Package hub is the broadcast (many-to-many) facade over a shm.Ring
// (spec §4.4): every Hub attached to the same topic name shares one ring
// and acts as both producer and consumer, with a per-attach cursor that
// jumps to the newest sample when a slow reader falls behind.
//
// Grounded on the teacher's transport/bundle send/recv pairing for the
// send/recv shape, and on cmn/cos-style cache-line-padded counters for
// Metrics (spec "Hub metrics ... padded to prevent false sharing").
package hub

import (
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/horus-robotics/horus/internal/cos"
	"github.com/horus-robotics/horus/internal/mono"
	"github.com/horus-robotics/horus/shm"
	"github.com/horus-robotics/horus/topic"
)

// ConnectionState is the per-Hub atomic status (spec §3 "Connection state").
type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Metrics are four independent, cache-line-separated atomic counters so a
// producer incrementing MessagesSent never false-shares a cache line with
// a consumer incrementing MessagesReceived.
type Metrics struct {
	messagesSent     atomic.Uint64
	_                [56]byte
	messagesReceived atomic.Uint64
	_                [56]byte
	sendFailures     atomic.Uint64
	_                [56]byte
	recvFailures     atomic.Uint64
	_                [56]byte
}

// Snapshot is a point-in-time, non-atomic copy of Metrics for reporting.
type Snapshot struct {
	MessagesSent     uint64
	MessagesReceived uint64
	SendFailures     uint64
	RecvFailures     uint64
}

func (m *Metrics) snapshot() Snapshot {
	return Snapshot{
		MessagesSent:     m.messagesSent.Load(),
		MessagesReceived: m.messagesReceived.Load(),
		SendFailures:     m.sendFailures.Load(),
		RecvFailures:     m.recvFailures.Load(),
	}
}

// LogSink is the minimal logging hook a Hub needs from a scheduler's
// NodeInfo context (spec §4.4 "appends a structured event carrying the
// measured pure-IPC duration"); node.Info satisfies this.
type LogSink interface {
	Pub(topicName string, dur time.Duration)
	Sub(topicName string, dur time.Duration)
}

// DefaultCapacity is the default ring size for a Hub (spec §3 "default
// 1024 for Hubs").
const DefaultCapacity = 1024

// Hub[T] is one attach's view of a broadcast topic. Every Hub on the same
// topic name and host shares the underlying ring; only the read cursor
// and connection-state/metrics are private to this attach.
type Hub[T any] struct {
	topicName string
	attachID  string
	reg       *topic.Registry
	ring      *shm.Ring[T]
	cursor    uint64
	state     atomic.Int32
	metrics   Metrics
}

// New attaches a Hub to topicName with DefaultCapacity, creating the
// backing region on first attach.
func New[T any](reg *topic.Registry, topicName string) (*Hub[T], error) {
	return NewWithCapacity[T](reg, topicName, DefaultCapacity)
}

// NewWithCapacity attaches a Hub to topicName with an explicit ring
// capacity; the first local attacher sets the capacity, and a later
// attach requesting a different capacity fails.
func NewWithCapacity[T any](reg *topic.Registry, topicName string, capacity int) (*Hub[T], error) {
	var zero T
	region, err := reg.Attach(topicName, topic.KindHub, capacity, int(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	ring := shm.NewRing[T](region)
	h := &Hub[T]{topicName: topicName, attachID: cos.GenAttachID(), reg: reg, ring: ring}
	h.state.Store(int32(Connected)) // shared memory is always Connected once attached
	// Start the cursor at the current producer position: a newly attached
	// Hub should not replay history that predates it.
	h.cursor = ring.ProducerSeq()
	return h, nil
}

// GetTopicName returns the topic this Hub is attached to.
func (h *Hub[T]) GetTopicName() string { return h.topicName }

// AttachID identifies this particular attach (one per process, per
// topic, per Hub instance) for diagnostics and trace correlation across
// processes sharing the same topic's ring.
func (h *Hub[T]) AttachID() string { return h.attachID }

// TopicHash is a stable xxhash digest of the topic name, cheaper to
// carry through a trace event or metric label than the name itself when
// correlating diagnostics across processes attached to the same topic.
func (h *Hub[T]) TopicHash() uint64 { return cos.TopicHash(h.topicName) }

// GetConnectionState returns the current atomic connection state.
func (h *Hub[T]) GetConnectionState() ConnectionState {
	return ConnectionState(h.state.Load())
}

// GetMetrics returns a point-in-time snapshot of this attach's counters.
func (h *Hub[T]) GetMetrics() Snapshot { return h.metrics.snapshot() }

// Send loans the next ring slot, writes msg, and publishes it. logCtx is
// optional (spec "send(msg, log_ctx?)"); when supplied, the measured
// pure-IPC duration (loan to publish-visible) is attached to its trace.
// Publish on shared memory cannot fail for capacity reasons (the ring
// always accepts a write, overwriting the oldest sample); a non-nil
// error here indicates an exceptional condition surfaced for parity with
// Link's fallible send.
func (h *Hub[T]) Send(msg T, logCtx LogSink) error {
	start := mono.NanoTime()
	loan := h.ring.Loan()
	loan.Publish(msg)
	h.metrics.messagesSent.Add(1)
	h.state.Store(int32(Connected))
	if logCtx != nil {
		logCtx.Pub(h.topicName, time.Duration(mono.NanoTime()-start))
	}
	return nil
}

// Recv returns the next unread sample, or (zero, false) if none is
// available. If the producer has lapped this attach's cursor (more than
// the ring's capacity has been published since the last Recv), the
// cursor jumps to the newest sample and RecvFailures is incremented by
// the number of dropped samples (spec §4.3 "newest-wins drop semantics").
func (h *Hub[T]) Recv(logCtx LogSink) (T, bool) {
	var zero T
	start := mono.NanoTime()

	producer := h.ring.ProducerSeq()
	if h.cursor >= producer {
		return zero, false
	}

	capacity := h.ring.Capacity()
	if producer-h.cursor > capacity {
		dropped := producer - 1 - h.cursor
		h.metrics.recvFailures.Add(dropped)
		h.cursor = producer - 1
	}

	idx := h.cursor
	if h.ring.StampAt(idx) != idx+1 {
		// Slot was never published at this sequence (can happen right at
		// the ring's very first capacity window); treat as empty.
		return zero, false
	}
	msg := h.ring.ReadAt(idx)
	h.cursor++
	h.metrics.messagesReceived.Add(1)
	if logCtx != nil {
		logCtx.Sub(h.topicName, time.Duration(mono.NanoTime()-start))
	}
	return msg, true
}

// Detach releases this attach's hold on the shared region.
func (h *Hub[T]) Detach() error {
	return h.reg.Detach(h.topicName, topic.KindHub)
}
