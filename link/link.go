// Package link is the single-producer/single-consumer facade over a
// shm.Ring (spec §4.5): strict FIFO between exactly one Producer and one
// Consumer handle per topic, non-blocking Send/Recv, drop-on-full on the
// producer side.
//
// Grounded on the same shm.Ring as package hub, but exercising its
// ConsumerSeq handshake that Hub never touches — the protocol the
// teacher's transport/bundle package uses for its own bounded send queue,
// generalized here to the ring's sequence-counter primitives.
package link

import (
	"unsafe"

	"github.com/horus-robotics/horus/internal/cos"
	"github.com/horus-robotics/horus/shm"
	"github.com/horus-robotics/horus/topic"
)

// DefaultCapacity is the default ring size for a Link.
const DefaultCapacity = 256

// Producer is the single writer handle for a Link topic. Per spec §4.5
// the runtime must enforce at most one Producer and one Consumer per
// topic; this package does not itself detect a second Producer attach
// (doing so race-free would need a global handshake the spec explicitly
// does not require — "violation is a configuration error, not required
// to be race-detected").
type Producer[T any] struct {
	topicName string
	attachID  string
	reg       *topic.Registry
	ring      *shm.Ring[T]
}

// Consumer is the single reader handle for a Link topic.
type Consumer[T any] struct {
	topicName string
	attachID  string
	reg       *topic.Registry
	ring      *shm.Ring[T]
	cursor    uint64
}

// NewProducer attaches a Producer to topicName with DefaultCapacity.
func NewProducer[T any](reg *topic.Registry, topicName string) (*Producer[T], error) {
	return NewProducerWithCapacity[T](reg, topicName, DefaultCapacity)
}

// NewProducerWithCapacity attaches a Producer with an explicit capacity;
// the first local attacher sets the topic's capacity, and a later attach
// requesting a different capacity fails.
func NewProducerWithCapacity[T any](reg *topic.Registry, topicName string, capacity int) (*Producer[T], error) {
	var zero T
	region, err := reg.Attach(topicName, topic.KindLink, capacity, int(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	return &Producer[T]{topicName: topicName, attachID: cos.GenAttachID(), reg: reg, ring: shm.NewRing[T](region)}, nil
}

// NewConsumer attaches a Consumer to topicName with DefaultCapacity.
func NewConsumer[T any](reg *topic.Registry, topicName string) (*Consumer[T], error) {
	return NewConsumerWithCapacity[T](reg, topicName, DefaultCapacity)
}

// NewConsumerWithCapacity attaches a Consumer with an explicit capacity.
func NewConsumerWithCapacity[T any](reg *topic.Registry, topicName string, capacity int) (*Consumer[T], error) {
	var zero T
	region, err := reg.Attach(topicName, topic.KindLink, capacity, int(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	ring := shm.NewRing[T](region)
	return &Consumer[T]{topicName: topicName, attachID: cos.GenAttachID(), reg: reg, ring: ring, cursor: ring.ConsumerSeq()}, nil
}

// Send publishes msg if the ring is not full, or returns a CapacityError
// and drops msg otherwise (spec §4.3 "full: send returns Err(T)").
func (p *Producer[T]) Send(msg T) error {
	producerSeq := p.ring.ProducerSeq()
	consumerSeq := p.ring.ConsumerSeq()
	if producerSeq-consumerSeq >= p.ring.Capacity() {
		return cos.NewCapacityError(p.topicName)
	}
	p.ring.Loan().Publish(msg)
	return nil
}

// Recv returns the next unread sample in strict FIFO order, or (zero,
// false) when the ring is empty or the next slot is reserved but its
// Publish hasn't become visible yet (the reservation/publish window a
// concurrent Loan can momentarily open).
func (c *Consumer[T]) Recv() (T, bool) {
	var zero T
	producerSeq := c.ring.ProducerSeq()
	if c.cursor >= producerSeq {
		return zero, false
	}
	if c.ring.StampAt(c.cursor) != c.cursor+1 {
		return zero, false
	}
	msg := c.ring.ReadAt(c.cursor)
	c.ring.AdvanceConsumer(c.cursor)
	c.cursor++
	return msg, true
}

// Len reports the number of unread samples currently buffered.
func (c *Consumer[T]) Len() uint64 { return c.ring.ProducerSeq() - c.cursor }

// AttachID identifies this particular Producer/Consumer attach for
// diagnostics and trace correlation.
func (p *Producer[T]) AttachID() string { return p.attachID }
func (c *Consumer[T]) AttachID() string { return c.attachID }

// TopicHash is a stable xxhash digest of the topic name, used the same
// way as hub.Hub's TopicHash: a compact diagnostic correlation key.
func (p *Producer[T]) TopicHash() uint64 { return cos.TopicHash(p.topicName) }
func (c *Consumer[T]) TopicHash() uint64 { return cos.TopicHash(c.topicName) }

// Detach releases this handle's hold on the shared region.
func (p *Producer[T]) Detach() error { return p.reg.Detach(p.topicName, topic.KindLink) }
func (c *Consumer[T]) Detach() error { return c.reg.Detach(c.topicName, topic.KindLink) }
