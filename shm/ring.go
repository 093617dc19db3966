package shm

import (
	"sync/atomic"
	"unsafe"

	"github.com/horus-robotics/horus/internal/debug"
)

// Ring is the typed view over a Region's slot array: N slots of sizeof(T),
// each preceded by an 8-byte stamp, following the fixed header. T must be
// a trivially-copyable value (no pointers into process-private memory);
// that invariant is the caller's responsibility, same as the original's
// POD constraint on its message type.
type Ring[T any] struct {
	region *Region
}

// NewRing wraps region for element type T. The caller must have created
// region with slotSize == sizeof(T); mismatches corrupt neighboring slots
// silently, so the hub and link packages derive slotSize from T itself
// before attaching the region through topic.Registry.
func NewRing[T any](region *Region) *Ring[T] {
	return &Ring[T]{region: region}
}

func (r *Ring[T]) Capacity() uint64 { return r.region.capacity }

func (r *Ring[T]) stampPtr(idx uint64) *uint64 {
	off := r.region.slotOffset(idx)
	return (*uint64)(unsafe.Pointer(&r.region.data[off]))
}

func (r *Ring[T]) valuePtr(idx uint64) *T {
	off := r.region.slotOffset(idx) + stampSize
	return (*T)(unsafe.Pointer(&r.region.data[off]))
}

// ProducerSeq is the next sequence number to be assigned by Loan.
func (r *Ring[T]) ProducerSeq() uint64 {
	return atomic.LoadUint64(&r.region.header().ProducerSeq)
}

// ConsumerSeq is the Link consumer's published read position. Hub readers
// never touch this field; they track their cursor client-side.
func (r *Ring[T]) ConsumerSeq() uint64 {
	return atomic.LoadUint64(&r.region.header().ConsumerSeq)
}

// StampAt returns the stamp recorded at slot (idx mod N): 0 if the slot
// has never been published, otherwise seq+1 for the producer sequence
// that last wrote it. The +1 offset reserves 0 to mean "never written" so
// a freshly mapped region reads as empty without a separate init pass.
func (r *Ring[T]) StampAt(idx uint64) uint64 {
	return atomic.LoadUint64(r.stampPtr(idx))
}

// ReadAt copies the value currently stored in slot (idx mod N). Callers
// must validate StampAt first; reading before publish returns undefined
// (pre-existing or zero) content, same as the original's stamp protocol.
func (r *Ring[T]) ReadAt(idx uint64) T {
	return *r.valuePtr(idx)
}

// AdvanceConsumer publishes that slots up to and including c have been
// consumed, freeing them for the producer to reuse. Only Link's strict
// SPSC protocol calls this; Hub has no single consumer to hand back to.
func (r *Ring[T]) AdvanceConsumer(c uint64) {
	debug.Assertf(c < r.ProducerSeq(), "acking consumer seq %d at or past producer seq %d", c, r.ProducerSeq())
	atomic.StoreUint64(&r.region.header().ConsumerSeq, c+1)
}

// Loan is a scoped reservation of the next producer slot (spec §3 "Sample
// loan"). It uniquely owns that slot until Publish or Abandon is called.
// Go has no destructors, so letting a Loan go out of scope without either
// leaves its producer-sequence reservation in place with the slot
// unstamped; readers then treat that sequence as not yet available. Call
// one explicitly, typically via a deferred Abandon guarded by a
// "published" flag.
type Loan[T any] struct {
	ring *Ring[T]
	seq  uint64
	done bool
}

// Loan reserves the next producer slot for writing by fetch-adding the
// producer sequence, so two concurrent Loan calls (spec §4.4 Hub with N
// producers) always receive distinct sequence numbers and can never write
// the same slot at once. The reservation does not block or fail: the
// caller owns slot (seq mod N) regardless of whether a slower consumer
// has fallen behind; overwriting unread data is the newest-wins behavior
// Hub relies on.
func (r *Ring[T]) Loan() *Loan[T] {
	seq := atomic.AddUint64(&r.region.header().ProducerSeq, 1) - 1
	return &Loan[T]{ring: r, seq: seq}
}

// Seq is the producer sequence this loan will publish at.
func (l *Loan[T]) Seq() uint64 { return l.seq }

// Value returns a pointer into the loaned slot for in-place writes,
// avoiding an extra copy for large T.
func (l *Loan[T]) Value() *T { return l.ring.valuePtr(l.seq) }

// Publish writes v into the loaned slot and stamps it with a store that
// has release semantics relative to the preceding slot write — a
// consumer that observes the new stamp is guaranteed to observe v (spec
// §4.3 "Publish advances producer sequence ... with release ordering").
// The producer sequence itself was already advanced by Loan, so a reader
// that raced ahead of this stamp (possible between two concurrent
// producers' Loan and Publish calls) sees a stale stamp at this slot and
// correctly treats it as not-yet-available rather than reading a torn
// write. Publishing a loan twice, or after Abandon, is a no-op.
func (l *Loan[T]) Publish(v T) {
	if l.done {
		return
	}
	*l.ring.valuePtr(l.seq) = v
	atomic.StoreUint64(l.ring.stampPtr(l.seq), l.seq+1)
	l.done = true
}

// Abandon releases the loan without publishing. The slot's previous
// content and stamp are untouched, so it is exactly as if Publish never
// happened (spec §3 "dropping a loan without a completed write abandons
// the slot"). It also gives back the producer-sequence reservation Loan
// made, provided no later Loan has since advanced past it — the common
// case, since Abandon is meant to be called right after Loan with no
// intervening producer activity.
func (l *Loan[T]) Abandon() {
	if l.done {
		return
	}
	atomic.CompareAndSwapUint64(&l.ring.region.header().ProducerSeq, l.seq+1, l.seq)
	l.done = true
}

// Done reports whether Publish or Abandon has already been called.
func (l *Loan[T]) Done() bool { return l.done }
