package shm_test

import (
	"testing"
	"unsafe"

	"github.com/horus-robotics/horus/shm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	A int64
	B float64
}

func openTestRing(t *testing.T, capacity int) *shm.Ring[sample] {
	t.Helper()
	dir := t.TempDir()
	region, created, err := shm.OpenOrCreate(dir, "test-ring", capacity, int(unsafe.Sizeof(sample{})))
	require.NoError(t, err)
	require.True(t, created)
	t.Cleanup(func() { region.Close() })
	return shm.NewRing[sample](region)
}

func TestLoanPublishReadAt(t *testing.T) {
	r := openTestRing(t, 4)
	loan := r.Loan()
	seq := loan.Seq()
	loan.Publish(sample{A: 1, B: 2.5})

	assert.Equal(t, seq+1, r.StampAt(seq))
	assert.Equal(t, sample{A: 1, B: 2.5}, r.ReadAt(seq))
	assert.Equal(t, seq+1, r.ProducerSeq())
}

func TestAbandonLeavesSlotUntouched(t *testing.T) {
	r := openTestRing(t, 4)
	first := r.Loan()
	first.Publish(sample{A: 7})

	second := r.Loan()
	second.Abandon()

	assert.Equal(t, uint64(1), r.ProducerSeq(), "abandon must not advance the producer sequence")
	assert.Equal(t, sample{A: 7}, r.ReadAt(0))
}

func TestPublishAfterDoneIsNoOp(t *testing.T) {
	r := openTestRing(t, 4)
	loan := r.Loan()
	loan.Publish(sample{A: 1})
	loan.Publish(sample{A: 999})
	assert.Equal(t, sample{A: 1}, r.ReadAt(0))
}

func TestNeverWrittenStampIsZero(t *testing.T) {
	r := openTestRing(t, 4)
	assert.Equal(t, uint64(0), r.StampAt(0))
}

func TestWrapAroundOverwritesSlot(t *testing.T) {
	r := openTestRing(t, 2)
	for i := 0; i < 5; i++ {
		loan := r.Loan()
		loan.Publish(sample{A: int64(i)})
	}
	// slot 0 (mod 2) was last written by sequence 4.
	assert.Equal(t, sample{A: 4}, r.ReadAt(4))
}

func TestConsumerSeqHandshake(t *testing.T) {
	r := openTestRing(t, 8)
	assert.Equal(t, uint64(0), r.ConsumerSeq())
	r.AdvanceConsumer(3)
	assert.Equal(t, uint64(4), r.ConsumerSeq())
}

func TestReopenExistingRegionValidatesLayout(t *testing.T) {
	dir := t.TempDir()
	region1, created, err := shm.OpenOrCreate(dir, "shared", 4, int(unsafe.Sizeof(sample{})))
	require.NoError(t, err)
	require.True(t, created)
	defer region1.Close()

	region2, created2, err := shm.OpenOrCreate(dir, "shared", 4, int(unsafe.Sizeof(sample{})))
	require.NoError(t, err)
	require.False(t, created2)
	defer region2.Close()

	ring1 := shm.NewRing[sample](region1)
	ring2 := shm.NewRing[sample](region2)
	ring1.Loan().Publish(sample{A: 42})
	assert.Equal(t, sample{A: 42}, ring2.ReadAt(0))
}

func TestOpenRejectsSlashInName(t *testing.T) {
	dir := t.TempDir()
	_, _, err := shm.OpenOrCreate(dir, "bad/name", 4, 8)
	assert.Error(t, err)
}

func TestOpenRejectsNonPositiveCapacity(t *testing.T) {
	dir := t.TempDir()
	_, _, err := shm.OpenOrCreate(dir, "cap", 0, 8)
	assert.Error(t, err)
}
