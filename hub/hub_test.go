package hub_test

import (
	"sync"
	"testing"

	"github.com/horus-robotics/horus/hub"
	"github.com/horus-robotics/horus/topic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *topic.Registry {
	t.Helper()
	return topic.New(t.TempDir())
}

// S2 from spec §8: Hub fan-out.
func TestSendRecvFanOut(t *testing.T) {
	reg := newRegistry(t)
	producer, err := hub.NewWithCapacity[int](reg, "telemetry", 8)
	require.NoError(t, err)
	defer producer.Detach()

	c1, err := hub.NewWithCapacity[int](reg, "telemetry", 8)
	require.NoError(t, err)
	defer c1.Detach()
	c2, err := hub.NewWithCapacity[int](reg, "telemetry", 8)
	require.NoError(t, err)
	defer c2.Detach()

	require.NoError(t, producer.Send(42, nil))

	v1, ok1 := c1.Recv(nil)
	require.True(t, ok1)
	assert.Equal(t, 42, v1)

	v2, ok2 := c2.Recv(nil)
	require.True(t, ok2)
	assert.Equal(t, 42, v2)
}

func TestAttachIDAndTopicHashAreStable(t *testing.T) {
	reg := newRegistry(t)
	h1, err := hub.NewWithCapacity[int](reg, "diag", 4)
	require.NoError(t, err)
	defer h1.Detach()
	h2, err := hub.NewWithCapacity[int](reg, "diag", 4)
	require.NoError(t, err)
	defer h2.Detach()

	assert.NotEmpty(t, h1.AttachID())
	assert.NotEqual(t, h1.AttachID(), h2.AttachID())
	assert.Equal(t, h1.TopicHash(), h2.TopicHash(), "same topic name must hash identically across attaches")
}

func TestRecvEmptyReturnsFalse(t *testing.T) {
	reg := newRegistry(t)
	h, err := hub.NewWithCapacity[int](reg, "empty", 4)
	require.NoError(t, err)
	defer h.Detach()

	_, ok := h.Recv(nil)
	assert.False(t, ok)
}

func TestNewlyAttachedDoesNotSeeHistory(t *testing.T) {
	reg := newRegistry(t)
	producer, err := hub.NewWithCapacity[int](reg, "history", 4)
	require.NoError(t, err)
	defer producer.Detach()

	require.NoError(t, producer.Send(1, nil))
	require.NoError(t, producer.Send(2, nil))

	late, err := hub.NewWithCapacity[int](reg, "history", 4)
	require.NoError(t, err)
	defer late.Detach()

	_, ok := late.Recv(nil)
	assert.False(t, ok, "a late attacher must not replay pre-attach samples")
}

func TestLappedConsumerJumpsToNewestAndCountsDrops(t *testing.T) {
	reg := newRegistry(t)
	producer, err := hub.NewWithCapacity[int](reg, "lap", 2)
	require.NoError(t, err)
	defer producer.Detach()

	consumer, err := hub.NewWithCapacity[int](reg, "lap", 2)
	require.NoError(t, err)
	defer consumer.Detach()

	for i := 0; i < 5; i++ {
		require.NoError(t, producer.Send(i, nil))
	}

	v, ok := consumer.Recv(nil)
	require.True(t, ok)
	assert.Equal(t, 4, v, "consumer should jump straight to the newest available sample after a lap")
	assert.Equal(t, uint64(4), consumer.GetMetrics().RecvFailures)
}

func TestMetricsTrackSentAndReceived(t *testing.T) {
	reg := newRegistry(t)
	producer, err := hub.NewWithCapacity[int](reg, "metrics", 8)
	require.NoError(t, err)
	defer producer.Detach()
	consumer, err := hub.NewWithCapacity[int](reg, "metrics", 8)
	require.NoError(t, err)
	defer consumer.Detach()

	require.NoError(t, producer.Send(1, nil))
	require.NoError(t, producer.Send(2, nil))
	consumer.Recv(nil)

	assert.Equal(t, uint64(2), producer.GetMetrics().MessagesSent)
	assert.Equal(t, uint64(1), consumer.GetMetrics().MessagesReceived)
}

// Spec §4.4 "Hub with N producers" / §8 Testable Property 6: concurrent
// Send calls on the same topic must never reserve the same ring slot, or
// one publish is silently overwritten and lost without being counted as
// a drop.
func TestConcurrentProducersNeverCollideOnSlot(t *testing.T) {
	reg := newRegistry(t)
	const producers = 8
	const perProducer = 50
	const total = producers * perProducer

	c, err := hub.NewWithCapacity[int](reg, "race", total)
	require.NoError(t, err)
	defer c.Detach()

	var wg sync.WaitGroup
	errs := make(chan error, producers)
	for p := 0; p < producers; p++ {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := hub.NewWithCapacity[int](reg, "race", total)
			if err != nil {
				errs <- err
				return
			}
			defer h.Detach()
			for i := 0; i < perProducer; i++ {
				if err := h.Send(p*perProducer+i, nil); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[int]bool, total)
	for {
		v, ok := c.Recv(nil)
		if !ok {
			break
		}
		seen[v] = true
	}
	assert.Len(t, seen, total, "every published value must be observed exactly once; a colliding slot reservation would silently drop one")
}

func TestConnectionStateConnectedAfterAttach(t *testing.T) {
	reg := newRegistry(t)
	h, err := hub.NewWithCapacity[int](reg, "state", 4)
	require.NoError(t, err)
	defer h.Detach()
	assert.Equal(t, hub.Connected, h.GetConnectionState())
}
