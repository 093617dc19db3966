package telemetry_test

import (
	"testing"

	"github.com/horus-robotics/horus/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestExporterCollectsRegisteredHub(t *testing.T) {
	e := telemetry.New()
	e.RegisterHub("t_pubsub", func() telemetry.HubSnapshot {
		return telemetry.HubSnapshot{MessagesSent: 10, MessagesReceived: 7, SendFailures: 0, RecvFailures: 2}
	})

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(e))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestExporterCollectsRegisteredNode(t *testing.T) {
	e := telemetry.New()
	e.RegisterNode("controller", func() telemetry.NodeSnapshot {
		return telemetry.NodeSnapshot{TickCount: 100, TickNanos: 5_000_000, IPCCount: 50, IPCNanos: 1_000_000}
	})

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(e))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}
