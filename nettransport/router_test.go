package nettransport_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/horus-robotics/horus/nettransport"
	"github.com/horus-robotics/horus/reconnect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routerSample struct {
	Seq int64
}

func TestRouterClientServerRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var received []routerSample

	srv, err := nettransport.NewRouterServer[routerSample]("127.0.0.1:0", "t_router", nil,
		func(msg routerSample) error {
			mu.Lock()
			received = append(received, msg)
			mu.Unlock()
			return nil
		}, nil)
	require.NoError(t, err)
	defer srv.Close()

	addr := srv.Addr()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	client, err := nettransport.DialRouter[routerSample](addr, "t_router", nil, reconnect.Testing(), nil)
	require.NoError(t, err)
	defer client.Close()
	assert.NotEmpty(t, client.AttachID())

	for i := int64(0); i < 5; i++ {
		require.NoError(t, client.Send(routerSample{Seq: i}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 5
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, m := range received {
		assert.Equal(t, int64(i), m.Seq)
	}
}

func TestRouterClientHealthStartsConnected(t *testing.T) {
	srv, err := nettransport.NewRouterServer[routerSample]("127.0.0.1:0", "t_router_health", nil,
		func(routerSample) error { return nil }, nil)
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	client, err := nettransport.DialRouter[routerSample](srv.Addr(), "t_router_health", nil, reconnect.Testing(), nil)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, reconnect.HealthConnected, client.Health())
}
