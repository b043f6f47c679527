package healthrpc

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/banshee-data/compositor/internal/compositor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		snap compositor.Snapshot
		want healthpb.HealthCheckResponse_ServingStatus
	}{
		{"new", compositor.Snapshot{}, healthpb.HealthCheckResponse_NOT_SERVING},
		{"running", compositor.Snapshot{Initialized: true}, healthpb.HealthCheckResponse_SERVING},
		{"running with decode error", compositor.Snapshot{Initialized: true, LastError: "x"}, healthpb.HealthCheckResponse_SERVING},
		{"finalized", compositor.Snapshot{Finalized: true}, healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.snap))
		})
	}
}

func TestUpdate(t *testing.T) {
	var snap atomic.Pointer[compositor.Snapshot]
	snap.Store(&compositor.Snapshot{})
	s := NewServer(Config{}, func() compositor.Snapshot { return *snap.Load() })

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := s.Health().Check(context.Background(), &healthpb.HealthCheckRequest{Service: Service})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())

	snap.Store(&compositor.Snapshot{Initialized: true})
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, s.Update())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check())

	snap.Store(&compositor.Snapshot{Finalized: true})
	s.Update()
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())
}

func TestServer_StartStop(t *testing.T) {
	s := NewServer(Config{ListenAddr: "127.0.0.1:0", PollInterval: 10 * time.Millisecond}, func() compositor.Snapshot {
		return compositor.Snapshot{Initialized: true}
	})
	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second start")

	conn, err := grpc.NewClient(s.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: Service})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	s.Stop()
	s.Stop()
}
