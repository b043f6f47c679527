// Package healthrpc serves the standard gRPC health protocol for a running
// compositor. The "compositor" service reports SERVING between a
// successful Initialize and Finalize.
package healthrpc

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/compositor/internal/compositor"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the health service name clients query.
const Service = "compositor"

// Config configures the health endpoint.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "localhost:50052")
	ListenAddr string
	// PollInterval is how often the snapshot source is sampled.
	PollInterval time.Duration
}

// DefaultConfig returns the default health endpoint configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   "localhost:50052",
		PollInterval: time.Second,
	}
}

// Server publishes compositor health over gRPC.
type Server struct {
	config Config
	source func() compositor.Snapshot
	health *health.Server

	server   *grpc.Server
	listener net.Listener
	running  atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer creates a health server that samples source. Both the
// overall ("") and the compositor service start NOT_SERVING.
func NewServer(cfg Config, source func() compositor.Snapshot) *Server {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{config: cfg, source: source, health: hs}
}

// StatusFor maps a snapshot to a health status.
func StatusFor(snap compositor.Snapshot) healthpb.HealthCheckResponse_ServingStatus {
	if snap.Initialized && !snap.Finalized {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Update samples the source once and publishes the result.
func (s *Server) Update() healthpb.HealthCheckResponse_ServingStatus {
	st := StatusFor(s.source())
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(Service, st)
	return st
}

// Health returns the underlying health service, for registration on an
// existing gRPC server or direct checks.
func (s *Server) Health() healthpb.HealthServer { return s.health }

// Start binds the listener, serves the health service and begins polling.
func (s *Server) Start() error {
	if s.running.Load() {
		return fmt.Errorf("health server already running")
	}
	lis, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}
	s.listener = lis
	s.server = grpc.NewServer()
	healthpb.RegisterHealthServer(s.server, s.health)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running.Store(true)
	s.Update()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		log.Printf("[health] gRPC health listening on %s", lis.Addr())
		if err := s.server.Serve(lis); err != nil && s.running.Load() {
			log.Printf("[health] serve error: %v", err)
		}
	}()
	go func() {
		defer s.wg.Done()
		s.poll(ctx)
	}()
	return nil
}

func (s *Server) poll(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Update()
		}
	}
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop marks every service NOT_SERVING and shuts the server down.
func (s *Server) Stop() {
	if !s.running.Swap(false) {
		return
	}
	s.cancel()
	s.health.Shutdown()
	s.server.GracefulStop()
	s.wg.Wait()
}
