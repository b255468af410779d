// Package grpcapi serves the standard gRPC health service for load
// balancers and orchestrators.
package grpcapi

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health entry for the extraction service. The empty
// name reports the same status.
const ServiceName = "timeclock.Extractor"

type Dependencies struct {
	Logger *zap.Logger
	Addr   string
	// Ready is probed every Interval; an error flips the status to
	// NOT_SERVING.
	Ready    func(ctx context.Context) error
	Interval time.Duration
}

type Server struct {
	logger   *zap.Logger
	addr     string
	ready    func(ctx context.Context) error
	interval time.Duration

	grpc   *grpc.Server
	health *health.Server

	stopOnce sync.Once
	stop     chan struct{}
}

func NewServer(d Dependencies) *Server {
	if d.Interval <= 0 {
		d.Interval = 15 * time.Second
	}
	s := &Server{
		logger:   d.Logger,
		addr:     d.Addr,
		ready:    d.Ready,
		interval: d.Interval,
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		stop:     make(chan struct{}),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

// Health exposes the health service for in-process checks.
func (s *Server) Health() healthpb.HealthServer { return s.health }

// Probe runs the readiness check once and records the result.
func (s *Server) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("readiness probe failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Serve listens on Addr and blocks until Stop.
func (s *Server) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.Probe(ctx)
	go s.watch(ctx)
	return s.grpc.Serve(lis)
}

func (s *Server) watch(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-t.C:
			probeCtx, cancel := context.WithTimeout(ctx, s.interval)
			s.Probe(probeCtx)
			cancel()
		}
	}
}

// Stop marks every service NOT_SERVING and drains open RPCs.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.health.Shutdown()
		s.grpc.GracefulStop()
	})
}
