// Package grpchealth exposes the standard gRPC health checking service so
// orchestrators can probe services over gRPC as well as HTTP.
package grpchealth

import (
	"context"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	GRPC   *grpc.Server
	health *health.Server
	addr   string
	log    *zap.Logger
}

// New registers the health service for the given service name.
func New(addr, service string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
	return &Server{GRPC: gs, health: hs, addr: addr, log: log}
}

// SetServing flips the overall and per-service status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.log.Info("grpc health server starting", zap.String("addr", s.addr))
	return s.GRPC.Serve(lis)
}

// Shutdown marks the service not serving and stops gracefully, forcing a stop
// when ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.GRPC.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.GRPC.Stop()
		return ctx.Err()
	}
}
