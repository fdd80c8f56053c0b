package health

import (
	"context"
	"net"

	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server exposes the standard gRPC health service for the accounts API.
// It starts NOT_SERVING and is flipped to SERVING once the HTTP API is up.
type Server struct {
	grpc   *grpc.Server
	health *grpchealth.Server
}

// NewServer creates a health server with the overall status set to NOT_SERVING.
func NewServer(opts ...grpc.ServerOption) *Server {
	s := &Server{
		grpc:   grpc.NewServer(opts...),
		health: grpchealth.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetServing switches the overall status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Serve blocks serving health checks on lis.
func (s *Server) Serve(lis net.Listener) error {
	logger.Log.Infow("gRPC health server listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Stop reports NOT_SERVING and stops gracefully, forcing the stop when ctx
// expires first.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Log.Warnw("gRPC health server forced to stop", "error", ctx.Err())
		s.grpc.Stop()
	}
}
