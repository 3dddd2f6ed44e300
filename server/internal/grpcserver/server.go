package grpcserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall ("")
// status.
const ServiceName = "partcast.v1.Projections"

// Server wraps a grpc.Server carrying the health service.
type Server struct {
	srv    *grpc.Server
	health *health.Server
}

// New creates a Server whose unary calls pass through interceptor.
func New(interceptor grpc.UnaryServerInterceptor) *Server {
	s := &Server{
		srv:    grpc.NewServer(grpc.UnaryInterceptor(interceptor)),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// ListenAndServe listens on port and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("grpcserver: listen on %d: %w", port, err)
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is cancelled, then marks the
// server NOT_SERVING and stops gracefully. It returns nil after a clean stop.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("grpcserver: listening", "addr", lis.Addr().String())
		errCh <- s.srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		s.health.Shutdown()
		if err != nil {
			return fmt.Errorf("grpcserver: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.health.Shutdown()
		s.srv.GracefulStop()
		<-errCh
		slog.Info("grpcserver: stopped")
		return nil
	}
}
