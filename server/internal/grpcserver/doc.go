// Package grpcserver runs the optional gRPC listener of partcast-server.
//
// The listener exposes the standard grpc.health.v1.Health service so
// orchestrators can probe the server with grpc_health_probe or any health
// client. Calls pass through the API key interceptor from package auth.
// The overall status is SERVING while Serve runs and NOT_SERVING once
// shutdown begins.
package grpcserver
