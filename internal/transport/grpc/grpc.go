// Package grpc implements the gRPC transport for voicegate.
//
// The API itself is JSON over HTTP; this transport serves the standard
// grpc.health.v1 service so gRPC-native orchestrators (Kubernetes gRPC
// health checks, service meshes) can watch the daemon. Reflection is
// registered so grpcurl works without a local proto.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/cognia-intellilearn/voicegate/internal/transport"
)

// Service names reported through the health service, next to the overall
// "" entry.
const (
	ServiceSpeech   = "voicegate.Speech"
	ServiceSessions = "voicegate.Sessions"
	ServicePublish  = "voicegate.Publish"
)

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	health *health.Server

	mu       sync.Mutex
	server   *grpc.Server
	services []string
	serving  bool
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port, health: health.NewServer()}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Health exposes the health server so callers can flip serving status.
func (t *Transport) Health() *health.Server { return t.health }

// Listen starts the gRPC server. Services report NOT_SERVING until
// SetServing(true) is called.
func (t *Transport) Listen(ctx context.Context, backend transport.Backend) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return t.Serve(ctx, lis, backend)
}

// Serve runs the gRPC server on an existing listener.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, backend transport.Backend) error {
	srv := t.newServer()
	t.mu.Lock()
	t.server = srv
	t.mu.Unlock()
	t.register(backend)

	slog.Info("grpc transport listening", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		srv.GracefulStop()
	}()

	return srv.Serve(lis)
}

// SetServing flips every registered service between SERVING and NOT_SERVING.
// It may be called before Serve; the state is applied on registration.
func (t *Transport) SetServing(serving bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.serving = serving
	t.apply()
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.mu.Lock()
	srv := t.server
	t.mu.Unlock()

	if srv != nil {
		t.health.Shutdown()
		srv.GracefulStop()
	}
	return nil
}

func (t *Transport) newServer() *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, t.health)
	reflection.Register(s)
	return s
}

// register records which services the backend provides.
func (t *Transport) register(backend transport.Backend) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.services = []string{""}
	if backend.Speech != nil {
		t.services = append(t.services, ServiceSpeech)
		if backend.Speech.CanPublish() {
			t.services = append(t.services, ServicePublish)
		}
	}
	if backend.Sessions != nil {
		t.services = append(t.services, ServiceSessions)
	}
	t.apply()
}

// apply pushes the current serving state to the health server. Callers hold mu.
func (t *Transport) apply() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if t.serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	for _, svc := range t.services {
		t.health.SetServingStatus(svc, status)
	}
}
