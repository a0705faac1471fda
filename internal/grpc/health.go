package grpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const ServiceName = "storefront"

// Pinger is any dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthMonitor pings dependencies on an interval and mirrors the result
// into the gRPC health service, both for the server as a whole ("") and for
// ServiceName.
type HealthMonitor struct {
	server   *health.Server
	checks   map[string]Pinger
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

func NewHealthMonitor(server *health.Server, checks map[string]Pinger, log *zap.Logger) *HealthMonitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &HealthMonitor{
		server:   server,
		checks:   checks,
		interval: 5 * time.Second,
		timeout:  2 * time.Second,
		log:      log.Named("health"),
	}
}

// Check pings every dependency and returns the failures joined together.
func (m *HealthMonitor) Check(ctx context.Context) error {
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		ctx, cancel := context.WithTimeout(ctx, m.timeout)
		err := m.checks[name].Ping(ctx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Refresh runs Check once and publishes the resulting status.
func (m *HealthMonitor) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := m.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		m.log.Warn("health check failed", zap.Error(err))
	}
	m.server.SetServingStatus("", status)
	m.server.SetServingStatus(ServiceName, status)
}

// Run refreshes until ctx is done, then marks everything NOT_SERVING.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.Refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Refresh(ctx)
		case <-ctx.Done():
			m.server.Shutdown()
			return
		}
	}
}

// NewServer returns a gRPC server with the health service and reflection
// registered.
func NewServer(healthServer *health.Server) *grpc.Server {
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)
	return grpcServer
}
