package grpc

import (
	"context"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/tair/smart-inventory/pkg/logger"
)

// ServiceName is the health service name reported for the ledger.
const ServiceName = "inventory.Ledger"

// Pinger checks the backing store. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthServer exposes grpc.health.v1 for the ledger and keeps the serving
// status in line with database reachability.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	db     Pinger
}

// NewHealthServer builds the gRPC server. db may be nil, in which case the
// service always reports SERVING.
func NewHealthServer(db Pinger, metrics *Metrics) *HealthServer {
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor,
			metrics.UnaryInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)

	s := &HealthServer{server: grpcServer, health: hs, db: db}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	return s
}

// Check pings the database once and updates the serving status.
func (s *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(pingCtx); err != nil {
			logger.Warn(ctx).Err(err).Msg("Database ping failed, reporting NOT_SERVING")
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.setStatus(status)
	return status
}

// Watch re-checks health every interval until ctx is done.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

func (s *HealthServer) Serve(lis net.Listener) error {
	logger.Logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server started")
	return s.server.Serve(lis)
}

// GracefulStop marks the service NOT_SERVING and drains in-flight calls.
func (s *HealthServer) GracefulStop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func (s *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
