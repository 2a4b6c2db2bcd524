package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"carrental-backend/internal/api/grpc/interceptor"
	"carrental-backend/internal/logger"
)

// ServiceName is the health-check service name reported next to the
// server-wide "" entry.
const ServiceName = "carrental.Backend"

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsServer is the operational gRPC endpoint: grpc.health.v1 backed by a
// periodic database ping, plus server reflection for grpcurl.
type OpsServer struct {
	server   *grpc.Server
	health   *health.Server
	db       Pinger
	interval time.Duration
}

func NewOpsServer(db Pinger, interval time.Duration) *OpsServer {
	logging := interceptor.NewLoggingInterceptor(
		healthpb.Health_Check_FullMethodName,
		healthpb.Health_Watch_FullMethodName,
	)
	s := grpc.NewServer(
		grpc.UnaryInterceptor(logging.Unary()),
		grpc.StreamInterceptor(logging.Stream()),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	return &OpsServer{server: s, health: hs, db: db, interval: interval}
}

// CheckOnce pings the database and publishes the result.
func (o *OpsServer) CheckOnce(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := o.db.Ping(ctx); err != nil {
		logger.Warn("Database ping failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	o.health.SetServingStatus("", st)
	o.health.SetServingStatus(ServiceName, st)
	return st
}

// Watch re-checks the database every interval until ctx is done.
func (o *OpsServer) Watch(ctx context.Context) {
	o.CheckOnce(ctx)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.CheckOnce(ctx)
		}
	}
}

func (o *OpsServer) Serve(lis net.Listener) error {
	return o.server.Serve(lis)
}

// GracefulStop flips every status to NOT_SERVING and drains in-flight calls.
func (o *OpsServer) GracefulStop() {
	o.health.Shutdown()
	o.server.GracefulStop()
}
