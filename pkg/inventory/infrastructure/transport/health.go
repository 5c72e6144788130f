package transport

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	pingTimeout           = 2 * time.Second
	defaultHealthInterval = 10 * time.Second
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthReporter publishes the store status on the standard gRPC health service.
type HealthReporter struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
}

func NewHealthReporter(pinger Pinger, interval time.Duration) *HealthReporter {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthReporter{
		server:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
	}
}

func NewGRPCServer(reporter *HealthReporter) *grpc.Server {
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, reporter.server)
	return server
}

// Check pings the store once and updates the serving status.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.PingContext(ctx); err != nil {
		log.WithError(err).Warn("store ping failed")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	return status
}

func (h *HealthReporter) Run(ctx context.Context) error {
	h.Check(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
