package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServiceName is the service name reported by the gRPC health service.
const HealthServiceName = "beer-orders"

// Pinger is a storage dependency the health service probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GRPCHandler serves grpc.health.v1.Health. The service is SERVING while every
// probe succeeds.
type GRPCHandler struct {
	health   *health.Server
	probes   map[string]Pinger
	interval time.Duration
	log      *zap.Logger
}

func NewGRPCHandler(probes map[string]Pinger, interval time.Duration, log *zap.Logger) *GRPCHandler {
	h := &GRPCHandler{
		health:   health.NewServer(),
		probes:   probes,
		interval: interval,
		log:      log,
	}
	h.health.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register attaches the health and reflection services to s.
func (h *GRPCHandler) Register(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, h.health)
	reflection.Register(s)
}

// Probe runs every probe once, updates the reported status and returns it.
func (h *GRPCHandler) Probe(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	for name, p := range h.probes {
		probeCtx, cancel := context.WithTimeout(ctx, h.interval)
		err := p.Ping(probeCtx)
		cancel()
		if err != nil {
			h.log.Warn("health probe failed", zap.String("dependency", name), zap.Error(err))
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}

	h.health.SetServingStatus(HealthServiceName, status)
	h.health.SetServingStatus("", status)
	return status
}

// Run probes immediately and then every interval until ctx is done.
func (h *GRPCHandler) Run(ctx context.Context) {
	h.Probe(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}

// Shutdown reports NOT_SERVING for every service and ignores later probes.
func (h *GRPCHandler) Shutdown() {
	h.health.Shutdown()
}
