package grpc

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported through the gRPC health service.
const ServiceName = "phonoecho.v1.CoachingService"

// Checker reports failing dependencies by name.
type Checker interface {
	Check(ctx context.Context) map[string]string
}

// Handler keeps the gRPC health service in step with the readiness checks.
type Handler struct {
	log     zerolog.Logger
	health  *health.Server
	checker Checker
}

// NewHandler creates a new gRPC health handler.
func NewHandler(log zerolog.Logger, checker Checker) *Handler {
	return &Handler{
		log:     log,
		health:  health.NewServer(),
		checker: checker,
	}
}

// HealthServer returns the server to register on a grpc.Server.
func (h *Handler) HealthServer() *health.Server {
	return h.health
}

// Refresh runs the checks once and updates the serving status of both the
// overall ("") and the coaching service entries.
func (h *Handler) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if failures := h.checker.Check(ctx); len(failures) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		h.log.Warn().Interface("failures", failures).Msg("Readiness checks failing")
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch refreshes the status every interval until ctx is done, then marks
// everything NOT_SERVING.
func (h *Handler) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			h.Refresh(checkCtx)
			cancel()
		}
	}
}
