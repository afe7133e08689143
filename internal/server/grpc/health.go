package grpc

import (
	"context"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const probeTimeout = 5 * time.Second

// checkOnce runs every probe and publishes the results. The aggregate ""
// service is SERVING only when all probes pass.
func (s *GRPCServer) checkOnce(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING

	for name, probe := range s.probes {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := probe(pctx)
		cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = st
			s.logger.Warn(ctx, "health probe failed", "service", name, "error", err)
		}
		s.health.SetServingStatus(name, st)
	}

	s.health.SetServingStatus("", overall)
}

func (s *GRPCServer) watch(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.checkOnce(ctx)
		}
	}
}
