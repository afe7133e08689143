// Package grpc serves the standard gRPC health-checking protocol, reporting
// whether the database and object storage are reachable.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Probe checks one dependency.
type Probe func(ctx context.Context) error

type GRPCServer struct {
	address  string
	logger   logging.Logger
	health   *health.Server
	probes   map[string]Probe
	interval time.Duration
}

// NewGRPCServer builds a health server. probes is keyed by service name as
// clients pass it in HealthCheckRequest.Service; the empty name reports
// the aggregate.
func NewGRPCServer(a string, l logging.Logger, probes map[string]Probe, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		health:   health.NewServer(),
		probes:   probes,
		interval: interval,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoveryInterceptor, s.loggingInterceptor))

	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)

	s.checkOnce(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
