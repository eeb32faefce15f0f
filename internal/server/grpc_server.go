package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/hwreports/internal/config"
)

// NewGRPCServer builds a gRPC server with logging and viewer resolution on
// every call, and registers all provided services.
func NewGRPCServer(log *slog.Logger, sessions SessionVerifier, registrars ...Registrar) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryInterceptor(log, sessions)),
		grpc.ChainStreamInterceptor(StreamInterceptor(log, sessions)),
	)

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return grpcServer
}

// StartGRPCServer listens on the configured address and serves grpcServer
// until it is stopped.
func StartGRPCServer(cfg *config.Config, grpcServer *grpc.Server) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return grpcServer.Serve(lis)
}

// StopGRPCServer drains in-flight calls until ctx is done, then closes
// whatever is still open. Long-lived streams such as an edit window
// countdown would otherwise hold shutdown. It reports whether the drain
// finished in time.
func StopGRPCServer(ctx context.Context, grpcServer *grpc.Server) bool {
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return true
	case <-ctx.Done():
		grpcServer.Stop()
		<-stopped
		return false
	}
}
