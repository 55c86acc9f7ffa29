package grpc

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
)

const healthInterval = time.Second

// DaemonServer serves the simulation service and the standard health
// service on a unix socket
type DaemonServer struct {
	ctrl       *simulation.Controller
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	logger     common.Logger
}

// NewDaemonServer listens on socketPath, replacing a stale socket file
func NewDaemonServer(ctrl *simulation.Controller, socketPath string, logger common.Logger) (*DaemonServer, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	// Remove existing socket file if present
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create unix socket listener: %w", err)
	}

	// Owner only
	if err := os.Chmod(socketPath, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}

	return NewDaemonServerWithListener(ctrl, listener, logger), nil
}

// NewDaemonServerWithListener serves on an existing listener
func NewDaemonServerWithListener(ctrl *simulation.Controller, listener net.Listener, logger common.Logger) *DaemonServer {
	s := &DaemonServer{
		ctrl:       ctrl,
		listener:   listener,
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
		logger:     common.OrNoOp(logger),
	}
	RegisterSimulationServer(s.grpcServer, newDaemonServiceImpl(ctrl))
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	return s
}

// Addr returns the listener address
func (s *DaemonServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve blocks until ctx is cancelled or the server fails
func (s *DaemonServer) Serve(ctx context.Context) error {
	s.logger.Log(common.LevelInfo, "Daemon server listening", map[string]interface{}{
		"address": s.listener.Addr().String(),
	})
	s.UpdateHealth()

	go s.watchHealth(ctx)

	errChan := make(chan error, 1)
	go func() {
		if err := s.grpcServer.Serve(s.listener); err != nil {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		s.logger.Log(common.LevelInfo, "Initiating graceful shutdown of gRPC server", nil)
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		return nil
	}
}

// UpdateHealth mirrors the simulation status into the health service
func (s *DaemonServer) UpdateHealth() {
	serving := healthpb.HealthCheckResponse_NOT_SERVING
	if st := s.ctrl.Status(); st.Lifecycle == shared.SessionStatusRunning {
		serving = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", serving)
	s.health.SetServingStatus(ServiceName, serving)
}

func (s *DaemonServer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.UpdateHealth()
		}
	}
}
