package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	daemongrpc "github.com/andrescamacho/pharmasim-go/internal/adapters/grpc"
	"github.com/andrescamacho/pharmasim-go/internal/adapters/httpapi"
	"github.com/andrescamacho/pharmasim-go/internal/adapters/logging"
	"github.com/andrescamacho/pharmasim-go/internal/adapters/metrics"
	"github.com/andrescamacho/pharmasim-go/internal/adapters/persistence"
	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/database"
	"github.com/andrescamacho/pharmasim-go/pkg/utils"
)

// RunDaemon hosts one simulation session until ctx is cancelled or one of
// its servers fails. It serves the gRPC control socket and the HTTP surface.
func RunDaemon(ctx context.Context, cfg *config.Config) error {
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return runWithDB(ctx, cfg, db)
}

func runWithDB(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	logRepo := persistence.NewGormSimulationLogRepository(db, nil)
	snapshots := persistence.NewGormSnapshotRepository(db)

	sessionID, err := resolveSessionID(ctx, cfg, snapshots)
	if err != nil {
		return err
	}
	cfg.Simulation.SessionID = sessionID

	console, err := logging.NewConsoleLoggerFromConfig(cfg.Logging)
	if err != nil {
		return err
	}
	defer console.Close()

	var persistent *logging.PersistentLogger
	if cfg.Logging.Persist {
		persistent = logging.NewPersistentLogger(logRepo, sessionID, cfg.Logging.PersistLevel)
		defer persistent.Flush()
	}
	var logger common.Logger = logging.NewFanout(console, loggerOrNil(persistent))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	engine, err := NewEngine(runCtx, cfg, Options{Logger: logger, Snapshots: snapshots})
	if err != nil {
		return err
	}
	ctrl := simulation.NewController(engine.Runner)
	api := httpapi.NewServer(ctrl)
	api.SetLogRepository(logRepo)

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		simMetrics := metrics.NewSimulationMetricsCollector(engine.Runner.Status)
		if err := simMetrics.Register(); err != nil {
			return fmt.Errorf("failed to register simulation metrics: %w", err)
		}
		httpMetrics := metrics.NewHTTPMetricsCollector()
		if err := httpMetrics.Register(); err != nil {
			return fmt.Errorf("failed to register http metrics: %w", err)
		}
		detach := simMetrics.Attach(engine.Sim)
		defer detach()
		simMetrics.Start(runCtx, cfg.Metrics.PollInterval)
		defer simMetrics.Stop()
		api.EnableMetrics(cfg.Metrics.Path, httpMetrics)
	}

	grpcServer, err := daemongrpc.NewDaemonServer(ctrl, cfg.Daemon.SocketPath, logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon server: %w", err)
	}
	httpServer := &http.Server{
		Addr:              cfg.Daemon.HTTPAddress,
		Handler:           api.Handler(),
		ReadHeaderTimeout: cfg.Daemon.ReadHeaderTimeout,
	}

	runDone := make(chan error, 1)
	go func() { runDone <- engine.Runner.Run(runCtx) }()

	grpcDone := make(chan error, 1)
	go func() { grpcDone <- grpcServer.Serve(runCtx) }()

	httpDone := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpDone <- fmt.Errorf("http server: %w", err)
			return
		}
		httpDone <- nil
	}()

	logger.Log(common.LevelInfo, "Daemon ready", map[string]interface{}{
		"session_id": sessionID,
		"socket":     cfg.Daemon.SocketPath,
		"http":       cfg.Daemon.HTTPAddress,
	})

	var firstErr error
	select {
	case <-ctx.Done():
	case firstErr = <-runDone:
		runDone = nil
	case firstErr = <-grpcDone:
		grpcDone = nil
	case firstErr = <-httpDone:
		httpDone = nil
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Daemon.ShutdownTimeout)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log(common.LevelWarning, "HTTP shutdown incomplete", map[string]interface{}{"error": err.Error()})
	}

	for _, done := range []chan error{runDone, grpcDone, httpDone} {
		if done == nil {
			continue
		}
		select {
		case err := <-done:
			if firstErr == nil {
				firstErr = err
			}
		case <-shutdownCtx.Done():
			return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
		}
	}

	logger.Log(common.LevelInfo, "Daemon stopped", map[string]interface{}{"session_id": sessionID})
	return firstErr
}

// resolveSessionID picks the session to host. Resuming without an explicit
// id continues the newest stored session.
func resolveSessionID(ctx context.Context, cfg *config.Config, snapshots *persistence.GormSnapshotRepository) (string, error) {
	if cfg.Simulation.SessionID != "" {
		return cfg.Simulation.SessionID, nil
	}
	if cfg.Simulation.Resume {
		sessions, err := snapshots.Sessions(ctx, 1)
		if err != nil {
			return "", err
		}
		if len(sessions) > 0 {
			return sessions[0].SessionID, nil
		}
	}
	return utils.GenerateSessionID("sim"), nil
}

// loggerOrNil keeps a typed nil out of the fanout
func loggerOrNil(l *logging.PersistentLogger) common.Logger {
	if l == nil {
		return nil
	}
	return l
}
