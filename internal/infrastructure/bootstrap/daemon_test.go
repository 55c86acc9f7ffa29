package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	daemongrpc "github.com/andrescamacho/pharmasim-go/internal/adapters/grpc"
	"github.com/andrescamacho/pharmasim-go/internal/adapters/metrics"
	"github.com/andrescamacho/pharmasim-go/internal/adapters/persistence"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/database"
)

func TestRunDaemon_ServesUntilCancelled(t *testing.T) {
	// Arrange
	db, err := database.NewTestConnection()
	require.NoError(t, err)
	defer database.Close(db)

	dir, err := os.MkdirTemp("", "psd")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cfg := config.Default()
	cfg.Simulation.SessionID = "daemon-test"
	cfg.Simulation.TickInterval = 5 * time.Millisecond
	cfg.Daemon.SocketPath = filepath.Join(dir, "d.sock")
	cfg.Daemon.HTTPAddress = "127.0.0.1:0"
	cfg.Logging.Persist = true
	t.Cleanup(func() { metrics.Registry = nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runWithDB(ctx, cfg, db) }()

	client, err := daemongrpc.NewDaemonClientGRPC(cfg.Daemon.SocketPath)
	require.NoError(t, err)
	defer client.Close()

	// Act
	require.Eventually(t, func() bool {
		callCtx, stop := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer stop()
		st, err := client.Status(callCtx)
		return err == nil && st.Lifecycle == shared.SessionStatusRunning
	}, 5*time.Second, 20*time.Millisecond)

	callCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	_, err = client.Control(callCtx, daemongrpc.ControlRequest{Action: daemongrpc.ActionSnapshot})
	require.NoError(t, err)

	cancel()

	// Assert
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}

	sessions, err := persistence.NewGormSnapshotRepository(db).Sessions(context.Background(), 0)
	require.NoError(t, err)
	require.NotEmpty(t, sessions)
	assert.Equal(t, "daemon-test", sessions[0].SessionID)
}

func TestResolveSessionID(t *testing.T) {
	db, err := database.NewTestConnection()
	require.NoError(t, err)
	defer database.Close(db)
	repo := persistence.NewGormSnapshotRepository(db)
	ctx := context.Background()

	t.Run("explicit id wins", func(t *testing.T) {
		cfg := config.Default()
		cfg.Simulation.SessionID = "mine"

		id, err := resolveSessionID(ctx, cfg, repo)

		require.NoError(t, err)
		assert.Equal(t, "mine", id)
	})

	t.Run("fresh session gets a generated id", func(t *testing.T) {
		cfg := config.Default()
		cfg.Simulation.Resume = true

		id, err := resolveSessionID(ctx, cfg, repo)

		require.NoError(t, err)
		assert.NotEmpty(t, id)
	})
}
