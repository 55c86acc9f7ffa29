package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/bootstrap"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/pidfile"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search ./, ./configs, /etc/pharmasim)")
	sessionID := flag.String("session", "", "Session to host (overrides simulation.session_id)")
	resume := flag.Bool("resume", false, "Resume the session from its latest snapshot")
	flag.Parse()

	fmt.Println("PharmaSim Daemon v0.1.0")
	fmt.Println("=======================")

	cfg := config.MustLoadConfig(*configPath)
	if *sessionID != "" {
		cfg.Simulation.SessionID = *sessionID
	}
	if *resume {
		cfg.Simulation.Resume = true
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
	fmt.Println("\nDaemon stopped")
}

func run(cfg *config.Config) error {
	if cfg.Daemon.PIDFile != "" {
		fmt.Printf("Acquiring PID file lock: %s\n", cfg.Daemon.PIDFile)
		pf := pidfile.New(cfg.Daemon.PIDFile)
		if err := pf.Acquire(); err != nil {
			return fmt.Errorf("failed to acquire PID file lock: %w", err)
		}
		defer func() {
			if err := pf.Release(); err != nil {
				log.Printf("Warning: failed to release PID file: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving on %s (gRPC) and %s (HTTP)\n", cfg.Daemon.SocketPath, cfg.Daemon.HTTPAddress)
	fmt.Println("Press Ctrl+C to stop")

	return bootstrap.RunDaemon(ctx, cfg)
}
