package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	daemongrpc "github.com/andrescamacho/pharmasim-go/internal/adapters/grpc"
)

const defaultSocketPath = "/tmp/pharmasim-daemon.sock"

var (
	// Global flags
	socketPath string
	configPath string
	jsonOutput bool

	// dialDaemon is replaced in tests with an in-process client
	dialDaemon = func(socket string) (daemongrpc.DaemonClient, error) {
		return daemongrpc.NewDaemonClientGRPC(socket)
	}
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pharmasim",
		Short: "PharmaSim CLI - Control the pharmacy simulation daemon",
		Long: `PharmaSim CLI inspects and steers a running pharmacy simulation.
The CLI communicates with the daemon via Unix socket.

Examples:
  pharmasim status
  pharmasim control pause
  pharmasim control speed 4
  pharmasim tasks list --status IN_PROGRESS
  pharmasim tasks add --type CONSULTATION --customer C-12
  pharmasim sessions list
  pharmasim logs --level WARNING`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("socket") {
				socketPath = resolveSocketPath()
			}
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", defaultSocketPath,
		"Path to daemon Unix socket")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (used by commands that read the database)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Print raw JSON instead of formatted output")

	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewHealthCommand())
	rootCmd.AddCommand(NewControlCommand())
	rootCmd.AddCommand(NewTasksCommand())
	rootCmd.AddCommand(NewSessionsCommand())
	rootCmd.AddCommand(NewLogsCommand())
	rootCmd.AddCommand(NewScenarioCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewDaemonCommand())

	return rootCmd
}

// resolveSocketPath applies PHARMASIM_SOCKET, then the user config, then the default
func resolveSocketPath() string {
	if path := os.Getenv("PHARMASIM_SOCKET"); path != "" {
		return path
	}
	if handler, err := userConfigHandler(); err == nil {
		if userCfg, err := handler.Load(); err == nil && userCfg.Socket != "" {
			return userCfg.Socket
		}
	}
	return defaultSocketPath
}

// withClient dials the daemon and runs fn with a bounded context
func withClient(timeout time.Duration, fn func(ctx context.Context, client daemongrpc.DaemonClient) error) error {
	client, err := dialDaemon(socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx, client)
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
