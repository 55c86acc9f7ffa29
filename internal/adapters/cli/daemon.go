package cli

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/pidfile"
)

// NewDaemonCommand creates the daemon command
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Inspect or stop the local daemon process",
		Long: `Check the daemon process through its PID file. Start the daemon with the
pharmasim-daemon binary.`,
	}

	cmd.AddCommand(newDaemonStatusCommand())
	cmd.AddCommand(newDaemonStopCommand())

	return cmd
}

func daemonPIDFile() *pidfile.PIDFile {
	cfg := config.LoadConfigOrDefault(configPath)
	return pidfile.New(cfg.Daemon.PIDFile)
}

func newDaemonStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon process is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			pf := daemonPIDFile()
			pid, err := pf.Running()
			if errors.Is(err, pidfile.ErrNotRunning) {
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon is not running (PID file: %s)\n", pf.Path())
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Daemon is running (PID %d)\n", pid)
			return nil
		},
	}
}

func newDaemonStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask the daemon to shut down gracefully",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := daemonPIDFile().Running()
			if err != nil {
				return err
			}
			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find daemon process: %w", err)
			}
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to signal daemon: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Sent SIGTERM to daemon (PID %d)\n", pid)
			return nil
		},
	}
}
