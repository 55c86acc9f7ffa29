package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	daemongrpc "github.com/andrescamacho/pharmasim-go/internal/adapters/grpc"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show simulation status",
		Long: `Show the clock, task counts, worker load and integrity counters of the
session hosted by the daemon.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(5*time.Second, func(ctx context.Context, client daemongrpc.DaemonClient) error {
				st, err := client.Status(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), st)
				}
				printStatus(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}

	return cmd
}

// NewHealthCommand creates the health command
func NewHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check daemon health status",
		Long:  `Verify that the daemon is running and its session is serving.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(5*time.Second, func(ctx context.Context, client daemongrpc.DaemonClient) error {
				healthy, err := client.Healthy(ctx)
				if err != nil {
					return err
				}
				if !healthy {
					return fmt.Errorf("daemon is reachable but not serving")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Daemon is healthy")
				return nil
			})
		},
	}

	return cmd
}

func printStatus(w io.Writer, st simulation.Status) {
	fmt.Fprintf(w, "Session: %s\n", st.SessionID)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Lifecycle:        %s (up %s)\n", st.Lifecycle, st.Uptime.Round(time.Second))
	fmt.Fprintf(w, "  Day:              %d\n", st.Day)
	fmt.Fprintf(w, "  Sim Time:         %s\n", st.SimTime.Format("15:04"))
	fmt.Fprintf(w, "  Open:             %s\n", yesNo(st.Active))
	fmt.Fprintf(w, "  Paused:           %s\n", yesNo(st.Paused))
	fmt.Fprintf(w, "  Speed:            %.2fx\n", st.Speed)

	fmt.Fprintf(w, "\nTasks (%d):\n", st.TotalTasks)
	statuses := make([]task.TaskStatus, 0, len(st.TasksByStatus))
	for s := range st.TasksByStatus {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	for _, s := range statuses {
		fmt.Fprintf(w, "  %-18s %d\n", string(s)+":", st.TasksByStatus[s])
	}

	fmt.Fprintln(w, "\nWorkers:")
	fmt.Fprintf(w, "  Idle:             %d\n", st.IdleWorkers)
	fmt.Fprintf(w, "  Busy:             %d\n", st.BusyWorkers)

	fmt.Fprintln(w, "\nIntegrity:")
	fmt.Fprintf(w, "  Anomalies:        %d\n", st.AnomalyCount)
	fmt.Fprintf(w, "  Verifier Resets:  %d\n", st.VerifierResets)
	fmt.Fprintf(w, "  Sweeps:           %d\n", st.Integrity.Sweeps)
	fmt.Fprintf(w, "  Force Completed:  %d\n", st.Integrity.ForceCompletions)
	if st.LastSweep != nil {
		fmt.Fprintf(w, "  Last Sweep:       %s (ok: %s)\n", formatTimestamp(*st.LastSweep), yesNo(st.LastSweepOK))
	}
}
