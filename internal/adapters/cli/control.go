package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	daemongrpc "github.com/andrescamacho/pharmasim-go/internal/adapters/grpc"
)

// NewControlCommand creates the control command with subcommands
func NewControlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Steer the running simulation",
		Long: `Pause, resume, change speed, open the next day, run an integrity sweep or
save a snapshot of the hosted session.

Examples:
  pharmasim control pause
  pharmasim control speed 2.5
  pharmasim control start-day
  pharmasim control sweep`,
	}

	cmd.AddCommand(newControlActionCommand("pause", "Pause the simulation clock", daemongrpc.ActionPause))
	cmd.AddCommand(newControlActionCommand("resume", "Resume the simulation clock", daemongrpc.ActionResume))
	cmd.AddCommand(newControlActionCommand("start-day", "Open the pharmacy for the next day", daemongrpc.ActionStartDay))
	cmd.AddCommand(newControlActionCommand("sweep", "Run an integrity sweep now", daemongrpc.ActionSweep))
	cmd.AddCommand(newControlActionCommand("snapshot", "Save a snapshot of the session", daemongrpc.ActionSnapshot))
	cmd.AddCommand(newControlSpeedCommand())

	return cmd
}

func newControlActionCommand(use, short, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, daemongrpc.ControlRequest{Action: action})
		},
	}
}

func newControlSpeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "speed <multiplier>",
		Short: "Set the simulation speed multiplier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			speed, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid speed %q: %w", args[0], err)
			}
			return runControl(cmd, daemongrpc.ControlRequest{Action: daemongrpc.ActionSpeed, Speed: speed})
		},
	}
}

func runControl(cmd *cobra.Command, req daemongrpc.ControlRequest) error {
	return withClient(10*time.Second, func(ctx context.Context, client daemongrpc.DaemonClient) error {
		result, err := client.Control(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), result)
		}

		w := cmd.OutOrStdout()
		switch req.Action {
		case daemongrpc.ActionSweep:
			fmt.Fprintln(w, "✓ Integrity sweep complete")
			for _, key := range []string{"WorkersRepaired", "TasksRepaired", "CustomersRecovered", "AutoAssigned"} {
				fmt.Fprintf(w, "  %-20s %v\n", key+":", result[key])
			}
			if errs, ok := result["Errors"].([]interface{}); ok && len(errs) > 0 {
				fmt.Fprintf(w, "  Errors:              %v\n", errs)
			}
		case daemongrpc.ActionSnapshot:
			fmt.Fprintln(w, "✓ Snapshot saved")
		default:
			fmt.Fprintf(w, "✓ %s applied\n", req.Action)
			fmt.Fprintf(w, "  Day %v, paused: %v, speed: %vx\n", result["day"], result["paused"], result["speed"])
		}
		return nil
	})
}
