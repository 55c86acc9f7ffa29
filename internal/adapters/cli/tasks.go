package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	daemongrpc "github.com/andrescamacho/pharmasim-go/internal/adapters/grpc"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// NewTasksCommand creates the tasks command with subcommands
func NewTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and submit tasks",
		Long:  `List live tasks, submit new ones and force-complete stuck work.`,
	}

	cmd.AddCommand(newTasksListCommand())
	cmd.AddCommand(newTasksAddCommand())
	cmd.AddCommand(newTasksForceCompleteCommand())

	return cmd
}

func newTasksListCommand() *cobra.Command {
	var (
		status   string
		taskType string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(10*time.Second, func(ctx context.Context, client daemongrpc.DaemonClient) error {
				records, err := client.Tasks(ctx)
				if err != nil {
					return err
				}
				records = filterTasks(records, status, taskType)
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), records)
				}
				printTasks(cmd.OutOrStdout(), records)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, PENDING_DEPENDENT, IN_PROGRESS, COMPLETED)")
	cmd.Flags().StringVar(&taskType, "type", "", "Filter by task type")

	return cmd
}

func newTasksAddCommand() *cobra.Command {
	var req simulation.TaskRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit a task",
		Long: `Submit a task to the hosted session. Role and duration default per task type.

Examples:
  pharmasim tasks add --type CONSULTATION --customer C-12
  pharmasim tasks add --type FILL_PRESCRIPTION --prescription RX-7 --depends-on T-3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Type == "" {
				return fmt.Errorf("--type is required")
			}
			return withClient(10*time.Second, func(ctx context.Context, client daemongrpc.DaemonClient) error {
				record, err := client.AddTask(ctx, req)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), record)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Task %s added (%s, %s)\n", record.ID, record.Type, record.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.ID, "id", "", "Task ID (generated when empty)")
	cmd.Flags().StringVar(&req.Type, "type", "", "Task type")
	cmd.Flags().Float64Var(&req.TotalTime, "total-time", 0, "Work required in game minutes")
	cmd.Flags().StringVar(&req.Role, "role", "", "Required worker role")
	cmd.Flags().StringVar(&req.Priority, "priority", "", "Priority hint (URGENT, HIGH, NORMAL, LOW)")
	cmd.Flags().StringVar(&req.CustomerID, "customer", "", "Customer the task serves")
	cmd.Flags().StringVar(&req.PrescriptionID, "prescription", "", "Prescription the task fills")
	cmd.Flags().StringVar(&req.ProductID, "product", "", "Product the task produces")
	cmd.Flags().StringVar(&req.DependsOn, "depends-on", "", "Task that must complete first")

	return cmd
}

func newTasksForceCompleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "force-complete <task-id>",
		Short: "Complete a task immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, daemongrpc.ControlRequest{Action: daemongrpc.ActionForceComplete, TaskID: args[0]})
		},
	}
}

func filterTasks(records []task.Record, status, taskType string) []task.Record {
	if status == "" && taskType == "" {
		return records
	}
	out := make([]task.Record, 0, len(records))
	for _, r := range records {
		if status != "" && !strings.EqualFold(r.Status, status) {
			continue
		}
		if taskType != "" && !strings.EqualFold(r.Type, taskType) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func printTasks(w io.Writer, records []task.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No tasks found")
		return
	}

	fmt.Fprintf(w, "%-20s %-22s %-18s %-12s %-9s %s\n",
		"TASK ID", "TYPE", "STATUS", "ROLE", "PROGRESS", "WORKER")
	fmt.Fprintln(w, rule)
	for _, r := range records {
		worker := r.AssignedTo
		if worker == "" {
			worker = "-"
		}
		fmt.Fprintf(w, "%-20s %-22s %-18s %-12s %-9s %s\n",
			truncate(r.ID, 20),
			r.Type,
			r.Status,
			r.RoleNeeded,
			formatPercent(r.Progress, r.TotalTime),
			worker,
		)
	}
	fmt.Fprintf(w, "\nTotal: %d tasks\n", len(records))
}
