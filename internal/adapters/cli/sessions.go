package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/persistence"
	"github.com/andrescamacho/pharmasim-go/internal/domain/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/database"
)

// openDatabase connects to the configured database; tests swap it for an in-memory one
var openDatabase = func() (*gorm.DB, func(), error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		database.Close(db)
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, func() { database.Close(db) }, nil
}

// NewSessionsCommand creates the sessions command with subcommands
func NewSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored session snapshots",
		Long: `Read session snapshots straight from the database. The daemon does not
need to be running.`,
	}

	cmd.AddCommand(newSessionsListCommand())
	cmd.AddCommand(newSessionsShowCommand())
	cmd.AddCommand(newSessionsDeleteCommand())

	return cmd
}

func newSessionsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			sessions, err := persistence.NewGormSnapshotRepository(db).Sessions(ctx, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), sessions)
			}

			w := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(w, "No sessions found")
				return nil
			}
			fmt.Fprintf(w, "%-36s %-5s %-17s %s\n", "SESSION", "DAY", "SIM TIME", "SAVED AT")
			fmt.Fprintln(w, rule)
			for _, s := range sessions {
				fmt.Fprintf(w, "%-36s %-5d %-17s %s\n",
					truncate(s.SessionID, 36), s.Day, s.SimTime.Format("2006-01-02 15:04"), formatTimestamp(s.SavedAt))
			}
			fmt.Fprintf(w, "\nTotal: %d sessions\n", len(sessions))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to show (0 = all)")

	return cmd
}

func newSessionsShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show a stored snapshot (default: the configured default session)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := sessionArg(args)
			if err != nil {
				return err
			}

			db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			snap, err := persistence.NewGormSnapshotRepository(db).Load(ctx, sessionID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), snap)
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}

	return cmd
}

func newSessionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a stored session and its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := persistence.NewGormSnapshotRepository(db).Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Session %s deleted\n", args[0])
			return nil
		},
	}
}

// sessionArg returns the explicit session or the user's default
func sessionArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	handler, err := userConfigHandler()
	if err != nil {
		return "", err
	}
	userCfg, err := handler.Load()
	if err != nil {
		return "", err
	}
	if userCfg.DefaultSession == "" {
		return "", fmt.Errorf("no session specified: pass a session id or set one with 'pharmasim config set-session'")
	}
	return userCfg.DefaultSession, nil
}

func printSnapshot(w io.Writer, snap *simulation.Snapshot) {
	fmt.Fprintf(w, "Session: %s\n", snap.SessionID)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Saved At:         %s\n", formatTimestamp(snap.SavedAt))
	fmt.Fprintf(w, "  Day:              %d\n", snap.Clock.Day)
	fmt.Fprintf(w, "  Sim Time:         %s\n", snap.Clock.SimTime.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  Open:             %s\n", yesNo(snap.Clock.IsActive))
	fmt.Fprintf(w, "  Speed:            %.2fx\n", snap.Clock.Speed)
	fmt.Fprintf(w, "  Next Sequence:    %d\n", snap.NextSequence)

	fmt.Fprintf(w, "\nWorkers (%d):\n", len(snap.Workers))
	for _, wk := range snap.Workers {
		current := wk.CurrentTaskID
		if current == "" {
			current = "idle"
		}
		fmt.Fprintf(w, "  %-14s %-12s %s\n", wk.ID, wk.Role, current)
	}

	fmt.Fprintln(w)
	printTasks(w, snap.Tasks)
}

// NewLogsCommand creates the logs command
func NewLogsCommand() *cobra.Command {
	var (
		limit int
		level string
		since time.Duration
	)

	cmd := &cobra.Command{
		Use:   "logs [session-id]",
		Short: "Show persisted warnings and errors of a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := sessionArg(args)
			if err != nil {
				return err
			}

			db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var levelPtr *string
			if level != "" {
				upper := strings.ToUpper(level)
				levelPtr = &upper
			}
			var sincePtr *time.Time
			if since > 0 {
				t := time.Now().Add(-since)
				sincePtr = &t
			}

			repo := persistence.NewGormSimulationLogRepository(db, nil)
			entries, err := repo.GetLogs(ctx, sessionID, limit, levelPtr, sincePtr)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), entries)
			}

			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No logs found")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(w, "%s [%-7s] %s", formatTimestamp(e.Timestamp), e.Level, e.Message)
				if len(e.Metadata) > 0 {
					fmt.Fprintf(w, " %v", e.Metadata)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")
	cmd.Flags().StringVar(&level, "level", "", "Only show this level (WARNING, ERROR)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only show entries newer than this (e.g. 1h)")

	return cmd
}
