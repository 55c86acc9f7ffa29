package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
)

// userConfigHandler locates the CLI preferences file; tests point it at a temp dir
var userConfigHandler = config.NewUserConfigHandler

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage PharmaSim configuration settings.

Configuration is loaded from multiple sources with priority:
1. Environment variables (PHARMA_* prefix)
2. Config file (config.yaml)
3. Default values

User preferences (default session, socket) are stored in ~/.pharmasim/config.yaml

Examples:
  pharmasim config show
  pharmasim config set-session sim-20260302
  pharmasim config set-socket /run/pharmasim.sock
  pharmasim config clear`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetSessionCommand())
	cmd.AddCommand(newConfigSetSocketCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				fmt.Fprintf(w, "Warning: Failed to load config: %v\n", err)
				fmt.Fprintln(w, "Using default configuration.")
				cfg = config.LoadConfigOrDefault(configPath)
			}

			handler, err := userConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			userCfg, err := handler.Load()
			if err != nil {
				fmt.Fprintf(w, "Warning: Failed to load user config: %v\n\n", err)
				userCfg = &config.UserConfig{}
			}

			if jsonOutput {
				return printJSON(w, map[string]interface{}{"config": cfg, "user": userCfg})
			}

			fmt.Fprintln(w, "PharmaSim Configuration")
			fmt.Fprintln(w, "=======================")

			fmt.Fprintln(w, "User Preferences:")
			fmt.Fprintf(w, "  Config file:      %s\n", handler.Path())
			fmt.Fprintf(w, "  Default Session:  %s\n", orNotSet(userCfg.DefaultSession))
			fmt.Fprintf(w, "  Socket:           %s\n", orNotSet(userCfg.Socket))

			fmt.Fprintln(w, "\nDatabase:")
			fmt.Fprintf(w, "  Type:             %s\n", cfg.Database.Type)
			switch {
			case cfg.Database.URL != "":
				fmt.Fprintf(w, "  URL:              %s\n", maskPassword(cfg.Database.URL))
			case cfg.Database.Type == "sqlite":
				fmt.Fprintf(w, "  Path:             %s\n", cfg.Database.Path)
			default:
				fmt.Fprintf(w, "  Host:             %s:%d\n", cfg.Database.Host, cfg.Database.Port)
				fmt.Fprintf(w, "  Database:         %s\n", cfg.Database.Name)
				fmt.Fprintf(w, "  User:             %s\n", cfg.Database.User)
			}

			fmt.Fprintln(w, "\nSimulation:")
			fmt.Fprintf(w, "  Scenario:         %s\n", orNotSet(cfg.Simulation.Scenario))
			fmt.Fprintf(w, "  Hours:            %02d:00-%02d:00\n", cfg.Simulation.OpeningHour, cfg.Simulation.ClosingHour)
			fmt.Fprintf(w, "  Speed:            %.2fx (%.2f-%.2f)\n", cfg.Simulation.Speed, cfg.Simulation.MinSpeed, cfg.Simulation.MaxSpeed)
			fmt.Fprintf(w, "  Tick Interval:    %s\n", cfg.Simulation.TickInterval)

			fmt.Fprintln(w, "\nIntegrity:")
			fmt.Fprintf(w, "  Sweep Interval:   %s\n", cfg.Integrity.Interval)
			fmt.Fprintf(w, "  Force Complete:   %s\n", yesNo(cfg.Integrity.ForceCompleteEnabled))

			fmt.Fprintln(w, "\nDaemon:")
			fmt.Fprintf(w, "  HTTP Address:     %s\n", cfg.Daemon.HTTPAddress)
			fmt.Fprintf(w, "  Socket Path:      %s\n", cfg.Daemon.SocketPath)
			fmt.Fprintf(w, "  PID File:         %s\n", cfg.Daemon.PIDFile)

			fmt.Fprintln(w, "\nLogging:")
			fmt.Fprintf(w, "  Level:            %s\n", cfg.Logging.Level)
			fmt.Fprintf(w, "  Format:           %s\n", cfg.Logging.Format)
			fmt.Fprintf(w, "  Output:           %s\n", cfg.Logging.Output)

			return nil
		},
	}
}

func newConfigSetSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-session <session-id>",
		Short: "Set the default session for sessions and logs commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := userConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			if err := handler.SetDefaultSession(args[0]); err != nil {
				return fmt.Errorf("failed to set default session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Default session set to %s\n", args[0])
			return nil
		},
	}
}

func newConfigSetSocketCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-socket <path>",
		Short: "Set the default daemon socket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := userConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			if err := handler.SetSocket(args[0]); err != nil {
				return fmt.Errorf("failed to set socket: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Default socket set to %s\n", args[0])
			return nil
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear user preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := userConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			if err := handler.Clear(); err != nil {
				return fmt.Errorf("failed to clear user config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ User preferences cleared")
			return nil
		},
	}
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
