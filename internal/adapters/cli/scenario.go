package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/bootstrap"
)

// NewScenarioCommand creates the scenario command
func NewScenarioCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Work with pharmacy scenario files",
	}

	cmd.AddCommand(newScenarioValidateCommand())

	return cmd
}

func newScenarioValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a scenario file (default: the built-in pharmacy)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			scenario, err := bootstrap.LoadScenario(path)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), scenario)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✓ Scenario %q is valid\n", scenario.Name)
			fmt.Fprintf(w, "  Staff:            %d\n", len(scenario.Staff))
			fmt.Fprintf(w, "  Products:         %d\n", len(scenario.Products))
			fmt.Fprintf(w, "  Materials:        %d\n", len(scenario.Materials))
			if unknown := scenario.UnknownRoles(); len(unknown) > 0 {
				fmt.Fprintf(w, "  Warning: staff with unknown roles will not be assigned: %v\n", unknown)
			}
			return nil
		},
	}
}
