package cli

import (
	"fmt"
	"os"

	"github.com/flowbaker/signalwatch/internal/workflow"
	"github.com/spf13/cobra"
)

func NewWorkflowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Render or check the CI workflow that drives the monitor",
	}

	cmd.AddCommand(newWorkflowRenderCommand())
	cmd.AddCommand(newWorkflowCheckCommand())

	return cmd
}

func newWorkflowRenderCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the canonical GitHub Actions workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := workflow.Render(workflow.Default())
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Workflow written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}

func newWorkflowCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Check a workflow file against the trigger, schedule and secrets contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read workflow: %w", err)
			}

			w, err := workflow.Parse(data)
			if err != nil {
				return err
			}

			violations := workflow.Validate(w)
			if len(violations) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
				return nil
			}

			for _, v := range violations {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], v.Error())
			}

			return fmt.Errorf("%d workflow violation(s)", len(violations))
		},
	}

	return cmd
}
