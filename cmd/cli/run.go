package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one monitor pass and exit",
		Long: `Fetch the latest posts, classify every post newer than the stored checkpoint and send alerts.
This is the command the CI workflow invokes every five minutes. A non-zero exit marks the run failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context())
		},
	}

	return cmd
}

func runOnce(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	container, err := newContainer(ctx)
	if err != nil {
		return err
	}
	defer closeContainer(container)

	runner, err := container.BuildRunner(ctx)
	if err != nil {
		return err
	}

	result, err := runner.Trigger(ctx, domain.TriggerCLI)
	if err != nil {
		return err
	}

	if len(result.Errors) > 0 {
		log.Warn().Strs("errors", result.Errors).Msg("Run finished with errors")
	}

	return nil
}
