package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/flowbaker/signalwatch/internal/config"
	"github.com/flowbaker/signalwatch/internal/initialization"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "signalwatch",
		Short: "Truth Social market-signal monitor",
		Long: `signalwatch fetches the latest posts of a Truth Social account, classifies each new one
as bullish, bearish or neutral, and alerts on the actionable ones.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewWorkflowCommand())
	rootCmd.AddCommand(NewCheckpointCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newContainer(ctx context.Context) (*initialization.Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	return initialization.NewContainer(ctx, cfg)
}

func closeContainer(container *initialization.Container) {
	if err := container.Close(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close connections: %v\n", err)
	}
}
